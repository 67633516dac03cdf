package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synesthesie/verification/internal/config"
)

func TestSMSService_Seven(t *testing.T) {
	var got struct {
		path, apiKey, to, text, from string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got.path = r.URL.Path
		got.apiKey = r.Header.Get("X-Api-Key")
		got.to = r.PostForm.Get("to")
		got.text = r.PostForm.Get("text")
		got.from = r.PostForm.Get("from")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := &config.Config{SMSEnabled: true, SMSProvider: "seven", SevenAPIKey: "key-1", SevenBaseURL: srv.URL, SMSFrom: "Autossav"}
	err := NewSMSService(cfg).SendSMS(context.Background(), "15551234567", "code 1234")
	require.NoError(t, err)

	assert.Equal(t, "/sms", got.path)
	assert.Equal(t, "key-1", got.apiKey)
	assert.Equal(t, "15551234567", got.to)
	assert.Equal(t, "code 1234", got.text)
	assert.Equal(t, "Autossav", got.from)
}

func TestSMSService_ClickSend(t *testing.T) {
	var payload clickSendPayload
	var user, pass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sms/send", r.URL.Path)
		user, pass, _ = r.BasicAuth()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := &config.Config{
		SMSEnabled: true, SMSProvider: "ClickSend", SMSFrom: "Autossav",
		ClickSendUsername: "user", ClickSendAPIKey: "secret", ClickSendBaseURL: srv.URL,
	}
	require.NoError(t, NewSMSService(cfg).SendSMS(context.Background(), "15551234567", "code 1234"))

	assert.Equal(t, "user", user)
	assert.Equal(t, "secret", pass)
	require.Len(t, payload.Messages, 1)
	assert.Equal(t, "15551234567", payload.Messages[0].To)
	assert.Equal(t, "code 1234", payload.Messages[0].Body)
}

func TestSMSService_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	t.Run("provider error status", func(t *testing.T) {
		cfg := &config.Config{SMSEnabled: true, SevenAPIKey: "key", SevenBaseURL: srv.URL}
		err := NewSMSService(cfg).SendSMS(context.Background(), "15551234567", "x")
		assert.ErrorContains(t, err, "502")
	})

	t.Run("missing credentials", func(t *testing.T) {
		cfg := &config.Config{SMSEnabled: true, SMSProvider: "clicksend"}
		assert.Error(t, NewSMSService(cfg).SendSMS(context.Background(), "15551234567", "x"))
	})

	t.Run("disabled", func(t *testing.T) {
		cfg := &config.Config{SMSEnabled: false}
		assert.NoError(t, NewSMSService(cfg).SendSMS(context.Background(), "15551234567", "x"))
	})
}
