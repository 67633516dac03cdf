package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synesthesie/verification/internal/config"
)

func newTestEmailService(t *testing.T, dir string) (*EmailService, *[]string) {
	t.Helper()
	cfg := &config.Config{SMTPFrom: "no-reply@autossav.com", SMTPFromName: "Autossav", EmailTemplateDir: dir}
	service := NewEmailService(cfg)

	var sent []string
	service.transport = func(ctx context.Context, to string, message []byte) error {
		sent = append(sent, to+"\n"+string(message))
		return nil
	}
	return service, &sent
}

func TestEmailService_SendTemplate_FromDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "register_code.html"),
		[]byte(`<p>{{.code1}}-{{.code2}}-{{.code3}}-{{.code4}}</p>`), 0o644))

	service, sent := newTestEmailService(t, dir)
	err := service.SendTemplate(context.Background(), "a@x.com", "Complete sign up", "register_code.html", CodeDataFields("0479"))
	require.NoError(t, err)

	require.Len(t, *sent, 1)
	msg := (*sent)[0]
	assert.Contains(t, msg, "To: a@x.com\r\n")
	assert.Contains(t, msg, "Subject: Complete sign up\r\n")
	assert.Contains(t, msg, "From: Autossav <no-reply@autossav.com>\r\n")
	assert.Contains(t, msg, "<p>0-4-7-9</p>")
}

func TestEmailService_SendTemplate_Errors(t *testing.T) {
	service, sent := newTestEmailService(t, t.TempDir())

	err := service.SendTemplate(context.Background(), "a@x.com", "s", "missing.html", nil)
	assert.ErrorContains(t, err, "not found")

	require.NoError(t, service.RegisterTemplate("broken.html", `{{template "nope"}}`))
	err = service.SendTemplate(context.Background(), "a@x.com", "s", "broken.html", nil)
	assert.Error(t, err)
	assert.Empty(t, *sent)
}

func TestEmailService_ShippedTemplates(t *testing.T) {
	service, sent := newTestEmailService(t, filepath.Join("..", "..", "templates"))

	for _, id := range []string{"register_code.html", "verify_email_code.html"} {
		require.NoError(t, service.SendTemplate(context.Background(), "a@x.com", "s", id, CodeDataFields("1234")), id)
	}
	require.Len(t, *sent, 2)
	assert.Contains(t, (*sent)[0], "<span>1</span><span>2</span><span>3</span><span>4</span>")
}
