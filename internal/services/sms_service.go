package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/synesthesie/verification/internal/config"
)

// SMSService delivers plain text messages through seven.io or ClickSend.
type SMSService struct {
	cfg    *config.Config
	client *http.Client
}

type clickSendMessage struct {
	Source string `json:"source"`
	Body   string `json:"body"`
	To     string `json:"to"`
	From   string `json:"from,omitempty"`
}

type clickSendPayload struct {
	Messages []clickSendMessage `json:"messages"`
}

func NewSMSService(cfg *config.Config) *SMSService {
	return &SMSService{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendSMS sends content to the phone number to. With SMS disabled the message
// is only logged.
func (s *SMSService) SendSMS(ctx context.Context, to, content string) error {
	if !s.cfg.SMSEnabled {
		log.Info().Str("to", to).Msg("sms disabled, message not sent")
		return nil
	}
	switch strings.ToLower(s.cfg.SMSProvider) {
	case "clicksend":
		return s.sendViaClickSend(ctx, to, content)
	default:
		return s.sendViaSeven(ctx, to, content)
	}
}

// seven.io: POST {base}/sms, X-Api-Key header, form to/text/from
func (s *SMSService) sendViaSeven(ctx context.Context, to, content string) error {
	if s.cfg.SevenAPIKey == "" {
		return fmt.Errorf("seven api key missing")
	}
	form := url.Values{}
	form.Set("to", to)
	form.Set("text", content)
	if s.cfg.SMSFrom != "" {
		form.Set("from", s.cfg.SMSFrom)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.cfg.SevenBaseURL, "/")+"/sms", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Api-Key", s.cfg.SevenAPIKey)
	return s.do(req, "seven")
}

func (s *SMSService) sendViaClickSend(ctx context.Context, to, content string) error {
	if s.cfg.ClickSendUsername == "" || s.cfg.ClickSendAPIKey == "" {
		return fmt.Errorf("clicksend credentials missing")
	}
	payload := clickSendPayload{Messages: []clickSendMessage{{Source: "api", Body: content, To: to, From: s.cfg.SMSFrom}}}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.cfg.ClickSendBaseURL, "/")+"/sms/send", bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.cfg.ClickSendUsername, s.cfg.ClickSendAPIKey)
	return s.do(req, "clicksend")
}

func (s *SMSService) do(req *http.Request, provider string) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", provider, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s send failed with status %d", provider, resp.StatusCode)
	}
	return nil
}
