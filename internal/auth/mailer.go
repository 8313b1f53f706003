package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"qtrestaurant/internal/config"
)

// EmailJS sends passcodes through the EmailJS REST API.
type EmailJS struct {
	cfg  config.EmailJSConfig
	http *http.Client
}

// NewEmailJS creates a mailer for the configured template. A nil client
// uses a 15 second timeout.
func NewEmailJS(cfg config.EmailJSConfig, hc *http.Client) *EmailJS {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.emailjs.com"
	}
	return &EmailJS{cfg: cfg, http: hc}
}

type emailJSRequest struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	TemplateParams map[string]string `json:"template_params"`
}

// SendPasscode implements Mailer.
func (m *EmailJS) SendPasscode(ctx context.Context, to, passcode string, expires time.Time) error {
	body, err := json.Marshal(emailJSRequest{
		ServiceID:  m.cfg.ServiceID,
		TemplateID: m.cfg.TemplateID,
		UserID:     m.cfg.PublicKey,
		TemplateParams: map[string]string{
			"to_email": to,
			"passcode": passcode,
			"time":     expires.Format("15:04"),
		},
	})
	if err != nil {
		return err
	}

	url := strings.TrimRight(m.cfg.BaseURL, "/") + "/api/v1.0/email/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "emailjs")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("emailjs returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

var _ Mailer = (*EmailJS)(nil)
