package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// APIMailer posts to a transactional email API (Resend-compatible shape).
type APIMailer struct {
	BaseURL string
	APIKey  string
	From    string
	Client  *http.Client
}

func NewAPIMailer(baseURL, apiKey, from string) *APIMailer {
	return &APIMailer{
		BaseURL: baseURL,
		APIKey:  apiKey,
		From:    from,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type sendReq struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m *APIMailer) Send(ctx context.Context, to, subject, html string) error {
	body, err := json.Marshal(sendReq{From: m.From, To: []string{to}, Subject: subject, HTML: html})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("email api: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// LogMailer stands in when no API key is configured.
type LogMailer struct{ Log *zap.Logger }

func (m *LogMailer) Send(_ context.Context, to, subject, _ string) error {
	m.Log.Info("email suppressed (no EMAIL_API_KEY)", zap.String("to", to), zap.String("subject", subject))
	return nil
}
