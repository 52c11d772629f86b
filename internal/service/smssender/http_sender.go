package smssender

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPSender posts messages to a form-based SMS gateway.
type HTTPSender struct {
	baseURL  string
	userID   string
	password string
	senderID string
	apiKey   string
	client   *http.Client
}

func NewHTTPSender(cfg Config) *HTTPSender {
	return &HTTPSender{
		baseURL:  cfg.BaseURL,
		userID:   cfg.UserID,
		password: cfg.Password,
		senderID: cfg.SenderID,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *HTTPSender) Send(ctx context.Context, toE164, message string) error {
	start := time.Now()

	form := url.Values{}
	form.Set("userid", s.userID)
	form.Set("password", s.password)
	form.Set("senderid", s.senderID)
	form.Set("sendMethod", "quick")
	form.Set("msgType", "text")
	form.Set("msg", message)
	form.Set("mobile", toE164)
	form.Set("output", "json")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	// Gateways accept either an API key header or userid/password form auth.
	if s.apiKey != "" {
		httpReq.Header.Set("apikey", s.apiKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		log.Printf("[SMS] HTTP error sending to %s: %v", toE164, err)
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	duration := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		log.Printf("[SMS] Failed sending | Recipient=%s | Status=%d | Duration=%v | Response=%s",
			toE164, resp.StatusCode, duration, string(body))
		return fmt.Errorf("sms api error: %s", string(body))
	}

	log.Printf("[SMS] Sent | Recipient=%s | Duration=%v", toE164, duration)
	return nil
}
