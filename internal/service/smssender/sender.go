package smssender

import (
	"context"
	"fmt"
	"log"
)

// Sender delivers an SMS message to an E.164 phone number.
//
// To plug in a different carrier, add an implementation here and teach New
// about it; nothing else in the service changes.
type Sender interface {
	Send(ctx context.Context, toE164, message string) error
}

type Config struct {
	Provider string // "http" or "log"
	BaseURL  string
	UserID   string
	Password string
	SenderID string
	APIKey   string
}

// New selects the configured provider. The log sender is the development
// default so the service runs without carrier credentials.
func New(cfg Config) (Sender, error) {
	switch cfg.Provider {
	case "http":
		return NewHTTPSender(cfg), nil
	case "log", "":
		return NewLogSender(), nil
	default:
		return nil, fmt.Errorf("unknown sms provider: %s", cfg.Provider)
	}
}

// LogSender writes messages to the process log instead of a carrier.
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) Send(_ context.Context, toE164, message string) error {
	log.Printf("[SMS] (log sender) Recipient=%s | Message=%q", toE164, message)
	return nil
}
