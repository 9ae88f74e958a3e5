// Package mailer delivers rendered certificates by email.
package mailer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Sender delivers one certificate. Success and failure are the only outcomes.
type Sender interface {
	Send(ctx context.Context, d Dispatch) error
}

// Dispatch is a single delivery request.
type Dispatch struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	LookupKey    string `json:"lookup_key"`
	TemplateType string `json:"template_type"`
	Filename     string `json:"filename"`
	ContentType  string `json:"content_type"`
	Image        []byte `json:"-"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks the dispatch before it reaches a provider.
func (d Dispatch) Validate() error {
	if !emailRegex.MatchString(strings.TrimSpace(d.Email)) {
		return fmt.Errorf("%w: invalid email address %q", ErrInvalidParams, d.Email)
	}
	if len(d.Image) == 0 {
		return fmt.Errorf("%w: certificate image is empty", ErrInvalidParams)
	}
	if d.Filename == "" {
		return fmt.Errorf("%w: filename is required", ErrInvalidParams)
	}
	return nil
}

// Config holds delivery settings. Postmark tokens may be empty in development,
// where DevSender is used instead.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"certificates@example.com"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@example.com"`
	Subject              string `env:"EMAIL_SUBJECT" envDefault:"Your certificate"`
	DevDir               string `env:"EMAIL_DEV_DIR" envDefault:"output/emails"`
}

// Postmark reports whether production delivery is configured.
func (c Config) Postmark() bool {
	return c.PostmarkServerToken != "" && c.PostmarkAccountToken != ""
}

// New returns a Postmark sender when tokens are configured, otherwise a DevSender.
func New(cfg Config) (Sender, error) {
	if cfg.Postmark() {
		return NewPostmarkSender(cfg)
	}
	return NewDevSender(cfg.DevDir), nil
}
