package mailer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mrz1836/postmark"
)

// PostmarkSender delivers certificates as Postmark attachments.
type PostmarkSender struct {
	client *postmark.Client
	config Config
}

// NewPostmarkSender validates cfg and creates the sender.
func NewPostmarkSender(cfg Config) (*PostmarkSender, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, fmt.Errorf("%w: PostmarkServerToken is required", ErrInvalidConfig)
	}
	if cfg.PostmarkAccountToken == "" {
		return nil, fmt.Errorf("%w: PostmarkAccountToken is required", ErrInvalidConfig)
	}
	if !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, fmt.Errorf("%w: SenderEmail must be a valid email address", ErrInvalidConfig)
	}
	if cfg.SupportEmail != "" && !emailRegex.MatchString(cfg.SupportEmail) {
		return nil, fmt.Errorf("%w: SupportEmail must be a valid email address", ErrInvalidConfig)
	}
	if cfg.Subject == "" {
		cfg.Subject = "Your certificate"
	}
	return &PostmarkSender{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		config: cfg,
	}, nil
}

// Send implements Sender.
func (s *PostmarkSender) Send(ctx context.Context, d Dispatch) error {
	if err := d.Validate(); err != nil {
		return err
	}
	body, err := renderBody(d)
	if err != nil {
		return errors.Join(ErrFailedToSend, err)
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.config.SenderEmail,
		ReplyTo:  s.config.SupportEmail,
		To:       d.Email,
		Subject:  s.config.Subject,
		Tag:      "certificate-" + d.TemplateType,
		HTMLBody: body,
		Attachments: []postmark.Attachment{{
			Name:        d.Filename,
			Content:     base64.StdEncoding.EncodeToString(d.Image),
			ContentType: d.ContentType,
		}},
		TrackOpens: true,
	})
	if err != nil {
		return errors.Join(ErrFailedToSend, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrFailedToSend,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return nil
}
