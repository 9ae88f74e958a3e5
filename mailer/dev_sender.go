package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DevSender writes each dispatch to a directory instead of sending it: the
// attachment, the HTML body and a JSON metadata file.
type DevSender struct {
	dir string
	now func() time.Time
}

// NewDevSender creates a sender writing into dir, created on first use.
func NewDevSender(dir string) *DevSender {
	return &DevSender{dir: dir, now: time.Now}
}

type devMetadata struct {
	Timestamp string   `json:"timestamp"`
	Dispatch  Dispatch `json:"dispatch"`
	Bytes     int      `json:"bytes"`
}

// Send implements Sender.
func (d *DevSender) Send(ctx context.Context, dispatch Dispatch) error {
	if err := dispatch.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: failed to create directory: %v", ErrFailedToSend, err)
	}

	now := d.now()
	base := fmt.Sprintf("%s_%s", now.Format("2006_01_02_150405"), sanitizeFilename(dispatch.Email))

	if err := os.WriteFile(filepath.Join(d.dir, base+"_"+dispatch.Filename), dispatch.Image, 0o644); err != nil {
		return fmt.Errorf("%w: failed to write attachment: %v", ErrFailedToSend, err)
	}
	body, err := renderBody(dispatch)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFailedToSend, err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, base+".html"), []byte(body), 0o644); err != nil {
		return fmt.Errorf("%w: failed to write HTML file: %v", ErrFailedToSend, err)
	}
	meta, err := json.MarshalIndent(devMetadata{
		Timestamp: now.Format(time.RFC3339),
		Dispatch:  dispatch,
		Bytes:     len(dispatch.Image),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal metadata: %v", ErrFailedToSend, err)
	}
	if err := os.WriteFile(filepath.Join(d.dir, base+".json"), meta, 0o644); err != nil {
		return fmt.Errorf("%w: failed to write JSON file: %v", ErrFailedToSend, err)
	}
	return nil
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

func sanitizeFilename(s string) string {
	s = unsafeFilename.ReplaceAllString(strings.ReplaceAll(s, "@", "_at_"), "")
	if s == "" {
		return "email"
	}
	return strings.ToLower(s)
}
