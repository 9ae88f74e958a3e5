package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDispatch() Dispatch {
	return Dispatch{
		ID:           "0f8fad5b-d9cb-469f-a165-70867728950e",
		Email:        "grace@example.com",
		Name:         "Grace Hopper",
		LookupKey:    "IPC-TM-1001",
		TemplateType: "participation",
		Filename:     "certificate-participation-IPC-TM-1001.png",
		ContentType:  "image/png",
		Image:        []byte("\x89PNG fake"),
	}
}

func TestDispatchValidate(t *testing.T) {
	require.NoError(t, sampleDispatch().Validate())

	bad := sampleDispatch()
	bad.Email = "not-an-email"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidParams)

	bad = sampleDispatch()
	bad.Image = nil
	assert.ErrorIs(t, bad.Validate(), ErrInvalidParams)

	bad = sampleDispatch()
	bad.Filename = ""
	assert.ErrorIs(t, bad.Validate(), ErrInvalidParams)
}

func TestNewSelectsSender(t *testing.T) {
	s, err := New(Config{DevDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &DevSender{}, s)

	s, err = New(Config{
		PostmarkServerToken:  "server",
		PostmarkAccountToken: "account",
		SenderEmail:          "certificates@example.com",
	})
	require.NoError(t, err)
	assert.IsType(t, &PostmarkSender{}, s)
}

func TestNewPostmarkSenderInvalidConfig(t *testing.T) {
	cases := map[string]Config{
		"server token":  {PostmarkAccountToken: "a", SenderEmail: "a@example.com"},
		"account token": {PostmarkServerToken: "s", SenderEmail: "a@example.com"},
		"sender":        {PostmarkServerToken: "s", PostmarkAccountToken: "a", SenderEmail: "nope"},
		"support":       {PostmarkServerToken: "s", PostmarkAccountToken: "a", SenderEmail: "a@example.com", SupportEmail: "nope"},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := NewPostmarkSender(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Nil(t, s)
		})
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestPostmarkSenderSendsAttachment(t *testing.T) {
	s, err := NewPostmarkSender(Config{
		PostmarkServerToken:  "server",
		PostmarkAccountToken: "account",
		SenderEmail:          "certificates@example.com",
		Subject:              "Your certificate",
	})
	require.NoError(t, err)

	var payload map[string]any
	s.client.HTTPClient = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		data, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(data, &payload))
		return jsonResponse(`{"To":"grace@example.com","MessageID":"abc","ErrorCode":0,"Message":"OK"}`), nil
	})}

	d := sampleDispatch()
	require.NoError(t, s.Send(context.Background(), d))

	assert.Equal(t, "grace@example.com", payload["To"])
	assert.Equal(t, "certificates@example.com", payload["From"])
	attachments, ok := payload["Attachments"].([]any)
	require.True(t, ok, "attachments missing: %v", payload)
	require.Len(t, attachments, 1)
	att := attachments[0].(map[string]any)
	assert.Equal(t, d.Filename, att["Name"])
	assert.Equal(t, base64.StdEncoding.EncodeToString(d.Image), att["Content"])
	assert.Contains(t, payload["HtmlBody"], "IPC-TM-1001")
}

func TestPostmarkSenderReportsProviderError(t *testing.T) {
	s, err := NewPostmarkSender(Config{
		PostmarkServerToken:  "server",
		PostmarkAccountToken: "account",
		SenderEmail:          "certificates@example.com",
	})
	require.NoError(t, err)
	s.client.HTTPClient = &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return jsonResponse(`{"ErrorCode":406,"Message":"Inactive recipient"}`), nil
	})}

	err = s.Send(context.Background(), sampleDispatch())
	assert.ErrorIs(t, err, ErrFailedToSend)
}

func TestDevSenderWritesFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "emails")
	s := NewDevSender(dir)
	s.now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }

	d := sampleDispatch()
	require.NoError(t, s.Send(context.Background(), d))

	base := filepath.Join(dir, "2026_03_14_092653_grace_at_example.com")
	img, err := os.ReadFile(base + "_" + d.Filename)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(d.Image, img))

	html, err := os.ReadFile(base + ".html")
	require.NoError(t, err)
	assert.Contains(t, string(html), "Grace Hopper")

	var meta devMetadata
	raw, err := os.ReadFile(base + ".json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "IPC-TM-1001", meta.Dispatch.LookupKey)
	assert.Equal(t, len(d.Image), meta.Bytes)
}

func TestDevSenderRejectsInvalidDispatch(t *testing.T) {
	d := sampleDispatch()
	d.Email = ""
	assert.ErrorIs(t, NewDevSender(t.TempDir()).Send(context.Background(), d), ErrInvalidParams)
}
