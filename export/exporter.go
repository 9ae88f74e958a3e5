// Package export turns a rendered certificate into a downloadable artifact and
// optionally hands it to email delivery.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ByLCY/certify/async"
	"github.com/ByLCY/certify/mailer"
)

// DeliveryStatus is the email outcome reported next to a download.
type DeliveryStatus string

const (
	DeliverySkipped DeliveryStatus = "skipped"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryError   DeliveryStatus = "email-error"
)

// DefaultDeliveryTimeout bounds one email dispatch.
const DefaultDeliveryTimeout = 30 * time.Second

// Delivery reports one email dispatch. Overlapping is set when another dispatch
// for the same key and address was still in flight when this one started.
type Delivery struct {
	ID          string         `json:"id,omitempty"`
	Status      DeliveryStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	Overlapping bool           `json:"overlapping,omitempty"`
}

// Request describes one export.
type Request struct {
	TemplateType string
	Image        image.Image
	LookupKey    string
	Name         string
	Email        string
}

// Result is a completed download plus its delivery future. The download is
// final when Export returns; delivery never changes it.
type Result struct {
	Artifact    []byte
	Filename    string
	ContentType string
	Location    string

	delivery *async.Future[Delivery]
}

// Delivery returns the email outcome future. It never resolves with an error;
// failures are reported as DeliveryError.
func (r *Result) Delivery() *async.Future[Delivery] {
	return r.delivery
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithSender enables email delivery.
func WithSender(s mailer.Sender) Option {
	return func(e *Exporter) { e.sender = s }
}

// WithFormat sets the artifact encoding.
func WithFormat(f Format) Option {
	return func(e *Exporter) {
		if f != "" {
			e.format = f
		}
	}
}

// WithLogger sets the exporter logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithDeliveryTimeout bounds each email dispatch.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(e *Exporter) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// Exporter encodes, stores and dispatches certificates.
type Exporter struct {
	store   Store
	sender  mailer.Sender
	format  Format
	timeout time.Duration
	logger  *slog.Logger
	newID   func() string

	mu       sync.Mutex
	inFlight map[string]int
}

// New creates an exporter writing to store.
func New(store Store, opts ...Option) *Exporter {
	e := &Exporter{
		store:    store,
		format:   FormatPNG,
		timeout:  DefaultDeliveryTimeout,
		logger:   slog.Default(),
		newID:    uuid.NewString,
		inFlight: make(map[string]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export encodes and stores the certificate, then starts email delivery when the
// request carries an address. Errors are returned only for the download path.
func (e *Exporter) Export(ctx context.Context, req Request) (*Result, error) {
	if req.Image == nil {
		return nil, ErrNoImage
	}
	if strings.TrimSpace(req.TemplateType) == "" {
		return nil, ErrNoTemplateType
	}

	data, err := Encode(req.Image, e.format)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Artifact:    data,
		Filename:    Filename(req.TemplateType, req.LookupKey, req.Name, e.format),
		ContentType: e.format.ContentType(),
	}
	if e.store != nil {
		loc, err := e.store.Put(ctx, res.Filename, data, res.ContentType)
		if err != nil {
			return nil, err
		}
		res.Location = loc
	}
	e.logger.InfoContext(ctx, "certificate exported",
		slog.String("template", req.TemplateType),
		slog.String("filename", res.Filename),
		slog.String("location", res.Location))

	email := strings.TrimSpace(req.Email)
	if email == "" || e.sender == nil {
		res.delivery = async.Resolved(Delivery{Status: DeliverySkipped}, nil)
		return res, nil
	}

	dispatch := mailer.Dispatch{
		ID:           e.newID(),
		Email:        email,
		Name:         req.Name,
		LookupKey:    req.LookupKey,
		TemplateType: req.TemplateType,
		Filename:     res.Filename,
		ContentType:  res.ContentType,
		Image:        data,
	}
	overlapping := e.begin(dispatch)

	// 投递与下载解耦：请求上下文结束不应取消邮件
	sendCtx := context.WithoutCancel(ctx)
	res.delivery = async.Go(sendCtx, func(ctx context.Context) (Delivery, error) {
		defer e.end(dispatch)
		return e.deliver(ctx, dispatch, overlapping), nil
	})
	return res, nil
}

func (e *Exporter) deliver(ctx context.Context, d mailer.Dispatch, overlapping bool) Delivery {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out := Delivery{ID: d.ID, Status: DeliverySent, Overlapping: overlapping}
	if err := e.sender.Send(ctx, d); err != nil {
		out.Status = DeliveryError
		out.Error = userMessage(err)
		e.logger.ErrorContext(ctx, "certificate email failed",
			slog.String("dispatch_id", d.ID),
			slog.String("lookup_key", d.LookupKey),
			slog.Any("error", err))
		return out
	}
	e.logger.InfoContext(ctx, "certificate email sent",
		slog.String("dispatch_id", d.ID),
		slog.String("lookup_key", d.LookupKey))
	return out
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "email delivery timed out"
	case errors.Is(err, mailer.ErrInvalidParams):
		return "the email address on record is not valid"
	default:
		return "email delivery failed"
	}
}

func flightKey(d mailer.Dispatch) string {
	return fmt.Sprintf("%s|%s|%s", d.TemplateType, d.LookupKey, strings.ToLower(d.Email))
}

// begin registers an in-flight dispatch and reports whether one was already running.
func (e *Exporter) begin(d mailer.Dispatch) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	k := flightKey(d)
	e.inFlight[k]++
	if e.inFlight[k] > 1 {
		e.logger.Warn("overlapping certificate email dispatch",
			slog.String("dispatch_id", d.ID),
			slog.String("lookup_key", d.LookupKey))
		return true
	}
	return false
}

func (e *Exporter) end(d mailer.Dispatch) {
	e.mu.Lock()
	defer e.mu.Unlock()
	k := flightKey(d)
	if e.inFlight[k]--; e.inFlight[k] <= 0 {
		delete(e.inFlight, k)
	}
}

// InFlight returns the number of dispatches still running.
func (e *Exporter) InFlight() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.inFlight {
		n += c
	}
	return n
}
