package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ByLCY/certify/objectstore"
)

// Status is the outcome of a lookup.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusPending  Status = "pending"
	StatusFound    Status = "found"
	StatusNotFound Status = "not-found"
)

// Result is a lookup outcome. Record is set only for StatusFound.
type Result struct {
	Key    string  `json:"key"`
	Status Status  `json:"status"`
	Record *Record `json:"record,omitempty"`
}

// Lookuper resolves keys against a record set.
type Lookuper interface {
	Lookup(key string) Result
}

// LoadNotifier is implemented by lookupers whose records arrive asynchronously.
type LoadNotifier interface {
	Loaded() <-chan struct{}
}

var _ LoadNotifier = (*Registry)(nil)

// Option configures a Registry.
type Option func(*Registry)

// WithHTTPClient sets the client for http(s) dataset sources.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Registry) {
		if c != nil {
			r.client = c
		}
	}
}

// WithObjectClient enables s3://bucket/key dataset sources.
func WithObjectClient(c objectstore.Client) Option {
	return func(r *Registry) { r.objects = c }
}

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// Registry holds the preloaded dataset in memory. Until a load succeeds every
// non-empty lookup reports StatusPending.
type Registry struct {
	client  *http.Client
	objects objectstore.Client
	logger  *slog.Logger

	mu      sync.RWMutex
	records map[string]Record
	loaded  bool
	err     error

	ready     chan struct{}
	readyOnce sync.Once
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{client: http.DefaultClient, logger: slog.Default(), ready: make(chan struct{})}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load fetches the dataset from a file path, an http(s) URL or an s3://bucket/key
// address. The dataset is fetched once; later calls return immediately.
func (r *Registry) Load(ctx context.Context, source string) error {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if loaded {
		return nil
	}

	data, err := r.read(ctx, source)
	if err == nil {
		var records []Record
		if jerr := json.Unmarshal(data, &records); jerr != nil {
			err = errors.Join(ErrInvalidDataset, jerr)
		} else {
			r.Replace(records)
			r.logger.InfoContext(ctx, "registry dataset loaded",
				slog.String("source", source), slog.Int("records", r.Len()))
			return nil
		}
	}

	err = fmt.Errorf("%w: %s: %w", ErrLoadFailed, source, err)
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
	r.logger.ErrorContext(ctx, "registry dataset load failed",
		slog.String("source", source), slog.Any("error", err))
	return err
}

// Replace indexes records by normalized key and marks the registry loaded.
// Records without a key are skipped; the first record wins on duplicate keys.
func (r *Registry) Replace(records []Record) {
	index := make(map[string]Record, len(records))
	for _, rec := range records {
		key := Normalize(rec.Key)
		if key == "" {
			continue
		}
		if _, dup := index[key]; dup {
			r.logger.Warn("duplicate registry key ignored", slog.String("key", key))
			continue
		}
		index[key] = rec
	}
	r.mu.Lock()
	r.records = index
	r.loaded = true
	r.err = nil
	r.mu.Unlock()
	r.readyOnce.Do(func() { close(r.ready) })
}

// Lookup resolves key by exact match after normalization.
func (r *Registry) Lookup(key string) Result {
	norm := Normalize(key)
	if norm == "" {
		return Result{Status: StatusIdle}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.loaded {
		return Result{Key: norm, Status: StatusPending}
	}
	rec, ok := r.records[norm]
	if !ok {
		return Result{Key: norm, Status: StatusNotFound}
	}
	return Result{Key: norm, Status: StatusFound, Record: &rec}
}

// Ready reports whether the dataset has been loaded.
func (r *Registry) Ready() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Loaded is closed once the first dataset has been indexed. Lookups made after
// it is closed never report StatusPending.
func (r *Registry) Loaded() <-chan struct{} {
	return r.ready
}

// Err returns the last load failure, or ErrNotLoaded before any load attempt.
func (r *Registry) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.loaded {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	return ErrNotLoaded
}

// Len returns the number of indexed records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *Registry) read(ctx context.Context, source string) ([]byte, error) {
	source = strings.TrimSpace(source)
	switch {
	case source == "":
		return nil, errors.New("empty dataset source")
	case objectstore.IsAddress(source):
		return r.readObject(ctx, source)
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
		if err != nil {
			return nil, err
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	default:
		return os.ReadFile(source)
	}
}

func (r *Registry) readObject(ctx context.Context, source string) ([]byte, error) {
	if r.objects == nil {
		return nil, ErrNoObjectClient
	}
	bucket, key, err := objectstore.ParseAddress(source)
	if err != nil {
		return nil, err
	}
	out, err := r.objects.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = out.Body.Close() }()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
