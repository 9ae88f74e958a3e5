package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// Loader decodes template images and caches them per source, so each template
// configuration is decoded once.
type Loader struct {
	baseDir string
	client  *http.Client
	logger  *slog.Logger

	mu    sync.RWMutex
	cache map[string]image.Image
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithHTTPClient sets the client used for http(s) template sources.
func WithHTTPClient(c *http.Client) LoaderOption {
	return func(l *Loader) {
		if c != nil {
			l.client = c
		}
	}
}

// WithLogger sets the logger for load failures.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader creates a loader resolving relative paths against baseDir.
func NewLoader(baseDir string, opts ...LoaderOption) *Loader {
	l := &Loader{
		baseDir: baseDir,
		client:  http.DefaultClient,
		logger:  slog.Default(),
		cache:   make(map[string]image.Image),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the decoded image for src, which may be a file path or an http(s) URL.
// It blocks until decoding completes; callers must not render before it returns.
func (l *Loader) Load(ctx context.Context, src string) (image.Image, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, ErrInvalidPath
	}

	l.mu.RLock()
	img, ok := l.cache[src]
	l.mu.RUnlock()
	if ok {
		return img, nil
	}

	img, err := l.fetch(ctx, src)
	if err != nil {
		l.logger.ErrorContext(ctx, "template image load failed", slog.String("src", src), slog.Any("error", err))
		return nil, err
	}

	l.mu.Lock()
	l.cache[src] = img
	l.mu.Unlock()
	return img, nil
}

// Put decodes data and registers it under src, replacing any cached image.
func (l *Loader) Put(src string, data []byte) (image.Image, error) {
	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.cache[src] = img
	l.mu.Unlock()
	return img, nil
}

// Forget drops src from the cache. A later Load fetches it again.
func (l *Loader) Forget(src string) {
	l.mu.Lock()
	delete(l.cache, src)
	l.mu.Unlock()
}

func (l *Loader) fetch(ctx context.Context, src string) (image.Image, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
		if err != nil {
			return nil, errors.Join(ErrFetchFailed, err)
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, errors.Join(ErrFetchFailed, err)
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, src)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%w: %s returned %d", ErrFetchFailed, src, resp.StatusCode)
		}
		return Decode(resp.Body)
	}

	path, err := l.resolvePath(src)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, src)
		}
		return nil, errors.Join(ErrFetchFailed, err)
	}
	defer func() { _ = file.Close() }()
	return Decode(file)
}

func (l *Loader) resolvePath(src string) (string, error) {
	if filepath.IsAbs(src) {
		return src, nil
	}
	if l.baseDir == "" {
		return "", fmt.Errorf("%w: relative path %s without base directory", ErrInvalidPath, src)
	}
	return filepath.Join(l.baseDir, src), nil
}

// Decode decodes a PNG/JPEG/GIF/BMP/TIFF image, applying EXIF orientation.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Join(ErrDecodeFailed, err)
	}
	return img, nil
}
