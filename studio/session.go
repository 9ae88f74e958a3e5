// Package studio drives the reactive certificate pipeline: every change to the
// template, the dynamic fields or the style builds a fresh RenderRequest and
// renders it from scratch.
package studio

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ByLCY/certify/export"
	"github.com/ByLCY/certify/layout"
	"github.com/ByLCY/certify/registry"
	"github.com/ByLCY/certify/renderer"
)

var (
	ErrNoRenderer      = errors.New("studio: renderer is required")
	ErrUnknownTemplate = errors.New("studio: unknown template")
	ErrNoTemplate      = errors.New("studio: no template selected")
	ErrNotRendered     = errors.New("studio: nothing rendered yet")
)

// ImageLoader decodes template images. Load blocks until decoding completes.
type ImageLoader interface {
	Load(ctx context.Context, src string) (image.Image, error)
}

// Options wires a Session.
type Options struct {
	Renderer  renderer.Renderer
	Loader    ImageLoader
	Registry  registry.Lookuper
	Templates map[string]layout.Template
	Debounce  time.Duration
	Logger    *slog.Logger
}

// Snapshot is one immutable pipeline state together with its render.
// Result is nil when nothing could be drawn; Err then says why.
type Snapshot struct {
	Version  uint64
	Template layout.Template
	Lookup   registry.Result
	Fields   map[string]string
	Request  layout.RenderRequest
	Result   *renderer.Result
	Err      error
}

type state struct {
	template layout.Template
	image    image.Image
	lookup   registry.Result
	manual   map[string]string
}

// fields 返回参与渲染的动态字段：查到登记时取登记内容；未输入编号时取手动填写的值；
// pending 与 not-found 时为空。
func (st state) fields() map[string]string {
	switch st.lookup.Status {
	case registry.StatusFound:
		rec := st.lookup.Record
		if rec == nil {
			return nil
		}
		return map[string]string{
			"key":   rec.Key,
			"name":  rec.Name,
			"title": rec.Title,
			"email": rec.Email,
		}
	case registry.StatusIdle:
		return maps.Clone(st.manual)
	default:
		return nil
	}
}

// Session holds the inputs of one certificate being prepared.
type Session struct {
	renderer  renderer.Renderer
	loader    ImageLoader
	registry  registry.Lookuper
	templates map[string]layout.Template
	logger    *slog.Logger
	debouncer *registry.Debouncer

	mu      sync.Mutex
	state   state
	version uint64
	current atomic.Pointer[Snapshot]

	subMu  sync.RWMutex
	nextID int
	subs   map[int]func(*Snapshot)

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a session with no template selected.
func New(opts Options) (*Session, error) {
	if opts.Renderer == nil {
		return nil, ErrNoRenderer
	}
	s := &Session{
		renderer:  opts.Renderer,
		loader:    opts.Loader,
		registry:  opts.Registry,
		templates: maps.Clone(opts.Templates),
		logger:    opts.Logger,
		subs:      make(map[int]func(*Snapshot)),
		done:      make(chan struct{}),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.registry != nil {
		s.debouncer = registry.NewDebouncer(s.registry, opts.Debounce, s.applyLookup)
	}
	s.state.lookup = registry.Result{Status: registry.StatusIdle}
	s.current.Store(&Snapshot{Lookup: s.state.lookup})
	if n, ok := s.registry.(registry.LoadNotifier); ok {
		go s.awaitDataset(n.Loaded())
	}
	return s, nil
}

// awaitDataset re-resolves a key that was looked up while the dataset was
// still loading.
func (s *Session) awaitDataset(loaded <-chan struct{}) {
	select {
	case <-loaded:
	case <-s.done:
		return
	}
	if s.Current().Lookup.Status != registry.StatusPending {
		return
	}
	s.update(func(st *state) {
		if st.lookup.Status == registry.StatusPending {
			st.lookup = s.registry.Lookup(st.lookup.Key)
		}
	}, nil)
}

// Templates lists the configured template types.
func (s *Session) Templates() []string {
	return slices.Sorted(maps.Keys(s.templates))
}

// Current returns the latest snapshot.
func (s *Session) Current() *Snapshot {
	return s.current.Load()
}

// Subscribe registers fn for every new snapshot and returns its cancel func.
// Snapshots may arrive out of order under concurrent changes; compare Version.
func (s *Session) Subscribe(fn func(*Snapshot)) func() {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// SelectTemplate switches to the named template, waiting for its image to decode
// before rendering. A load failure yields a snapshot without a result.
func (s *Session) SelectTemplate(ctx context.Context, name string) (*Snapshot, error) {
	tpl, ok := s.templates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	var img image.Image
	var loadErr error
	if s.loader == nil {
		loadErr = errors.New("no image loader configured")
	} else {
		img, loadErr = s.loader.Load(ctx, tpl.Image)
	}
	if loadErr != nil {
		s.logger.ErrorContext(ctx, "template image unavailable",
			slog.String("template", name), slog.Any("error", loadErr))
	}

	snap := s.update(func(st *state) {
		st.template = cloneTemplate(tpl)
		st.image = img
	}, loadErr)
	return snap, loadErr
}

// Configure applies a style or anchor change to the selected template.
func (s *Session) Configure(fn func(*layout.Template)) (*Snapshot, error) {
	s.mu.Lock()
	selected := s.state.template.Type != ""
	s.mu.Unlock()
	if !selected {
		return nil, ErrNoTemplate
	}
	return s.update(func(st *state) {
		tpl := cloneTemplate(st.template)
		fn(&tpl)
		st.template = tpl
	}, nil), nil
}

// SetField sets a dynamic field by hand. Manual values are rendered while no
// key is entered and survive lookups, so clearing the key brings them back.
func (s *Session) SetField(name, value string) *Snapshot {
	return s.update(func(st *state) {
		manual := maps.Clone(st.manual)
		if manual == nil {
			manual = make(map[string]string)
		}
		manual[name] = value
		st.manual = manual
	}, nil)
}

// TypeKey feeds a keystroke-level key change through the debouncer.
func (s *Session) TypeKey(key string) {
	if s.debouncer == nil {
		return
	}
	s.debouncer.Update(key)
}

// ResolveKey looks the key up at once, bypassing the debounce.
func (s *Session) ResolveKey(key string) *Snapshot {
	res := registry.Result{Status: registry.StatusIdle}
	if s.registry != nil {
		res = s.registry.Lookup(key)
	}
	return s.setLookup(res)
}

func (s *Session) applyLookup(res registry.Result) {
	s.setLookup(res)
}

func (s *Session) setLookup(res registry.Result) *Snapshot {
	return s.update(func(st *state) {
		// 数据集可能在查询与应用之间完成加载
		if res.Status == registry.StatusPending && s.registry != nil {
			res = s.registry.Lookup(res.Key)
		}
		st.lookup = res
	}, nil)
}

// Export hands the latest render to exp. The record email, when present,
// triggers delivery.
func (s *Session) Export(ctx context.Context, exp *export.Exporter) (*export.Result, error) {
	snap := s.Current()
	if snap.Result == nil || snap.Result.Image == nil {
		if snap.Err != nil {
			return nil, errors.Join(ErrNotRendered, snap.Err)
		}
		return nil, ErrNotRendered
	}
	req := export.Request{
		TemplateType: snap.Template.Type,
		Image:        snap.Result.Image,
		Name:         snap.Fields["name"],
	}
	if snap.Lookup.Status == registry.StatusFound && snap.Lookup.Record != nil {
		req.LookupKey = snap.Lookup.Key
		req.Email = snap.Lookup.Record.Email
	}
	return exp.Export(ctx, req)
}

// Close stops pending debounced lookups.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
	if s.debouncer != nil {
		s.debouncer.Stop()
	}
}

// update derives the next state, renders it and publishes the snapshot.
func (s *Session) update(change func(*state), cause error) *Snapshot {
	s.mu.Lock()
	next := s.state
	change(&next)
	s.state = next
	s.version++
	snap := s.render(s.version, next, cause)
	s.current.Store(snap)
	s.mu.Unlock()

	s.subMu.RLock()
	subs := slices.Collect(maps.Values(s.subs))
	s.subMu.RUnlock()
	for _, fn := range subs {
		fn(snap)
	}
	return snap
}

func (s *Session) render(version uint64, st state, cause error) *Snapshot {
	fields := st.fields()
	snap := &Snapshot{
		Version:  version,
		Template: st.template,
		Lookup:   st.lookup,
		Fields:   fields,
		Err:      cause,
	}
	if st.template.Type == "" {
		return snap
	}
	snap.Request = BuildRequest(st.template, st.image, st.lookup, fields)
	if st.image == nil {
		if snap.Err == nil {
			snap.Err = layout.ErrMissingImage
		}
		return snap
	}
	res, err := s.renderer.Render(snap.Request)
	if err != nil {
		s.logger.Error("render failed", slog.String("template", st.template.Type), slog.Any("error", err))
		snap.Err = err
		return snap
	}
	snap.Result = res
	return snap
}

// BuildRequest assembles the render request for a template and field values.
// The QR overlay carries the lookup key and is drawn only for resolved records.
func BuildRequest(tpl layout.Template, img image.Image, lookup registry.Result, fields map[string]string) layout.RenderRequest {
	data := make(map[string]any, len(fields))
	for k, v := range fields {
		data[k] = v
	}
	req := tpl.NewRequest(img, layout.BuildTokens(tpl.Fragments, data))
	if tpl.QR != nil && lookup.Status == registry.StatusFound {
		req.QR = &layout.QRRequest{Content: lookup.Key, Overlay: *tpl.QR}
	}
	return req
}

func cloneTemplate(t layout.Template) layout.Template {
	t.Fragments = slices.Clone(t.Fragments)
	if t.QR != nil {
		qr := *t.QR
		t.QR = &qr
	}
	return t
}
