package registry

import (
	"strings"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a typed key is looked up.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer delays lookups until the key stops changing. Only the last key of a
// burst is resolved. An empty key resolves to StatusIdle at once.
type Debouncer struct {
	lookup   Lookuper
	delay    time.Duration
	onResult func(Result)

	mu    sync.Mutex
	gen   uint64
	timer *time.Timer

	// emit 串行化回调；持有期间递增的 gen 会让尚未检查的旧定时器放弃投递
	emit sync.Mutex
}

// NewDebouncer creates a debouncer. onResult must not call Update synchronously.
func NewDebouncer(lookup Lookuper, delay time.Duration, onResult func(Result)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if onResult == nil {
		onResult = func(Result) {}
	}
	return &Debouncer{lookup: lookup, delay: delay, onResult: onResult}
}

// Update records a new key value, cancelling any pending lookup.
func (d *Debouncer) Update(key string) {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if strings.TrimSpace(key) == "" {
		d.mu.Unlock()
		d.deliver(gen, Result{Status: StatusIdle})
		return
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen, key) })
	d.mu.Unlock()
}

// Stop cancels any pending lookup.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire(gen uint64, key string) {
	d.emit.Lock()
	defer d.emit.Unlock()
	if !d.current(gen) {
		return
	}
	d.onResult(d.lookup.Lookup(key))
}

func (d *Debouncer) deliver(gen uint64, res Result) {
	d.emit.Lock()
	defer d.emit.Unlock()
	if !d.current(gen) {
		return
	}
	d.onResult(res)
}

func (d *Debouncer) current(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return gen == d.gen
}
