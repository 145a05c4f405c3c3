// Package debounce holds back a changing value until it has been stable for
// a quiet period.
package debounce

import (
	"sync"
	"time"
)

// Timer is a pending callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run after d.
type AfterFunc func(d time.Duration, f func()) Timer

type settings struct {
	afterFunc AfterFunc
}

// Option configures a Debouncer.
type Option func(*settings)

// WithAfterFunc replaces time.AfterFunc, for deterministic tests.
func WithAfterFunc(f AfterFunc) Option {
	return func(s *settings) { s.afterFunc = f }
}

// Debouncer publishes the latest value passed to Set once no new value has
// arrived for the configured delay. It keeps at most one pending timer.
type Debouncer[T any] struct {
	mu        sync.Mutex
	delay     time.Duration
	afterFunc AfterFunc
	timer     Timer
	seq       uint64
	pending   T
	isPending bool
	value     T
	subs      map[uint64]func(T)
	nextSub   uint64
	changes   chan T
	stopped   bool
}

// New returns a Debouncer with the given quiet period. Its initial value is
// T's zero value.
func New[T any](delay time.Duration, opts ...Option) *Debouncer[T] {
	s := settings{afterFunc: func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }}
	for _, opt := range opts {
		opt(&s)
	}
	return &Debouncer[T]{
		delay:     delay,
		afterFunc: s.afterFunc,
		subs:      make(map[uint64]func(T)),
		changes:   make(chan T, 1),
	}
}

// Set records v and restarts the quiet period.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = v
	d.isPending = true
	d.timer = d.afterFunc(d.delay, func() { d.fire(seq) })
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	// A timer that was stopped after it had already started running still
	// calls fire; only the latest one may publish.
	if d.stopped || seq != d.seq {
		d.mu.Unlock()
		return
	}
	v := d.pending
	d.value = v
	d.isPending = false
	d.timer = nil

	select {
	case <-d.changes:
	default:
	}
	d.changes <- v

	subs := make([]func(T), 0, len(d.subs))
	for _, fn := range d.subs {
		subs = append(subs, fn)
	}
	d.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
}

// Value returns the last published value.
func (d *Debouncer[T]) Value() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value
}

// Pending reports whether a value is waiting for its quiet period to end.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isPending
}

// Changes delivers published values. It holds only the latest unread value
// and is closed by Stop.
func (d *Debouncer[T]) Changes() <-chan T {
	return d.changes
}

// Subscribe calls fn with every published value until the returned
// function is called. fn runs on the timer goroutine.
func (d *Debouncer[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs, id)
	}
}

// Stop cancels the pending timer and closes Changes. Later calls to Set are
// ignored. Stop is idempotent.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.isPending = false
	close(d.changes)
}
