package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(_ time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{f: f}
	c.timers = append(c.timers, t)
	return t
}

// elapse runs every timer that has not been stopped.
func (c *fakeClock) elapse() {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped {
			t.stopped = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func TestDebouncer_PublishesOnlyLatest(t *testing.T) {
	clk := &fakeClock{}
	d := New[string](500*time.Millisecond, WithAfterFunc(clk.AfterFunc))
	var published []string
	d.Subscribe(func(v string) { published = append(published, v) })

	for _, v := range []string{"c", "ca", "cat"} {
		d.Set(v)
		assert.Equal(t, 1, clk.live(), "a single pending timer")
	}
	assert.True(t, d.Pending())
	assert.Equal(t, "", d.Value())

	clk.elapse()
	assert.Equal(t, []string{"cat"}, published)
	assert.Equal(t, "cat", d.Value())
	assert.False(t, d.Pending())
	assert.Equal(t, "cat", <-d.Changes())
}

func TestDebouncer_StaleTimerCallbackIsIgnored(t *testing.T) {
	clk := &fakeClock{}
	d := New[int](time.Second, WithAfterFunc(clk.AfterFunc))
	d.Set(1)
	first := clk.timers[0]
	d.Set(2)

	// the first timer fires even though Stop was called on it
	first.f()
	assert.Equal(t, 0, d.Value())
	assert.True(t, d.Pending())

	clk.elapse()
	assert.Equal(t, 2, d.Value())
}

func TestDebouncer_ChangesKeepsLatest(t *testing.T) {
	clk := &fakeClock{}
	d := New[string](time.Second, WithAfterFunc(clk.AfterFunc))

	d.Set("a")
	clk.elapse()
	d.Set("b")
	clk.elapse()

	assert.Equal(t, "b", <-d.Changes())
	select {
	case v := <-d.Changes():
		t.Fatalf("unexpected extra value %q", v)
	default:
	}
}

func TestDebouncer_StopIsIdempotent(t *testing.T) {
	clk := &fakeClock{}
	d := New[string](time.Second, WithAfterFunc(clk.AfterFunc))
	calls := 0
	d.Subscribe(func(string) { calls++ })

	d.Set("x")
	d.Stop()
	d.Stop()
	assert.Equal(t, 0, clk.live(), "pending timer cancelled")
	assert.False(t, d.Pending())

	d.Set("y")
	clk.elapse()
	assert.Equal(t, 0, calls)
	_, ok := <-d.Changes()
	assert.False(t, ok, "channel closed")
}

func TestDebouncer_Unsubscribe(t *testing.T) {
	clk := &fakeClock{}
	d := New[string](time.Second, WithAfterFunc(clk.AfterFunc))
	calls := 0
	unsubscribe := d.Subscribe(func(string) { calls++ })

	d.Set("a")
	clk.elapse()
	unsubscribe()
	d.Set("b")
	clk.elapse()
	assert.Equal(t, 1, calls)
}

func TestDebouncer_RealTimerWaitsForQuietPeriod(t *testing.T) {
	const delay = 40 * time.Millisecond
	d := New[string](delay)
	defer d.Stop()

	var lastSet time.Time
	for _, v := range []string{"d", "do", "dog"} {
		d.Set(v)
		lastSet = time.Now()
		time.Sleep(delay / 4)
	}

	select {
	case v := <-d.Changes():
		assert.Equal(t, "dog", v)
		assert.GreaterOrEqual(t, time.Since(lastSet), delay)
	case <-time.After(time.Second):
		require.FailNow(t, "debounced value was never published")
	}
}
