// Package resize coalesces bursts of container resize signals into single
// re-renders.
package resize

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Policy selects how a signal arriving during a pending re-render is treated.
type Policy int

const (
	// DropWhilePending ignores signals while a re-render is pending, apart
	// from recording their width. The render fires one debounce window after
	// the first signal of a burst.
	DropWhilePending Policy = iota
	// Restart re-arms the debounce timer on every signal, so the render fires
	// once the burst has been quiet for a full window.
	Restart
)

// DefaultDebounce is the coalescing window.
const DefaultDebounce = 200 * time.Millisecond

var (
	ErrStarted = errors.New("resize: coordinator already started")
	ErrStopped = errors.New("resize: coordinator stopped")
)

// RenderFunc re-measures nothing itself: it receives the width measured at
// the last signal of the burst.
type RenderFunc func(width int)

// Config holds coordinator tunables. Zero values select defaults.
type Config struct {
	Debounce time.Duration
	Policy   Policy
	Clock    clock.Clock
	// OnSignal, when set, is called for every signal with whether it was
	// coalesced into an already pending render.
	OnSignal func(coalesced bool)
}

// Coordinator subscribes to a Signal between Start and Stop and turns bursts
// of events into at most one in-flight render.
type Coordinator struct {
	signal   Signal
	render   RenderFunc
	debounce time.Duration
	policy   Policy
	clock    clock.Clock
	onSignal func(bool)

	mu       sync.Mutex
	cancel   func()
	timer    *clock.Timer
	gen      uint64
	width    int
	pending  bool
	started  bool
	stopped  bool
	renders  int
	signals  int
	renderMu sync.Mutex
}

// New creates a coordinator. It does not subscribe until Start.
func New(signal Signal, render RenderFunc, conf ...Config) *Coordinator {
	c := &Coordinator{
		signal:   signal,
		render:   render,
		debounce: DefaultDebounce,
		policy:   DropWhilePending,
		clock:    clock.New(),
	}
	if len(conf) > 0 {
		if conf[0].Debounce > 0 {
			c.debounce = conf[0].Debounce
		}
		c.policy = conf[0].Policy
		if conf[0].Clock != nil {
			c.clock = conf[0].Clock
		}
		c.onSignal = conf[0].OnSignal
	}
	return c
}

// Start subscribes to the signal. A coordinator can be started once.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return ErrStopped
	}
	if c.started {
		return ErrStarted
	}
	c.started = true
	c.cancel = c.signal.Subscribe(c.handle)
	return nil
}

// Stop unsubscribes and discards any pending render. When Stop returns no
// render is running and none will run afterwards.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.pending = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	// Wait out a render that passed its stop check before we got here.
	c.renderMu.Lock()
	c.renderMu.Unlock()
}

func (c *Coordinator) handle(ev Event) {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.signals++
	c.width = ev.Width
	coalesced := c.pending
	if c.pending && c.policy == DropWhilePending {
		c.mu.Unlock()
		c.notify(true)
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.pending = true
	c.gen++
	gen := c.gen
	c.timer = c.clock.AfterFunc(c.debounce, func() { c.fire(gen) })
	c.mu.Unlock()
	c.notify(coalesced)
}

func (c *Coordinator) notify(coalesced bool) {
	if c.onSignal != nil {
		c.onSignal(coalesced)
	}
}

func (c *Coordinator) fire(gen uint64) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	c.mu.Lock()
	if c.stopped || !c.pending || gen != c.gen {
		c.mu.Unlock()
		return
	}
	width := c.width
	c.pending = false
	c.timer = nil
	c.renders++
	c.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("resize: render panicked: %v", r)
		}
	}()
	c.render(width)
}

// Pending reports whether a render is scheduled.
func (c *Coordinator) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Stats returns the number of signals received and renders triggered.
func (c *Coordinator) Stats() (signals, renders int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signals, c.renders
}
