package resize

import "sync"

// Event is one resize notification carrying the freshly measured width of
// the chart's container.
type Event struct {
	Width int
}

// Signal is a source of resize events. Subscribe returns the cancellation
// token for the subscription; calling it more than once is harmless.
type Signal interface {
	Subscribe(fn func(Event)) (cancel func())
}

// Broadcaster is an in-process Signal fanning each event out to every
// current subscriber.
type Broadcaster struct {
	mu   sync.Mutex
	next uint64
	subs map[uint64]func(Event)
}

// NewBroadcaster creates a broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[uint64]func(Event))}
}

// Subscribe registers fn for future events.
func (b *Broadcaster) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Emit delivers ev to every subscriber registered at the time of the call.
func (b *Broadcaster) Emit(ev Event) {
	b.mu.Lock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
