// Package snapshot throttles how often layout positions leave the engine.
// The simulator may tick far faster than a renderer can usefully redraw, so
// positions are externalized only every few ticks and on the final one.
package snapshot

import (
	"sync"

	"github.com/TFMV/versegraph/models"
)

// DefaultEvery is the publish interval in ticks
const DefaultEvery = 3

// Snapshot is an immutable view of the layout at one tick
type Snapshot struct {
	RunID     string                     `json:"runId"`
	Iteration int                        `json:"iteration"`
	Alpha     float64                    `json:"alpha"`
	Final     bool                       `json:"final"`
	Positions map[string]models.Position `json:"positions"`
}

// Empty reports whether the snapshot carries no positions
func (s Snapshot) Empty() bool {
	return len(s.Positions) == 0
}

// Subscriber receives published snapshots. It runs on the publishing
// goroutine and must not block.
type Subscriber func(Snapshot)

// Publisher fans snapshots out to subscribers
type Publisher struct {
	every int

	mu     sync.Mutex
	subs   map[int]Subscriber
	nextID int
	latest Snapshot
	count  int
}

// NewPublisher creates a publisher that emits every k-th tick. k <= 0 uses
// DefaultEvery.
func NewPublisher(every int) *Publisher {
	if every <= 0 {
		every = DefaultEvery
	}
	return &Publisher{every: every, subs: make(map[int]Subscriber)}
}

// Every returns the publish interval
func (p *Publisher) Every() int {
	return p.every
}

// ShouldPublish reports whether a tick with the given iteration count is due
func (p *Publisher) ShouldPublish(iteration int, final bool) bool {
	return final || iteration%p.every == 0
}

// Offer publishes s if its tick is due and reports whether it did
func (p *Publisher) Offer(s Snapshot) bool {
	if !p.ShouldPublish(s.Iteration, s.Final) {
		return false
	}
	p.Publish(s)
	return true
}

// Publish delivers s to every subscriber regardless of the interval
func (p *Publisher) Publish(s Snapshot) {
	p.mu.Lock()
	p.latest = s
	p.count++
	subs := make([]Subscriber, 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

// Subscribe registers fn and returns a function that removes it
func (p *Publisher) Subscribe(fn Subscriber) (unsubscribe func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}

// Latest returns the most recently published snapshot
func (p *Publisher) Latest() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Published returns how many snapshots have been delivered
func (p *Publisher) Published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}
