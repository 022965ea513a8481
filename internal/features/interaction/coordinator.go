package interaction

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "lara-bot/internal/common/errors"
	"lara-bot/internal/common/logger"
)

type EventKind int

const (
	ReactionAdded EventKind = iota
	MessageCreated
)

// Event is a platform event a pending interaction may be waiting for.
type Event struct {
	Kind      EventKind
	ChannelID string
	MessageID string
	UserID    string
	Emoji     string
	Content   string
}

// Filter decides whether an event resolves a pending interaction.
type Filter func(Event) bool

// Coordinator owns every outstanding prompt. The platform adapter feeds it all
// reaction and message events; each event resolves the pendings whose filter
// accepts it and is ignored by the rest.
type Coordinator struct {
	mu      sync.Mutex
	pending map[string]*Pending
}

func NewCoordinator() *Coordinator {
	return &Coordinator{pending: make(map[string]*Pending)}
}

// Pending is one registered interest. It resolves at most once.
type Pending struct {
	ID     string
	c      *Coordinator
	filter Filter
	ch     chan Event
}

// Expect registers interest before the prompt is made answerable, so a fast
// response is never lost.
func (c *Coordinator) Expect(filter Filter) *Pending {
	p := &Pending{
		ID:     uuid.NewString(),
		c:      c,
		filter: filter,
		ch:     make(chan Event, 1),
	}
	c.mu.Lock()
	c.pending[p.ID] = p
	c.mu.Unlock()
	return p
}

// Dispatch delivers ev to every matching pending and unregisters them.
func (c *Coordinator) Dispatch(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, p := range c.pending {
		if !p.filter(ev) {
			continue
		}
		delete(c.pending, id)
		p.ch <- ev
	}
}

// Len is the number of outstanding pendings.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Cancel unregisters the pending without resolving it.
func (p *Pending) Cancel() {
	p.c.mu.Lock()
	delete(p.c.pending, p.ID)
	p.c.mu.Unlock()
}

// Await blocks until a matching event arrives, the timeout elapses or ctx is
// done. The pending is unregistered in every case.
func (p *Pending) Await(ctx context.Context, timeout time.Duration) (Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	defer p.Cancel()

	select {
	case ev := <-p.ch:
		return ev, nil
	case <-timer.C:
		// A match may have raced the deadline; prefer it.
		select {
		case ev := <-p.ch:
			return ev, nil
		default:
		}
		logger.Debug().Str("interaction_id", p.ID).Dur("timeout", timeout).Msg("interaction timed out")
		return Event{}, apperrors.NewTimeoutError("interaction", timeout)
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}
