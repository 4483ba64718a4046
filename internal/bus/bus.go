// Package bus is the local message-passing substrate between sync
// participants. It stands in for the host runtime's inter-context messaging:
// request/response with an explicit absent-receiver outcome, plus
// fire-and-forget sends that are silently dropped when nobody listens.
//
// Each attached endpoint gets one mailbox goroutine that handles messages
// strictly in order, so a participant processes one event to completion
// before the next and needs no internal locking. Concurrency exists only
// across endpoints; no memory is shared through the bus.
package bus

import (
	"context"
	"errors"
	"sync"
)

// ErrNoReceiver reports that no endpoint is attached at the target address.
// Callers treat it as a normal outcome (unloaded agent, closed tab), never
// as a crash.
var ErrNoReceiver = errors.New("bus: no receiver at address")

// Handler processes one message and returns its reply, if any.
type Handler interface {
	HandleMessage(ctx context.Context, msg any) (any, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg any) (any, error)

func (f HandlerFunc) HandleMessage(ctx context.Context, msg any) (any, error) {
	return f(ctx, msg)
}

type delivery struct {
	ctx   context.Context
	msg   any
	reply chan result // nil for fire-and-forget
}

type result struct {
	value any
	err   error
}

type endpoint struct {
	inbox chan delivery
	done  chan struct{}
}

// Bus routes messages between named endpoints.
type Bus struct {
	mu        sync.RWMutex
	endpoints map[string]*endpoint
}

func New() *Bus {
	return &Bus{endpoints: make(map[string]*endpoint)}
}

// Attach registers h at address, replacing any previous endpoint there, and
// returns a detach function. Detaching drains nothing: undelivered messages
// to the old endpoint are dropped, matching an unloading context.
func (b *Bus) Attach(address string, h Handler) (detach func()) {
	e := &endpoint{
		inbox: make(chan delivery, 16),
		done:  make(chan struct{}),
	}
	go e.run(h)

	b.mu.Lock()
	if old, ok := b.endpoints[address]; ok {
		close(old.done)
	}
	b.endpoints[address] = e
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			if b.endpoints[address] == e {
				delete(b.endpoints, address)
			}
			b.mu.Unlock()
			close(e.done)
		})
	}
}

func (e *endpoint) run(h Handler) {
	for {
		select {
		case <-e.done:
			return
		case d := <-e.inbox:
			value, err := h.HandleMessage(d.ctx, d.msg)
			if d.reply != nil {
				d.reply <- result{value: value, err: err}
			}
		}
	}
}

func (b *Bus) lookup(address string) (*endpoint, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.endpoints[address]
	return e, ok
}

// Request delivers msg to the endpoint at address and waits for its reply.
// Returns ErrNoReceiver when no endpoint is attached; respects ctx while
// queueing and waiting.
func (b *Bus) Request(ctx context.Context, address string, msg any) (any, error) {
	e, ok := b.lookup(address)
	if !ok {
		return nil, ErrNoReceiver
	}

	reply := make(chan result, 1)
	select {
	case e.inbox <- delivery{ctx: ctx, msg: msg, reply: reply}:
	case <-e.done:
		return nil, ErrNoReceiver
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-reply:
		return r.value, r.err
	case <-e.done:
		return nil, ErrNoReceiver
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Send delivers msg fire-and-forget. A missing receiver or a full inbox
// drops the message silently; the receiver's own re-query path is the
// recovery mechanism, not a retry here.
func (b *Bus) Send(address string, msg any) {
	e, ok := b.lookup(address)
	if !ok {
		return
	}
	select {
	case e.inbox <- delivery{ctx: context.Background(), msg: msg}:
	default:
	}
}
