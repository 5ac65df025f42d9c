package store

import (
	"context"
	"sync"

	"github.com/kailas-cloud/shopsearch/internal/domain/state"
)

// mailbox is an unbounded FIFO of snapshots. push never blocks.
type mailbox struct {
	mu     sync.Mutex
	items  []state.State
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (m *mailbox) push(s state.State) {
	m.mu.Lock()
	m.items = append(m.items, s)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// pop returns the oldest snapshot, waiting for one if the box is empty.
// It reports false once ctx or done ends.
func (m *mailbox) pop(ctx context.Context, done <-chan struct{}) (state.State, bool) {
	for {
		m.mu.Lock()
		if len(m.items) > 0 {
			next := m.items[0]
			m.items[0] = state.State{}
			m.items = m.items[1:]
			m.mu.Unlock()
			return next, true
		}
		m.mu.Unlock()

		select {
		case <-m.notify:
		case <-ctx.Done():
			return state.State{}, false
		case <-done:
			return state.State{}, false
		}
	}
}
