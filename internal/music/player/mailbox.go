package player

import (
	"context"
	"sync"
)

// mailbox runs closures one at a time in posting order. Posting never
// blocks, so stream callbacks may post from inside a running closure.
type mailbox struct {
	mu     sync.Mutex
	queue  []func()
	notify chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (m *mailbox) post(fn func()) {
	m.mu.Lock()
	m.queue = append(m.queue, fn)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *mailbox) next() (func(), bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil, false
	}
	fn := m.queue[0]
	m.queue[0] = nil
	m.queue = m.queue[1:]
	return fn, true
}

func (m *mailbox) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.notify:
		}
		for {
			fn, ok := m.next()
			if !ok {
				break
			}
			fn()
		}
	}
}
