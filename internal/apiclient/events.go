package apiclient

import (
	"sync"

	"agentmarket/internal/identity"
)

type subscription struct {
	ch   chan identity.Event
	done chan struct{}
	once sync.Once
}

func (s *subscription) cancel() {
	s.once.Do(func() { close(s.done) })
}

// Subscribe implements identity.Provider. A subscriber that stops reading
// holds up later events until it unsubscribes.
func (c *Client) Subscribe() (<-chan identity.Event, func()) {
	s := &subscription{
		ch:   make(chan identity.Event, 8),
		done: make(chan struct{}),
	}

	c.subsMu.Lock()
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		c.subsMu.Unlock()
		close(s.ch)
		return s.ch, func() {}
	}
	c.subs[s] = struct{}{}
	c.subsMu.Unlock()

	go func() {
		<-s.done
		// Wait for in-flight emits before closing the channel.
		c.subsMu.Lock()
		delete(c.subs, s)
		c.subsMu.Unlock()
		close(s.ch)
	}()

	return s.ch, s.cancel
}

func (c *Client) emit(kind identity.EventKind, sess *identity.Session) {
	ev := identity.Event{Kind: kind}
	if sess != nil {
		cp := *sess
		ev.Session = &cp
	}

	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for s := range c.subs {
		select {
		case s.ch <- ev:
		case <-s.done:
		}
	}
}
