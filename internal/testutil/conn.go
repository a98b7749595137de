package testutil

import (
	"sync"

	"github.com/mcoot/pongarena/internal/model"
)

// FakeConn records every event sent to it
type FakeConn struct {
	id model.ConnID

	mu     sync.Mutex
	events []model.Event
	err    error
}

// NewFakeConn creates a FakeConn with the given id
func NewFakeConn(id string) *FakeConn {
	return &FakeConn{id: model.ConnID(id)}
}

// ID returns the connection id
func (c *FakeConn) ID() model.ConnID {
	return c.id
}

// Send records the event, or returns the configured failure
func (c *FakeConn) Send(event model.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.events = append(c.events, event)
	return nil
}

// FailWith makes subsequent sends return err
func (c *FakeConn) FailWith(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Events returns a copy of all recorded events
func (c *FakeConn) Events() []model.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Event, len(c.events))
	copy(out, c.events)
	return out
}

// EventsOfType returns recorded events with the given type
func (c *FakeConn) EventsOfType(t model.EventType) []model.Event {
	var out []model.Event
	for _, e := range c.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Last returns the most recent event of the given type
func (c *FakeConn) Last(t model.EventType) (model.Event, bool) {
	events := c.EventsOfType(t)
	if len(events) == 0 {
		return model.Event{}, false
	}
	return events[len(events)-1], true
}

// Reset discards recorded events
func (c *FakeConn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}
