// ABOUTME: In-memory transport and scheduler doubles for session tests
// ABOUTME: Lets tests drive open, message, error, and close callbacks by hand
package testutil

import (
	"errors"
	"sync"
	"time"

	"github.com/harper/nowplaying-relay/internal/domain"
)

var ErrFakeNotOpen = errors.New("fake connection not open")

// FakeDialer records every Dial and hands back a FakeConn the test controls.
type FakeDialer struct {
	mu    sync.Mutex
	conns []*FakeConn
}

func (d *FakeDialer) Dial(url string, h domain.ConnHandler) domain.Conn {
	c := &FakeConn{URL: url, h: h}

	d.mu.Lock()
	d.conns = append(d.conns, c)
	d.mu.Unlock()

	return c
}

// Count is the number of Dial calls so far.
func (d *FakeDialer) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

// Last returns the most recently dialed connection, or nil.
func (d *FakeDialer) Last() *FakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

type FakeConn struct {
	URL string
	h   domain.ConnHandler

	// OnSend, when set, runs inside Send before the frame is recorded.
	OnSend func(data []byte)

	mu         sync.Mutex
	open       bool
	closed     bool
	sent       []string
	closeCalls int
}

func (c *FakeConn) Send(data []byte) error {
	if c.OnSend != nil {
		c.OnSend(data)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrFakeNotOpen
	}
	c.sent = append(c.sent, string(data))
	return nil
}

// Close behaves like a browser socket: the handler sees OnClose once.
func (c *FakeConn) Close() error {
	c.mu.Lock()
	c.closeCalls++
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.open = false
	c.mu.Unlock()

	c.h.OnClose()
	return nil
}

// Open simulates the connection becoming ready.
func (c *FakeConn) Open() {
	c.mu.Lock()
	c.open = true
	c.mu.Unlock()

	c.h.OnOpen()
}

// Message delivers an inbound text frame.
func (c *FakeConn) Message(frame string) {
	c.h.OnMessage([]byte(frame))
}

// Fail delivers a transport error without closing.
func (c *FakeConn) Fail(err error) {
	c.h.OnError(err)
}

// Drop simulates the remote end closing the connection.
func (c *FakeConn) Drop() {
	c.mu.Lock()
	c.closed = true
	c.open = false
	c.mu.Unlock()

	c.h.OnClose()
}

func (c *FakeConn) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func (c *FakeConn) CloseCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCalls
}

// Scheduler captures deferred functions instead of running them on a timer.
type Scheduler struct {
	mu      sync.Mutex
	pending []Scheduled
	total   int
}

type Scheduled struct {
	Delay time.Duration
	Fn    func()
}

func (s *Scheduler) AfterFunc(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, Scheduled{Delay: d, Fn: fn})
	s.total++
}

// Pending returns the scheduled functions that have not run yet.
func (s *Scheduler) Pending() []Scheduled {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Scheduled(nil), s.pending...)
}

// Total counts every function ever scheduled.
func (s *Scheduler) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// RunPending fires all pending functions in scheduling order.
func (s *Scheduler) RunPending() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, p := range pending {
		p.Fn()
	}
}
