// ABOUTME: Subscription session following one station's now-playing feed
// ABOUTME: Owns a single connection, resubscribes on reconnect, emits validated updates
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/harper/nowplaying-relay/internal/domain"
	"github.com/harper/nowplaying-relay/internal/domain/nowplaying"
	"github.com/harper/nowplaying-relay/internal/infrastructure/envelope"
)

const (
	DefaultReconnectDelay = 500 * time.Millisecond
	DefaultScheme         = "wss"
	socketPath            = "/api/live/nowplaying/websocket"
)

type State int

const (
	StateConnecting State = iota
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type Config struct {
	Host    string
	Channel string
	Scheme  string
	Dialer  domain.Dialer

	ReconnectDelay time.Duration
	Logger         *zerolog.Logger

	// AfterFunc schedules the deferred reconnect. Defaults to time.AfterFunc.
	AfterFunc func(d time.Duration, f func())
}

type Session struct {
	id             string
	url            string
	dialer         domain.Dialer
	reconnectDelay time.Duration
	afterFunc      func(time.Duration, func())
	log            zerolog.Logger

	mu         sync.Mutex
	state      State
	conn       domain.Conn
	gen        uint64
	channel    string
	reconnects uint64

	emitter
}

// New creates a session and starts connecting right away. If cfg.Channel is
// set it is subscribed as soon as the connection opens.
func New(cfg Config) *Session {
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = DefaultScheme
	}
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	after := cfg.AfterFunc
	if after == nil {
		after = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	s := &Session{
		id:             uuid.NewString(),
		url:            SocketURL(scheme, cfg.Host),
		dialer:         cfg.Dialer,
		reconnectDelay: delay,
		afterFunc:      after,
		channel:        cfg.Channel,
	}
	s.log = logger.With().
		Str("component", "session").
		Str("session_id", s.id).
		Logger()
	s.emitter.log = s.log
	s.emitter.closed = s.isClosed

	s.mu.Lock()
	s.connectLocked()
	s.mu.Unlock()

	return s
}

// SocketURL builds the push endpoint for host.
func SocketURL(scheme, host string) string {
	return fmt.Sprintf("%s://%s%s", scheme, host, socketPath)
}

// ChannelKey is the wire name of a station channel.
func ChannelKey(channel string) string {
	return "station:" + channel
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Channel() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

// Reconnects returns how many reconnects have been scheduled.
func (s *Session) Reconnects() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnects
}

// SetChannel switches the followed station. On an open connection the new
// channel is subscribed immediately; the previous one is not unsubscribed.
func (s *Session) SetChannel(channel string) {
	s.mu.Lock()
	s.channel = channel
	conn, key := s.subscriptionLocked()
	s.mu.Unlock()

	if err := s.subscribe(conn, key); err != nil {
		s.emitError(&nowplaying.ConnectionError{Err: err})
	}
}

// Close stops the session for good: the connection is closed and no reconnect
// happens afterwards. Calling Close again is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	s.gen++
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	s.log.Debug().Msg("session closed")

	if conn == nil {
		return nil
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	return nil
}

func (s *Session) isClosed() bool {
	return s.State() == StateClosed
}

func (s *Session) connectLocked() {
	s.gen++
	s.state = StateConnecting
	s.log.Debug().Str("url", s.url).Uint64("gen", s.gen).Msg("connecting")
	s.conn = s.dialer.Dial(s.url, &connHandler{s: s, gen: s.gen})
}

func (s *Session) reconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Close may have run while the timer was pending.
	if s.state == StateClosed || s.conn != nil {
		return
	}
	s.connectLocked()
}

type subscribeCommand struct {
	Subs map[string]subscribeOptions `json:"subs"`
}

type subscribeOptions struct {
	Recover bool `json:"recover"`
}

// subscriptionLocked returns the connection and channel key to subscribe on,
// or a nil connection when there is nothing to send yet.
func (s *Session) subscriptionLocked() (domain.Conn, string) {
	if s.state != StateConnected || s.conn == nil || s.channel == "" {
		return nil, ""
	}
	return s.conn, ChannelKey(s.channel)
}

// subscribe sends the subscribe command for key. It must run without s.mu
// held since Send is a network write.
func (s *Session) subscribe(conn domain.Conn, key string) error {
	if conn == nil {
		return nil
	}

	cmd, err := json.Marshal(subscribeCommand{
		Subs: map[string]subscribeOptions{key: {Recover: true}},
	})
	if err != nil {
		return fmt.Errorf("encode subscribe: %w", err)
	}
	if err := conn.Send(cmd); err != nil {
		return fmt.Errorf("subscribe %s: %w", key, err)
	}

	s.log.Debug().Str("channel", key).Msg("subscribed")
	return nil
}

func (s *Session) handleMessage(data []byte) {
	candidates, err := envelope.Decode(data)
	if err != nil {
		s.emitError(&nowplaying.ConnectionError{Err: err})
		return
	}

	for _, c := range candidates {
		np, iss := nowplaying.Validate(c)
		if iss != nil {
			s.emitError(&nowplaying.PayloadValidationError{Issues: iss})
			continue
		}
		s.emitUpdate(np)
	}
}

// connHandler binds transport callbacks to the connection generation they
// belong to, so callbacks from a replaced connection are dropped.
type connHandler struct {
	s   *Session
	gen uint64
}

func (h *connHandler) current() bool {
	return h.s.gen == h.gen && h.s.state != StateClosed
}

func (h *connHandler) OnOpen() {
	s := h.s

	s.mu.Lock()
	if !h.current() {
		s.mu.Unlock()
		return
	}
	s.state = StateConnected
	conn, key := s.subscriptionLocked()
	s.mu.Unlock()

	s.log.Debug().Msg("connection open")
	if err := s.subscribe(conn, key); err != nil {
		s.emitError(&nowplaying.ConnectionError{Err: err})
	}
}

func (h *connHandler) OnMessage(data []byte) {
	h.s.mu.Lock()
	ok := h.current()
	h.s.mu.Unlock()

	if ok {
		h.s.handleMessage(data)
	}
}

func (h *connHandler) OnError(err error) {
	h.s.mu.Lock()
	ok := h.current()
	h.s.mu.Unlock()

	if ok {
		h.s.log.Debug().Err(err).Msg("transport error")
		h.s.emitError(&nowplaying.ConnectionError{Err: err})
	}
}

func (h *connHandler) OnClose() {
	s := h.s

	s.mu.Lock()
	if !h.current() {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.state = StateConnecting
	s.reconnects++
	delay := s.reconnectDelay
	s.mu.Unlock()

	s.log.Info().Dur("delay", delay).Msg("connection closed, reconnecting")
	s.afterFunc(delay, s.reconnect)
}
