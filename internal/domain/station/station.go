// ABOUTME: Station domain model following one now-playing feed for the relay
// ABOUTME: Primes from the static document, then keeps state from the live session
package station

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/harper/nowplaying-relay/internal/domain"
	"github.com/harper/nowplaying-relay/internal/domain/nowplaying"
	"github.com/harper/nowplaying-relay/internal/domain/session"
	"github.com/harper/nowplaying-relay/internal/infrastructure/ring"
)

const (
	DefaultHistorySize  = 20
	DefaultPrimeTimeout = 10 * time.Second
)

var ErrAlreadyStarted = errors.New("station already started")

// Observer is told about every update and error a station records.
type Observer interface {
	ObserveUpdate(stationID string)
	ObserveError(stationID, kind string)
}

type Config struct {
	ID             string
	Host           string
	Scheme         string
	ReconnectDelay time.Duration
	HistorySize    int
	Prime          bool
	PrimeTimeout   time.Duration

	Dialer   domain.Dialer
	Fetcher  domain.NowPlayingFetcher
	Observer Observer
	Logger   *zerolog.Logger

	// AfterFunc is handed to the session for reconnect scheduling.
	AfterFunc func(d time.Duration, f func())
}

// Play is one entry of a station's play history.
type Play struct {
	At      time.Time          `json:"at"`
	Summary nowplaying.Summary `json:"summary"`
}

type Station struct {
	cfg     Config
	log     zerolog.Logger
	history *ring.Buffer[Play]

	current    atomic.Pointer[nowplaying.NowPlaying]
	lastUpdate atomic.Pointer[time.Time]
	lastErr    atomic.Pointer[error]

	mu      sync.Mutex
	session *session.Session
	lastKey string
	errs    map[string]uint64

	clients   map[*Client]struct{}
	clientsMu sync.Mutex
}

// Client is a listener for the updates of one station.
type Client struct {
	ID string
	ch chan *nowplaying.NowPlaying
}

const clientBuffer = 8

func New(cfg Config) *Station {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}
	if cfg.PrimeTimeout <= 0 {
		cfg.PrimeTimeout = DefaultPrimeTimeout
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Station{
		cfg:     cfg,
		log:     logger.With().Str("station", cfg.ID).Logger(),
		history: ring.New[Play](cfg.HistorySize),
		errs:    make(map[string]uint64),
		clients: make(map[*Client]struct{}),
	}
}

func (s *Station) ID() string {
	return s.cfg.ID
}

func (s *Station) Host() string {
	return s.cfg.Host
}

// Current returns the latest payload, or nil before the first one.
func (s *Station) Current() *nowplaying.NowPlaying {
	return s.current.Load()
}

// Summary returns the summary of the latest payload.
func (s *Station) Summary() (nowplaying.Summary, bool) {
	np := s.current.Load()
	if np == nil {
		return nowplaying.Summary{}, false
	}
	return np.Summary(), true
}

func (s *Station) LastUpdate() *time.Time {
	return s.lastUpdate.Load()
}

// LastError returns the most recent recorded error, or nil.
func (s *Station) LastError() error {
	p := s.lastErr.Load()
	if p == nil {
		return nil
	}
	return *p
}

// History returns the distinct songs seen, oldest first.
func (s *Station) History() []Play {
	return s.history.Snapshot()
}

// ErrorCount returns how many errors of kind were recorded.
func (s *Station) ErrorCount(kind string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs[kind]
}

// ErrorCounts copies the error counters keyed by kind.
func (s *Station) ErrorCounts() map[string]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]uint64, len(s.errs))
	for k, v := range s.errs {
		out[k] = v
	}
	return out
}

func (s *Station) Connected() bool {
	sess := s.currentSession()
	return sess != nil && sess.State() == session.StateConnected
}

func (s *Station) Reconnects() uint64 {
	sess := s.currentSession()
	if sess == nil {
		return 0
	}
	return sess.Reconnects()
}

func (s *Station) currentSession() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Start primes the station from the static document when configured, then
// opens the live session. A failed prime is recorded and does not stop the
// session from starting.
func (s *Station) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.session != nil {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.mu.Unlock()

	if s.cfg.Prime && s.cfg.Fetcher != nil {
		s.prime(ctx)
	}

	sess := session.New(session.Config{
		Host:           s.cfg.Host,
		Scheme:         s.cfg.Scheme,
		Dialer:         s.cfg.Dialer,
		ReconnectDelay: s.cfg.ReconnectDelay,
		Logger:         &s.log,
		AfterFunc:      s.cfg.AfterFunc,
	})
	sess.OnUpdate(s.Record)
	sess.OnError(s.RecordError)

	s.mu.Lock()
	if s.session != nil {
		s.mu.Unlock()
		_ = sess.Close()
		return ErrAlreadyStarted
	}
	s.session = sess
	s.mu.Unlock()

	// Subscribe only once the handlers are in place.
	sess.SetChannel(s.cfg.ID)

	s.log.Info().Str("host", s.cfg.Host).Msg("station started")
	return nil
}

func (s *Station) prime(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.PrimeTimeout)
	defer cancel()

	np, err := s.cfg.Fetcher.Fetch(ctx, s.cfg.ID)
	if err != nil {
		s.log.Warn().Err(err).Msg("prime failed")
		s.RecordError(err)
		return
	}
	s.Record(np)
}

func (s *Station) Shutdown() error {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()

	if sess == nil {
		return nil
	}
	return sess.Close()
}

// Record stores np as the latest payload and appends it to the history
// when the song changed.
func (s *Station) Record(np *nowplaying.NowPlaying) {
	now := time.Now()
	s.current.Store(np)
	s.lastUpdate.Store(&now)

	key := playKey(np)
	s.mu.Lock()
	changed := key != s.lastKey
	s.lastKey = key
	s.mu.Unlock()

	if changed {
		s.history.Push(Play{At: now, Summary: np.Summary()})
		s.log.Info().
			Str("artist", np.NowPlaying.Song.Artist).
			Str("title", np.NowPlaying.Song.Title).
			Msg("now playing")
	}

	s.fanOut(np)

	if s.cfg.Observer != nil {
		s.cfg.Observer.ObserveUpdate(s.cfg.ID)
	}
}

// Subscribe registers c and returns the channel its updates arrive on. A
// client that falls behind misses updates rather than blocking the feed.
func (s *Station) Subscribe(c *Client) <-chan *nowplaying.NowPlaying {
	c.ch = make(chan *nowplaying.NowPlaying, clientBuffer)
	s.clientsMu.Lock()
	s.clients[c] = struct{}{}
	s.clientsMu.Unlock()
	return c.ch
}

func (s *Station) Unsubscribe(c *Client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(s.clients, c)
	close(c.ch)
}

func (s *Station) ClientCount() int {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	return len(s.clients)
}

func (s *Station) fanOut(np *nowplaying.NowPlaying) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	for client := range s.clients {
		select {
		case client.ch <- np:
		default:
			s.log.Debug().Str("client", client.ID).Msg("client behind, update dropped")
		}
	}
}

func (s *Station) RecordError(err error) {
	kind := nowplaying.KindOf(err)
	s.lastErr.Store(&err)

	s.mu.Lock()
	s.errs[kind]++
	s.mu.Unlock()

	s.log.Warn().Err(err).Str("kind", kind).Msg("feed error")

	if s.cfg.Observer != nil {
		s.cfg.Observer.ObserveError(s.cfg.ID, kind)
	}
}

func playKey(np *nowplaying.NowPlaying) string {
	cur := np.NowPlaying
	if cur.SHID != 0 {
		return cur.Song.ID + "@" + strconv.FormatFloat(cur.SHID, 'f', -1, 64)
	}
	return cur.Song.ID + "@" + strconv.FormatFloat(cur.PlayedAt, 'f', -1, 64)
}
