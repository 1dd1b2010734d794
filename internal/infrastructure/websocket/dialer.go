// ABOUTME: Gorilla websocket transport delivering open, message, error, close callbacks
// ABOUTME: Each Dial runs its own connect and read loop goroutine
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/harper/nowplaying-relay/internal/domain"
)

const (
	DefaultHandshakeTimeout = 45 * time.Second
	writeWait               = 10 * time.Second
	closeWait               = time.Second
)

var ErrNotConnected = errors.New("websocket: not connected")

type Config struct {
	HandshakeTimeout time.Duration
	Header           http.Header
	Logger           *zerolog.Logger
}

type Dialer struct {
	dialer *websocket.Dialer
	header http.Header
	log    zerolog.Logger
}

func NewDialer(cfg Config) *Dialer {
	timeout := cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Dialer{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		},
		header: cfg.Header,
		log:    logger.With().Str("component", "websocket").Logger(),
	}
}

// Dial starts connecting to url in the background and returns at once.
func (d *Dialer) Dial(url string, h domain.ConnHandler) domain.Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		url:    url,
		h:      h,
		cancel: cancel,
		ready:  make(chan struct{}),
		log:    d.log.With().Str("url", url).Logger(),
	}
	defer close(c.ready)

	go c.run(ctx, d.dialer, d.header)
	return c
}

// Conn is one websocket connection. Its handler gets exactly one OnClose.
type Conn struct {
	url    string
	h      domain.ConnHandler
	cancel context.CancelFunc
	ready  chan struct{}
	log    zerolog.Logger

	mu      sync.Mutex
	ws      *websocket.Conn
	closing bool

	writeMu sync.Mutex
}

func (c *Conn) run(ctx context.Context, dialer *websocket.Dialer, header http.Header) {
	<-c.ready
	defer c.h.OnClose()

	ws, resp, err := dialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if !c.isClosing() {
			c.h.OnError(fmt.Errorf("dial %s: %w", c.url, err))
		}
		return
	}
	defer ws.Close()

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return
	}
	c.ws = ws
	c.mu.Unlock()

	c.log.Debug().Msg("websocket open")
	c.h.OnOpen()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if !c.isClosing() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.h.OnError(fmt.Errorf("read: %w", err))
			}
			c.log.Debug().Err(err).Msg("websocket read loop ended")
			return
		}
		c.h.OnMessage(data)
	}
}

func (c *Conn) isClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	ws, closing := c.ws, c.closing
	c.mu.Unlock()

	if ws == nil || closing {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// Close sends a normal closure frame and tears the connection down. A dial
// still in flight is aborted.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	ws := c.ws
	c.mu.Unlock()

	c.cancel()
	if ws == nil {
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait))

	if err := ws.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}
