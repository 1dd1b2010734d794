// ABOUTME: Domain interfaces for dependency inversion
// ABOUTME: Lets the session and stations depend on transports and fetchers abstractly
package domain

import (
	"context"

	"github.com/harper/nowplaying-relay/internal/domain/nowplaying"
)

// Conn is a live transport connection returned by a Dialer.
type Conn interface {
	// Send writes one text frame. It fails if the connection is not open.
	Send(data []byte) error
	// Close shuts the connection down. The handler still receives OnClose.
	Close() error
}

// ConnHandler receives the callbacks of one connection.
type ConnHandler interface {
	OnOpen()
	OnMessage(data []byte)
	OnClose()
	OnError(err error)
}

// Dialer opens connections to a push endpoint. Dial returns immediately and
// connects in the background; callbacks are never delivered before Dial
// returns. Every connection ends with exactly one OnClose.
type Dialer interface {
	Dial(url string, h ConnHandler) Conn
}

// NowPlayingFetcher retrieves a station's current payload in one request.
type NowPlayingFetcher interface {
	Fetch(ctx context.Context, stationID string) (*nowplaying.NowPlaying, error)
}
