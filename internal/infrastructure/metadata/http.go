// ABOUTME: HTTP fetch client for a station's static now-playing document
// ABOUTME: Maps transport, status, parse, and schema failures onto typed errors
package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/harper/nowplaying-relay/internal/domain/nowplaying"
)

const (
	DefaultScheme  = "https"
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// ErrResponseTooLarge marks a static document larger than the read limit.
var ErrResponseTooLarge = errors.New("response too large")

type HTTPConfig struct {
	Host    string
	Scheme  string
	Timeout time.Duration
	Logger  *zerolog.Logger
}

type HTTPProvider struct {
	cfg    HTTPConfig
	client *http.Client
	log    zerolog.Logger
}

func NewHTTP(cfg HTTPConfig) *HTTPProvider {
	if cfg.Scheme == "" {
		cfg.Scheme = DefaultScheme
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	return &HTTPProvider{
		cfg:    cfg,
		client: client,
		log:    logger.With().Str("component", "fetch").Logger(),
	}
}

// StaticURL is the location of a station's static now-playing document.
func StaticURL(scheme, host, stationID string) string {
	return fmt.Sprintf("%s://%s/api/nowplaying_static/%s.json", scheme, host, url.PathEscape(stationID))
}

// Fetch retrieves and validates the current payload of stationID. Failures
// are *nowplaying.NetworkError or *nowplaying.ResponseValidationError.
func (h *HTTPProvider) Fetch(ctx context.Context, stationID string) (*nowplaying.NowPlaying, error) {
	target := StaticURL(h.cfg.Scheme, h.cfg.Host, stationID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &nowplaying.NetworkError{URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &nowplaying.NetworkError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, &nowplaying.NetworkError{URL: target, Err: fmt.Errorf("read body: %w", err)}
	}
	if len(body) > maxBodyBytes {
		return nil, &nowplaying.ResponseValidationError{
			URL: target,
			Err: fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, maxBodyBytes),
		}
	}

	np, iss, err := nowplaying.ValidateJSON(body)
	if err != nil {
		return nil, &nowplaying.ResponseValidationError{URL: target, Err: err}
	}
	if iss != nil {
		return nil, &nowplaying.ResponseValidationError{URL: target, Issues: iss}
	}

	h.log.Debug().Str("station", stationID).Str("title", np.NowPlaying.Song.Title).Msg("fetched now playing")
	return np, nil
}
