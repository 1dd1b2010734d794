// ABOUTME: Station manager for lifecycle and lookup
// ABOUTME: Creates stations from config and starts and stops their feeds
package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harper/nowplaying-relay/internal/application/config"
	"github.com/harper/nowplaying-relay/internal/domain"
	"github.com/harper/nowplaying-relay/internal/domain/station"
	"github.com/harper/nowplaying-relay/internal/infrastructure/metadata"
	"github.com/harper/nowplaying-relay/internal/infrastructure/metrics"
	"github.com/harper/nowplaying-relay/internal/infrastructure/websocket"
)

// Options overrides the transport and fetcher the manager builds. Zero
// values select the gorilla websocket dialer and the HTTP fetch client.
type Options struct {
	Dialer    domain.Dialer
	Fetcher   func(host string) domain.NowPlayingFetcher
	Metrics   *metrics.Collector
	Logger    *zerolog.Logger
	AfterFunc func(d time.Duration, f func())
}

type Manager struct {
	stations map[string]*station.Station
	mu       sync.RWMutex
	log      zerolog.Logger
}

func NewFromConfig(cfg *config.Config, opts Options) (*Manager, error) {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.NewDialer(websocket.Config{Logger: &logger})
	}

	newFetcher := opts.Fetcher
	if newFetcher == nil {
		newFetcher = func(host string) domain.NowPlayingFetcher {
			return metadata.NewHTTP(metadata.HTTPConfig{
				Host:    host,
				Scheme:  cfg.Feed.HTTPScheme,
				Timeout: cfg.Feed.FetchTimeout(),
				Logger:  &logger,
			})
		}
	}

	mgr := &Manager{
		stations: make(map[string]*station.Station),
		log:      logger.With().Str("component", "manager").Logger(),
	}

	for _, stCfg := range cfg.Stations {
		if _, dup := mgr.stations[stCfg.ID]; dup {
			return nil, fmt.Errorf("duplicate station %q", stCfg.ID)
		}

		host := cfg.HostFor(stCfg)
		stationCfg := station.Config{
			ID:             stCfg.ID,
			Host:           host,
			Scheme:         cfg.Feed.Scheme,
			ReconnectDelay: cfg.Feed.ReconnectDelay(),
			HistorySize:    cfg.History.Size,
			Prime:          stCfg.ShouldPrime(),
			PrimeTimeout:   cfg.Feed.FetchTimeout(),
			Dialer:         dialer,
			Fetcher:        newFetcher(host),
			Logger:         &logger,
			AfterFunc:      opts.AfterFunc,
		}
		if opts.Metrics != nil {
			stationCfg.Observer = opts.Metrics
		}

		st := station.New(stationCfg)
		if opts.Metrics != nil {
			if err := opts.Metrics.Track(st); err != nil {
				return nil, fmt.Errorf("track station %s: %w", stCfg.ID, err)
			}
		}

		mgr.stations[stCfg.ID] = st
	}

	return mgr, nil
}

func (m *Manager) Get(id string) *station.Station {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stations[id]
}

// List returns all stations sorted by id.
func (m *Manager) List() []*station.Station {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*station.Station, 0, len(m.stations))
	for _, st := range m.stations {
		result = append(result, st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID() < result[j].ID() })
	return result
}

// Start starts every station concurrently. Priming failures are recorded
// on the station; only lifecycle errors are returned.
func (m *Manager) Start(ctx context.Context) error {
	stations := m.List()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, st := range stations {
		wg.Add(1)
		go func(st *station.Station) {
			defer wg.Done()
			if err := st.Start(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("start %s: %w", st.ID(), err))
				mu.Unlock()
			}
		}(st)
	}
	wg.Wait()

	m.log.Info().Int("stations", len(stations)).Msg("stations started")
	return errors.Join(errs...)
}

func (m *Manager) Shutdown() error {
	var errs []error
	for _, st := range m.List() {
		if err := st.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("shutdown %s: %w", st.ID(), err))
		}
	}
	return errors.Join(errs...)
}
