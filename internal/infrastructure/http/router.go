// ABOUTME: Route table for the relay HTTP server
// ABOUTME: Dispatches per-station routes by path suffix
package http

import (
	"net/http"
	"strings"

	"github.com/harper/nowplaying-relay/internal/application/manager"
	"github.com/harper/nowplaying-relay/internal/infrastructure/metadata"
)

// NewRouter wires every relay route. metrics may be nil.
func NewRouter(mgr *manager.Manager, display metadata.BuildConfig, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/stations", NewStationsHandler(mgr))
	mux.HandleFunc("/healthz", HealthzHandler)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	// Station-specific routes
	routes := map[string]http.Handler{
		"meta":    NewMetaHandler(mgr, display),
		"history": NewHistoryHandler(mgr),
		"events":  NewEventsHandler(mgr, display),
		"cover":   NewCoverHandler(mgr),
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimSuffix(r.URL.Path, "/")
		if i := strings.LastIndex(path, "/"); i > 0 {
			if h, ok := routes[path[i+1:]]; ok {
				h.ServeHTTP(w, r)
				return
			}
		}
		http.NotFound(w, r)
	})

	return mux
}
