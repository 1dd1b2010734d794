// ABOUTME: HTTP handlers for station endpoints
// ABOUTME: Implements metadata, history, live events, cover, and health routes
package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/harper/nowplaying-relay/internal/application/manager"
	"github.com/harper/nowplaying-relay/internal/domain/nowplaying"
	"github.com/harper/nowplaying-relay/internal/domain/station"
	"github.com/harper/nowplaying-relay/internal/infrastructure/metadata"
)

// stationFor resolves /{station}/{suffix} to a station, writing a 404 when
// the path or the station does not match.
func stationFor(mgr *manager.Manager, w http.ResponseWriter, r *http.Request, suffix string) *station.Station {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 2 || parts[1] != suffix {
		http.NotFound(w, r)
		return nil
	}

	st := mgr.Get(parts[0])
	if st == nil {
		http.NotFound(w, r)
		return nil
	}
	return st
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(v)
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

type MetaHandler struct {
	mgr     *manager.Manager
	display metadata.BuildConfig
}

func NewMetaHandler(mgr *manager.Manager, display metadata.BuildConfig) *MetaHandler {
	return &MetaHandler{mgr: mgr, display: display}
}

type metaResponse struct {
	Station    string                 `json:"station"`
	Connected  bool                   `json:"connected"`
	UpdatedAt  *string                `json:"updated_at,omitempty"`
	Line       string                 `json:"line,omitempty"`
	Summary    *nowplaying.Summary    `json:"summary,omitempty"`
	NowPlaying *nowplaying.NowPlaying `json:"now_playing,omitempty"`
	Errors     map[string]uint64      `json:"errors"`
	LastError  string                 `json:"last_error,omitempty"`
}

func (h *MetaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := stationFor(h.mgr, w, r, "meta")
	if st == nil {
		return
	}

	resp := metaResponse{
		Station:   st.ID(),
		Connected: st.Connected(),
		UpdatedAt: formatTime(st.LastUpdate()),
		Errors:    st.ErrorCounts(),
	}
	if np := st.Current(); np != nil {
		sum := np.Summary()
		resp.Summary = &sum
		resp.NowPlaying = np
		resp.Line = metadata.Line(h.display, np)
	}
	if err := st.LastError(); err != nil {
		resp.LastError = err.Error()
	}

	writeJSON(w, resp)
}

type HistoryHandler struct {
	mgr *manager.Manager
}

func NewHistoryHandler(mgr *manager.Manager) *HistoryHandler {
	return &HistoryHandler{mgr: mgr}
}

func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := stationFor(h.mgr, w, r, "history")
	if st == nil {
		return
	}

	writeJSON(w, st.History())
}

type StationsHandler struct {
	mgr *manager.Manager
}

func NewStationsHandler(mgr *manager.Manager) *StationsHandler {
	return &StationsHandler{mgr: mgr}
}

func (h *StationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type stationInfo struct {
		ID         string              `json:"id"`
		Host       string              `json:"host"`
		MetaURL    string              `json:"meta_url"`
		HistoryURL string              `json:"history_url"`
		EventsURL  string              `json:"events_url"`
		Connected  bool                `json:"connected"`
		Reconnects uint64              `json:"reconnects"`
		Clients    int                 `json:"clients"`
		UpdatedAt  *string             `json:"updated_at,omitempty"`
		Summary    *nowplaying.Summary `json:"summary,omitempty"`
	}

	stations := h.mgr.List()
	result := make([]stationInfo, 0, len(stations))

	for _, st := range stations {
		info := stationInfo{
			ID:         st.ID(),
			Host:       st.Host(),
			MetaURL:    fmt.Sprintf("/%s/meta", st.ID()),
			HistoryURL: fmt.Sprintf("/%s/history", st.ID()),
			EventsURL:  fmt.Sprintf("/%s/events", st.ID()),
			Connected:  st.Connected(),
			Reconnects: st.Reconnects(),
			Clients:    st.ClientCount(),
			UpdatedAt:  formatTime(st.LastUpdate()),
		}
		if sum, ok := st.Summary(); ok {
			info.Summary = &sum
		}
		result = append(result, info)
	}

	writeJSON(w, result)
}

// EventsHandler streams a station's updates as server-sent events. The
// current payload, when known, is sent first.
type EventsHandler struct {
	mgr     *manager.Manager
	display metadata.BuildConfig
}

func NewEventsHandler(mgr *manager.Manager, display metadata.BuildConfig) *EventsHandler {
	return &EventsHandler{mgr: mgr, display: display}
}

type event struct {
	Line    string             `json:"line"`
	Summary nowplaying.Summary `json:"summary"`
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := stationFor(h.mgr, w, r, "events")
	if st == nil {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	client := &station.Client{ID: "sse-" + uuid.NewString()}
	updates := st.Subscribe(client)
	defer st.Unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if np := st.Current(); np != nil {
		if err := h.write(w, np); err != nil {
			return
		}
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case np, ok := <-updates:
			if !ok {
				return
			}
			if err := h.write(w, np); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (h *EventsHandler) write(w http.ResponseWriter, np *nowplaying.NowPlaying) error {
	data, err := json.Marshal(event{Line: metadata.Line(h.display, np), Summary: np.Summary()})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: nowplaying\ndata: %s\n\n", data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

func HealthzHandler(w http.ResponseWriter, r *http.Request) {
	type response struct {
		OK bool `json:"ok"`
	}

	writeJSON(w, response{OK: true})
}

// CoverHandler redirects to the artwork of the current song.
type CoverHandler struct {
	mgr *manager.Manager
}

func NewCoverHandler(mgr *manager.Manager) *CoverHandler {
	return &CoverHandler{mgr: mgr}
}

func (h *CoverHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	st := stationFor(h.mgr, w, r, "cover")
	if st == nil {
		return
	}

	sum, ok := st.Summary()
	if !ok || sum.Art == "" {
		http.NotFound(w, r)
		return
	}

	http.Redirect(w, r, sum.Art, http.StatusFound)
}
