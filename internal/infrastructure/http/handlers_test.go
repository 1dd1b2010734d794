// ABOUTME: Tests for HTTP handlers
// ABOUTME: Verifies routing, headers, and response formats
package http

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/nowplaying-relay/internal/application/config"
	"github.com/harper/nowplaying-relay/internal/application/manager"
	"github.com/harper/nowplaying-relay/internal/domain/nowplaying"
	"github.com/harper/nowplaying-relay/internal/domain/station"
	"github.com/harper/nowplaying-relay/internal/infrastructure/metadata"
	"github.com/harper/nowplaying-relay/internal/testutil"
)

func newManager(t *testing.T) *manager.Manager {
	t.Helper()

	no := false
	cfg := &config.Config{
		Feed: config.FeedConfig{Host: "demo.azuracast.com"},
		Stations: []config.StationConfig{
			{ID: "test_station", Prime: &no},
			{ID: "idle", Prime: &no},
		},
	}
	cfg.ApplyDefaults()

	mgr, err := manager.NewFromConfig(cfg, manager.Options{
		Dialer:    &testutil.FakeDialer{},
		AfterFunc: (&testutil.Scheduler{}).AfterFunc,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Shutdown() })
	return mgr
}

func record(t *testing.T, st *station.Station) *nowplaying.NowPlaying {
	t.Helper()
	np, iss := nowplaying.Validate(testutil.NowPlaying(t))
	require.Nil(t, iss)
	st.Record(np)
	return np
}

func TestMetaHandler_404(t *testing.T) {
	mgr := newManager(t)
	handler := NewMetaHandler(mgr, metadata.BuildConfig{})

	for _, path := range []string{"/nonexistent/meta", "/test_station/other", "/test_station"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestMetaHandler_Empty(t *testing.T) {
	mgr := newManager(t)

	rec := httptest.NewRecorder()
	NewMetaHandler(mgr, metadata.BuildConfig{}).ServeHTTP(rec, httptest.NewRequest("GET", "/idle/meta", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"station":"idle","connected":false,"errors":{}}`, rec.Body.String())
}

func TestMetaHandler_Success(t *testing.T) {
	mgr := newManager(t)
	st := mgr.Get("test_station")
	record(t, st)
	st.RecordError(&nowplaying.ConnectionError{Err: assert.AnError})

	display := metadata.BuildConfig{Format: "StreamTitle='{artist} - {title}';"}
	rec := httptest.NewRecorder()
	NewMetaHandler(mgr, display).ServeHTTP(rec, httptest.NewRequest("GET", "/test_station/meta", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Station    string             `json:"station"`
		UpdatedAt  string             `json:"updated_at"`
		Line       string             `json:"line"`
		Summary    nowplaying.Summary `json:"summary"`
		NowPlaying map[string]any     `json:"now_playing"`
		Errors     map[string]uint64  `json:"errors"`
		LastError  string             `json:"last_error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "test_station", resp.Station)
	assert.NotEmpty(t, resp.UpdatedAt)
	assert.Equal(t, "StreamTitle='Chet Baker - Autumn Leaves';", resp.Line)
	assert.Equal(t, "Autumn Leaves", resp.Summary.Title)
	assert.Contains(t, resp.NowPlaying, "song_history")
	assert.Equal(t, uint64(1), resp.Errors[nowplaying.KindConnection])
	assert.Contains(t, resp.LastError, "connection")
}

func TestHistoryHandler(t *testing.T) {
	mgr := newManager(t)
	record(t, mgr.Get("test_station"))

	rec := httptest.NewRecorder()
	NewHistoryHandler(mgr).ServeHTTP(rec, httptest.NewRequest("GET", "/test_station/history", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var plays []station.Play
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plays))
	require.Len(t, plays, 1)
	assert.Equal(t, "Chet Baker", plays[0].Summary.Artist)

	rec = httptest.NewRecorder()
	NewHistoryHandler(mgr).ServeHTTP(rec, httptest.NewRequest("GET", "/idle/history", nil))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestStationsHandler(t *testing.T) {
	mgr := newManager(t)
	record(t, mgr.Get("test_station"))

	rec := httptest.NewRecorder()
	NewStationsHandler(mgr).ServeHTTP(rec, httptest.NewRequest("GET", "/stations", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var stations []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stations))
	require.Len(t, stations, 2)

	assert.Equal(t, "idle", stations[0]["id"])
	assert.NotContains(t, stations[0], "summary")

	assert.Equal(t, "test_station", stations[1]["id"])
	assert.Equal(t, "/test_station/meta", stations[1]["meta_url"])
	assert.Equal(t, "/test_station/events", stations[1]["events_url"])
	assert.Equal(t, "demo.azuracast.com", stations[1]["host"])
	assert.Contains(t, stations[1], "summary")
}

func TestHealthzHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthzHandler(rec, httptest.NewRequest("GET", "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestCoverHandler(t *testing.T) {
	mgr := newManager(t)
	handler := NewCoverHandler(mgr)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/test_station/cover", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	record(t, mgr.Get("test_station"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/test_station/cover", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://demo.azuracast.com/api/station/1/art/a1b2c3.jpg", rec.Header().Get("Location"))
}

func TestRouter(t *testing.T) {
	mgr := newManager(t)
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("metrics"))
	})
	router := NewRouter(mgr, metadata.BuildConfig{}, metrics)

	tests := []struct {
		path string
		code int
	}{
		{"/stations", http.StatusOK},
		{"/healthz", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/test_station/meta", http.StatusOK},
		{"/test_station/meta/", http.StatusOK},
		{"/test_station/history", http.StatusOK},
		{"/test_station/cover", http.StatusNotFound},
		{"/test_station/stream", http.StatusNotFound},
		{"/missing/meta", http.StatusNotFound},
		{"/", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestEventsHandler(t *testing.T) {
	mgr := newManager(t)
	st := mgr.Get("test_station")
	record(t, st)

	srv := httptest.NewServer(NewRouter(mgr, metadata.BuildConfig{}, nil))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/test_station/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	readData := func() string {
		t.Helper()
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			}
		}
	}

	var first struct {
		Line    string             `json:"line"`
		Summary nowplaying.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(readData()), &first))
	assert.Equal(t, "Chet Baker - Autumn Leaves", first.Line)

	require.Eventually(t, func() bool { return st.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	np, iss, err := nowplaying.ValidateJSON([]byte(testutil.NowPlayingWithTitle(t, "Blue in Green")))
	require.NoError(t, err)
	require.Nil(t, iss)
	st.Record(np)

	var second struct {
		Summary nowplaying.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(readData()), &second))
	assert.Equal(t, "Blue in Green", second.Summary.Title)

	cancel()
	require.Eventually(t, func() bool { return st.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
