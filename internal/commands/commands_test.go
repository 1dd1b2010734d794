// ABOUTME: Tests for the npfeed commands
// ABOUTME: Runs fetch and watch against httptest feed servers
package commands

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/harper/nowplaying-relay/internal/testutil"
)

func newApp() (*cli.Command, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	flags := &Flags{}
	app := &cli.Command{Name: "npfeed", Writer: &out, ErrWriter: &errOut}
	app = NewFetchCmd(flags).Register(app)
	app = NewWatchCmd(flags).Register(app)
	app = NewServeCmd(flags).Register(app)
	return app, &out, &errOut
}

func hostOf(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

func staticServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/nowplaying_static/azuratest_radio.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_Line(t *testing.T) {
	srv := staticServer(t, testutil.NowPlayingJSON)
	app, out, _ := newApp()

	err := app.Run(context.Background(), []string{"npfeed", "fetch", "--insecure", "--host", hostOf(srv), "azuratest_radio"})
	require.NoError(t, err)
	assert.Equal(t, "Chet Baker - Autumn Leaves\n", out.String())
}

func TestFetch_JSON(t *testing.T) {
	srv := staticServer(t, testutil.NowPlayingJSON)
	app, out, _ := newApp()

	err := app.Run(context.Background(), []string{"npfeed", "fetch", "--insecure", "--json", "--host", hostOf(srv), "azuratest_radio"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"shortcode": "azuratest_radio"`)
}

func TestFetch_InvalidPayload(t *testing.T) {
	srv := staticServer(t, testutil.InvalidNowPlaying(t))
	app, out, errOut := newApp()

	err := app.Run(context.Background(), []string{"npfeed", "fetch", "--insecure", "--host", hostOf(srv), "azuratest_radio"})
	require.Error(t, err)
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "/now_playing")
}

func TestFetch_NeedsStation(t *testing.T) {
	app, _, _ := newApp()
	err := app.Run(context.Background(), []string{"npfeed", "fetch"})
	assert.ErrorContains(t, err, "station id")
}

func TestWatch_PrintsUpdates(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if !strings.Contains(string(data), "station:azuratest_radio") {
				continue
			}
			frame := testutil.SubsConnectFrame("station:azuratest_radio",
				testutil.NowPlayingJSON,
				testutil.NowPlayingWithTitle(t, "Blue in Green"))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	app, out, _ := newApp()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := app.Run(ctx, []string{"npfeed", "watch", "--insecure", "--count", "2", "--format", "{title}", "--host", hostOf(srv), "azuratest_radio"})
	require.NoError(t, err)
	assert.Equal(t, "Autumn Leaves\nBlue in Green\n", out.String())
}

func TestServe_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("stations: []\n"), 0o644))

	app, _, _ := newApp()
	err := app.Run(context.Background(), []string{"npfeed", "serve", "--config", path})
	assert.ErrorContains(t, err, "load config")
}
