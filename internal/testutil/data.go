// ABOUTME: Shared now-playing fixtures for package tests
// ABOUTME: Provides a schema-valid payload and envelope builders around it
package testutil

import (
	"fmt"
	"testing"

	"github.com/goccy/go-json"
)

// NowPlayingJSON is a payload that satisfies the now-playing schema.
const NowPlayingJSON = `{
  "station": {
    "id": 1,
    "name": "AzuraTest Radio",
    "shortcode": "azuratest_radio",
    "description": "A test station.",
    "frontend": "icecast",
    "backend": "liquidsoap",
    "timezone": "UTC",
    "listen_url": "https://demo.azuracast.com/listen/azuratest_radio/radio.mp3",
    "url": "https://www.azuracast.com/",
    "public_player_url": "https://demo.azuracast.com/public/azuratest_radio",
    "playlist_pls_url": "https://demo.azuracast.com/public/azuratest_radio/playlist.pls",
    "playlist_m3u_url": "https://demo.azuracast.com/public/azuratest_radio/playlist.m3u",
    "is_public": true,
    "mounts": [
      {
        "id": 1,
        "name": "/radio.mp3 (128kbps MP3)",
        "url": "https://demo.azuracast.com/listen/azuratest_radio/radio.mp3",
        "bitrate": 128,
        "format": "mp3",
        "listeners": {"total": 3, "unique": 2, "current": 2},
        "path": "/radio.mp3",
        "is_default": true
      }
    ],
    "remotes": [],
    "hls_enabled": false,
    "hls_is_default": false,
    "hls_url": null,
    "hls_listeners": 0
  },
  "listeners": {"total": 3, "unique": 2, "current": 2},
  "live": {"is_live": false, "streamer_name": "", "broadcast_start": null, "art": null},
  "now_playing": {
    "sh_id": 1042,
    "played_at": 1760000000,
    "duration": 215,
    "playlist": "default",
    "streamer": "",
    "is_request": false,
    "song": {
      "id": "a1b2c3",
      "art": "https://demo.azuracast.com/api/station/1/art/a1b2c3.jpg",
      "custom_fields": [],
      "text": "Chet Baker - Autumn Leaves",
      "artist": "Chet Baker",
      "title": "Autumn Leaves",
      "album": "She Was Too Good to Me",
      "genre": "Jazz",
      "isrc": "",
      "lyrics": ""
    },
    "elapsed": 42,
    "remaining": 173
  },
  "playing_next": {
    "cued_at": 1760000200,
    "played_at": 1760000215,
    "duration": 180,
    "playlist": "default",
    "is_request": false,
    "song": {
      "id": "d4e5f6",
      "art": "https://demo.azuracast.com/api/station/1/art/d4e5f6.jpg",
      "custom_fields": [],
      "text": "Miles Davis - So What",
      "artist": "Miles Davis",
      "title": "So What",
      "album": "Kind of Blue",
      "genre": "Jazz",
      "isrc": "",
      "lyrics": ""
    }
  },
  "song_history": [
    {
      "sh_id": 1041,
      "played_at": 1759999800,
      "duration": 200,
      "playlist": "default",
      "streamer": "",
      "is_request": false,
      "song": {
        "id": "0a0b0c",
        "art": "https://demo.azuracast.com/api/station/1/art/0a0b0c.jpg",
        "custom_fields": [],
        "text": "Bill Evans - Waltz for Debby",
        "artist": "Bill Evans",
        "title": "Waltz for Debby",
        "album": "Waltz for Debby",
        "genre": "Jazz",
        "isrc": "",
        "lyrics": ""
      }
    }
  ],
  "is_online": true,
  "cache": "hit"
}`

// NowPlaying returns a freshly decoded copy of NowPlayingJSON that tests may
// mutate.
func NowPlaying(t testing.TB) map[string]any {
	t.Helper()

	var m map[string]any
	if err := json.Unmarshal([]byte(NowPlayingJSON), &m); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return m
}

// NowPlayingWithTitle returns NowPlayingJSON with the current song title
// replaced, encoded as JSON.
func NowPlayingWithTitle(t testing.TB, title string) string {
	t.Helper()

	m := NowPlaying(t)
	song := m["now_playing"].(map[string]any)["song"].(map[string]any)
	song["title"] = title
	return Encode(t, m)
}

// InvalidNowPlaying returns the fixture without its now_playing field.
func InvalidNowPlaying(t testing.TB) string {
	t.Helper()

	m := NowPlaying(t)
	delete(m, "now_playing")
	return Encode(t, m)
}

func Encode(t testing.TB, v any) string {
	t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return string(data)
}

// PubFrame wraps an np payload in an incremental publish envelope.
func PubFrame(np string) string {
	return fmt.Sprintf(`{"pub":{"data":{"np":%s}}}`, np)
}

// LegacyConnectFrame wraps np payloads in the legacy connect push.
func LegacyConnectFrame(nps ...string) string {
	rows := ""
	for i, np := range nps {
		if i > 0 {
			rows += ","
		}
		rows += fmt.Sprintf(`{"data":{"np":%s}}`, np)
	}
	return fmt.Sprintf(`{"connect":{"data":[%s]}}`, rows)
}

// SubsConnectFrame wraps np payloads as publications of a single channel in
// the subscription-map connect push.
func SubsConnectFrame(channel string, nps ...string) string {
	pubs := ""
	for i, np := range nps {
		if i > 0 {
			pubs += ","
		}
		pubs += fmt.Sprintf(`{"offset":%d,"data":{"np":%s}}`, i+1, np)
	}
	return fmt.Sprintf(`{"connect":{"client":"c1","version":"5.0.0","subs":{%q:{"recoverable":true,"publications":[%s]}}}}`, channel, pubs)
}
