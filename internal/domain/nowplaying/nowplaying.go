// ABOUTME: Now-playing payload model published by the station feed
// ABOUTME: Typed form of a payload that has passed schema validation
package nowplaying

type NowPlaying struct {
	Station     Station        `json:"station"`
	Listeners   Listeners      `json:"listeners"`
	Live        Live           `json:"live"`
	NowPlaying  CurrentSong    `json:"now_playing"`
	PlayingNext NextSong       `json:"playing_next"`
	SongHistory []HistoryEntry `json:"song_history"`
	IsOnline    bool           `json:"is_online"`
	Cache       string         `json:"cache"`
}

type Station struct {
	ID              float64 `json:"id"`
	Name            string  `json:"name"`
	Shortcode       string  `json:"shortcode"`
	Description     string  `json:"description"`
	Frontend        string  `json:"frontend"`
	Backend         string  `json:"backend"`
	Timezone        string  `json:"timezone"`
	ListenURL       string  `json:"listen_url"`
	URL             *string `json:"url"`
	PublicPlayerURL string  `json:"public_player_url"`
	PlaylistPLSURL  string  `json:"playlist_pls_url"`
	PlaylistM3UURL  string  `json:"playlist_m3u_url"`
	IsPublic        bool    `json:"is_public"`
	Mounts          []Mount `json:"mounts"`
	Remotes         []any   `json:"remotes"`
	HLSEnabled      bool    `json:"hls_enabled"`
	HLSIsDefault    bool    `json:"hls_is_default"`
	HLSURL          *string `json:"hls_url"`
	HLSListeners    float64 `json:"hls_listeners"`
}

type Mount struct {
	ID        float64   `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Bitrate   float64   `json:"bitrate"`
	Format    string    `json:"format"`
	Listeners Listeners `json:"listeners"`
	Path      string    `json:"path"`
	IsDefault bool      `json:"is_default"`
}

type Listeners struct {
	Total   float64 `json:"total"`
	Unique  float64 `json:"unique"`
	Current float64 `json:"current"`
}

type Live struct {
	IsLive         bool     `json:"is_live"`
	StreamerName   string   `json:"streamer_name"`
	BroadcastStart *float64 `json:"broadcast_start"`
	Art            *string  `json:"art"`
}

type Song struct {
	ID           string `json:"id"`
	Art          string `json:"art"`
	CustomFields []any  `json:"custom_fields"`
	Text         string `json:"text"`
	Artist       string `json:"artist"`
	Title        string `json:"title"`
	Album        string `json:"album"`
	Genre        string `json:"genre"`
	ISRC         string `json:"isrc"`
	Lyrics       string `json:"lyrics"`
}

type CurrentSong struct {
	SHID      float64 `json:"sh_id"`
	PlayedAt  float64 `json:"played_at"`
	Duration  float64 `json:"duration"`
	Playlist  string  `json:"playlist"`
	Streamer  string  `json:"streamer"`
	IsRequest bool    `json:"is_request"`
	Song      Song    `json:"song"`
	Elapsed   float64 `json:"elapsed"`
	Remaining float64 `json:"remaining"`
}

type NextSong struct {
	CuedAt    float64 `json:"cued_at"`
	PlayedAt  float64 `json:"played_at"`
	Duration  float64 `json:"duration"`
	Playlist  string  `json:"playlist"`
	IsRequest bool    `json:"is_request"`
	Song      Song    `json:"song"`
}

type HistoryEntry struct {
	SHID      float64 `json:"sh_id"`
	PlayedAt  float64 `json:"played_at"`
	Duration  float64 `json:"duration"`
	Playlist  string  `json:"playlist"`
	Streamer  string  `json:"streamer"`
	IsRequest bool    `json:"is_request"`
	Song      Song    `json:"song"`
}

// Summary is the flattened view of a payload most consumers care about.
type Summary struct {
	Listeners float64 `json:"listeners"`
	StationID string  `json:"station_id"`
	Station   string  `json:"station"`
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	Art       string  `json:"art"`
	Playlist  string  `json:"playlist,omitempty"`
	Duration  float64 `json:"duration"`
	Elapsed   float64 `json:"elapsed"`
	Remaining float64 `json:"remaining"`
}

func (np *NowPlaying) Summary() Summary {
	return Summary{
		Listeners: np.Listeners.Total,
		StationID: np.Station.Shortcode,
		Station:   np.Station.Name,
		Title:     np.NowPlaying.Song.Title,
		Artist:    np.NowPlaying.Song.Artist,
		Art:       np.NowPlaying.Song.Art,
		Playlist:  np.NowPlaying.Playlist,
		Duration:  np.NowPlaying.Duration,
		Elapsed:   np.NowPlaying.Elapsed,
		Remaining: np.NowPlaying.Remaining,
	}
}
