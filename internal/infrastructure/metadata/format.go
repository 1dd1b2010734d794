// ABOUTME: Template rendering of now-playing summaries into display lines
// ABOUTME: Supports placeholder substitution plus quote and whitespace cleanup
package metadata

import (
	"strconv"
	"strings"

	"github.com/harper/nowplaying-relay/internal/domain/nowplaying"
)

const DefaultFormat = "{artist} - {title}"

type BuildConfig struct {
	Format              string
	StripSingleQuotes   bool
	NormalizeWhitespace bool
}

// Build renders s through cfg.Format. Known placeholders are {artist},
// {title}, {album}, {station}, {station_id}, {playlist} and {listeners}.
func Build(cfg BuildConfig, s nowplaying.Summary, album string) string {
	format := cfg.Format
	if format == "" {
		format = DefaultFormat
	}

	r := strings.NewReplacer(
		"{artist}", s.Artist,
		"{title}", s.Title,
		"{album}", album,
		"{station}", s.Station,
		"{station_id}", s.StationID,
		"{playlist}", s.Playlist,
		"{listeners}", strconv.FormatFloat(s.Listeners, 'f', -1, 64),
	)
	result := r.Replace(format)

	if cfg.StripSingleQuotes {
		result = strings.ReplaceAll(result, "'", "")
	}

	if cfg.NormalizeWhitespace {
		result = strings.Join(strings.Fields(result), " ")
	}

	return result
}

// Line renders np with cfg.
func Line(cfg BuildConfig, np *nowplaying.NowPlaying) string {
	return Build(cfg, np.Summary(), np.NowPlaying.Song.Album)
}
