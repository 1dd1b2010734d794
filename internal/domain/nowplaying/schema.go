// ABOUTME: Declarative schema for the now-playing payload
// ABOUTME: Mirrors the typed model field for field, including nullability
package nowplaying

type kind int

const (
	kindString kind = iota
	kindNumber
	kindBool
	kindObject
	kindArray
)

type node struct {
	kind     kind
	nullable bool
	fields   []field
	elem     *node // nil accepts any element
}

type field struct {
	name string
	node node
}

func str() node     { return node{kind: kindString} }
func number() node  { return node{kind: kindNumber} }
func boolean() node { return node{kind: kindBool} }

func nullable(n node) node {
	n.nullable = true
	return n
}

func object(fields ...field) node {
	return node{kind: kindObject, fields: fields}
}

func arrayOf(elem node) node {
	return node{kind: kindArray, elem: &elem}
}

func anyArray() node {
	return node{kind: kindArray}
}

func f(name string, n node) field {
	return field{name: name, node: n}
}

var listenersSchema = object(
	f("total", number()),
	f("unique", number()),
	f("current", number()),
)

var songSchema = object(
	f("id", str()),
	f("art", str()),
	f("custom_fields", anyArray()),
	f("text", str()),
	f("artist", str()),
	f("title", str()),
	f("album", str()),
	f("genre", str()),
	f("isrc", str()),
	f("lyrics", str()),
)

var stationSchema = object(
	f("id", number()),
	f("name", str()),
	f("shortcode", str()),
	f("description", str()),
	f("frontend", str()),
	f("backend", str()),
	f("timezone", str()),
	f("listen_url", str()),
	f("url", nullable(str())),
	f("public_player_url", str()),
	f("playlist_pls_url", str()),
	f("playlist_m3u_url", str()),
	f("is_public", boolean()),
	f("mounts", arrayOf(object(
		f("id", number()),
		f("name", str()),
		f("url", str()),
		f("bitrate", number()),
		f("format", str()),
		f("listeners", listenersSchema),
		f("path", str()),
		f("is_default", boolean()),
	))),
	f("remotes", anyArray()),
	f("hls_enabled", boolean()),
	f("hls_is_default", boolean()),
	f("hls_url", nullable(str())),
	f("hls_listeners", number()),
)

var liveSchema = object(
	f("is_live", boolean()),
	f("streamer_name", str()),
	f("broadcast_start", nullable(number())),
	f("art", nullable(str())),
)

var currentSongSchema = object(
	f("sh_id", number()),
	f("played_at", number()),
	f("duration", number()),
	f("playlist", str()),
	f("streamer", str()),
	f("is_request", boolean()),
	f("song", songSchema),
	f("elapsed", number()),
	f("remaining", number()),
)

var nextSongSchema = object(
	f("cued_at", number()),
	f("played_at", number()),
	f("duration", number()),
	f("playlist", str()),
	f("is_request", boolean()),
	f("song", songSchema),
)

var historyEntrySchema = object(
	f("sh_id", number()),
	f("played_at", number()),
	f("duration", number()),
	f("playlist", str()),
	f("streamer", str()),
	f("is_request", boolean()),
	f("song", songSchema),
)

var payloadSchema = object(
	f("station", stationSchema),
	f("listeners", listenersSchema),
	f("live", liveSchema),
	f("now_playing", currentSongSchema),
	f("playing_next", nextSongSchema),
	f("song_history", arrayOf(historyEntrySchema)),
	f("is_online", boolean()),
	f("cache", str()),
)
