// ABOUTME: Output helpers shared by the fetch and watch commands
// ABOUTME: Prints payloads as template lines or indented JSON
package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/goccy/go-json"

	"github.com/harper/nowplaying-relay/internal/domain/nowplaying"
	"github.com/harper/nowplaying-relay/internal/infrastructure/metadata"
)

func printPayload(out io.Writer, f *feedFlags, np *nowplaying.NowPlaying) error {
	if f.json {
		data, err := json.MarshalIndent(np, "", "  ")
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	_, err := fmt.Fprintln(out, metadata.Line(metadata.BuildConfig{Format: f.format}, np))
	return err
}

// printIssues lists validation issues carried by err, if any.
func printIssues(out io.Writer, err error) {
	var iss nowplaying.Issues
	if !errors.As(err, &iss) {
		return
	}
	for _, is := range iss {
		_, _ = fmt.Fprintf(out, "  %s\n", is.String())
	}
}
