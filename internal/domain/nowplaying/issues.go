// ABOUTME: Validation issue list produced when a payload fails the schema
// ABOUTME: Issues carry JSON Pointer paths and stable codes
package nowplaying

import (
	"fmt"
	"strings"
)

const (
	CodeInvalidType = "invalid_type"
	CodeRequired    = "required"
	CodeParseError  = "parse_error"
)

// Issue is a single schema violation. Path is a JSON Pointer into the
// validated value ("" for the root).
type Issue struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	path := i.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s at %s: %s", i.Code, path, i.Message)
}

// Issues is an ordered list of violations. It implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3

	b := &strings.Builder{}
	for i, it := range iss {
		if i == maxShown {
			fmt.Fprintf(b, "; ... (total %d)", len(iss))
			break
		}
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
	}
	return b.String()
}

func (iss *Issues) add(path, code, format string, args ...any) {
	*iss = append(*iss, Issue{Path: path, Code: code, Message: fmt.Sprintf(format, args...)})
}

func pointerJoin(parent, token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	token = strings.ReplaceAll(token, "/", "~1")
	return parent + "/" + token
}
