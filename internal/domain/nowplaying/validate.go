// ABOUTME: Payload validator checking decoded JSON against the now-playing schema
// ABOUTME: Collects every issue before converting the value to the typed model
package nowplaying

import (
	"fmt"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// Validate checks a JSON-decoded value (maps, slices, float64, string, bool,
// nil) against the payload schema. On success it returns the typed payload
// and nil issues. On failure it returns every violation found and no payload.
func Validate(raw any) (*NowPlaying, Issues) {
	var iss Issues
	payloadSchema.check(raw, "", &iss)
	if len(iss) > 0 {
		return nil, iss
	}

	np, err := convert(raw)
	if err != nil {
		return nil, Issues{{Code: CodeParseError, Message: err.Error()}}
	}
	return np, nil
}

// ValidateJSON parses data and validates the result. A parse failure is
// returned as an error with nil issues.
func ValidateJSON(data []byte) (*NowPlaying, Issues, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("parse json: %w", err)
	}
	np, iss := Validate(raw)
	return np, iss, nil
}

func convert(raw any) (*NowPlaying, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	var np NowPlaying
	if err := json.Unmarshal(data, &np); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &np, nil
}

func (n node) check(v any, path string, iss *Issues) {
	if v == nil {
		if !n.nullable {
			iss.add(path, CodeInvalidType, "expected %s, received null", n.kind)
		}
		return
	}

	switch n.kind {
	case kindString:
		if _, ok := v.(string); !ok {
			iss.add(path, CodeInvalidType, "expected string, received %s", typeName(v))
		}
	case kindBool:
		if _, ok := v.(bool); !ok {
			iss.add(path, CodeInvalidType, "expected boolean, received %s", typeName(v))
		}
	case kindNumber:
		if !isNumber(v) {
			iss.add(path, CodeInvalidType, "expected number, received %s", typeName(v))
		}
	case kindObject:
		m, ok := v.(map[string]any)
		if !ok {
			iss.add(path, CodeInvalidType, "expected object, received %s", typeName(v))
			return
		}
		for _, fd := range n.fields {
			child := pointerJoin(path, fd.name)
			fv, present := m[fd.name]
			if !present {
				iss.add(child, CodeRequired, "required")
				continue
			}
			fd.node.check(fv, child, iss)
		}
	case kindArray:
		items, ok := v.([]any)
		if !ok {
			iss.add(path, CodeInvalidType, "expected array, received %s", typeName(v))
			return
		}
		if n.elem == nil {
			return
		}
		for i, item := range items {
			n.elem.check(item, pointerJoin(path, strconv.Itoa(i)), iss)
		}
	}
}

func (k kind) String() string {
	switch k {
	case kindString:
		return "string"
	case kindNumber:
		return "number"
	case kindBool:
		return "boolean"
	case kindObject:
		return "object"
	case kindArray:
		return "array"
	default:
		return "unknown"
	}
}

func isNumber(v any) bool {
	switch n := v.(type) {
	case int, int32, int64:
		return true
	case float64:
		return !math.IsNaN(n) && !math.IsInf(n, 0)
	default:
		return false
	}
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, int, int32, int64:
		return "number"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}
