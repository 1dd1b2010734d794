// ABOUTME: Token walk that recovers object key order lost by map decoding
// ABOUTME: Used to iterate connect.subs channels in the order they arrived
package envelope

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-json"
)

// objectKeys returns the keys of the object found by following path from the
// root of raw, in order of first appearance and without duplicates. A key
// repeated along path resolves to its last occurrence, as map decoding does.
// It returns nil if a path element is missing or is not an object.
func objectKeys(raw []byte, path ...string) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	return keysAt(dec, path)
}

// keysAt consumes one value from dec and resolves path inside it.
func keysAt(dec *json.Decoder, path []string) ([]string, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return nil, nil
	}
	switch d {
	case '[':
		return nil, skipRest(dec)
	case '{':
	default:
		return nil, fmt.Errorf("unexpected %v", tok)
	}

	var keys []string
	seen := make(map[string]struct{})
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}

		if len(path) == 0 {
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				keys = append(keys, key)
			}
			if err := skipValue(dec); err != nil {
				return nil, err
			}
			continue
		}

		if key != path[0] {
			if err := skipValue(dec); err != nil {
				return nil, err
			}
			continue
		}
		if keys, err = keysAt(dec, path[1:]); err != nil {
			return nil, err
		}
	}

	// closing '}'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return keys, nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected object key, got %v", tok)
	}
	return key, nil
}

func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || (d != '{' && d != '[') {
		return nil
	}
	return skipRest(dec)
}

// skipRest consumes tokens up to the close of an already opened container.
func skipRest(dec *json.Decoder) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		if err != nil {
			return err
		}
		if d, ok := tok.(json.Delim); ok {
			switch d {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
