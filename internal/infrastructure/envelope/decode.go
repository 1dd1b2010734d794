// ABOUTME: Decoder for the pub/sub frames that carry now-playing payloads
// ABOUTME: Recognizes legacy connect, subscription-map connect, and pub envelopes
package envelope

import (
	"fmt"

	"github.com/goccy/go-json"
)

type Reason string

const (
	ReasonMalformedJSON     Reason = "malformed-json"
	ReasonMalformedEnvelope Reason = "malformed-envelope"
)

// DecodeError reports a frame that could not be decoded.
type DecodeError struct {
	Reason Reason
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame: %s: %v", e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Decode extracts every np candidate carried by a frame, in delivery order.
//
// Frames are told apart by the keys they carry: "connect" is the initial push
// after the handshake, either in the legacy shape (connect.data rows) or in the
// subscription-map shape (connect.subs publications); "pub" is a single
// incremental publish. Anything else, including non-object JSON, yields no
// candidates and no error.
//
// A row or publication without data.np still yields a nil candidate so that it
// fails validation on its own instead of disappearing.
func Decode(raw []byte) ([]any, error) {
	var top any
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, &DecodeError{Reason: ReasonMalformedJSON, Err: err}
	}

	frame, ok := top.(map[string]any)
	if !ok {
		return nil, nil
	}

	if connect, ok := frame["connect"]; ok {
		return decodeConnect(raw, connect)
	}
	if pub, ok := frame["pub"]; ok {
		return []any{candidate(pub)}, nil
	}
	return nil, nil
}

func decodeConnect(raw []byte, connect any) ([]any, error) {
	c, ok := connect.(map[string]any)
	if !ok {
		return nil, malformed("connect is %s", kindOf(connect))
	}

	if data, ok := c["data"]; ok {
		rows, ok := data.([]any)
		if !ok {
			return nil, malformed("connect.data is %s", kindOf(data))
		}
		out := make([]any, 0, len(rows))
		for _, row := range rows {
			out = append(out, candidate(row))
		}
		return out, nil
	}

	subs, ok := c["subs"]
	if !ok || subs == nil {
		return nil, nil
	}
	subsMap, ok := subs.(map[string]any)
	if !ok {
		return nil, malformed("connect.subs is %s", kindOf(subs))
	}

	channels, err := objectKeys(raw, "connect", "subs")
	if err != nil {
		return nil, malformed("read connect.subs: %v", err)
	}

	var out []any
	for _, name := range channels {
		sub, ok := subsMap[name].(map[string]any)
		if !ok {
			return nil, malformed("connect.subs[%q] is %s", name, kindOf(subsMap[name]))
		}
		pubs, ok := sub["publications"]
		if !ok || pubs == nil {
			continue
		}
		list, ok := pubs.([]any)
		if !ok {
			return nil, malformed("connect.subs[%q].publications is %s", name, kindOf(pubs))
		}
		for _, p := range list {
			out = append(out, candidate(p))
		}
	}
	return out, nil
}

// candidate returns publication.data.np, or nil if any level is missing.
func candidate(publication any) any {
	p, ok := publication.(map[string]any)
	if !ok {
		return nil
	}
	data, ok := p["data"].(map[string]any)
	if !ok {
		return nil
	}
	return data["np"]
}

func malformed(format string, args ...any) error {
	return &DecodeError{Reason: ReasonMalformedEnvelope, Err: fmt.Errorf(format, args...)}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "an object"
	case []any:
		return "an array"
	case string:
		return "a string"
	case float64:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}

