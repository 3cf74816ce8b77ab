package persona

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// containerKeys are the object fields that commonly wrap a conversation array, in probing order.
var containerKeys = []string{"conversations", "data", "items", "chats"}

// errNoContainer means the JSON was valid but held no array of conversation elements.
var errNoContainer = errors.New("no conversation array found")

// conversationElements returns the raw elements of the conversation array in data.
//
// The document may be a top-level array, an object wrapping the array under one of
// containerKeys, or an object whose first array-valued field holds it. A single object that
// is itself a conversation is returned as a one-element slice.
func conversationElements(ctx context.Context, data []byte) ([]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read first token: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, errNoContainer
	}

	switch delim {
	case '[':
		elems, err := decodeArrayFromOpen(ctx, dec)
		if err != nil {
			return nil, err
		}
		return elems, expectDelim(dec, ']')
	case '{':
		return scanObject(ctx, dec, data)
	default:
		return nil, fmt.Errorf("unsupported top-level delimiter %q", delim)
	}
}

// scanObject walks the fields of a top-level object and picks the best-ranked array field.
func scanObject(ctx context.Context, dec *json.Decoder, data []byte) ([]json.RawMessage, error) {
	var (
		best     []json.RawMessage
		bestRank = -1
		isConv   bool
	)
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read object key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected string key, got %T", keyTok)
		}
		if conversationMarkerKeys[key] {
			isConv = true
		}

		valTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read value for key %q: %w", key, err)
		}
		d, isArray := valTok.(json.Delim)
		if !isArray || d != '[' {
			if err := skipValue(dec, valTok); err != nil {
				return nil, fmt.Errorf("skip key %q value: %w", key, err)
			}
			continue
		}

		elems, err := decodeArrayFromOpen(ctx, dec)
		if err != nil {
			return nil, err
		}
		if err := expectDelim(dec, ']'); err != nil {
			return nil, err
		}
		if rank := containerRank(key); rank > bestRank {
			best, bestRank = elems, rank
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}

	// An object carrying message fields is one conversation, not a wrapper.
	if isConv {
		return []json.RawMessage{json.RawMessage(bytes.TrimSpace(data))}, nil
	}
	if bestRank < 0 {
		return nil, errNoContainer
	}
	return best, nil
}

// conversationMarkerKeys identify an object that is a single conversation.
var conversationMarkerKeys = map[string]bool{
	"mapping":       true,
	"chat_messages": true,
	"messages":      true,
}

// containerRank orders array fields: named containers first, then any other array (rank 0).
func containerRank(key string) int {
	for i, k := range containerKeys {
		if k == key {
			return len(containerKeys) - i
		}
	}
	return 0
}

func decodeArrayFromOpen(ctx context.Context, dec *json.Decoder) ([]json.RawMessage, error) {
	var out []json.RawMessage
	for dec.More() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode array element: %w", err)
		}
		out = append(out, raw)
	}
	return out, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read closing %q: %w", want, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected closing %q, got %v", want, tok)
	}
	return nil
}

func skipValue(dec *json.Decoder, first json.Token) error {
	d, ok := first.(json.Delim)
	if !ok {
		// Primitive (string/number/bool/null): already fully consumed.
		return nil
	}
	if d != '{' && d != '[' {
		return fmt.Errorf("skipValue: unexpected delimiter %q", d)
	}

	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		if dd, ok := tok.(json.Delim); ok {
			switch dd {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}
