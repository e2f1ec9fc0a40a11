// Package normalize turns untrusted provider payloads into pipeline results.
package normalize

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// Kind identifies which shape an Envelope holds.
type Kind int

// Envelope shapes.
const (
	KindUnknown Kind = iota
	KindObject
	KindArray
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	case KindString:
		return "string"
	default:
		return "unknown"
	}
}

// Envelope is a provider response before normalization. Exactly one of
// Object, Array or Text is meaningful, as told by Kind. Unknown envelopes
// keep the raw decoded value for diagnostics.
type Envelope struct {
	Object map[string]any
	Raw    any
	Text   string
	Array  []any
	Kind   Kind
}

var fenceRe = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*\\n?(.*?)\\s*```\\s*$")

// StripCodeFences removes a surrounding ```json ... ``` block, if any.
func StripCodeFences(text string) string {
	t := strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(t); m != nil {
		return strings.TrimSpace(m[1])
	}
	t = strings.TrimPrefix(t, "```json")
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}

// FromJSON decodes a JSON document. Numbers are kept as json.Number.
// Undecodable input becomes a string envelope holding the raw bytes.
func FromJSON(data []byte) Envelope {
	v, err := decode(data)
	if err != nil {
		return Envelope{Kind: KindString, Text: string(data)}
	}
	return FromValue(v)
}

// FromText strips code fences and parses the text as JSON when it looks
// like an object or array. A single object embedded in prose is also
// recovered. Anything else is a string envelope.
func FromText(text string) Envelope {
	t := StripCodeFences(text)
	if strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[") {
		if v, err := decode([]byte(t)); err == nil {
			return FromValue(v)
		}
	}
	if start, end := strings.Index(t, "{"), strings.LastIndex(t, "}"); start > 0 && end > start {
		if v, err := decode([]byte(t[start : end+1])); err == nil {
			if obj, ok := v.(map[string]any); ok {
				return Envelope{Kind: KindObject, Object: obj}
			}
		}
	}
	return Envelope{Kind: KindString, Text: t}
}

// FromValue wraps an already decoded value. Values that are not plain
// JSON shapes (structs, typed maps) are re-encoded through JSON first.
func FromValue(v any) Envelope {
	switch t := v.(type) {
	case map[string]any:
		return Envelope{Kind: KindObject, Object: t}
	case []any:
		return Envelope{Kind: KindArray, Array: t}
	case string:
		return Envelope{Kind: KindString, Text: t}
	case nil, bool, float64, json.Number:
		return Envelope{Kind: KindUnknown, Raw: t}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return Envelope{Kind: KindUnknown, Raw: v}
	}
	decoded, err := decode(data)
	if err != nil {
		return Envelope{Kind: KindUnknown, Raw: v}
	}
	return FromValue(decoded)
}

func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
