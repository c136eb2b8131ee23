package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrMalformedResponse is returned when a webview response carries no
// recognisable settings.
var ErrMalformedResponse = errors.New("malformed configuration response")

// Record is a flat setting name to value mapping.
type Record map[string]string

// Int returns the integer value of key, or 0 when it is not a number.
func (r Record) Int(key string) int32 {
	v, err := strconv.ParseInt(strings.TrimSpace(r[key]), 10, 32)
	if err != nil {
		return 0
	}
	return int32(v)
}

// Clone returns a copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Decode parses a webview response into a normalized record.
//
// Three encodings are accepted: the settings page builder's URL-encoded
// JSON ({"key":{"value":...}}), a plain JSON object, and a form-encoded
// query string.
func (s *Schema) Decode(response string) (Record, error) {
	raw := strings.TrimSpace(response)
	raw = strings.TrimPrefix(raw, "#")
	if raw == "" {
		return nil, ErrMalformedResponse
	}

	if !strings.HasPrefix(raw, "{") {
		if unescaped, err := url.QueryUnescape(raw); err == nil && strings.HasPrefix(unescaped, "{") {
			raw = unescaped
		}
	}

	var rec Record
	var err error
	switch {
	case strings.HasPrefix(raw, "{"):
		rec, err = s.decodeJSON(raw)
	case strings.Contains(raw, "="):
		rec, err = decodeForm(raw)
	default:
		err = fmt.Errorf("%w: %q", ErrMalformedResponse, raw)
	}
	if err != nil {
		return nil, err
	}
	return s.Normalize(rec), nil
}

func (s *Schema) decodeJSON(raw string) (Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	rec := make(Record, len(fields))
	for key, msg := range fields {
		var wrapped struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(msg, &wrapped); err == nil && wrapped.Value != nil {
			msg = wrapped.Value
		}

		f, _ := s.Field(key)
		v, ok := scalar(msg, f.Kind == KindColor)
		if ok {
			rec[key] = v
		}
	}
	return rec, nil
}

// scalar renders a JSON string, number or bool as a record value.
// Numeric colors are rendered as hex.
func scalar(msg json.RawMessage, color bool) (string, bool) {
	var str string
	if err := json.Unmarshal(msg, &str); err == nil {
		return str, true
	}
	var num json.Number
	if err := json.Unmarshal(msg, &num); err == nil {
		if color {
			n, err := num.Int64()
			if err != nil || n < 0 {
				return "", false
			}
			return hexString(uint32(n)), true
		}
		return num.String(), true
	}
	var b bool
	if err := json.Unmarshal(msg, &b); err == nil {
		return strconv.FormatBool(b), true
	}
	return "", false
}

func decodeForm(raw string) (Record, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	rec := make(Record, len(values))
	for k, v := range values {
		if len(v) > 0 {
			rec[k] = v[0]
		}
	}
	return rec, nil
}

// Encode renders r as the URL-encoded JSON the settings page builder
// returns, so it can be fed back to Decode.
func (r Record) Encode() string {
	wrapped := make(map[string]map[string]string, len(r))
	for k, v := range r {
		wrapped[k] = map[string]string{"value": v}
	}
	b, _ := json.Marshal(wrapped)
	return url.QueryEscape(string(b))
}
