package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnparseable is returned when no recovery strategy produced usable JSON
var ErrUnparseable = errors.New("model response is not parseable JSON")

// strategy turns raw model text into a JSON candidate, or "" to try the next one
type strategy func(raw string) string

var strategies = []strategy{
	strings.TrimSpace,
	stripFences,
	firstBalanced,
}

var (
	fence      = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\n?(.*?)```")
	flatObject = regexp.MustCompile(`\{[^{}]*\}`)
)

// Decode unmarshals the first candidate produced by the ordered strategies into v
func Decode(raw string, v interface{}) error {
	var lastErr error
	for _, s := range strategies {
		candidate := s(raw)
		if candidate == "" {
			continue
		}
		if err := json.Unmarshal([]byte(candidate), v); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("%w: %v", ErrUnparseable, lastErr)
	}
	return ErrUnparseable
}

// Record is one loosely typed object from a model response
type Record map[string]interface{}

// DecodeRecords extracts a list of objects from raw. It accepts a bare array,
// an object holding the array under one of keys, or, as the last resort,
// every well-formed flat object found anywhere in the text.
func DecodeRecords(raw string, keys ...string) ([]Record, error) {
	var parsed interface{}
	if err := Decode(raw, &parsed); err == nil {
		if recs := recordsFrom(parsed, keys); len(recs) > 0 {
			return recs, nil
		}
	}

	recs := ExtractRecords(raw)
	if len(recs) == 0 {
		return nil, ErrUnparseable
	}
	return recs, nil
}

// ExtractRecords recovers every flat JSON object embedded in raw
func ExtractRecords(raw string) []Record {
	var out []Record
	for _, m := range flatObject.FindAllString(raw, -1) {
		var r Record
		if err := json.Unmarshal([]byte(m), &r); err == nil && len(r) > 0 {
			out = append(out, r)
		}
	}
	return out
}

func recordsFrom(v interface{}, keys []string) []Record {
	switch t := v.(type) {
	case []interface{}:
		out := make([]Record, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]interface{}); ok {
				out = append(out, Record(m))
			}
		}
		return out
	case map[string]interface{}:
		for _, k := range keys {
			if inner, ok := t[k]; ok {
				return recordsFrom(inner, nil)
			}
		}
	}
	return nil
}

func stripFences(raw string) string {
	if m := fence.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// firstBalanced returns the first brace- or bracket-balanced span, ignoring string contents
func firstBalanced(raw string) string {
	start := strings.IndexAny(raw, "{[")
	if start < 0 {
		return ""
	}
	open := raw[start]
	closer := byte('}')
	if open == '[' {
		closer = ']'
	}

	depth, inString, escaped := 0, false, false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == open:
			depth++
		case c == closer:
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}

// String returns the first non-empty string value among keys
func (r Record) String(keys ...string) string {
	for _, k := range keys {
		switch v := r[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// Int returns the first numeric value among keys, accepting numeric strings
func (r Record) Int(keys ...string) (int, bool) {
	for _, k := range keys {
		switch v := r[k].(type) {
		case float64:
			return int(v), true
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}
