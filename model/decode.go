package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

func isObject(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '{'
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// looseString turns any JSON value into text. Falsy values (null, false, 0, "")
// come back empty so they fall through to defaults.
func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		_ = json.Unmarshal(raw, &s)
		return s
	case 'n', 'f':
		return ""
	case 't':
		return "true"
	case '{':
		return "[object Object]"
	case '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return ""
		}
		return buf.String()
	default:
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil || f == 0 {
			return ""
		}
		return formatNumber(f)
	}
}

// looseNumber accepts numbers and numeric strings; anything else is 0.
func looseNumber(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		raw = json.RawMessage(strings.TrimSpace(s))
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0
	}
	return f
}

// spreadParameters copies parameters into a fresh map. Objects keep their keys,
// arrays and strings are keyed by index, other values contribute nothing.
func spreadParameters(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	switch raw[0] {
	case '{':
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case '[':
		var items []any
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
		m := make(map[string]any, len(items))
		for i, v := range items {
			m[strconv.Itoa(i)] = v
		}
		return m, nil
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		m := make(map[string]any)
		for i, r := range []rune(s) {
			m[strconv.Itoa(i)] = string(r)
		}
		return m, nil
	default:
		return nil, nil
	}
}
