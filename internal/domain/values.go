package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date used for every date in job documents.
const DateLayout = "2006-01-02"

// Number is a float that decodes leniently: JSON numbers, numeric strings and
// booleans are accepted, anything else (null, garbage, NaN) becomes 0.
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number(coerceFloat(data))
	return nil
}

// Float returns n as a float64.
func (n Number) Float() float64 { return float64(n) }

// Key renders n the way index references are written, e.g. 3 -> "3".
func (n Number) Key() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

func coerceFloat(data []byte) float64 {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 {
		return 0
	}
	var s string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		s = strings.TrimSpace(s)
	case 't':
		if string(raw) == "true" {
			return 1
		}
		return 0
	default:
		s = string(raw)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Ref is an identifier that legacy documents store either as a string or as a
// number (index-based references). Numbers are kept in their shortest form.
type Ref string

func (r *Ref) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 {
		*r = ""
		return nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			*r = ""
			return nil
		}
		*r = Ref(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			*r = ""
			return nil
		}
		*r = Ref(strconv.FormatFloat(f, 'f', -1, 64))
	default:
		*r = ""
	}
	return nil
}

// String returns r as a plain string.
func (r Ref) String() string { return string(r) }

// Flag is a bool that decodes leniently: JSON booleans, "true"/"yes"/"1"
// strings and non-zero numbers are true, anything else is false.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 {
		*f = false
		return nil
	}
	switch raw[0] {
	case 't':
		*f = string(raw) == "true"
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			*f = false
			return nil
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "yes", "1":
			*f = true
		default:
			*f = false
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*f = coerceFloat(raw) != 0
	default:
		*f = false
	}
	return nil
}

// Amounts maps a tag to an amount. A value that is not a JSON object decodes
// to an empty map.
type Amounts map[string]Number

func (a *Amounts) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 || raw[0] != '{' {
		*a = nil
		return nil
	}
	var m map[string]Number
	if err := json.Unmarshal(raw, &m); err != nil {
		*a = nil
		return nil
	}
	*a = m
	return nil
}

// ParseDate parses an ISO date, tolerating a trailing time component
// ("2024-05-01T08:00:00Z"). ok is false for empty or unparseable input.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if i := strings.IndexAny(s, "T "); i >= 0 {
		s = s[:i]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Round rounds f to the given number of decimal places.
func Round(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}

// decodeRows decodes each element independently so one malformed row does not
// discard the rest of the list. A row object whose fields have the wrong JSON
// type is kept with those fields left at their zero value; only rows that are
// not objects are rejected. dropped is incremented per rejected row.
func decodeRows[T any](raw []json.RawMessage, dropped *int) []T {
	out := make([]T, 0, len(raw))
	for _, item := range raw {
		var v T
		if err := json.Unmarshal(item, &v); err != nil && !fieldTypeError(item, err) {
			*dropped++
			continue
		}
		out = append(out, v)
	}
	return out
}

// fieldTypeError reports whether err only concerns the type of individual
// fields of the JSON object data. encoding/json still decodes every other
// field in that case.
func fieldTypeError(data []byte, err error) bool {
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) || typeErr.Field == "" {
		return false
	}
	raw := bytes.TrimSpace(data)
	return len(raw) > 0 && raw[0] == '{'
}
