package validation

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

// dateLayouts are tried in order when coercing a date string
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	time.RFC1123Z,
	time.RFC1123,
}

// Dates must fit a four digit year so the RFC 3339 text written back into
// front-matter parses again.
const (
	minDateYear = 0
	maxDateYear = 9999
)

// coerceDate turns a date-like value into a UTC time. Strings are parsed with
// dateLayouts, numbers are Unix milliseconds. The returned code is empty on success.
func coerceDate(v interface{}) (time.Time, Code) {
	t, code := parseDate(v)
	if code != "" {
		return time.Time{}, code
	}
	if y := t.Year(); y < minDateYear || y > maxDateYear {
		return time.Time{}, CodeUnparsableDate
	}
	return t, ""
}

func parseDate(v interface{}) (time.Time, Code) {
	switch d := v.(type) {
	case time.Time:
		return d.UTC(), ""
	case *time.Time:
		if d == nil {
			return time.Time{}, CodeTypeMismatch
		}
		return d.UTC(), ""
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return time.Time{}, CodeUnparsableDate
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), ""
			}
		}
		return time.Time{}, CodeUnparsableDate
	case json.Number:
		f, err := d.Float64()
		if err != nil {
			return time.Time{}, CodeUnparsableDate
		}
		return fromMillis(f)
	case int:
		return fromMillis(float64(d))
	case int64:
		return fromMillis(float64(d))
	case int32:
		return time.UnixMilli(int64(d)).UTC(), ""
	case uint64:
		return fromMillis(float64(d))
	case float64:
		return fromMillis(d)
	default:
		return time.Time{}, CodeTypeMismatch
	}
}

func fromMillis(f float64) (time.Time, Code) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > 8.64e15 {
		return time.Time{}, CodeUnparsableDate
	}
	ms := int64(f)
	ns := int64((f - float64(ms)) * 1e6)
	return time.UnixMilli(ms).Add(time.Duration(ns)).UTC(), ""
}
