package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006.01.02 15:04:05",
	"2006.01.02 15:04",
	"2006-01-02",
}

// ParseTime accepts epoch milliseconds (number or numeric string), RFC3339 and
// the zone-less layouts used by MetaTrader. Zone-less values are read as UTC.
func ParseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t.UTC(), nil
	case int64:
		return FromMillis(t), nil
	case int:
		return FromMillis(int64(t)), nil
	case float64:
		return FromMillis(int64(t)), nil
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("normalize: invalid time %q", t.String())
		}
		return FromMillis(n), nil
	case string:
		return parseTimeString(t)
	}
	return time.Time{}, fmt.Errorf("normalize: unsupported time value %T", v)
}

// FromMillis converts epoch milliseconds to UTC. Zero stays the zero time.
func FromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func parseTimeString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return FromMillis(n), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("normalize: unrecognized time %q", s)
}
