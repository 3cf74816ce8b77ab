package persona

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// exportTime is a timestamp as it appears in provider exports: unix seconds (possibly
// fractional, possibly quoted) or an RFC 3339 string. The zero value means unknown.
type exportTime float64

var exportTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *exportTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = 0
		return nil
	}
	if b[0] != '"' {
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			*t = 0
			return nil
		}
		*t = exportTime(normalizeUnix(f))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*t = exportTime(parseExportTime(s))
	return nil
}

func parseExportTime(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return normalizeUnix(f)
	}
	for _, layout := range exportTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return float64(ts.UnixNano()) / 1e9
		}
	}
	return 0
}

// normalizeUnix accepts seconds or milliseconds.
func normalizeUnix(f float64) float64 {
	if f > 1e12 {
		return f / 1e3
	}
	return f
}

func (t exportTime) Known() bool {
	return t > 0
}

// iso8601 renders unix seconds for transcript headers. Non-positive values are treated as unset
// to avoid emitting 1970-era dates.
func iso8601(sec float64) string {
	if sec <= 0 {
		return ""
	}
	ns := int64(math.Round(sec * 1e9))
	return time.Unix(0, ns).UTC().Format(time.RFC3339)
}
