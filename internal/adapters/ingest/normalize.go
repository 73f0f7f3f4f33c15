package ingest

import (
	"encoding/json"
	"strconv"
	"time"
)

// Point is one normalized (timestamp, value) observation before it is bound
// to a country and metric.
type Point struct {
	TS    time.Time
	Value float64
}

// ParseTimeseries normalizes the Radar result payload into points. Radar
// has shipped several shapes over time; the parser accepts, in order:
//
//  1. result.main.timestamps / result.main.values
//  2. result.timestamps / result.values
//  3. result.series or result.timeseries rows with {t|ts|time|timestamp}
//     and {value | requests.normalized | requests.value | bitrate.value}
//
// Rows that fail to parse are skipped rather than failing the batch.
func ParseTimeseries(result json.RawMessage) []Point {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(result, &root); err != nil {
		return nil
	}

	if raw, ok := root["main"]; ok {
		var main struct {
			Timestamps []any `json:"timestamps"`
			Values     []any `json:"values"`
		}
		if err := json.Unmarshal(raw, &main); err == nil && len(main.Timestamps) > 0 {
			return zipSeries(main.Timestamps, main.Values)
		}
	}

	if _, ok := root["timestamps"]; ok {
		var flat struct {
			Timestamps []any `json:"timestamps"`
			Values     []any `json:"values"`
		}
		if err := json.Unmarshal(result, &flat); err == nil && len(flat.Timestamps) > 0 {
			return zipSeries(flat.Timestamps, flat.Values)
		}
	}

	for _, key := range []string{"series", "timeseries"} {
		raw, ok := root[key]
		if !ok {
			continue
		}
		var rows []map[string]json.RawMessage
		if err := json.Unmarshal(raw, &rows); err != nil {
			continue
		}
		out := make([]Point, 0, len(rows))
		for _, row := range rows {
			ts, ok := rowTimestamp(row)
			if !ok {
				continue
			}
			v, ok := rowValue(row)
			if !ok {
				continue
			}
			out = append(out, Point{TS: ts, Value: v})
		}
		if len(out) > 0 {
			return out
		}
	}

	return nil
}

func zipSeries(timestamps, values []any) []Point {
	n := len(timestamps)
	if len(values) < n {
		n = len(values)
	}
	out := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		ts, ok := parseTS(timestamps[i])
		if !ok {
			continue
		}
		v, ok := toFloat(values[i])
		if !ok {
			continue
		}
		out = append(out, Point{TS: ts, Value: v})
	}
	return out
}

func rowTimestamp(row map[string]json.RawMessage) (time.Time, bool) {
	for _, key := range []string{"t", "ts", "time", "timestamp"} {
		raw, ok := row[key]
		if !ok {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			continue
		}
		if ts, ok := parseTS(v); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

func rowValue(row map[string]json.RawMessage) (float64, bool) {
	if raw, ok := row["value"]; ok {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			if f, ok := toFloat(v); ok {
				return f, true
			}
		}
	}
	for _, key := range []string{"requests", "bitrate"} {
		raw, ok := row[key]
		if !ok {
			continue
		}
		var nested map[string]any
		if err := json.Unmarshal(raw, &nested); err != nil {
			continue
		}
		for _, field := range []string{"normalized", "value"} {
			if f, ok := toFloat(nested[field]); ok {
				return f, true
			}
		}
	}
	return 0, false
}

// tsLayouts covers the timestamp spellings seen in Radar and OONI payloads.
var tsLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTS(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range tsLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
