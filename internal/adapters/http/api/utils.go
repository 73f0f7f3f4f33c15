package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/netshift/netshift/internal/domain/model"
)

// queryCountry returns ?country, falling back to the configured default.
func queryCountry(r *http.Request, deps Dependencies) string {
	if c := r.URL.Query().Get("country"); c != "" {
		return c
	}
	return deps.DefaultCountry()
}

// queryInt parses an integer query parameter, returning def when absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrBadRequest, name)
	}
	return n, nil
}

// queryMetric parses the mandatory ?metric parameter.
func queryMetric(r *http.Request) (model.Metric, error) {
	raw := r.URL.Query().Get("metric")
	if raw == "" {
		return "", fmt.Errorf("%w: missing metric", ErrBadRequest)
	}
	return model.ParseMetric(raw)
}

// queryRange resolves ?from / ?to into a half-open UTC interval. Bounds
// accept RFC3339 or YYYY-MM-DD. When both are absent the interval is the
// trailing ?days window (default fallbackDays) ending now.
func queryRange(r *http.Request, fallbackDays int) (time.Time, time.Time, error) {
	q := r.URL.Query()
	rawFrom, rawTo := q.Get("from"), q.Get("to")

	if rawFrom == "" && rawTo == "" {
		days, err := queryInt(r, "days", fallbackDays)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if days <= 0 {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: days must be positive", ErrBadRequest)
		}
		to := time.Now().UTC()
		return to.AddDate(0, 0, -days), to, nil
	}

	from, err := parseBound(rawFrom, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseBound(rawTo, "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: to must be after from", ErrBadRequest)
	}
	return from, to, nil
}

func parseBound(raw, name string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: missing %s", ErrBadRequest, name)
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(model.DayFormat, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %s must be RFC3339 or YYYY-MM-DD", ErrBadRequest, name)
}

// queryControls splits ?controls into country codes; nil means unset so the
// configured defaults apply, and "none" disables controls entirely.
func queryControls(r *http.Request) []string {
	raw := r.URL.Query().Get("controls")
	if raw == "" {
		return nil
	}
	if strings.EqualFold(raw, "none") {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
