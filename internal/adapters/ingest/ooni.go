package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/netshift/netshift/internal/domain/model"
	"github.com/netshift/netshift/pkg/logger"
)

// DefaultOONIBase is the public OONI measurement API root.
const DefaultOONIBase = "https://api.ooni.io/api/v1"

const ooniTimeout = 45 * time.Second

// ooniTools maps circumvention-tool test names to their reachability metric.
var ooniTools = map[string]model.Metric{
	"tor":       model.MetricReachabilityTor,
	"snowflake": model.MetricReachabilitySnowflake,
	"psiphon":   model.MetricReachabilityPsiphon,
}

// OONITools returns the supported tool names in a stable order.
func OONITools() []string {
	return []string{"tor", "snowflake", "psiphon"}
}

// OONIClient queries the OONI aggregation API for daily circumvention-tool
// reachability rates. No authentication is required.
type OONIClient struct {
	base   string
	client *http.Client
	log    logger.Logger
}

// OONIOption applies a configuration option to the OONIClient.
type OONIOption func(*OONIClient)

// WithOONIBase overrides the API root, mainly for tests.
func WithOONIBase(base string) OONIOption {
	return func(c *OONIClient) {
		if base != "" {
			c.base = base
		}
	}
}

// WithOONIHTTPClient overrides the underlying HTTP client.
func WithOONIHTTPClient(hc *http.Client) OONIOption {
	return func(c *OONIClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewOONIClient creates a client.
func NewOONIClient(opts ...OONIOption) *OONIClient {
	c := &OONIClient{
		base:   DefaultOONIBase,
		client: &http.Client{Timeout: ooniTimeout},
		log:    logger.Named("ooni"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchReachability returns daily ok-rate points for one tool over the
// trailing window. A day's rate is anomaly-free measurements over total
// measurements; days with no measurements are omitted rather than stored
// as zero, since absence of probes is not evidence of blocking.
func (c *OONIClient) FetchReachability(ctx context.Context, country, tool string, days int) ([]model.MetricPoint, error) {
	metric, ok := ooniTools[tool]
	if !ok {
		return nil, fmt.Errorf("%w: ooni tool %q", ErrUnknownKind, tool)
	}
	if days <= 0 {
		days = 1
	}
	now := time.Now().UTC()

	params := url.Values{}
	params.Set("probe_cc", country)
	params.Set("test_name", tool)
	params.Set("since", now.AddDate(0, 0, -days).Format(model.DayFormat))
	params.Set("until", now.Format(model.DayFormat))
	params.Set("axis_x", "measurement_start_day")
	params.Set("format", "JSON")

	u := c.base + "/aggregation?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build ooni request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: ooni %s: %v", ErrUpstream, tool, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read ooni %s: %v", ErrUpstream, tool, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: ooni %s returned %d", ErrUpstream, tool, resp.StatusCode)
	}

	points := ParseOONIAggregation(body, country, metric)
	c.log.Debug(ctx, "ooni reachability fetched",
		logger.String("tool", tool),
		logger.String("country", country),
		logger.Int("points", len(points)))
	return points, nil
}

// ParseOONIAggregation normalizes an aggregation response into daily
// reachability points. Row arrays appear under result, results, data or
// items depending on API version; day and count field names vary likewise.
func ParseOONIAggregation(body []byte, country string, metric model.Metric) []model.MetricPoint {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(body, &root); err != nil {
		return nil
	}

	var rows []map[string]any
	for _, key := range []string{"result", "results", "data", "items"} {
		raw, ok := root[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &rows); err == nil && len(rows) > 0 {
			break
		}
		rows = nil
	}

	out := make([]model.MetricPoint, 0, len(rows))
	for _, row := range rows {
		day, ok := ooniDay(row)
		if !ok {
			continue
		}
		total, ok := ooniCount(row, "measurement_count", "total")
		if !ok || total <= 0 {
			continue
		}
		okCount, found := ooniCount(row, "ok_count", "confirmed_count")
		if !found {
			// Fall back to total minus anomalies when no ok count is given.
			anomalies, ok := ooniCount(row, "anomaly_count", "anomalies")
			if !ok {
				continue
			}
			okCount = total - anomalies
		}
		if okCount < 0 {
			okCount = 0
		}
		out = append(out, model.MetricPoint{
			Country: country,
			Metric:  metric,
			TS:      day,
			Value:   okCount / total,
		})
	}
	return out
}

func ooniDay(row map[string]any) (time.Time, bool) {
	for _, key := range []string{"measurement_start_day", "bucket_date"} {
		if ts, ok := parseTS(row[key]); ok {
			return ts, true
		}
	}
	return time.Time{}, false
}

func ooniCount(row map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		if v, ok := row[key]; ok {
			if f, ok := toFloat(v); ok {
				return f, true
			}
		}
	}
	return 0, false
}
