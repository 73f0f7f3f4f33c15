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

// DefaultRadarBase is the public Radar API root.
const DefaultRadarBase = "https://api.cloudflare.com/client/v4"

const radarTimeout = 30 * time.Second

// RadarClient talks to the Cloudflare Radar API. All responses share the
// {success, errors, result} envelope; result payloads vary per endpoint and
// are normalized by the parsers in this package.
type RadarClient struct {
	base   string
	token  string
	client *http.Client
	log    logger.Logger
}

// RadarOption applies a configuration option to the RadarClient.
type RadarOption func(*RadarClient)

// WithRadarBase overrides the API root, mainly for tests.
func WithRadarBase(base string) RadarOption {
	return func(c *RadarClient) {
		if base != "" {
			c.base = base
		}
	}
}

// WithRadarHTTPClient overrides the underlying HTTP client.
func WithRadarHTTPClient(hc *http.Client) RadarOption {
	return func(c *RadarClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewRadarClient creates a client. An empty token is allowed at construction
// and rejected at request time, so a tokenless deployment can still serve
// previously ingested data.
func NewRadarClient(token string, opts ...RadarOption) *RadarClient {
	c := &RadarClient{
		base:   DefaultRadarBase,
		token:  token,
		client: &http.Client{Timeout: radarTimeout},
		log:    logger.Named("radar"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type radarEnvelope struct {
	Success bool            `json:"success"`
	Errors  []radarError    `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type radarError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// get performs one authenticated request and unwraps the envelope.
func (c *RadarClient) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}

	u := c.base + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build radar request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstream, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUpstream, path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrUpstream, path, resp.StatusCode)
	}

	var env radarEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrUpstream, path, err)
	}
	if !env.Success {
		msg := "unspecified error"
		if len(env.Errors) > 0 {
			msg = env.Errors[0].Message
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrUpstream, path, msg)
	}
	return env.Result, nil
}

// getWindow requests a timeseries path with explicit dateStart/dateEnd and
// falls back to a relative dateRange when the API rejects the explicit form.
// Older Radar deployments only understand the relative spelling.
func (c *RadarClient) getWindow(ctx context.Context, path string, params url.Values, days int) (json.RawMessage, error) {
	if days <= 0 {
		days = 1
	}
	now := time.Now().UTC()

	explicit := cloneValues(params)
	explicit.Set("dateStart", now.AddDate(0, 0, -days).Format(time.RFC3339))
	explicit.Set("dateEnd", now.Format(time.RFC3339))
	result, err := c.get(ctx, path, explicit)
	if err == nil {
		return result, nil
	}
	c.log.Warn(ctx, "explicit date window rejected, retrying with dateRange",
		logger.String("path", path), logger.Error(err))

	relative := cloneValues(params)
	relative.Set("dateRange", fmt.Sprintf("%dd", days))
	return c.get(ctx, path, relative)
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// FetchHTTPRequests returns hourly normalized HTTP request points for a
// country over the trailing window.
func (c *RadarClient) FetchHTTPRequests(ctx context.Context, country string, days int) ([]model.MetricPoint, error) {
	params := url.Values{}
	params.Set("name", "main")
	params.Set("location", country)
	params.Set("aggInterval", "1h")

	result, err := c.getWindow(ctx, "/radar/http/timeseries", params, days)
	if err != nil {
		return nil, err
	}
	return bindPoints(country, model.MetricHTTPRequests, ParseTimeseries(result)), nil
}

// FetchL3Attacks returns daily mitigated layer-3 attack byte points. The
// direction is "target" (attacks hitting the country) or "origin" (attacks
// sourced from it).
func (c *RadarClient) FetchL3Attacks(ctx context.Context, country, direction string, days int) ([]model.MetricPoint, error) {
	metric := model.MetricL3BytesTarget
	if direction == "origin" {
		metric = model.MetricL3BytesOrigin
	} else {
		direction = "target"
	}

	params := url.Values{}
	params.Set("location", country)
	params.Set("direction", direction)
	params.Set("metric", "bytes")
	params.Set("aggInterval", "1d")

	result, err := c.getWindow(ctx, "/radar/attacks/layer3/timeseries", params, days)
	if err != nil {
		return nil, err
	}
	return bindPoints(country, metric, ParseTimeseries(result)), nil
}

// FetchBotTraffic returns daily bot traffic share points.
func (c *RadarClient) FetchBotTraffic(ctx context.Context, country string, days int) ([]model.MetricPoint, error) {
	params := url.Values{}
	params.Set("location", country)
	params.Set("aggInterval", "1d")

	result, err := c.getWindow(ctx, "/radar/bots/timeseries", params, days)
	if err != nil {
		return nil, err
	}
	return bindPoints(country, model.MetricBotTraffic, ParseTimeseries(result)), nil
}

// FetchTopDomains returns a ranking snapshot for a country. When date is
// empty the API serves the most recent day and the snapshot is stamped with
// today's date.
func (c *RadarClient) FetchTopDomains(ctx context.Context, country, date string, limit int) ([]model.DomainRankEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	params := url.Values{}
	params.Set("name", "top")
	params.Set("location", country)
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("dateRange", "1d")
	if date != "" {
		params.Set("date", date)
	}

	result, err := c.get(ctx, "/radar/ranking/top", params)
	if err != nil {
		return nil, err
	}

	day := date
	if day == "" {
		day = time.Now().UTC().Format(model.DayFormat)
	}
	return parseRankingRows(result, country, day), nil
}

// parseRankingRows extracts {rank, domain, categories} rows from either the
// result.top or result.items spelling.
func parseRankingRows(result json.RawMessage, country, date string) []model.DomainRankEntry {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(result, &root); err != nil {
		return nil
	}

	var rows []struct {
		Rank       int    `json:"rank"`
		Domain     string `json:"domain"`
		Categories []struct {
			Name string `json:"name"`
		} `json:"categories"`
	}
	for _, key := range []string{"top", "items"} {
		raw, ok := root[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &rows); err == nil && len(rows) > 0 {
			break
		}
		rows = nil
	}

	out := make([]model.DomainRankEntry, 0, len(rows))
	for i, row := range rows {
		if row.Domain == "" {
			continue
		}
		rank := row.Rank
		if rank <= 0 {
			rank = i + 1
		}
		entry := model.DomainRankEntry{
			Country: country,
			Date:    date,
			Rank:    rank,
			Domain:  row.Domain,
		}
		if len(row.Categories) > 0 {
			entry.Category = row.Categories[0].Name
		}
		out = append(out, entry)
	}
	return out
}

func bindPoints(country string, metric model.Metric, points []Point) []model.MetricPoint {
	out := make([]model.MetricPoint, 0, len(points))
	for _, p := range points {
		out = append(out, model.MetricPoint{
			Country: country,
			Metric:  metric,
			TS:      p.TS,
			Value:   p.Value,
		})
	}
	return out
}
