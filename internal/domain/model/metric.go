package model

import "fmt"

// Metric enumerates the time-series stored by the service. Names match the
// upstream-normalized records written by ingestion.
type Metric string

const (
	// MetricHTTPRequests is Cloudflare Radar's normalized HTTP request index.
	MetricHTTPRequests Metric = "http_requests_norm"

	// MetricL3BytesTarget and MetricL3BytesOrigin are mitigated layer-3
	// attack bytes where the country was the target or the origin.
	MetricL3BytesTarget Metric = "l3_bytes_target"
	MetricL3BytesOrigin Metric = "l3_bytes_origin"

	// MetricBotTraffic is the bot share of HTTP traffic.
	MetricBotTraffic Metric = "bot_traffic"

	// Reachability metrics carry the daily OONI ok-rate per
	// circumvention tool, in [0,1].
	MetricReachabilityTor       Metric = "reachability_tor"
	MetricReachabilitySnowflake Metric = "reachability_snowflake"
	MetricReachabilityPsiphon   Metric = "reachability_psiphon"
)

// Metrics returns all recognized metrics in a stable order.
func Metrics() []Metric {
	return []Metric{
		MetricHTTPRequests,
		MetricL3BytesTarget,
		MetricL3BytesOrigin,
		MetricBotTraffic,
		MetricReachabilityTor,
		MetricReachabilitySnowflake,
		MetricReachabilityPsiphon,
	}
}

// ParseMetric validates a metric name.
func ParseMetric(name string) (Metric, error) {
	m := Metric(name)
	for _, known := range Metrics() {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMetric, name)
}

func (m Metric) String() string { return string(m) }
