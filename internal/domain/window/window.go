// Package window computes before/after statistics for a metric around an
// event instant.
package window

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/netshift/netshift/internal/domain/model"
	"github.com/netshift/netshift/pkg/metrics"
)

// defaultMinPoints is the sample count below which a window is flagged
// low-confidence.
const defaultMinPoints = 3

// PointSource is the read contract the engine needs from the store.
// Results are ordered by timestamp ascending and cover the half-open
// interval [from, to).
type PointSource interface {
	QueryPoints(ctx context.Context, country string, metric model.Metric, from, to time.Time) ([]model.MetricPoint, error)
}

// ControlDetail reports sample counts for one control country.
type ControlDetail struct {
	Country   string `json:"country"`
	PreCount  int    `json:"pre_count"`
	PostCount int    `json:"post_count"`
}

// Result is the outcome of a window comparison. Mean and index fields are
// nil when undefined; missing data is reported through counts and the
// sufficiency flag, never as an error.
type Result struct {
	Country    string       `json:"country"`
	Metric     model.Metric `json:"metric"`
	EventSlug  string       `json:"event"`
	WindowDays int          `json:"window_days"`

	PreFrom  time.Time `json:"pre_from"`
	PreTo    time.Time `json:"pre_to"`
	PostFrom time.Time `json:"post_from"`
	PostTo   time.Time `json:"post_to"`

	PreMean    *float64 `json:"pre_mean"`
	PostMean   *float64 `json:"post_mean"`
	ShiftIndex *float64 `json:"shift_index"`

	PreCount      int  `json:"pre_count"`
	PostCount     int  `json:"post_count"`
	LowConfidence bool `json:"low_confidence"`

	ZScore   *float64        `json:"z_score,omitempty"`
	Controls []ControlDetail `json:"controls,omitempty"`
}

// Engine computes window statistics from a point source. Stateless; safe
// for concurrent use.
type Engine struct {
	source    PointSource
	minPoints int
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithMinPoints sets the low-confidence threshold.
func WithMinPoints(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.minPoints = n
		}
	}
}

// NewEngine creates an engine reading from source.
func NewEngine(source PointSource, opts ...Option) *Engine {
	e := &Engine{source: source, minPoints: defaultMinPoints}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Stats computes pre/post means, the traffic shift index, and optional
// z-score against control countries for the given window spec.
func (e *Engine) Stats(ctx context.Context, country string, metric model.Metric, spec model.WindowSpec, controls []string) (Result, error) {
	cc, err := model.NormalizeCountry(country)
	if err != nil {
		return Result{}, err
	}

	preFrom, preTo := spec.Pre()
	postFrom, postTo := spec.Post()

	pre, err := e.source.QueryPoints(ctx, cc, metric, preFrom, preTo)
	if err != nil {
		return Result{}, fmt.Errorf("query pre-window: %w", err)
	}
	post, err := e.source.QueryPoints(ctx, cc, metric, postFrom, postTo)
	if err != nil {
		return Result{}, fmt.Errorf("query post-window: %w", err)
	}

	res := Result{
		Country:    cc,
		Metric:     metric,
		EventSlug:  spec.Event.Slug,
		WindowDays: spec.WindowDays,
		PreFrom:    preFrom,
		PreTo:      preTo,
		PostFrom:   postFrom,
		PostTo:     postTo,
		PreCount:   len(pre),
		PostCount:  len(post),
	}

	res.PreMean = mean(values(pre))
	res.PostMean = mean(values(post))
	res.LowConfidence = len(pre) < e.minPoints || len(post) < e.minPoints

	// Division by a zero pre-mean yields an undefined index, not infinity.
	if res.PreMean != nil && *res.PreMean != 0 && res.PostMean != nil {
		idx := (*res.PostMean - *res.PreMean) / *res.PreMean
		res.ShiftIndex = &idx
	}

	if len(controls) > 0 {
		if err := e.addControlStats(ctx, &res, pre, post, metric, controls, preFrom, preTo, postFrom, postTo); err != nil {
			return Result{}, err
		}
	}

	metrics.RecordWindowComputation()
	return res, nil
}

// addControlStats computes the z-score of the post-window base-vs-control
// divergence against the pre-window divergence spread.
func (e *Engine) addControlStats(ctx context.Context, res *Result, pre, post []model.MetricPoint, metric model.Metric, controls []string, preFrom, preTo, postFrom, postTo time.Time) error {
	preSeries := [][]model.MetricPoint{pre}
	postSeries := [][]model.MetricPoint{post}

	for _, raw := range controls {
		cc, err := model.NormalizeCountry(raw)
		if err != nil {
			return err
		}
		cPre, err := e.source.QueryPoints(ctx, cc, metric, preFrom, preTo)
		if err != nil {
			return fmt.Errorf("query control %s pre-window: %w", cc, err)
		}
		cPost, err := e.source.QueryPoints(ctx, cc, metric, postFrom, postTo)
		if err != nil {
			return fmt.Errorf("query control %s post-window: %w", cc, err)
		}
		preSeries = append(preSeries, cPre)
		postSeries = append(postSeries, cPost)
		res.Controls = append(res.Controls, ControlDetail{
			Country:   cc,
			PreCount:  len(cPre),
			PostCount: len(cPost),
		})
	}

	preDiffMean, preStd, preOK := periodDivergence(preSeries)
	postDiffMean, _, postOK := periodDivergence(postSeries)

	if preOK && postOK && preStd > 0 {
		z := (postDiffMean - preDiffMean) / preStd
		res.ZScore = &z
	}
	return nil
}

// periodDivergence aligns the base series (index 0) with the control series
// by timestamp and returns mean and population standard deviation of the
// per-timestamp (base - control mean) differences.
func periodDivergence(series [][]model.MetricPoint) (meanDiff, std float64, ok bool) {
	type slot struct {
		base     *float64
		controls []float64
	}
	aligned := make(map[time.Time]*slot)

	for idx, s := range series {
		for _, p := range s {
			sl := aligned[p.TS]
			if sl == nil {
				sl = &slot{}
				aligned[p.TS] = sl
			}
			if idx == 0 {
				v := p.Value
				sl.base = &v
			} else {
				sl.controls = append(sl.controls, p.Value)
			}
		}
	}

	ts := make([]time.Time, 0, len(aligned))
	for t := range aligned {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })

	var diffs []float64
	for _, t := range ts {
		sl := aligned[t]
		if sl.base == nil || len(sl.controls) == 0 {
			continue
		}
		ctrlMean := mean(sl.controls)
		diffs = append(diffs, *sl.base-*ctrlMean)
	}
	if len(diffs) == 0 {
		return 0, 0, false
	}

	m := *mean(diffs)
	var sq float64
	for _, d := range diffs {
		sq += (d - m) * (d - m)
	}
	return m, math.Sqrt(sq / float64(len(diffs))), true
}

func values(points []model.MetricPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// mean returns nil for an empty set; an absent mean is undefined, not zero.
func mean(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	m := sum / float64(len(vals))
	return &m
}
