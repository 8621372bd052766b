package client

import (
	"context"
	"fmt"
	"io"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Metric names exported by the server's snapshot cache.
const (
	MetricHits          = "maintrack_snapshot_cache_hits_total"
	MetricMisses        = "maintrack_snapshot_cache_misses_total"
	MetricBuilds        = "maintrack_snapshot_builds_total"
	MetricBuildFailures = "maintrack_snapshot_build_failures_total"
	MetricBuildDuration = "maintrack_snapshot_build_duration_seconds"
)

// Stats is the snapshot cache activity since the server started.
type Stats struct {
	Hits          float64
	Misses        float64
	Builds        float64
	BuildFailures float64

	// BuildAttempts and BuildSeconds come from the build duration histogram.
	BuildAttempts uint64
	BuildSeconds  float64
}

// HitRatio returns hits / (hits + misses), or 0 before the first request.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return s.Hits / total
}

// MeanBuild returns the mean build duration in seconds, or 0 without builds.
func (s Stats) MeanBuild() float64 {
	if s.BuildAttempts == 0 {
		return 0
	}
	return s.BuildSeconds / float64(s.BuildAttempts)
}

// Metrics scrapes GET /metrics and returns the parsed metric families.
func (c *Client) Metrics(ctx context.Context) (map[string]*dto.MetricFamily, error) {
	resp, err := c.get(ctx, "/metrics", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a Prometheus text exposition from r into metric families.
// A partial result with a non-fatal parse warning is still returned successfully.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("client: parse prometheus text: %w", err)
	}
	return mfs, nil
}

// StatsFrom extracts the cache counters from scraped metric families.
// Missing families count as zero.
func StatsFrom(mfs map[string]*dto.MetricFamily) Stats {
	s := Stats{
		Hits:          SumFamily(mfs[MetricHits]),
		Misses:        SumFamily(mfs[MetricMisses]),
		Builds:        SumFamily(mfs[MetricBuilds]),
		BuildFailures: SumFamily(mfs[MetricBuildFailures]),
	}
	if mf := mfs[MetricBuildDuration]; mf != nil {
		for _, m := range mf.GetMetric() {
			if h := m.GetHistogram(); h != nil {
				s.BuildAttempts += h.GetSampleCount()
				s.BuildSeconds += h.GetSampleSum()
			}
		}
	}
	return s
}

// SumFamily adds up all counter, gauge, or untyped values in a MetricFamily.
// Returns 0 if mf is nil (metric not present in the scrape).
func SumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		}
	}
	return total
}
