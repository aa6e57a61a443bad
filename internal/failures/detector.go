package failures

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/your-username/appsync-flow-simulator/internal/models"
)

const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"

	maxSamples = 10
)

// Detector groups failed operations by the pattern their failure reason
// matches and tracks how often each group fires
type Detector struct {
	mu              sync.RWMutex
	patterns        []Pattern
	stats           map[string]*groupStats
	anomalyDetector *AnomalyDetector
	windowSize      time.Duration
	thresholds      Thresholds
	now             func() time.Time
}

// Pattern classifies a failure reason
type Pattern struct {
	Name     string
	Pattern  *regexp.Regexp
	Severity string
	Category string
}

// Stats is the exported view of one failure group
type Stats struct {
	Pattern     string                          `json:"pattern"`
	Category    string                          `json:"category"`
	Severity    string                          `json:"severity"`
	Count       int64                           `json:"count"`
	FirstSeen   time.Time                       `json:"first_seen"`
	LastSeen    time.Time                       `json:"last_seen"`
	DataSources map[models.DataSourceKind]int64 `json:"data_sources"`
	Resolvers   map[models.ResolverKind]int64   `json:"resolvers"`
	Samples     []Sample                        `json:"samples"`
	Rate        float64                         `json:"rate_per_minute"`
	Trend       string                          `json:"trend"`
}

// Sample is one recorded failure
type Sample struct {
	OperationID int64                `json:"operation_id"`
	Name        string               `json:"name"`
	Kind        models.OperationKind `json:"kind"`
	Reason      string               `json:"reason"`
	Timestamp   time.Time            `json:"timestamp"`
}

// Thresholds decide when a group is reported as anomalous
type Thresholds struct {
	RatePerMinute float64
	AnomalyStdDev float64
}

// Anomaly is a failure group whose rate stands out
type Anomaly struct {
	Type        string  `json:"type"`
	Pattern     string  `json:"pattern"`
	Category    string  `json:"category"`
	CurrentRate float64 `json:"current_rate"`
	Threshold   float64 `json:"threshold"`
	Severity    string  `json:"severity"`
	Message     string  `json:"message"`
}

type groupStats struct {
	Stats
	bucket   time.Time
	current  int64
	previous int64
}

// DefaultPatterns classify the reasons the pipeline reports
func DefaultPatterns() []Pattern {
	return []Pattern{
		{
			Name:     "Authentication",
			Pattern:  regexp.MustCompile(`(?i)auth(entication|orization)?\s*(failed|denied)|invalid\s*credentials|unauthorized`),
			Severity: "medium",
			Category: "security",
		},
		{
			Name:     "Resolver",
			Pattern:  regexp.MustCompile(`(?i)resolver\s*(error|failed)|mapping\s*template`),
			Severity: "high",
			Category: "resolver",
		},
		{
			Name:     "DataSource",
			Pattern:  regexp.MustCompile(`(?i)internal\s*error|data\s*source`),
			Severity: "high",
			Category: "datasource",
		},
		{
			Name:     "Timeout",
			Pattern:  regexp.MustCompile(`(?i)timeout|timed?\s*out|deadline\s*exceeded`),
			Severity: "medium",
			Category: "network",
		},
	}
}

// NewDetector creates a detector with the default patterns
func NewDetector() *Detector {
	return &Detector{
		patterns:        DefaultPatterns(),
		stats:           make(map[string]*groupStats),
		anomalyDetector: NewAnomalyDetector(100),
		windowSize:      5 * time.Minute,
		thresholds: Thresholds{
			RatePerMinute: 10.0,
			AnomalyStdDev: 2.0,
		},
		now: time.Now,
	}
}

// Process records a completion if it failed and returns the matched groups
// as category:pattern keys
func (d *Detector) Process(c models.Completion, at time.Time) []string {
	if c.Outcome != models.OutcomeFailed {
		return nil
	}

	var matched []string
	for _, p := range d.patterns {
		if p.Pattern.MatchString(c.Reason) {
			matched = append(matched, d.record(p.Name, p.Category, p.Severity, c, at))
		}
	}
	if len(matched) == 0 {
		matched = append(matched, d.record("Unclassified", "generic", "low", c, at))
	}
	return matched
}

func (d *Detector) record(pattern, category, severity string, c models.Completion, at time.Time) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := fmt.Sprintf("%s:%s", category, pattern)
	s, exists := d.stats[key]
	if !exists {
		s = &groupStats{Stats: Stats{
			Pattern:     pattern,
			Category:    category,
			Severity:    severity,
			FirstSeen:   at,
			DataSources: make(map[models.DataSourceKind]int64),
			Resolvers:   make(map[models.ResolverKind]int64),
			Samples:     make([]Sample, 0, maxSamples),
		}}
		d.stats[key] = s
	}

	s.Count++
	s.LastSeen = at
	s.DataSources[c.DataSource]++
	s.Resolvers[c.Resolver]++

	// Keep the most recent samples
	if len(s.Samples) == maxSamples {
		s.Samples = append(s.Samples[:0], s.Samples[1:]...)
	}
	s.Samples = append(s.Samples, Sample{
		OperationID: c.OperationID,
		Name:        c.Name,
		Kind:        c.Kind,
		Reason:      c.Reason,
		Timestamp:   at,
	})

	bucket := at.Truncate(d.windowSize)
	if !bucket.Equal(s.bucket) {
		s.previous = 0
		if bucket.Sub(s.bucket) == d.windowSize {
			s.previous = s.current
		}
		s.current = 0
		s.bucket = bucket
	}
	s.current++

	if minutes := at.Sub(s.FirstSeen).Minutes(); minutes > 0 {
		s.Rate = float64(s.Count) / minutes
		d.anomalyDetector.AddDataPoint(s.Rate)
	}

	return key
}

// GetStats returns every failure group, most frequent first
func (d *Detector) GetStats() []Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	now := d.now()
	out := make([]Stats, 0, len(d.stats))
	for _, s := range d.stats {
		view := s.Stats
		view.DataSources = copyCounts(s.DataSources)
		view.Resolvers = copyCounts(s.Resolvers)
		view.Samples = append([]Sample(nil), s.Samples...)
		view.Trend = d.trend(s, now)
		out = append(out, view)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category+out[i].Pattern < out[j].Category+out[j].Pattern
	})
	return out
}

// trend compares the failures in the current window with the one before it
func (d *Detector) trend(s *groupStats, now time.Time) string {
	current, previous := s.current, s.previous
	switch gap := now.Truncate(d.windowSize).Sub(s.bucket); {
	case gap == d.windowSize:
		current, previous = 0, current
	case gap > d.windowSize:
		current, previous = 0, 0
	}

	switch {
	case current > previous:
		return TrendIncreasing
	case current < previous:
		return TrendDecreasing
	default:
		return TrendStable
	}
}

// GetAnomalies reports groups above the rate threshold or far from the
// typical rate
func (d *Detector) GetAnomalies() []Anomaly {
	d.mu.RLock()
	defer d.mu.RUnlock()

	anomalies := []Anomaly{}
	keys := make([]string, 0, len(d.stats))
	for key := range d.stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		s := d.stats[key]
		if s.Rate > d.thresholds.RatePerMinute {
			anomalies = append(anomalies, Anomaly{
				Type:        "high_failure_rate",
				Pattern:     key,
				Category:    s.Category,
				CurrentRate: s.Rate,
				Threshold:   d.thresholds.RatePerMinute,
				Severity:    "warning",
				Message:     fmt.Sprintf("Failure rate %.2f/min exceeds threshold %.2f/min", s.Rate, d.thresholds.RatePerMinute),
			})
		}

		if d.anomalyDetector.IsAnomaly(s.Rate, d.thresholds.AnomalyStdDev) {
			deviation, _ := d.anomalyDetector.Deviation(s.Rate)
			mean, stdDev := d.anomalyDetector.Summary()
			anomalies = append(anomalies, Anomaly{
				Type:        "anomaly",
				Pattern:     key,
				Category:    s.Category,
				CurrentRate: s.Rate,
				Threshold:   mean + d.thresholds.AnomalyStdDev*stdDev,
				Severity:    "critical",
				Message:     fmt.Sprintf("Failure rate %.2f/min is anomalous (%.1f std devs from mean)", s.Rate, deviation),
			})
		}
	}

	return anomalies
}

// Prune drops groups not seen within maxAge
func (d *Detector) Prune(maxAge time.Duration) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	removed := 0
	for key, s := range d.stats {
		if now.Sub(s.LastSeen) > maxAge {
			delete(d.stats, key)
			removed++
		}
	}
	return removed
}

// Reset forgets every group
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats = make(map[string]*groupStats)
	d.anomalyDetector.Reset()
}

func copyCounts[K comparable](m map[K]int64) map[K]int64 {
	out := make(map[K]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
