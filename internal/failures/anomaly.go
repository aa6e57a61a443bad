package failures

import (
	"math"
	"sync"
)

// AnomalyDetector tracks the mean and standard deviation of a sliding window
// of observations
type AnomalyDetector struct {
	mu         sync.RWMutex
	history    []float64
	mean       float64
	stdDev     float64
	windowSize int
}

// NewAnomalyDetector creates a new anomaly detector
func NewAnomalyDetector(windowSize int) *AnomalyDetector {
	return &AnomalyDetector{
		history:    make([]float64, 0, windowSize),
		windowSize: windowSize,
	}
}

// AddDataPoint adds a new data point and updates statistics
func (ad *AnomalyDetector) AddDataPoint(value float64) {
	ad.mu.Lock()
	defer ad.mu.Unlock()

	ad.history = append(ad.history, value)
	if len(ad.history) > ad.windowSize {
		ad.history = ad.history[1:]
	}

	ad.updateStats()
}

// updateStats recalculates mean and sample standard deviation
func (ad *AnomalyDetector) updateStats() {
	if len(ad.history) == 0 {
		ad.mean, ad.stdDev = 0, 0
		return
	}

	sum := 0.0
	for _, v := range ad.history {
		sum += v
	}
	ad.mean = sum / float64(len(ad.history))

	ad.stdDev = 0
	if len(ad.history) > 1 {
		variance := 0.0
		for _, v := range ad.history {
			variance += (v - ad.mean) * (v - ad.mean)
		}
		ad.stdDev = math.Sqrt(variance / float64(len(ad.history)-1))
	}
}

// Deviation returns how many standard deviations value is from the mean. It
// reports false until the window holds enough varied data.
func (ad *AnomalyDetector) Deviation(value float64) (float64, bool) {
	ad.mu.RLock()
	defer ad.mu.RUnlock()

	if len(ad.history) < 10 || ad.stdDev == 0 {
		return 0, false
	}
	return (value - ad.mean) / ad.stdDev, true
}

// IsAnomaly checks if a value is anomalous
func (ad *AnomalyDetector) IsAnomaly(value float64, stdDevThreshold float64) bool {
	deviation, ok := ad.Deviation(value)
	return ok && math.Abs(deviation) > stdDevThreshold
}

// Summary returns the current mean and standard deviation
func (ad *AnomalyDetector) Summary() (mean, stdDev float64) {
	ad.mu.RLock()
	defer ad.mu.RUnlock()
	return ad.mean, ad.stdDev
}

// Reset clears the window
func (ad *AnomalyDetector) Reset() {
	ad.mu.Lock()
	defer ad.mu.Unlock()
	ad.history = ad.history[:0]
	ad.updateStats()
}
