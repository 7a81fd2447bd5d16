// Package latency tracks a smoothed round-trip-time estimate from the
// periodic ping/pong exchange on the match channel. The estimate only feeds
// the connection-quality display; nothing in the protocol depends on it.
package latency

import "math"

// DefaultAlpha is the smoothing factor applied to each new sample.
const DefaultAlpha = 0.25

// Raw samples outside [0, maxSampleMs] are clamped before smoothing so a
// suspended tab waking up does not poison the estimate.
const maxSampleMs = 5000

// Smooth folds sampleMs into the previous estimate. With hasPrev false the
// clamped sample is adopted directly. Results are rounded to whole
// milliseconds.
func Smooth(prevMs int, hasPrev bool, sampleMs int, alpha float64) int {
	if sampleMs < 0 {
		sampleMs = 0
	}
	if sampleMs > maxSampleMs {
		sampleMs = maxSampleMs
	}
	if !hasPrev {
		return sampleMs
	}
	return int(math.Round(float64(prevMs) + alpha*float64(sampleMs-prevMs)))
}

// Estimator carries the running estimate for one match session.
type Estimator struct {
	alpha float64
	ms    int
	set   bool
}

// NewEstimator returns an estimator with the given smoothing factor; pass 0
// to use DefaultAlpha.
func NewEstimator(alpha float64) *Estimator {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	return &Estimator{alpha: alpha}
}

// Observe folds one raw sample in and returns the updated estimate.
func (e *Estimator) Observe(sampleMs int) int {
	e.ms = Smooth(e.ms, e.set, sampleMs, e.alpha)
	e.set = true
	return e.ms
}

// EstimateMs returns the current estimate and whether any sample has been
// observed yet.
func (e *Estimator) EstimateMs() (int, bool) {
	return e.ms, e.set
}
