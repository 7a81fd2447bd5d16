package latency

import "testing"

func TestSmooth(t *testing.T) {
	cases := []struct {
		name    string
		prev    int
		hasPrev bool
		sample  int
		alpha   float64
		want    int
	}{
		{name: "first sample adopted", prev: 0, hasPrev: false, sample: 120, alpha: 0.25, want: 120},
		{name: "quarter step towards sample", prev: 100, hasPrev: true, sample: 300, alpha: 0.25, want: 150},
		{name: "half step downwards", prev: 150, hasPrev: true, sample: 50, alpha: 0.5, want: 100},
		{name: "negative sample clamps to zero", prev: 0, hasPrev: false, sample: -30, alpha: 0.25, want: 0},
		{name: "huge sample clamps to ceiling", prev: 0, hasPrev: false, sample: 99999, alpha: 0.25, want: 5000},
		{name: "clamped sample still smoothed", prev: 100, hasPrev: true, sample: 99999, alpha: 0.25, want: 1325},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Smooth(tc.prev, tc.hasPrev, tc.sample, tc.alpha); got != tc.want {
				t.Fatalf("got %d, want %d", got, tc.want)
			}
		})
	}
}

func TestEstimatorObserve(t *testing.T) {
	e := NewEstimator(0.25)
	if _, ok := e.EstimateMs(); ok {
		t.Fatalf("fresh estimator claims to have an estimate")
	}
	if got := e.Observe(120); got != 120 {
		t.Fatalf("first observation = %d, want 120", got)
	}
	if got := e.Observe(200); got != 140 {
		t.Fatalf("second observation = %d, want 140", got)
	}
	ms, ok := e.EstimateMs()
	if !ok || ms != 140 {
		t.Fatalf("estimate = %d/%v, want 140/true", ms, ok)
	}
}

func TestNewEstimatorDefaultsAlpha(t *testing.T) {
	e := NewEstimator(0)
	e.Observe(100)
	if got := e.Observe(300); got != 150 {
		t.Fatalf("default alpha observation = %d, want 150", got)
	}
}
