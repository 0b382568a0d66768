package main

import (
	"math"
	"math/rand"
	"testing"

	"github.com/i474232898/route-weather/internal/scoring"
)

func TestGenerateIsDeterministicAndBounded(t *testing.T) {
	xs1, ys1 := generate(200, rand.New(rand.NewSource(42)))
	xs2, ys2 := generate(200, rand.New(rand.NewSource(42)))

	for i := range xs1 {
		if xs1[i] != xs2[i] || ys1[i] != ys2[i] {
			t.Fatalf("sample %d differs between runs with the same seed", i)
		}
		if ys1[i] < 0 || ys1[i] > 100 {
			t.Fatalf("label %v out of range", ys1[i])
		}
		f := xs1[i]
		if f[scoring.DurationRatio] < 1 || f[scoring.DurationRatio] > 2 {
			t.Fatalf("duration ratio %v out of range", f[scoring.DurationRatio])
		}
		if f[scoring.MaxWeatherSeverity] < f[scoring.AvgWeatherSeverity] || f[scoring.MaxWeatherSeverity] > 1 {
			t.Fatalf("max severity %v inconsistent with avg %v", f[scoring.MaxWeatherSeverity], f[scoring.AvgWeatherSeverity])
		}
	}
}

func TestBetaSampleMean(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var sum float64
	const n = 20000
	for i := 0; i < n; i++ {
		v := betaSample(rng, 2, 5)
		if v < 0 || v > 1 {
			t.Fatalf("beta sample %v outside [0,1]", v)
		}
		sum += v
	}
	if mean := sum / n; math.Abs(mean-2.0/7) > 0.01 {
		t.Fatalf("mean = %v, want about %v", mean, 2.0/7)
	}
}

func TestFitRecoversPenalties(t *testing.T) {
	xs, ys := generate(5000, rand.New(rand.NewSource(42)))

	artifact, r2, err := fit(xs, ys)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if r2 < 0.9 {
		t.Fatalf("R^2 = %v, want > 0.9", r2)
	}
	if math.Abs(artifact.Intercept-100) > 2 {
		t.Fatalf("intercept = %v, want about 100", artifact.Intercept)
	}

	m, err := scoring.NewAdditiveModel(artifact)
	if err != nil {
		t.Fatalf("artifact should load: %v", err)
	}
	var fast, slow scoring.FeatureVector
	fast[scoring.DurationRatio] = 1
	slow[scoring.DurationRatio] = 1.5
	if m.Predict(slow) >= m.Predict(fast) {
		t.Fatalf("slower route should score lower")
	}
}

func TestFitNeedsSamples(t *testing.T) {
	if _, _, err := fit(make([]scoring.FeatureVector, 3), make([]float64, 3)); err == nil {
		t.Fatalf("expected error for too few samples")
	}
}
