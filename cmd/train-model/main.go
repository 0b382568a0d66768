// Command train-model fits the route desirability model on synthetic data and
// writes it as a JSON artifact loadable by the scoring package.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/i474232898/route-weather/internal/scoring"
)

// basis lists the hinge terms the model is fitted on.
var basis = []scoring.HingeTerm{
	{Feature: "duration_ratio", Knot: 1},
	{Feature: "avg_weather_severity"},
	{Feature: "max_weather_severity"},
	{Feature: "max_weather_severity", Knot: 0.7},
	{Feature: "avg_wind_speed"},
	{Feature: "avg_wind_speed", Knot: 50},
	{Feature: "max_wind_speed"},
	{Feature: "avg_precipitation"},
	{Feature: "max_precipitation"},
	{Feature: "pct_adverse_waypoints"},
	{Feature: "avg_precip_probability"},
}

func main() {
	out := flag.String("out", "internal/scoring/route_model.json", "artifact output path")
	samples := flag.Int("samples", 5000, "number of synthetic samples")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	xs, ys := generate(*samples, rng)

	artifact, r2, err := fit(xs, ys)
	if err != nil {
		log.Fatalf("train-model: fit failed: %v", err)
	}
	log.Printf("train-model: fitted %d terms on %d samples, R^2 = %.4f", len(artifact.Terms), *samples, r2)

	data, err := json.MarshalIndent(artifact, "", "  ")
	if err != nil {
		log.Fatalf("train-model: encode: %v", err)
	}
	if _, err := scoring.ParseModel(data); err != nil {
		log.Fatalf("train-model: artifact does not load: %v", err)
	}
	if err := os.WriteFile(*out, append(data, '\n'), 0o644); err != nil {
		log.Fatalf("train-model: write %s: %v", *out, err)
	}
	log.Printf("train-model: wrote %s", *out)
}

// generate draws synthetic feature vectors and desirability labels in [0, 100].
func generate(n int, rng *rand.Rand) ([]scoring.FeatureVector, []float64) {
	xs := make([]scoring.FeatureVector, n)
	ys := make([]float64, n)

	exp := func(scale, max float64) float64 { return math.Min(rng.ExpFloat64()*scale, max) }

	for i := range xs {
		var f scoring.FeatureVector
		f[scoring.DurationRatio] = 1 + exp(0.15, 1)
		f[scoring.AvgWeatherSeverity] = betaSample(rng, 2, 5)
		f[scoring.MaxWeatherSeverity] = math.Min(1, f[scoring.AvgWeatherSeverity]+rng.ExpFloat64()*0.15)
		f[scoring.AvgWindSpeed] = exp(12, 80)
		f[scoring.MaxWindSpeed] = f[scoring.AvgWindSpeed] + exp(10, 60)
		f[scoring.AvgPrecipitation] = exp(0.8, 12)
		f[scoring.MaxPrecipitation] = f[scoring.AvgPrecipitation] + exp(1, 15)
		f[scoring.PctAdverseWaypoints] = betaSample(rng, 1.5, 6)
		f[scoring.AvgPrecipProbability] = betaSample(rng, 2, 5) * 100

		xs[i] = f
		ys[i] = math.Max(0, math.Min(100, label(f)+rng.NormFloat64()*1.5))
	}
	return xs, ys
}

// label is 100 minus penalties for slower routes and worse weather.
func label(f scoring.FeatureVector) float64 {
	score := 100.0
	score -= (f[scoring.DurationRatio] - 1) * 60
	score -= f[scoring.AvgWeatherSeverity] * 25
	if f[scoring.MaxWeatherSeverity] > 0.7 {
		score -= (f[scoring.MaxWeatherSeverity] - 0.7) * 30
	}
	if f[scoring.AvgWindSpeed] > 50 {
		score -= (f[scoring.AvgWindSpeed] - 50) / 50 * 10
	}
	score -= f[scoring.AvgPrecipitation]
	score -= f[scoring.PctAdverseWaypoints] * 15
	return score
}

// fit solves the least-squares problem over the hinge basis and returns the
// artifact together with its training R^2.
func fit(xs []scoring.FeatureVector, ys []float64) (scoring.Artifact, float64, error) {
	n, k := len(xs), len(basis)+1
	if n <= k {
		return scoring.Artifact{}, 0, fmt.Errorf("need more than %d samples, have %d", k, n)
	}

	index := make([]int, len(basis))
	for j, b := range basis {
		index[j] = -1
		for i, name := range scoring.FeatureNames {
			if name == b.Feature {
				index[j] = i
			}
		}
		if index[j] < 0 {
			return scoring.Artifact{}, 0, fmt.Errorf("unknown feature %q", b.Feature)
		}
	}

	design := mat.NewDense(n, k, nil)
	for i, f := range xs {
		design.Set(i, 0, 1)
		for j, b := range basis {
			design.Set(i, j+1, math.Max(0, f[index[j]]-b.Knot))
		}
	}
	target := mat.NewVecDense(n, ys)

	var w mat.VecDense
	if err := w.SolveVec(design, target); err != nil {
		return scoring.Artifact{}, 0, err
	}

	var pred mat.VecDense
	pred.MulVec(design, &w)
	r2 := rSquared(ys, pred.RawVector().Data)

	artifact := scoring.Artifact{
		Name:      "route-desirability-hinge",
		Version:   1,
		Intercept: round(w.AtVec(0), 2),
	}
	for j, b := range basis {
		b.Coef = round(w.AtVec(j+1), 3)
		artifact.Terms = append(artifact.Terms, b)
	}
	return artifact, r2, nil
}

func rSquared(ys, pred []float64) float64 {
	var mean float64
	for _, y := range ys {
		mean += y
	}
	mean /= float64(len(ys))

	var ssRes, ssTot float64
	for i, y := range ys {
		ssRes += (y - pred[i]) * (y - pred[i])
		ssTot += (y - mean) * (y - mean)
	}
	if ssTot == 0 {
		return 1
	}
	return 1 - ssRes/ssTot
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// betaSample draws from Beta(a, b) as X/(X+Y) with X ~ Gamma(a), Y ~ Gamma(b).
func betaSample(rng *rand.Rand, a, b float64) float64 {
	x := gammaSample(rng, a)
	y := gammaSample(rng, b)
	return x / (x + y)
}

// gammaSample draws from Gamma(shape, 1) using Marsaglia and Tsang's method.
func gammaSample(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		return gammaSample(rng, shape+1) * math.Pow(rng.Float64(), 1/shape)
	}
	d := shape - 1.0/3
	c := 1 / math.Sqrt(9*d)
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if math.Log(u) < 0.5*x*x+d-d*v+d*math.Log(v) {
			return d * v
		}
	}
}
