package scoring

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// ErrInvalidModel is returned when a model artifact cannot be used.
var ErrInvalidModel = errors.New("invalid scoring model")

// Model maps a feature vector to a desirability score. Implementations must
// be deterministic and safe for concurrent use.
type Model interface {
	Predict(f FeatureVector) float64
}

//go:embed route_model.json
var defaultArtifact []byte

// HingeTerm contributes Coef * max(0, x - Knot) for one feature.
type HingeTerm struct {
	Feature string  `json:"feature"`
	Knot    float64 `json:"knot"`
	Coef    float64 `json:"coef"`
}

// Artifact is the serialized form of an AdditiveModel.
type Artifact struct {
	Name      string      `json:"name"`
	Version   int         `json:"version"`
	Intercept float64     `json:"intercept"`
	Terms     []HingeTerm `json:"terms"`
}

type term struct {
	index int
	knot  float64
	coef  float64
}

// AdditiveModel is a piecewise-linear additive regression over the feature
// vector. It is immutable after construction.
type AdditiveModel struct {
	name      string
	intercept float64
	terms     []term
}

// NewAdditiveModel validates an artifact and builds the model.
func NewAdditiveModel(a Artifact) (*AdditiveModel, error) {
	if !finite(a.Intercept) {
		return nil, fmt.Errorf("%w: intercept is not finite", ErrInvalidModel)
	}
	if len(a.Terms) == 0 {
		return nil, fmt.Errorf("%w: no terms", ErrInvalidModel)
	}

	m := &AdditiveModel{name: a.Name, intercept: a.Intercept}
	for i, t := range a.Terms {
		idx := featureIndex(t.Feature)
		if idx < 0 {
			return nil, fmt.Errorf("%w: term %d has unknown feature %q", ErrInvalidModel, i, t.Feature)
		}
		if !finite(t.Knot) || !finite(t.Coef) {
			return nil, fmt.Errorf("%w: term %d is not finite", ErrInvalidModel, i)
		}
		m.terms = append(m.terms, term{index: idx, knot: t.Knot, coef: t.Coef})
	}
	return m, nil
}

// ParseModel decodes a JSON artifact.
func ParseModel(data []byte) (*AdditiveModel, error) {
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	return NewAdditiveModel(a)
}

// LoadModel reads an artifact from path, or the embedded default when path
// is empty.
func LoadModel(path string) (*AdditiveModel, error) {
	if path == "" {
		return ParseModel(defaultArtifact)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	return ParseModel(data)
}

// Name identifies the artifact.
func (m *AdditiveModel) Name() string { return m.name }

// Predict implements Model.
func (m *AdditiveModel) Predict(f FeatureVector) float64 {
	y := m.intercept
	for _, t := range m.terms {
		y += t.coef * math.Max(0, f[t.index]-t.knot)
	}
	return y
}

func featureIndex(name string) int {
	for i, n := range FeatureNames {
		if n == name {
			return i
		}
	}
	return -1
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
