package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// artifact is the on-disk shape of an exported model. Coefficients, means
// and scales are aligned with the features slice; the exporter writes them
// in the training order [age, income, credit_amount, duration_months].
type artifact struct {
	Name         string    `json:"name"`
	Algorithm    string    `json:"algorithm"`
	Version      string    `json:"version"`
	Features     []string  `json:"features"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	Means        []float64 `json:"means"`
	Scales       []float64 `json:"scales"`
}

// LogisticModel is a frozen logistic-regression scorer. All fields are set
// at load time and never mutated, so concurrent Score calls need no locking.
type LogisticModel struct {
	meta         ModelInfo
	intercept    float64
	coefficients []float64
	means        []float64
	scales       []float64
}

// Load reads a model artifact from disk. The returned model is immutable.
func Load(path string, threshold float64) (*LogisticModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}

	return fromArtifact(a, threshold)
}

func fromArtifact(a artifact, threshold float64) (*LogisticModel, error) {
	if len(a.Features) == 0 {
		return nil, fmt.Errorf("model artifact declares no features")
	}
	if len(a.Coefficients) != len(a.Features) {
		return nil, fmt.Errorf("model artifact has %d coefficients for %d features", len(a.Coefficients), len(a.Features))
	}
	if len(a.Means) != 0 && len(a.Means) != len(a.Features) {
		return nil, fmt.Errorf("model artifact has %d means for %d features", len(a.Means), len(a.Features))
	}
	if len(a.Scales) != len(a.Means) {
		return nil, fmt.Errorf("model artifact means and scales are misaligned")
	}
	for i, s := range a.Scales {
		if s == 0 {
			return nil, fmt.Errorf("model artifact has zero scale for feature %q", a.Features[i])
		}
	}

	return &LogisticModel{
		meta: ModelInfo{
			Name:      a.Name,
			Algorithm: a.Algorithm,
			Version:   a.Version,
			Features:  a.Features,
			Threshold: threshold,
		},
		intercept:    a.Intercept,
		coefficients: a.Coefficients,
		means:        a.Means,
		scales:       a.Scales,
	}, nil
}

// Score returns the approval probability for one feature vector. The vector
// must match the model's feature order and length.
func (m *LogisticModel) Score(features []float64) (float64, error) {
	if len(features) != len(m.coefficients) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.coefficients), len(features))
	}

	z := m.intercept
	for i, x := range features {
		if len(m.means) > 0 {
			x = (x - m.means[i]) / m.scales[i]
		}
		z += m.coefficients[i] * x
	}

	return 1.0 / (1.0 + math.Exp(-z)), nil
}

func (m *LogisticModel) Version() string {
	return "credit_scoring_model_v" + m.meta.Version
}

func (m *LogisticModel) Info() ModelInfo {
	return m.meta
}
