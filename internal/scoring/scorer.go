// Package scoring loads the frozen credit-scoring model and exposes it
// behind a narrow capability interface so the decision pipeline never
// depends on the artifact format.
package scoring

// Scorer maps a feature vector to the probability of the positive
// ("approve") class. Implementations must be safe for concurrent use.
type Scorer interface {
	Score(features []float64) (float64, error)
	Version() string
	Info() ModelInfo
}

// ModelInfo is the fixed, typed metadata of the loaded model.
type ModelInfo struct {
	Name      string   `json:"name"`
	Algorithm string   `json:"algorithm"`
	Version   string   `json:"version"`
	Features  []string `json:"features"`
	Threshold float64  `json:"threshold"`
}
