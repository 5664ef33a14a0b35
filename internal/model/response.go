package model

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type Meta struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// DecisionResponse is the wire shape of one scoring result. Probability is
// rounded to 4 decimals; the full precision value stays in the ledger.
type DecisionResponse struct {
	Decision     string  `json:"decision"`
	Probability  float64 `json:"probability"`
	ModelVersion string  `json:"model_version"`
	PredictionID int64   `json:"prediction_id"`
}
