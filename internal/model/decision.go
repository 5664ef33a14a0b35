package model

import "time"

const (
	OutcomeApproved = "APPROVED"
	OutcomeRejected = "REJECTED"
)

// Application is the ephemeral input to one scoring request.
// It is never persisted on its own.
type Application struct {
	Age            int     `json:"age"`
	Income         float64 `json:"income"`
	CreditAmount   float64 `json:"credit_amount"`
	DurationMonths int     `json:"duration_months"`
}

// FeatureVector encodes the application in the order the model was trained
// with: [age, income, credit_amount, duration_months]. The order is a hard
// contract with the scorer.
func (a Application) FeatureVector() []float64 {
	return []float64{float64(a.Age), a.Income, a.CreditAmount, float64(a.DurationMonths)}
}

// Decision is the persisted record of one scoring outcome.
// Immutable once written.
type Decision struct {
	ID             int64     `json:"id"`
	UserID         int64     `json:"user_id"`
	Age            int       `json:"age"`
	Income         float64   `json:"income"`
	CreditAmount   float64   `json:"credit_amount"`
	DurationMonths int       `json:"duration_months"`
	Outcome        string    `json:"decision"`
	Probability    float64   `json:"probability"`
	ModelVersion   string    `json:"model_version"`
	ClientIP       *string   `json:"client_ip,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// DecisionStats are per-user aggregates computed on demand from the ledger.
type DecisionStats struct {
	Total        int64   `json:"total_predictions"`
	Approved     int64   `json:"approved"`
	Rejected     int64   `json:"rejected"`
	ApprovalRate float64 `json:"approval_rate"`
}

// GlobalStats are admin-facing counts over all users.
type GlobalStats struct {
	TotalUsers       int64 `json:"total_users"`
	TotalPredictions int64 `json:"total_predictions"`
}
