package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"credit-scoring-api/internal/metrics"
	"credit-scoring-api/internal/model"
	"credit-scoring-api/internal/scoring"
	"credit-scoring-api/pkg/apierror"
)

const (
	maxHistoryLimit     = 100
	defaultHistoryLimit = 100
)

// DecisionStore is the ledger surface the pipeline needs.
// *repository.PredictionRepository satisfies it; tests use an in-memory fake.
type DecisionStore interface {
	Insert(ctx context.Context, d model.Decision) (model.Decision, error)
	ListByUser(ctx context.Context, userID int64, offset int, limit int) ([]model.Decision, error)
	StatsByUser(ctx context.Context, userID int64) (model.DecisionStats, error)
	CountAll(ctx context.Context) (int64, error)
}

// UserCounter supplies the user count for global stats.
type UserCounter interface {
	Count(ctx context.Context) (int64, error)
}

type DecisionService struct {
	scorer    scoring.Scorer
	threshold float64
	store     DecisionStore
	users     UserCounter
}

// NewDecisionService wires the frozen scorer into the pipeline. scorer may
// be nil when the model artifact failed to load; every Decide call then
// fails fast with a model-unavailable error.
func NewDecisionService(scorer scoring.Scorer, threshold float64, store DecisionStore, users UserCounter) *DecisionService {
	return &DecisionService{
		scorer:    scorer,
		threshold: threshold,
		store:     store,
		users:     users,
	}
}

func (s *DecisionService) ModelLoaded() bool {
	return s.scorer != nil
}

func (s *DecisionService) Threshold() float64 {
	return s.threshold
}

// ModelInfo returns the typed metadata of the loaded model.
func (s *DecisionService) ModelInfo() (scoring.ModelInfo, error) {
	if s.scorer == nil {
		return scoring.ModelInfo{}, apierror.New("MODEL_UNAVAILABLE", "scoring model is not loaded", "", http.StatusServiceUnavailable)
	}
	return s.scorer.Info(), nil
}

// Decide runs one application through the pipeline: validate, score, apply
// the threshold, persist. The insert is the only state mutation; a returned
// decision always refers to a durably stored row.
func (s *DecisionService) Decide(ctx context.Context, app model.Application, principal model.Principal, clientIP string) (model.Decision, error) {
	if err := ValidateApplication(app); err != nil {
		return model.Decision{}, err
	}

	if s.scorer == nil {
		return model.Decision{}, apierror.New("MODEL_UNAVAILABLE", "scoring model is not loaded", "", http.StatusServiceUnavailable)
	}

	probability, err := s.scorer.Score(app.FeatureVector())
	if err != nil {
		slog.Error("model scoring failed", "error", err, "user_id", principal.User.ID)
		return model.Decision{}, fmt.Errorf("score application: %w", err)
	}

	// Ties go to approval.
	outcome := model.OutcomeRejected
	if probability >= s.threshold {
		outcome = model.OutcomeApproved
	}

	draft := model.Decision{
		UserID:         principal.User.ID,
		Age:            app.Age,
		Income:         app.Income,
		CreditAmount:   app.CreditAmount,
		DurationMonths: app.DurationMonths,
		Outcome:        outcome,
		Probability:    probability,
		ModelVersion:   s.scorer.Version(),
	}
	if clientIP != "" {
		draft.ClientIP = &clientIP
	}

	decision, err := s.store.Insert(ctx, draft)
	if err != nil {
		slog.Error("decision not recorded", "error", err, "user_id", principal.User.ID, "outcome", outcome)
		return model.Decision{}, fmt.Errorf("record decision: %w", err)
	}

	metrics.DecisionsTotal.WithLabelValues(outcome).Inc()
	slog.Info("decision recorded",
		"prediction_id", decision.ID,
		"user_id", decision.UserID,
		"outcome", decision.Outcome,
		"probability", decision.Probability,
	)
	return decision, nil
}

// History returns the principal's decisions, newest first. Offset and limit
// are stateless, so callers can page across requests.
func (s *DecisionService) History(ctx context.Context, userID int64, offset int, limit int) ([]model.Decision, int, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	decisions, err := s.store.ListByUser(ctx, userID, offset, limit)
	if err != nil {
		return nil, 0, 0, err
	}
	return decisions, offset, limit, nil
}

// Stats aggregates the user's ledger. The approval rate is approved/total
// rounded to 3 decimals, 0.0 when the ledger is empty.
func (s *DecisionService) Stats(ctx context.Context, userID int64) (model.DecisionStats, error) {
	stats, err := s.store.StatsByUser(ctx, userID)
	if err != nil {
		return model.DecisionStats{}, err
	}

	if stats.Total > 0 {
		stats.ApprovalRate = roundTo(float64(stats.Approved)/float64(stats.Total), 3)
	}
	return stats, nil
}

func (s *DecisionService) GlobalStats(ctx context.Context) (model.GlobalStats, error) {
	totalUsers, err := s.users.Count(ctx)
	if err != nil {
		return model.GlobalStats{}, err
	}

	totalPredictions, err := s.store.CountAll(ctx)
	if err != nil {
		return model.GlobalStats{}, err
	}

	return model.GlobalStats{TotalUsers: totalUsers, TotalPredictions: totalPredictions}, nil
}

// ValidateApplication checks the field ranges before any model invocation.
// The error names the offending field.
func ValidateApplication(app model.Application) error {
	switch {
	case app.Age < 18 || app.Age > 100:
		return apierror.New("BAD_REQUEST", "age must be between 18 and 100", "age", http.StatusBadRequest)
	case app.Income <= 0:
		return apierror.New("BAD_REQUEST", "income must be positive", "income", http.StatusBadRequest)
	case app.CreditAmount <= 0:
		return apierror.New("BAD_REQUEST", "credit_amount must be positive", "credit_amount", http.StatusBadRequest)
	case app.DurationMonths < 6 || app.DurationMonths > 120:
		return apierror.New("BAD_REQUEST", "duration_months must be between 6 and 120", "duration_months", http.StatusBadRequest)
	}
	return nil
}

func roundTo(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

// RoundProbability trims a probability to the 4 decimals exposed on the
// wire. The ledger keeps full precision.
func RoundProbability(p float64) float64 {
	return roundTo(p, 4)
}
