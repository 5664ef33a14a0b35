package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"credit-scoring-api/internal/model"
	"credit-scoring-api/internal/scoring"
	"credit-scoring-api/pkg/apierror"
)

type fixedScorer struct {
	probability float64
	err         error
	calls       int
}

func (s *fixedScorer) Score(features []float64) (float64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.probability, nil
}

func (s *fixedScorer) Version() string {
	return "credit_scoring_model_v1.0"
}

func (s *fixedScorer) Info() scoring.ModelInfo {
	return scoring.ModelInfo{
		Name:      "fixed",
		Algorithm: "constant",
		Version:   "1.0",
		Features:  []string{"age", "income", "credit_amount", "duration_months"},
		Threshold: 0.5,
	}
}

type fakeDecisionStore struct {
	mu        sync.Mutex
	decisions []model.Decision
	nextID    int64
	insertErr error
}

func (s *fakeDecisionStore) Insert(_ context.Context, d model.Decision) (model.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insertErr != nil {
		return model.Decision{}, s.insertErr
	}

	s.nextID++
	d.ID = s.nextID
	d.CreatedAt = time.Now().UTC()
	s.decisions = append(s.decisions, d)
	return d, nil
}

func (s *fakeDecisionStore) ListByUser(_ context.Context, userID int64, offset int, limit int) ([]model.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]model.Decision, 0)
	for i := len(s.decisions) - 1; i >= 0; i-- {
		if s.decisions[i].UserID == userID {
			matched = append(matched, s.decisions[i])
		}
	}

	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *fakeDecisionStore) StatsByUser(_ context.Context, userID int64) (model.DecisionStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats model.DecisionStats
	for _, d := range s.decisions {
		if d.UserID != userID {
			continue
		}
		stats.Total++
		if d.Outcome == model.OutcomeApproved {
			stats.Approved++
		} else {
			stats.Rejected++
		}
	}
	return stats, nil
}

func (s *fakeDecisionStore) CountAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.decisions)), nil
}

type fixedUserCount int64

func (c fixedUserCount) Count(context.Context) (int64, error) {
	return int64(c), nil
}

func validApplication() model.Application {
	return model.Application{Age: 45, Income: 5000, CreditAmount: 10000, DurationMonths: 24}
}

func alicePrincipal() model.Principal {
	return model.Principal{User: model.User{ID: 7, Username: "alice123", IsActive: true}}
}

func TestDecide(t *testing.T) {
	t.Parallel()

	t.Run("approves and persists above the threshold", func(t *testing.T) {
		store := &fakeDecisionStore{}
		scorer := &fixedScorer{probability: 0.82}
		svc := NewDecisionService(scorer, 0.5, store, fixedUserCount(1))

		decision, err := svc.Decide(context.Background(), validApplication(), alicePrincipal(), "10.0.0.9")
		require.NoError(t, err)

		require.Equal(t, model.OutcomeApproved, decision.Outcome)
		require.Equal(t, 0.82, decision.Probability)
		require.Equal(t, "credit_scoring_model_v1.0", decision.ModelVersion)
		require.Equal(t, int64(1), decision.ID)
		require.Equal(t, int64(7), decision.UserID)
		require.NotNil(t, decision.ClientIP)
		require.Equal(t, "10.0.0.9", *decision.ClientIP)

		require.Len(t, store.decisions, 1)
		stored := store.decisions[0]
		require.Equal(t, 45, stored.Age)
		require.Equal(t, 5000.0, stored.Income)
		require.Equal(t, 10000.0, stored.CreditAmount)
		require.Equal(t, 24, stored.DurationMonths)
	})

	t.Run("a probability equal to the threshold approves", func(t *testing.T) {
		store := &fakeDecisionStore{}
		svc := NewDecisionService(&fixedScorer{probability: 0.5}, 0.5, store, fixedUserCount(1))

		decision, err := svc.Decide(context.Background(), validApplication(), alicePrincipal(), "")
		require.NoError(t, err)
		require.Equal(t, model.OutcomeApproved, decision.Outcome)
		require.Nil(t, decision.ClientIP)
	})

	t.Run("rejects below the threshold", func(t *testing.T) {
		store := &fakeDecisionStore{}
		svc := NewDecisionService(&fixedScorer{probability: 0.49}, 0.5, store, fixedUserCount(1))

		decision, err := svc.Decide(context.Background(), validApplication(), alicePrincipal(), "")
		require.NoError(t, err)
		require.Equal(t, model.OutcomeRejected, decision.Outcome)
	})

	t.Run("is deterministic for a fixed model and input", func(t *testing.T) {
		store := &fakeDecisionStore{}
		svc := NewDecisionService(&fixedScorer{probability: 0.61}, 0.5, store, fixedUserCount(1))

		first, err := svc.Decide(context.Background(), validApplication(), alicePrincipal(), "")
		require.NoError(t, err)

		second, err := svc.Decide(context.Background(), validApplication(), alicePrincipal(), "")
		require.NoError(t, err)

		require.Equal(t, first.Probability, second.Probability)
		require.Equal(t, first.Outcome, second.Outcome)
	})

	t.Run("validation failures happen before any model call", func(t *testing.T) {
		store := &fakeDecisionStore{}
		scorer := &fixedScorer{probability: 0.82}
		svc := NewDecisionService(scorer, 0.5, store, fixedUserCount(1))

		app := validApplication()
		app.Age = 15
		_, err := svc.Decide(context.Background(), app, alicePrincipal(), "")

		var apiErr *apierror.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, "BAD_REQUEST", apiErr.Code)
		require.Equal(t, "age", apiErr.Details)
		require.Zero(t, scorer.calls)
		require.Empty(t, store.decisions, "ledger must stay unchanged")
	})

	t.Run("fails fast when the model is not loaded", func(t *testing.T) {
		store := &fakeDecisionStore{}
		svc := NewDecisionService(nil, 0.5, store, fixedUserCount(1))

		_, err := svc.Decide(context.Background(), validApplication(), alicePrincipal(), "")

		var apiErr *apierror.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, "MODEL_UNAVAILABLE", apiErr.Code)
		require.Empty(t, store.decisions)
	})

	t.Run("a failed insert reports the decision as not recorded", func(t *testing.T) {
		store := &fakeDecisionStore{insertErr: errors.New("connection reset")}
		svc := NewDecisionService(&fixedScorer{probability: 0.82}, 0.5, store, fixedUserCount(1))

		_, err := svc.Decide(context.Background(), validApplication(), alicePrincipal(), "")
		require.Error(t, err)
		require.Empty(t, store.decisions)
	})
}

func TestValidateApplication(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*model.Application)
		field   string
		wantErr bool
	}{
		{"valid", func(*model.Application) {}, "", false},
		{"age at lower bound", func(a *model.Application) { a.Age = 18 }, "", false},
		{"age at upper bound", func(a *model.Application) { a.Age = 100 }, "", false},
		{"age too low", func(a *model.Application) { a.Age = 17 }, "age", true},
		{"age too high", func(a *model.Application) { a.Age = 101 }, "age", true},
		{"zero income", func(a *model.Application) { a.Income = 0 }, "income", true},
		{"negative credit amount", func(a *model.Application) { a.CreditAmount = -1 }, "credit_amount", true},
		{"duration too short", func(a *model.Application) { a.DurationMonths = 5 }, "duration_months", true},
		{"duration too long", func(a *model.Application) { a.DurationMonths = 121 }, "duration_months", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := validApplication()
			tc.mutate(&app)

			err := ValidateApplication(app)
			if !tc.wantErr {
				require.NoError(t, err)
				return
			}

			var apiErr *apierror.APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tc.field, apiErr.Details)
		})
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	t.Run("mixed outcomes", func(t *testing.T) {
		store := &fakeDecisionStore{}
		svc := NewDecisionService(&fixedScorer{probability: 0.5}, 0.5, store, fixedUserCount(1))

		_, err := store.Insert(context.Background(), model.Decision{UserID: 7, Outcome: model.OutcomeApproved})
		require.NoError(t, err)
		_, err = store.Insert(context.Background(), model.Decision{UserID: 7, Outcome: model.OutcomeRejected})
		require.NoError(t, err)

		stats, err := svc.Stats(context.Background(), 7)
		require.NoError(t, err)
		require.Equal(t, model.DecisionStats{Total: 2, Approved: 1, Rejected: 1, ApprovalRate: 0.5}, stats)
	})

	t.Run("rate rounds to 3 decimals", func(t *testing.T) {
		store := &fakeDecisionStore{}
		svc := NewDecisionService(&fixedScorer{probability: 0.5}, 0.5, store, fixedUserCount(1))

		for _, outcome := range []string{model.OutcomeApproved, model.OutcomeApproved, model.OutcomeRejected} {
			_, err := store.Insert(context.Background(), model.Decision{UserID: 7, Outcome: outcome})
			require.NoError(t, err)
		}

		stats, err := svc.Stats(context.Background(), 7)
		require.NoError(t, err)
		require.Equal(t, 0.667, stats.ApprovalRate)
	})

	t.Run("empty ledger yields a zero rate", func(t *testing.T) {
		store := &fakeDecisionStore{}
		svc := NewDecisionService(&fixedScorer{probability: 0.5}, 0.5, store, fixedUserCount(1))

		stats, err := svc.Stats(context.Background(), 7)
		require.NoError(t, err)
		require.Equal(t, model.DecisionStats{}, stats)
	})
}

func TestHistory(t *testing.T) {
	t.Parallel()

	store := &fakeDecisionStore{}
	svc := NewDecisionService(&fixedScorer{probability: 0.9}, 0.5, store, fixedUserCount(1))

	for i := 0; i < 3; i++ {
		_, err := svc.Decide(context.Background(), validApplication(), alicePrincipal(), "")
		require.NoError(t, err)
	}

	t.Run("newest first with stateless paging", func(t *testing.T) {
		page, offset, limit, err := svc.History(context.Background(), 7, 1, 2)
		require.NoError(t, err)
		require.Equal(t, 1, offset)
		require.Equal(t, 2, limit)
		require.Len(t, page, 2)
		require.Greater(t, page[0].ID, page[1].ID)
	})

	t.Run("clamps offset and limit", func(t *testing.T) {
		_, offset, limit, err := svc.History(context.Background(), 7, -5, 0)
		require.NoError(t, err)
		require.Equal(t, 0, offset)
		require.Equal(t, 100, limit)

		_, _, limit, err = svc.History(context.Background(), 7, 0, 500)
		require.NoError(t, err)
		require.Equal(t, 100, limit)
	})

	t.Run("other users see nothing", func(t *testing.T) {
		page, _, _, err := svc.History(context.Background(), 42, 0, 10)
		require.NoError(t, err)
		require.Empty(t, page)
	})
}

func TestGlobalStats(t *testing.T) {
	t.Parallel()

	store := &fakeDecisionStore{}
	svc := NewDecisionService(&fixedScorer{probability: 0.9}, 0.5, store, fixedUserCount(4))

	_, err := svc.Decide(context.Background(), validApplication(), alicePrincipal(), "")
	require.NoError(t, err)

	stats, err := svc.GlobalStats(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.GlobalStats{TotalUsers: 4, TotalPredictions: 1}, stats)
}

func TestRoundProbability(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.8235, RoundProbability(0.82345001))
	require.Equal(t, 0.82, RoundProbability(0.82))
}
