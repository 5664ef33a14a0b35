package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"credit-scoring-api/internal/config"
	"credit-scoring-api/internal/handler"
	"credit-scoring-api/internal/middleware"
	"credit-scoring-api/internal/model"
	"credit-scoring-api/internal/router"
	"credit-scoring-api/internal/scoring"
	"credit-scoring-api/internal/service"
)

// memStore is an in-memory stand-in for the Postgres repositories. It
// satisfies service.UserStore, service.DecisionStore and service.UserCounter.
type memStore struct {
	mu         sync.Mutex
	users      map[string]model.User
	decisions  []model.Decision
	nextUserID int64
	nextDecID  int64
}

func newMemStore() *memStore {
	return &memStore{users: map[string]model.User{}}
}

func (s *memStore) FindByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

func (s *memStore) ExistsByEmailOrUsername(_ context.Context, email string, username string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) || strings.EqualFold(u.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) Create(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Username)
	if _, exists := s.users[key]; exists {
		return model.User{}, model.ErrUserAlreadyExists
	}

	s.nextUserID++
	u.ID = s.nextUserID
	u.CreatedAt = time.Now().UTC()
	s.users[key] = u
	return u, nil
}

func (s *memStore) List(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s *memStore) AdminExists(_ context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.IsAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.users)), nil
}

func (s *memStore) deactivate(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(username)
	u := s.users[key]
	u.IsActive = false
	s.users[key] = u
}

func (s *memStore) Insert(_ context.Context, d model.Decision) (model.Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextDecID++
	d.ID = s.nextDecID
	d.CreatedAt = time.Now().UTC()
	s.decisions = append(s.decisions, d)
	return d, nil
}

func (s *memStore) ListByUser(_ context.Context, userID int64, offset int, limit int) ([]model.Decision, error) {
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

func (s *memStore) StatsByUser(_ context.Context, userID int64) (model.DecisionStats, error) {
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

func (s *memStore) CountAll(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.decisions)), nil
}

// sequenceScorer returns scripted probabilities, one per call.
type sequenceScorer struct {
	mu            sync.Mutex
	probabilities []float64
	calls         int
}

func (s *sequenceScorer) Score([]float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.probabilities[s.calls%len(s.probabilities)]
	s.calls++
	return p, nil
}

func (s *sequenceScorer) Version() string {
	return "credit_scoring_model_v1.0"
}

func (s *sequenceScorer) Info() scoring.ModelInfo {
	return scoring.ModelInfo{
		Name:      "Credit Scoring AutoML",
		Algorithm: "logistic_regression",
		Version:   "1.0",
		Features:  []string{"age", "income", "credit_amount", "duration_months"},
		Threshold: 0.5,
	}
}

func newTestServer(t *testing.T, scorer scoring.Scorer) (*httptest.Server, *memStore) {
	t.Helper()

	store := newMemStore()

	cfg := &config.Config{
		ServerPort:       "8080",
		RequestTimeout:   30 * time.Second,
		JWTSecret:        "test-secret",
		JWTAccessTTL:     15 * time.Minute,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     10000,
		AuthRateLimitRPM: 10000,
	}

	authService := service.NewAuthService(cfg.JWTSecret, cfg.JWTAccessTTL, store)
	require.NoError(t, authService.EnsureAdmin(context.Background(), "admin", "admin@example.com", "adminpass1"))

	decisionService := service.NewDecisionService(scorer, 0.5, store, store)

	appRouter := router.New(cfg, middleware.NewAuthMiddleware(authService), router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Prediction: handler.NewPredictionHandler(decisionService),
		Admin:      handler.NewAdminHandler(authService, decisionService),
		Model:      handler.NewModelHandler(decisionService),
		Health:     handler.NewHealthHandler(nil, decisionService.ModelLoaded, "test"),
	})

	server := httptest.NewServer(appRouter)
	t.Cleanup(server.Close)

	return server, store
}

type envelope struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Error   *model.APIError  `json:"error"`
	Meta    *model.Meta      `json:"meta"`
}

func doJSON(t *testing.T, method string, url string, token string, payload any) (int, envelope) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func registerAndLogin(t *testing.T, baseURL string, email string, username string, password string) string {
	t.Helper()

	status, _ := doJSON(t, http.MethodPost, baseURL+"/auth/register", "", model.RegisterRequest{
		Email:    email,
		Username: username,
		Password: password,
	})
	require.Equal(t, http.StatusCreated, status)

	return login(t, baseURL, username, password)
}

func login(t *testing.T, baseURL string, username string, password string) string {
	t.Helper()

	status, env := doJSON(t, http.MethodPost, baseURL+"/auth/login", "", model.LoginRequest{
		Username: username,
		Password: password,
	})
	require.Equal(t, http.StatusOK, status)

	var token model.Token
	require.NoError(t, json.Unmarshal(env.Data, &token))
	require.NotEmpty(t, token.AccessToken)
	require.Equal(t, "bearer", token.TokenType)
	return token.AccessToken
}
