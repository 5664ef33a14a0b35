package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"credit-scoring-api/internal/middleware"
	"credit-scoring-api/internal/model"
	"credit-scoring-api/internal/service"
	"credit-scoring-api/pkg/apierror"
)

type PredictionHandler struct {
	service *service.DecisionService
}

func NewPredictionHandler(service *service.DecisionService) *PredictionHandler {
	return &PredictionHandler{service: service}
}

func (h *PredictionHandler) Predict(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	var payload model.Application
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	decision, err := h.service.Decide(r.Context(), payload, principal, middleware.ExtractClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.DecisionResponse{
		Decision:     decision.Outcome,
		Probability:  service.RoundProbability(decision.Probability),
		ModelVersion: decision.ModelVersion,
		PredictionID: decision.ID,
	}, nil)
}

func (h *PredictionHandler) History(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 0)

	decisions, offset, limit, err := h.service.History(r.Context(), principal.User.ID, offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, decisions, &model.Meta{Offset: offset, Limit: limit})
}

func (h *PredictionHandler) Stats(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, apierror.New("UNAUTHORIZED", "authentication required", "", http.StatusUnauthorized))
		return
	}

	stats, err := h.service.Stats(r.Context(), principal.User.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, stats, nil)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
