package handler

import (
	"context"
	"net/http"
)

type HealthHandler struct {
	dbPing      func(ctx context.Context) error
	modelLoaded func() bool
	version     string
}

func NewHealthHandler(dbPing func(ctx context.Context) error, modelLoaded func() bool, version string) *HealthHandler {
	return &HealthHandler{dbPing: dbPing, modelLoaded: modelLoaded, version: version}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if h.dbPing != nil {
		dbOK = h.dbPing(r.Context()) == nil
	}

	status := http.StatusOK
	if !dbOK {
		status = http.StatusServiceUnavailable
	}

	writeSuccess(w, status, map[string]any{
		"status":       healthWord(dbOK),
		"database":     dbOK,
		"model_loaded": h.modelLoaded(),
	}, nil)
}

func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, map[string]any{
		"service": "credit-scoring-api",
		"version": h.version,
	}, nil)
}

func healthWord(ok bool) string {
	if ok {
		return "ok"
	}
	return "degraded"
}
