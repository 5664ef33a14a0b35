package handler

import (
	"net/http"

	"credit-scoring-api/internal/service"
)

type AdminHandler struct {
	auth      *service.AuthService
	decisions *service.DecisionService
}

func NewAdminHandler(auth *service.AuthService, decisions *service.DecisionService) *AdminHandler {
	return &AdminHandler{auth: auth, decisions: decisions}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, users, nil)
}

func (h *AdminHandler) GlobalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.decisions.GlobalStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, stats, nil)
}
