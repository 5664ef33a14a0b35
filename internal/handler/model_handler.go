package handler

import (
	"net/http"

	"credit-scoring-api/internal/service"
)

type ModelHandler struct {
	service *service.DecisionService
}

func NewModelHandler(service *service.DecisionService) *ModelHandler {
	return &ModelHandler{service: service}
}

func (h *ModelHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.ModelInfo()
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, info, nil)
}
