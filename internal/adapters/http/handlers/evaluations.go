package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/longregen/amaru/internal/adapters/http/dto"
	"github.com/longregen/amaru/internal/ports"
)

// EvaluationsHandler looks up cached fitness evaluations.
type EvaluationsHandler struct {
	store  ports.AnalyticsStore
	logger *zap.Logger
}

func NewEvaluationsHandler(store ports.AnalyticsStore, logger *zap.Logger) *EvaluationsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluationsHandler{store: store, logger: logger}
}

func (h *EvaluationsHandler) Get(w http.ResponseWriter, r *http.Request) {
	astHash, ok := validateURLParam(r, w, "astHash", "ast hash")
	if !ok {
		return
	}
	suiteHash, ok := validateURLParam(r, w, "suiteHash", "suite hash")
	if !ok {
		return
	}

	rec, err := h.store.FindByHash(r.Context(), astHash, suiteHash)
	if err != nil {
		h.logger.Debug("failed to load evaluation", zap.String("ast_hash", astHash), zap.String("suite_hash", suiteHash), zap.Error(err))
		respondDomainError(w, r, err, "evaluation")
		return
	}
	respond(w, r, dto.NewEvaluationResponse(rec), http.StatusOK)
}
