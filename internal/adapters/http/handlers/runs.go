package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/longregen/amaru/internal/adapters/http/dto"
	"github.com/longregen/amaru/internal/ports"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 200
)

type RunsHandler struct {
	runs   ports.RunRepository
	logger *zap.Logger
}

func NewRunsHandler(runs ports.RunRepository, logger *zap.Logger) *RunsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunsHandler{runs: runs, logger: logger}
}

// List returns runs newest first; limit and offset page through them.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultRunLimit)
	if limit <= 0 {
		limit = defaultRunLimit
	}
	limit = min(limit, maxRunLimit)
	offset := max(parseIntQuery(r, "offset", 0), 0)

	runs, err := h.runs.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list runs", zap.Error(err))
		respondDomainError(w, r, err, "runs")
		return
	}
	respond(w, r, dto.NewRunListResponse(runs, limit, offset), http.StatusOK)
}

func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "run id")
	if !ok {
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Debug("failed to load run", zap.String("run", id), zap.Error(err))
		respondDomainError(w, r, err, "run")
		return
	}
	respond(w, r, dto.NewRunResponse(run), http.StatusOK)
}

// Rounds returns the recorded rounds of a run in order.
func (h *RunsHandler) Rounds(w http.ResponseWriter, r *http.Request) {
	id, ok := validateURLParam(r, w, "id", "run id")
	if !ok {
		return
	}

	if _, err := h.runs.GetByID(r.Context(), id); err != nil {
		respondDomainError(w, r, err, "run")
		return
	}
	rounds, err := h.runs.GetRounds(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load run rounds", zap.String("run", id), zap.Error(err))
		respondDomainError(w, r, err, "rounds")
		return
	}
	respond(w, r, dto.NewRoundListResponse(id, rounds), http.StatusOK)
}
