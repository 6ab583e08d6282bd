package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/easytrade/upsell-orchestrator/internal/application"
	"github.com/easytrade/upsell-orchestrator/internal/contracts"
)

func (h *Handler) startRun(w http.ResponseWriter, r *http.Request) {
	var req application.StartRunInput
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "start_run", err)
		return
	}

	res, err := h.service.StartRun(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "start_run", err)
		return
	}
	writeSuccess(w, http.StatusAccepted, res)
}

func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "run_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "run_id must be a uuid")
		return
	}

	view, err := h.service.GetRun(r.Context(), runID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_run", err)
		return
	}
	writeSuccess(w, http.StatusOK, view)
}

func (h *Handler) submitReply(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "run_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "run_id must be a uuid")
		return
	}

	var req contracts.ReplyRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "submit_reply", err)
		return
	}

	if err := h.service.SubmitReply(r.Context(), runID, req.Reply); err != nil {
		writeMappedError(r.Context(), w, "submit_reply", err)
		return
	}
	writeMessage(w, http.StatusOK, "reply recorded")
}

func (h *Handler) cancelRun(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "run_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "run_id must be a uuid")
		return
	}

	if err := h.service.CancelRun(r.Context(), runID); err != nil {
		writeMappedError(r.Context(), w, "cancel_run", err)
		return
	}
	writeMessage(w, http.StatusAccepted, "cancellation requested")
}

func (h *Handler) getOpportunity(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.GetOpportunity(r.Context(), chi.URLParam(r, "run_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_opportunity", err)
		return
	}
	writeSuccess(w, http.StatusOK, rec)
}

func (h *Handler) listOpportunities(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	limit := parseIntDefault(r.URL.Query().Get("limit"), 50)

	recs, err := h.service.ListOpportunities(r.Context(), accountID, limit)
	if err != nil {
		writeMappedError(r.Context(), w, "list_opportunities", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"opportunities": recs,
		"count":         len(recs),
	})
}
