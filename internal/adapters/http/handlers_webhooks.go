package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/easytrade/upsell-orchestrator/internal/application"
	"github.com/easytrade/upsell-orchestrator/internal/contracts"
	"github.com/easytrade/upsell-orchestrator/internal/domain"
)

// ingestAlerts receives the monitoring system's alert batch. The response is
// always synchronous; triggered runs execute on the worker afterwards.
func (h *Handler) ingestAlerts(w http.ResponseWriter, r *http.Request) {
	var req application.IngestAlertsInput
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "ingest_alerts", err)
		return
	}

	res, err := h.service.IngestAlerts(r.Context(), req)
	if err != nil {
		writeMappedError(r.Context(), w, "ingest_alerts", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ingestUsage(w http.ResponseWriter, r *http.Request) {
	var snap domain.UsageSnapshot
	if err := decodeBody(r, &snap); err != nil {
		writeValidationError(r.Context(), w, "ingest_usage", err)
		return
	}

	if err := h.service.PutUsage(r.Context(), snap); err != nil {
		writeMappedError(r.Context(), w, "ingest_usage", err)
		return
	}
	writeMessage(w, http.StatusAccepted, "usage recorded")
}

func (h *Handler) getUsage(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.GetUsage(r.Context(), chi.URLParam(r, "account_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_usage", err)
		return
	}
	writeSuccess(w, http.StatusOK, snap)
}

func (h *Handler) createContract(w http.ResponseWriter, r *http.Request) {
	var contract domain.Contract
	if err := decodeBody(r, &contract); err != nil {
		writeValidationError(r.Context(), w, "create_contract", err)
		return
	}

	created, err := h.service.CreateContract(r.Context(), &contract)
	if err != nil {
		writeMappedError(r.Context(), w, "create_contract", err)
		return
	}
	writeSuccess(w, http.StatusCreated, created)
}

func (h *Handler) getContract(w http.ResponseWriter, r *http.Request) {
	contract, err := h.service.GetContract(r.Context(), chi.URLParam(r, "account_id"))
	if err != nil {
		writeMappedError(r.Context(), w, "get_contract", err)
		return
	}
	writeSuccess(w, http.StatusOK, contract)
}

func (h *Handler) listFeatures(w http.ResponseWriter, r *http.Request) {
	features, err := h.service.Features(r.Context())
	if err != nil {
		writeMappedError(r.Context(), w, "list_features", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"features": features})
}

func (h *Handler) setFeature(w http.ResponseWriter, r *http.Request) {
	var req contracts.SetFeatureRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "set_feature", err)
		return
	}

	name := chi.URLParam(r, "name")
	if err := h.service.SetFeature(r.Context(), name, req.Enabled); err != nil {
		writeMappedError(r.Context(), w, "set_feature", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{
		"feature": name,
		"enabled": req.Enabled,
	})
}
