package api

import (
	"net/http"
	"time"

	"rxstock/m/domain"
	"rxstock/m/internal/collection"
)

var alertSorters = collection.Sorters[domain.Alert](domain.AlertSorters())

type alertStatusRequest struct {
	Status     domain.AlertStatus `json:"status"`
	ResolvedAt *time.Time         `json:"resolved_at,omitempty"`
}

func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.repo.ListAlerts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := listQuery(r, "status", "type", "priority")
	respondJSON(w, r, http.StatusOK, collection.Apply(alerts, q, alertSorters))
}

func (h *Handler) getAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "invalid alert id")
		return
	}
	a, err := h.repo.GetAlert(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, a)
}

func (h *Handler) createAlert(w http.ResponseWriter, r *http.Request) {
	var in domain.AlertInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := in.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.repo.CreateAlert(r.Context(), in.Alert(h.now().UTC()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, a)
}

func (h *Handler) updateAlertStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "invalid alert id")
		return
	}
	var req alertStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	at := h.now().UTC()
	if req.ResolvedAt != nil {
		at = req.ResolvedAt.UTC()
	}

	current, err := h.repo.GetAlert(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	next, err := current.Transition(req.Status, at)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.repo.UpdateAlertStatus(r.Context(), next); err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, next)
}

func (h *Handler) alertDigest(w http.ResponseWriter, r *http.Request) {
	d, err := h.monitor.Digest(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, d)
}
