package api

import (
	"net/http"

	"rxstock/m/domain"
	"rxstock/m/internal/collection"
)

var prescriptionSorters = collection.Sorters[domain.Prescription](domain.PrescriptionSorters())

func (h *Handler) listPrescriptions(w http.ResponseWriter, r *http.Request) {
	prescriptions, err := h.repo.ListPrescriptions(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := listQuery(r, "status", "gender")
	respondJSON(w, r, http.StatusOK, collection.Apply(prescriptions, q, prescriptionSorters))
}

func (h *Handler) getPrescription(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "invalid prescription id")
		return
	}
	p, err := h.repo.GetPrescription(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, p)
}

func (h *Handler) createPrescription(w http.ResponseWriter, r *http.Request) {
	var in domain.PrescriptionInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := in.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.repo.CreatePrescription(r.Context(), in.Prescription(h.now().UTC()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, p)
}

func (h *Handler) updatePrescriptionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "invalid prescription id")
		return
	}
	var req struct {
		Status domain.PrescriptionStatus `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	current, err := h.repo.GetPrescription(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	next, err := current.Transition(req.Status, h.now().UTC())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.repo.UpdatePrescriptionStatus(r.Context(), next); err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, next)
}
