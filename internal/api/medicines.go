package api

import (
	"net/http"

	"rxstock/m/domain"
	"rxstock/m/internal/collection"
)

var medicineSorters = collection.Sorters[domain.Medicine](domain.MedicineSorters())

func (h *Handler) listMedicines(w http.ResponseWriter, r *http.Request) {
	medicines, err := h.repo.ListMedicines(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := listQuery(r, "category", "manufacturer", "stock")
	respondJSON(w, r, http.StatusOK, collection.Apply(medicines, q, medicineSorters))
}

func (h *Handler) getMedicine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "invalid medicine id")
		return
	}
	m, err := h.repo.GetMedicine(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, m)
}

func (h *Handler) createMedicine(w http.ResponseWriter, r *http.Request) {
	var in domain.MedicineInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := in.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}
	m, err := h.repo.CreateMedicine(r.Context(), in.Medicine())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.checkAlerts(r, nil, m)
	respondJSON(w, r, http.StatusCreated, m)
}

func (h *Handler) updateMedicine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "invalid medicine id")
		return
	}
	var in domain.MedicineInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := in.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}
	prev, err := h.repo.GetMedicine(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	m := in.Medicine().WithID(id)
	if err := h.repo.UpdateMedicine(r.Context(), m); err != nil {
		h.fail(w, r, err)
		return
	}
	h.checkAlerts(r, &prev, m)
	respondJSON(w, r, http.StatusOK, m)
}

// deleteMedicine requires ?confirm=true so that a bare DELETE never removes
// stock by accident.
func (h *Handler) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "invalid medicine id")
		return
	}
	if r.URL.Query().Get("confirm") != "true" {
		h.fail(w, r, domain.ErrNotConfirmed)
		return
	}
	if err := h.repo.DeleteMedicine(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// checkAlerts raises stock and expiry alerts for a written medicine. The
// write already succeeded, so a failure here is only logged.
func (h *Handler) checkAlerts(r *http.Request, prev *domain.Medicine, cur domain.Medicine) {
	if _, err := h.monitor.Check(r.Context(), prev, cur); err != nil {
		h.log.Warn().Err(err).Int64("medicine_id", cur.ID).Msg("alert check failed")
	}
}
