// Package api serves the pharmacy collections over HTTP. It is the REST
// collaborator the client sessions talk to.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"rxstock/m/domain"
	"rxstock/m/internal/alerting"
	"rxstock/m/internal/collection"
	"rxstock/m/internal/store"
)

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	repo    *store.Repository
	monitor *alerting.Monitor
	log     zerolog.Logger
	origins []string
	now     func() time.Time
}

type Option func(*Handler)

// WithOrigins sets the origins allowed by CORS.
func WithOrigins(origins []string) Option {
	return func(h *Handler) { h.origins = origins }
}

func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// New constructs a Handler. A nil monitor gets one backed by repo that
// shares the handler's clock.
func New(repo *store.Repository, monitor *alerting.Monitor, log zerolog.Logger, opts ...Option) *Handler {
	h := &Handler{
		repo:    repo,
		monitor: monitor,
		log:     log,
		origins: []string{"*"},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.monitor == nil {
		h.monitor = alerting.NewMonitor(repo, log, alerting.WithClock(h.now))
	}
	return h
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(requestID)
	r.Use(requestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/health", h.health)

	r.Route("/medicines", func(r chi.Router) {
		r.Get("/", h.listMedicines)
		r.Post("/", h.createMedicine)
		r.Get("/{id}", h.getMedicine)
		r.Put("/{id}", h.updateMedicine)
		r.Delete("/{id}", h.deleteMedicine)
	})

	r.Route("/alerts", func(r chi.Router) {
		r.Get("/", h.listAlerts)
		r.Post("/", h.createAlert)
		r.Get("/digest", h.alertDigest)
		r.Get("/{id}", h.getAlert)
		r.Patch("/{id}", h.updateAlertStatus)
	})

	r.Route("/prescriptions", func(r chi.Router) {
		r.Get("/", h.listPrescriptions)
		r.Post("/", h.createPrescription)
		r.Get("/{id}", h.getPrescription)
		r.Patch("/{id}", h.updatePrescriptionStatus)
	})

	r.Get("/dashboard", h.dashboard)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("health check failed")
		respondError(w, r, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	medicines, err := h.repo.ListMedicines(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	alerts, err := h.repo.ListAlerts(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	prescriptions, err := h.repo.ListPrescriptions(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, domain.Summarize(medicines, alerts, prescriptions, h.now()))
}

// Helpers

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// listQuery reads search, sort and the given filter dimensions from the
// query string.
func listQuery(r *http.Request, dimensions ...string) collection.Query {
	values := r.URL.Query()
	q := collection.Query{Search: values.Get("search"), Sort: values.Get("sort")}
	for _, dim := range dimensions {
		if v := values.Get(dim); v != "" {
			q = q.Where(dim, v)
		}
	}
	return q
}
