package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/maltedev/fidget-scraper/internal/catalog"
	"github.com/maltedev/fidget-scraper/internal/jobs"
	"github.com/maltedev/fidget-scraper/internal/pipeline"
	"github.com/maltedev/fidget-scraper/internal/queue"
)

type CatalogReader interface {
	Load() (*catalog.Catalog, error)
	Group(name string) (*catalog.Group, error)
}

type EntryAdder interface {
	AddManual(ctx context.Context, group string, m pipeline.ManualEntry) (*catalog.Entry, error)
}

type RunManager interface {
	CreateRun(tasks []pipeline.Task) (*jobs.Run, error)
	GetRun(id uuid.UUID) (*jobs.Run, error)
	ListRuns() []*jobs.Run
}

type Handlers struct {
	catalog CatalogReader
	adder   EntryAdder
	runs    RunManager
	logger  *slog.Logger
}

func NewHandlers(catalog CatalogReader, adder EntryAdder, runs RunManager, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		catalog: catalog,
		adder:   adder,
		runs:    runs,
		logger:  logger.With("component", "api"),
	}
}

// GroupSummary is one row of the group listing.
type GroupSummary struct {
	Name    string `json:"name"`
	Image   string `json:"image"`
	Fidgets int    `json:"fidgets"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	health := map[string]any{"status": "ok"}

	if _, err := h.catalog.Load(); err != nil {
		status = http.StatusServiceUnavailable
		health["status"] = "error"
		health["message"] = "catalog unreadable"
	}
	h.respondJSON(w, status, health)
}

func (h *Handlers) ListGroups(w http.ResponseWriter, r *http.Request) {
	c, err := h.catalog.Load()
	if err != nil {
		h.logger.Error("failed to load catalog", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}

	groups := make([]GroupSummary, 0, len(c.Groups))
	for _, g := range c.Groups {
		groups = append(groups, GroupSummary{Name: g.Name, Image: g.Image, Fidgets: len(g.Fidgets)})
	}
	h.respondJSON(w, http.StatusOK, groups)
}

func (h *Handlers) GetGroup(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	g, err := h.catalog.Group(name)
	if err != nil {
		h.respondCatalogError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, g)
}

func (h *Handlers) AddFidget(w http.ResponseWriter, r *http.Request) {
	var req pipeline.ManualEntry
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.adder.AddManual(r.Context(), chi.URLParam(r, "name"), req)
	if err != nil {
		h.respondCatalogError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, entry)
}

type CreateRunRequest struct {
	Tasks []pipeline.Task `json:"tasks"`
}

type CreateRunResponse struct {
	RunID  uuid.UUID `json:"run_id"`
	Status string    `json:"status"`
}

func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for _, task := range req.Tasks {
		if task.URL == "" || task.Group == "" {
			h.respondError(w, http.StatusBadRequest, "every task needs url and group")
			return
		}
	}

	run, err := h.runs.CreateRun(req.Tasks)
	switch {
	case errors.Is(err, queue.ErrEmptyRun):
		h.respondError(w, http.StatusBadRequest, "tasks are required")
		return
	case errors.Is(err, queue.ErrQueueClosed):
		h.respondError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	case err != nil:
		h.logger.Error("failed to create run", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create run")
		return
	}

	h.respondJSON(w, http.StatusAccepted, CreateRunResponse{RunID: run.ID, Status: run.Status})
}

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid run ID")
		return
	}

	run, err := h.runs.GetRun(id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	h.respondJSON(w, http.StatusOK, run)
}

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.runs.ListRuns())
}

func (h *Handlers) respondCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrInvalidEntry):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrGroupNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("catalog request failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "catalog request failed")
	}
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
