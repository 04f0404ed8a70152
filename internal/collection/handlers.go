package collection

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JustinTDCT/CineLog/internal/catalog"
	"github.com/JustinTDCT/CineLog/internal/editor"
	"github.com/JustinTDCT/CineLog/internal/httputil"
	"github.com/JustinTDCT/CineLog/internal/models"
)

type Handler struct {
	store         *Store
	catalog       *catalog.Catalog
	editor        *editor.Editor
	overviewLimit int
}

func NewHandler(store *Store, cat *catalog.Catalog, overviewLimit int) *Handler {
	return &Handler{
		store:         store,
		catalog:       cat,
		editor:        editor.New(store),
		overviewLimit: overviewLimit,
	}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.add)
	r.Get("/counts", h.counts)
	r.Get("/overview", h.overview)
	r.Post("/custom", h.addCustom)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		all := h.store.All()
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"entries": all,
			"total":   len(all),
		})
		return
	}

	status, err := models.ParseStatus(raw)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_STATUS", err.Error())
		return
	}
	entries := []models.CollectionEntry{}
	for e := range h.store.ListByStatus(status) {
		entries = append(entries, e)
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"label":   status.Label(),
		"entries": entries,
		"total":   len(entries),
	})
}

func (h *Handler) counts(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.store.Counts())
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	limit := h.overviewLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	httputil.WriteJSON(w, http.StatusOK, h.store.Overview(limit))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.store.Get(chi.URLParam(r, "id"))
	if !ok {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "movie not in collection")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

type addRequest struct {
	MovieID string               `json:"movie_id,omitempty"`
	Movie   *models.CatalogEntry `json:"movie,omitempty"`
	editor.Form
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	var movie models.CatalogEntry
	switch {
	case req.Movie != nil && req.Movie.ID != "":
		movie = *req.Movie
	case req.MovieID != "":
		m, err := h.catalog.Get(req.MovieID)
		if err != nil {
			httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "movie not found in catalog")
			return
		}
		movie = m
	default:
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", "movie_id or movie is required")
		return
	}

	entry, err := h.editor.Save(r.Context(), movie, req.Form)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) addCustom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		editor.CustomInput
		editor.Form
	}
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	entry, err := h.editor.AddCustom(r.Context(), req.CustomInput, req.Form)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entry)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var form editor.Form
	if err := httputil.ReadJSON(w, r, &form); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	entry, err := h.editor.SaveExisting(r.Context(), chi.URLParam(r, "id"), form)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := h.editor.Remove(r.Context(), id)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"id":      id,
		"removed": removed,
	})
}

func writeMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidStatus), errors.Is(err, models.ErrInvalidRating):
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	case errors.Is(err, editor.ErrTitleRequired):
		httputil.WriteError(w, http.StatusBadRequest, "TITLE_REQUIRED", err.Error())
	case errors.Is(err, ErrNotFound):
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	default:
		log.Printf("[collection] mutation failed: %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to save collection")
	}
}
