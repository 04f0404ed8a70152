package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JustinTDCT/CineLog/internal/httputil"
	"github.com/JustinTDCT/CineLog/internal/models"
)

type Handler struct {
	catalog *Catalog
}

func NewHandler(c *Catalog) *Handler {
	return &Handler{catalog: c}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/search", h.search)
	r.Get("/{id}", h.get)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	all := h.catalog.All()
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"results": all,
		"total":   len(all),
	})
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	results := h.catalog.Search(query)
	if results == nil {
		results = []models.CatalogEntry{}
	}

	if limit, _ := strconv.Atoi(r.URL.Query().Get("limit")); limit > 0 && limit < len(results) {
		results = results[:limit]
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"query":   query,
		"results": results,
		"total":   len(results),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	entry, err := h.catalog.Get(chi.URLParam(r, "id"))
	if errors.Is(err, ErrNotFound) {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "movie not found")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}
