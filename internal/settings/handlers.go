package settings

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JustinTDCT/CineLog/internal/httputil"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Put("/", h.update)
	r.Delete("/{key}", h.delete)
	return r
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	all, err := h.repo.GetAll()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load settings")
		return
	}

	settingsMap := make(map[string]string)
	for _, s := range all {
		settingsMap[s.Key] = s.Value
	}
	httputil.WriteJSON(w, http.StatusOK, settingsMap)
}

// update validates every key before writing any of them. Changes apply on
// the next restart.
func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	for key, value := range req {
		if err := Validate(key, value); err != nil {
			code := "INVALID_VALUE"
			if errors.Is(err, ErrUnknownKey) {
				code = "UNKNOWN_SETTING"
			}
			httputil.WriteError(w, http.StatusBadRequest, code, err.Error())
			return
		}
	}

	for key, value := range req {
		if err := h.repo.Set(key, value); err != nil {
			log.Printf("[settings] set %s: %v", key, err)
			httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to save setting")
			return
		}
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.repo.Delete(key); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to delete setting")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"deleted": key})
}
