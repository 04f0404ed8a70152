package auth

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JustinTDCT/CineLog/internal/httputil"
)

type Handler struct {
	issuer  *Issuer
	keyHash string
}

func NewHandler(issuer *Issuer, keyHash string) *Handler {
	return &Handler{issuer: issuer, keyHash: keyHash}
}

func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Post("/token", h.token)
	return r
}

func (h *Handler) token(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"api_key"`
		Client string `json:"client,omitempty"`
	}
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if req.APIKey == "" || !CheckKey(h.keyHash, req.APIKey) {
		httputil.WriteError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", ErrInvalidCredentials.Error())
		return
	}

	token, exp, err := h.issuer.GenerateToken(req.Client)
	if err != nil {
		log.Printf("[auth] %v", err)
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to issue token")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}
