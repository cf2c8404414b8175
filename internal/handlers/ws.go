package handlers

import (
	"net/http"

	"lendfi/internal/middleware"
	"lendfi/internal/websocket"
)

// WSNotifications upgrades to a websocket that receives the caller's events.
// Browsers cannot set headers on the upgrade, so the token may come as ?token=.
func (h *Handler) WSNotifications(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token, _ = middleware.BearerToken(r)
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "Access denied. No token provided.")
		return
	}
	user, ok := middleware.ResolveToken(r.Context(), h.cfg.JWTSecret, token, h.users)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Invalid token or user not active")
		return
	}
	websocket.ServeWS(w, r, h.hub, user.ID)
}
