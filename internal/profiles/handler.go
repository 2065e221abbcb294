// Package profiles exposes profile editing, wallet glue, and client
// preferences over HTTP.
package profiles

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/arjun/nft-marketplace/backend/internal/auth"
	"github.com/arjun/nft-marketplace/backend/internal/httpx"
	"github.com/arjun/nft-marketplace/backend/internal/middleware"
	"github.com/arjun/nft-marketplace/backend/internal/models"
	"github.com/arjun/nft-marketplace/backend/internal/store"
)

// Handler holds profile and preference HTTP handlers.
type Handler struct {
	svc *auth.Service
	kv  *store.KVStore
	log *slog.Logger
}

func NewHandler(svc *auth.Service, kv *store.KVStore, log *slog.Logger) *Handler {
	return &Handler{svc: svc, kv: kv, log: log}
}

// Update applies a partial profile edit. This path propagates store errors
// so the client can show an inline field error.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())

	var upd models.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	profile, err := h.svc.UpdateProfile(r.Context(), sess, upd)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profile)
}

type walletRequest struct {
	Address string `json:"address"`
}

// ConnectWallet stores the wallet address on the profile and sets the
// wallet-was-connected sentinel used to offer reconnection next visit.
func (h *Handler) ConnectWallet(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())

	var req walletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	addr := strings.TrimSpace(req.Address)
	if !isHexAddress(addr) {
		httpx.WriteJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": "address must be a 0x-prefixed 40-hex-digit string",
		})
		return
	}

	profile, err := h.svc.UpdateProfile(r.Context(), sess, models.ProfileUpdate{WalletAddress: &addr})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := h.kv.SetWalletConnected(r.Context(), sess.UserID, true); err != nil {
		h.log.Warn("wallet sentinel write failed", "error", err)
	}
	httpx.WriteJSON(w, http.StatusOK, profile)
}

// DisconnectWallet clears the address and the sentinel.
func (h *Handler) DisconnectWallet(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())

	empty := ""
	profile, err := h.svc.UpdateProfile(r.Context(), sess, models.ProfileUpdate{WalletAddress: &empty})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := h.kv.SetWalletConnected(r.Context(), sess.UserID, false); err != nil {
		h.log.Warn("wallet sentinel clear failed", "error", err)
	}
	httpx.WriteJSON(w, http.StatusOK, profile)
}

type darkModeRequest struct {
	Enabled bool `json:"enabled"`
}

// SetDarkMode persists the dark-mode preference.
func (h *Handler) SetDarkMode(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())

	var req darkModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if err := h.kv.SetDarkMode(r.Context(), sess.UserID, req.Enabled); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

// Prefs returns the stored client preferences.
func (h *Handler) Prefs(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())

	dark, err := h.kv.DarkMode(r.Context(), sess.UserID)
	if err != nil {
		h.log.Warn("dark-mode read failed", "error", err)
	}
	wallet, err := h.kv.WalletConnected(r.Context(), sess.UserID)
	if err != nil {
		h.log.Warn("wallet sentinel read failed", "error", err)
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{
		"dark_mode":        dark,
		"wallet_connected": wallet,
	})
}

func isHexAddress(s string) bool {
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, r := range s[2:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
