package auth

import (
	"encoding/json"
	"net/http"
	"time"
)

// Handler holds auth-related HTTP handlers. Error responses are produced by
// the respond callback so the cookie glue stays free of taxonomy knowledge.
type Handler struct {
	svc        *Service
	resolver   *AdminResolver
	sessionTTL time.Duration
	respond    func(http.ResponseWriter, int, interface{})
	fail       func(http.ResponseWriter, error)
}

func NewHandler(svc *Service, resolver *AdminResolver, sessionTTL time.Duration,
	respond func(http.ResponseWriter, int, interface{}), fail func(http.ResponseWriter, error)) *Handler {
	return &Handler{svc: svc, resolver: resolver, sessionTTL: sessionTTL, respond: respond, fail: fail}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new account and signs it in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	sid, profile, err := h.svc.SignUp(r.Context(), req.Email, req.Password, req.Username)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.setCookie(w, sid)
	h.respond(w, http.StatusCreated, map[string]interface{}{"profile": profile})
}

// Login authenticates and creates a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	sid, profile, err := h.svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}

	h.setCookie(w, sid)
	h.respond(w, http.StatusOK, map[string]interface{}{"profile": profile})
}

// Logout destroys the current session. Always clears the cookie, even when
// the session store call fails.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		h.svc.SignOut(r.Context(), cookie.Value)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	h.respond(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me returns the current session and profile, re-derived from the store.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
		return
	}

	sess, profile, err := h.svc.RefreshSession(r.Context(), cookie.Value)
	if err != nil {
		h.fail(w, err)
		return
	}
	if sess == nil {
		http.Error(w, `{"error":"session expired"}`, http.StatusUnauthorized)
		return
	}

	h.respond(w, http.StatusOK, map[string]interface{}{
		"session":  sess,
		"profile":  profile,
		"is_admin": h.resolver.IsAdmin(r.Context(), cookie.Value),
	})
}

func (h *Handler) setCookie(w http.ResponseWriter, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.sessionTTL / time.Second),
	})
}
