package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pavelanni/examhall/internal/auth"
	"github.com/pavelanni/examhall/internal/model"
)

// requireAuth is middleware that checks for a valid bearer token and loads
// the user it names.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, r, errUnauthenticated)
			return
		}
		claims, err := h.tokens.Parse(token)
		if err != nil {
			slog.Debug("rejected token", "error", err)
			writeError(w, r, errUnauthenticated)
			return
		}
		userID, _ := claims.UserID()

		user, err := h.store.GetUserByID(r.Context(), userID)
		if err != nil {
			writeError(w, r, fmt.Errorf("load user %d: %w", userID, err))
			return
		}
		if user == nil || !user.Active {
			writeError(w, r, errUnauthenticated)
			return
		}

		ctx := model.ContextWithUser(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// requireRole returns middleware that checks the user has one of the allowed roles.
func requireRole(allowed ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := model.UserFromContext(r.Context())
			if user == nil {
				writeError(w, r, errUnauthenticated)
				return
			}
			for _, role := range allowed {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, r, fmt.Errorf("%w: role %q", errForbidden, user.Role))
		})
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, r, fmt.Errorf("get user: %w", err))
		return
	}
	if user == nil || !user.Active || !auth.CheckPassword(user.PasswordHash, req.Password) {
		slog.Info("failed login", "email", req.Email)
		writeError(w, r, errInvalidCredentials)
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("user logged in", "id", user.ID, "role", user.Role)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.UserFromContext(r.Context()))
}
