// Package handler exposes the JSON API consumed by the single-page client.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pavelanni/examhall/internal/analytics"
	"github.com/pavelanni/examhall/internal/auth"
	"github.com/pavelanni/examhall/internal/exam"
	appI18n "github.com/pavelanni/examhall/internal/i18n"
	"github.com/pavelanni/examhall/internal/model"
	"github.com/pavelanni/examhall/internal/store"
)

// maxUploadBytes bounds multipart spreadsheet uploads.
const maxUploadBytes = 10 << 20

// Config holds HTTP-level settings.
type Config struct {
	// CORSOrigins lists allowed browser origins. Empty allows any origin.
	CORSOrigins []string
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store   *store.Store
	exams   *exam.Service
	reports *analytics.Service
	tokens  *auth.Issuer
	config  Config
}

// New creates a new Handler.
func New(s *store.Store, exams *exam.Service, reports *analytics.Service, tokens *auth.Issuer, cfg Config) *Handler {
	return &Handler{store: s, exams: exams, reports: reports, tokens: tokens, config: cfg}
}

// Router returns the complete HTTP handler with middleware installed.
func (h *Handler) Router() http.Handler {
	origins := h.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(appI18n.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", h.Routes)
	return r
}

// Routes registers all API routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Get("/users/profile", h.handleProfile)
		r.Get("/tests", h.handleListTests)
		r.Get("/tests/{id}", h.handleGetTest)

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleStudent))
			r.Post("/tests/{id}/start", h.handleStartAttempt)
			r.Post("/tests/{id}/submit", h.handleSubmitAttempt)
			r.Get("/attempts/mine", h.handleMyAttempts)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireRole(model.UserRoleAdmin))
			r.Post("/auth/create-user", h.handleCreateUser)
			r.Post("/auth/create-student", h.handleCreateStudent)
			r.Post("/auth/delete-student", h.handleDeleteStudent)
			r.Post("/auth/import-students", h.handleImportStudents)
			r.Get("/users/students", h.handleListStudents)

			r.Post("/tests/create", h.handleCreateTest)
			r.Patch("/tests/{id}/end", h.handleEndTest)
			r.Get("/tests/{id}/active-attempts", h.handleActiveAttempts)
			r.Get("/tests/{id}/student/{studentId}/attempt", h.handleStudentAttempt)

			r.Get("/analytics/test/{id}", h.handleTestAnalytics)
			r.Get("/analytics/export/{id}", h.handleExportResults)
			r.Get("/analytics/dashboard", h.handleDashboard)
		})
	})
}

// actor returns the lifecycle actor for the authenticated user.
func actor(r *http.Request) exam.Actor {
	return exam.ActorFromUser(model.UserFromContext(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}

var (
	errBadRequest         = errors.New("bad request")
	errUnauthenticated    = errors.New("authentication required")
	errInvalidCredentials = errors.New("invalid credentials")
	errForbidden          = errors.New("forbidden")
)

// apiError is the body of every error response.
type apiError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  []exam.FieldError `json:"fields,omitempty"`
}

// writeError maps an error to a status code, a stable code and a localized
// message. Unexpected errors are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status = http.StatusInternalServerError
		body   = apiError{Code: "internal", Message: appI18n.T(r.Context(), "ErrInternal")}
		verr   *exam.ValidationError
	)
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		body = apiError{Code: "validation_failed", Message: appI18n.T(r.Context(), "ErrValidation"), Fields: verr.Fields}
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
		body = apiError{Code: "bad_request", Message: appI18n.T(r.Context(), "ErrBadRequest")}
	case errors.Is(err, errUnauthenticated):
		status = http.StatusUnauthorized
		body = apiError{Code: "unauthorized", Message: appI18n.T(r.Context(), "ErrUnauthorized")}
	case errors.Is(err, errInvalidCredentials):
		status = http.StatusUnauthorized
		body = apiError{Code: "invalid_credentials", Message: appI18n.T(r.Context(), "ErrInvalidCredentials")}
	case errors.Is(err, exam.ErrUnauthorized), errors.Is(err, errForbidden):
		status = http.StatusForbidden
		body = apiError{Code: "forbidden", Message: appI18n.T(r.Context(), "ErrForbidden")}
	case errors.Is(err, exam.ErrNotFound):
		status = http.StatusNotFound
		body = apiError{Code: "not_found", Message: appI18n.T(r.Context(), "ErrNotFound")}
	case errors.Is(err, exam.ErrTestEnded):
		status = http.StatusConflict
		body = apiError{Code: "test_ended", Message: appI18n.T(r.Context(), "ErrTestEnded")}
	case errors.Is(err, exam.ErrAlreadyCompleted):
		status = http.StatusConflict
		body = apiError{Code: "already_completed", Message: appI18n.T(r.Context(), "ErrAlreadyCompleted")}
	case errors.Is(err, store.ErrDuplicateEmail):
		status = http.StatusConflict
		body = apiError{Code: "email_taken", Message: appI18n.T(r.Context(), "ErrEmailTaken")}
	default:
		slog.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
	if status != http.StatusInternalServerError {
		slog.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, body)
}
