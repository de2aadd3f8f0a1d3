package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pavelanni/examhall/internal/auth"
	"github.com/pavelanni/examhall/internal/exam"
	appI18n "github.com/pavelanni/examhall/internal/i18n"
	"github.com/pavelanni/examhall/internal/model"
	"github.com/pavelanni/examhall/internal/sheet"
	"github.com/pavelanni/examhall/internal/store"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
}

// validationError converts validator failures into an *exam.ValidationError.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	verr := &exam.ValidationError{}
	for _, fe := range fieldErrs {
		msg := "failed " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		verr.Fields = append(verr.Fields, exam.FieldError{Field: fe.Field(), Error: msg})
	}
	return verr
}

type createUserRequest struct {
	Name      string         `json:"name" validate:"required"`
	Email     string         `json:"email" validate:"required,email"`
	Password  string         `json:"password" validate:"required,min=6"`
	Role      model.UserRole `json:"role" validate:"omitempty,oneof=admin student"`
	StudentID string         `json:"studentId"`
	Branch    string         `json:"branch"`
}

func (h *Handler) createUser(r *http.Request, req createUserRequest) (*model.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	u := model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		StudentID:    strings.TrimSpace(req.StudentID),
		Branch:       strings.TrimSpace(req.Branch),
		Active:       true,
	}
	id, err := h.store.CreateUser(r.Context(), u)
	if err != nil {
		return nil, err
	}
	return h.store.GetUserByID(r.Context(), id)
}

type userResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Role == "" {
		req.Role = model.UserRoleStudent
	}
	u, err := h.createUser(r, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{Message: appI18n.T(r.Context(), "UserCreated"), User: u})
}

func (h *Handler) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Role = model.UserRoleStudent
	u, err := h.createUser(r, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{Message: appI18n.T(r.Context(), "StudentCreated"), User: u})
}

type deleteStudentRequest struct {
	StudentID int64 `json:"studentId"`
}

func (h *Handler) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
	var req deleteStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ok, err := h.store.DeleteStudent(r.Context(), req.StudentID)
	if err != nil {
		writeError(w, r, fmt.Errorf("delete student %d: %w", req.StudentID, err))
		return
	}
	if !ok {
		writeError(w, r, fmt.Errorf("%w: student %d", exam.ErrNotFound, req.StudentID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": appI18n.T(r.Context(), "StudentDeleted")})
}

type importResponse struct {
	Message string `json:"message"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
}

// handleImportStudents creates students from an uploaded spreadsheet.
// Rows whose email is taken, or that have no usable password, are skipped.
func (h *Handler) handleImportStudents(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := formFile(r, "file", "excelFile")
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer file.Close()

	rows, err := sheet.ParseStudents(file)
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	var resp importResponse
	for _, row := range rows {
		password := row.Password
		if password == "" {
			password = row.StudentID
		}
		_, err := h.createUser(r, createUserRequest{
			Name:      row.Name,
			Email:     row.Email,
			Password:  password,
			Role:      model.UserRoleStudent,
			StudentID: row.StudentID,
			Branch:    row.Branch,
		})
		var verr *exam.ValidationError
		switch {
		case err == nil:
			resp.Created++
		case errors.Is(err, store.ErrDuplicateEmail), errors.As(err, &verr):
			slog.Info("skipped student row", "email", row.Email, "reason", err)
			resp.Skipped++
		default:
			writeError(w, r, err)
			return
		}
	}
	resp.Message = appI18n.Td(r.Context(), "ImportSummary", map[string]any{"Created": resp.Created, "Skipped": resp.Skipped})
	slog.Info("imported students", "created", resp.Created, "skipped", resp.Skipped)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.store.ListStudents(r.Context())
	if err != nil {
		writeError(w, r, fmt.Errorf("list students: %w", err))
		return
	}
	if students == nil {
		students = []model.User{}
	}
	writeJSON(w, http.StatusOK, students)
}
