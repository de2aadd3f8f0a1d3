package handler

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pavelanni/examhall/internal/exam"
	appI18n "github.com/pavelanni/examhall/internal/i18n"
	"github.com/pavelanni/examhall/internal/model"
	"github.com/pavelanni/examhall/internal/sheet"
)

// formFile returns the first uploaded file found under any of names.
func formFile(r *http.Request, names ...string) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	for _, name := range names {
		f, fh, err := r.FormFile(name)
		if err == nil {
			return f, fh, nil
		}
		if !errors.Is(err, http.ErrMissingFile) {
			return nil, nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	return nil, nil, fmt.Errorf("%w: missing file field %q", errBadRequest, names[0])
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// newTestFromForm reads a test definition from a multipart form whose
// questions come from an uploaded spreadsheet.
func newTestFromForm(r *http.Request) (exam.NewTest, error) {
	file, _, err := formFile(r, "excelFile", "file")
	if err != nil {
		return exam.NewTest{}, err
	}
	defer file.Close()

	questions, err := sheet.ParseQuestions(file)
	if err != nil {
		return exam.NewTest{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	nt := exam.NewTest{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Branch:      r.FormValue("branch"),
		Questions:   questions,
	}
	if v := strings.TrimSpace(r.FormValue("duration")); v != "" {
		if nt.Duration, err = strconv.Atoi(v); err != nil {
			return exam.NewTest{}, fmt.Errorf("%w: invalid duration", errBadRequest)
		}
	}
	if v := strings.TrimSpace(r.FormValue("questionsPerStudent")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return exam.NewTest{}, fmt.Errorf("%w: invalid questionsPerStudent", errBadRequest)
		}
		nt.QuestionsPerStudent = &n
	}
	if v := strings.TrimSpace(r.FormValue("scheduledAt")); v != "" {
		at, err := parseFormTime(v)
		if err != nil {
			return exam.NewTest{}, fmt.Errorf("%w: invalid scheduledAt", errBadRequest)
		}
		nt.ScheduledAt = &at
	}
	return nt, nil
}

// parseFormTime accepts RFC 3339 and the value of an HTML datetime-local input.
func parseFormTime(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04", v, time.Local)
}

type testResponse struct {
	Message string     `json:"message"`
	Test    model.Test `json:"test"`
}

func (h *Handler) handleCreateTest(w http.ResponseWriter, r *http.Request) {
	var (
		nt  exam.NewTest
		err error
	)
	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		nt, err = newTestFromForm(r)
	} else {
		err = decodeJSON(r, &nt)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.exams.CreateTest(r.Context(), actor(r), nt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, testResponse{Message: appI18n.T(r.Context(), "TestCreated"), Test: t})
}

func (h *Handler) handleListTests(w http.ResponseWriter, r *http.Request) {
	tests, err := h.exams.ListTests(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tests)
}

func (h *Handler) handleGetTest(w http.ResponseWriter, r *http.Request) {
	t, err := h.exams.RevealTest(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleEndTest(w http.ResponseWriter, r *http.Request) {
	t, err := h.exams.EndTest(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, testResponse{Message: appI18n.T(r.Context(), "TestEndedOK"), Test: t})
}

func (h *Handler) handleStartAttempt(w http.ResponseWriter, r *http.Request) {
	sess, err := h.exams.BeginOrResumeAttempt(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type submitRequest struct {
	Answers   []model.SubmittedAnswer `json:"answers"`
	TimeSpent int                     `json:"timeSpent"`
}

type submitResponse struct {
	Message     string        `json:"message"`
	Score       int           `json:"score"`
	TotalPoints int           `json:"totalPoints"`
	Percentage  float64       `json:"percentage"`
	Attempt     model.Attempt `json:"attempt"`
}

func (h *Handler) handleSubmitAttempt(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.exams.SubmitAttempt(r.Context(), actor(r), chi.URLParam(r, "id"), req.Answers, req.TimeSpent)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{
		Message:     appI18n.T(r.Context(), "TestSubmitted"),
		Score:       a.Score,
		TotalPoints: a.TotalPoints,
		Percentage:  a.Percentage,
		Attempt:     a,
	})
}

func (h *Handler) handleActiveAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.exams.ActiveAttempts(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *Handler) handleStudentAttempt(w http.ResponseWriter, r *http.Request) {
	studentID, err := pathInt64(r, "studentId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	detail, err := h.exams.StudentAttempt(r.Context(), actor(r), chi.URLParam(r, "id"), studentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	detail.Student, err = h.store.GetUserByID(r.Context(), studentID)
	if err != nil {
		writeError(w, r, fmt.Errorf("load student %d: %w", studentID, err))
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleMyAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.exams.MyAttempts(r.Context(), actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}
