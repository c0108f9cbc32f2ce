package service

import (
	"encoding/json"
	"fmt"
	"net/http"

	"pastquestions-backend/internal/api"
	"pastquestions-backend/internal/components/chrono"
	"pastquestions-backend/internal/questionstore"
)

// ListQuestions handles GET /questions.
func (s Service) ListQuestions(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	out, err := s.store.List(r.Context(), questionstore.ListFilter{
		Subject:      queryString(r, "subject"),
		Year:         year,
		ExamType:     queryString(r, "exam_type"),
		QuestionType: queryString(r, "question_type"),
		Topic:        queryString(r, "topic"),
	})
	if err != nil {
		s.tel.ReportBroken(report_questions_list, err)
		writeError(w, http.StatusInternalServerError, "failed to list questions")
		return
	}
	writeJSON(w, http.StatusOK, api.ListQuestionsResponse(out))
}

// BulkUpload handles POST /questions/bulk, records already stored are skipped.
func (s Service) BulkUpload(w http.ResponseWriter, r *http.Request) {
	var body api.BulkUploadRequest
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	currentYear := chrono.CurrentYear(s.time)
	for i, q := range body {
		err := q.Normalize().Validate(currentYear)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("question %d: %v", i, err))
			return
		}
	}

	added, err := s.store.InsertBulk(r.Context(), body)
	if err != nil {
		s.tel.ReportBroken(report_questions_bulk, err, len(body))
		writeError(w, http.StatusInternalServerError, "failed to store questions")
		return
	}
	s.tel.ReportCount(report_questions_bulk, int64(added))

	writeJSON(w, http.StatusOK, api.Message{
		Message: fmt.Sprintf("Bulk upload complete. Added %d new questions.", added),
		Added:   added,
	})
}

// Filters handles GET /filters.
func (s Service) Filters(w http.ResponseWriter, r *http.Request) {
	filters, err := s.store.Filters(r.Context(), queryString(r, "subject"), queryString(r, "exam_type"))
	if err != nil {
		s.tel.ReportBroken(report_filters, err)
		writeError(w, http.StatusInternalServerError, "failed to query filters")
		return
	}
	writeJSON(w, http.StatusOK, api.Filters(filters))
}

// ClearQuestions handles DELETE /questions.
func (s Service) ClearQuestions(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.store.Clear(r.Context())
	if err != nil {
		s.tel.ReportBroken(report_questions_clear, err)
		writeError(w, http.StatusInternalServerError, "failed to delete questions")
		return
	}
	s.tel.ReportCount(report_questions_clear, deleted)
	writeJSON(w, http.StatusOK, api.Message{Message: "All questions have been deleted from the database"})
}

func (s Service) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.Health{Status: "healthy", Message: "Past Questions API is running"})
}
