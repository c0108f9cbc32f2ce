package service

import (
	"fmt"
	"net/http"

	"pastquestions-backend/internal/api"
	"pastquestions-backend/internal/questions"
)

const defaultAlocCount = 50

// FetchAloc handles GET /fetch-aloc, questions whose body is already stored
// are skipped.
func (s Service) FetchAloc(w http.ResponseWriter, r *http.Request) {
	if s.aloc == nil {
		writeError(w, http.StatusUnauthorized, "ALOC access token is missing. Set ALOC_TOKEN in the environment.")
		return
	}
	subject := queryString(r, "subject")
	if subject == "" {
		writeError(w, http.StatusUnprocessableEntity, "query parameter 'subject' is required")
		return
	}
	count, err := queryInt(r, "count", defaultAlocCount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	records, err := s.aloc.GetMultiple(r.Context(), subject, count)
	if err != nil {
		s.tel.ReportWarning(report_aloc_fetch, err, subject)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to fetch data from ALOC: %v", err))
		return
	}

	qs := make([]questions.Question, len(records))
	for i, record := range records {
		qs[i] = record.ToQuestion(subject)
	}
	added, err := s.store.InsertNewBodies(r.Context(), qs)
	if err != nil {
		s.tel.ReportBroken(report_aloc_fetch, err, subject)
		writeError(w, http.StatusInternalServerError, "failed to store questions")
		return
	}
	s.tel.ReportCount(report_aloc_added, int64(added))

	writeJSON(w, http.StatusOK, api.Message{
		Message: fmt.Sprintf("Added %d questions for %s using ALOC source.", added, subject),
		Added:   added,
	})
}
