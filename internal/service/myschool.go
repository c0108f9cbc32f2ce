package service

import (
	"errors"
	"fmt"
	"net/http"

	"pastquestions-backend/internal/api"
	"pastquestions-backend/internal/scrapers/myschool"
)

const blockedDetail = "MySchool is blocking this server's IP address (Cloudflare). Use the ALOC source for ingestion."

// MySchoolSubjects handles GET /myschool-subjects.
func (s Service) MySchoolSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := s.myschool.ScrapeSubjects(r.Context())
	if errors.Is(err, myschool.ErrBlocked) {
		writeError(w, http.StatusForbidden, blockedDetail)
		return
	}
	if err != nil {
		s.tel.ReportWarning(report_myschool_subjects, err)
		writeError(w, http.StatusBadGateway, fmt.Sprintf("failed to list myschool subjects: %v", err))
		return
	}

	out := make([]api.Subject, len(subjects))
	for i, subject := range subjects {
		out[i] = api.Subject(subject)
	}
	writeJSON(w, http.StatusOK, out)
}

// ScrapeMySchool handles POST /scrape/myschool, it scrapes a subject and
// stores what is new.
func (s Service) ScrapeMySchool(w http.ResponseWriter, r *http.Request) {
	subject := queryString(r, "subject")
	if subject == "" {
		writeError(w, http.StatusUnprocessableEntity, "query parameter 'subject' is required")
		return
	}
	examType := queryString(r, "exam_type")
	if examType == "" {
		examType = "jamb"
	}
	year, err := queryYear(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", myschool.DefaultLimit)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	existing, err := s.store.SourceURLs(r.Context(), subject)
	if err != nil {
		s.tel.ReportBroken(report_myschool_scrape, err, subject)
		writeError(w, http.StatusInternalServerError, "failed to read stored questions")
		return
	}

	params := myschool.ScrapeParams{
		SubjectURL:   s.myschool.SubjectURL(subject),
		Subject:      subject,
		Limit:        limit,
		MinYear:      myschool.DefaultMinYear,
		ExistingURLs: existing,
		ExamType:     examType,
		QuestionType: queryString(r, "question_type"),
	}
	if year != nil {
		params.MinYear = *year
		params.MaxYear = *year
	}

	result, err := s.myschool.ScrapeQuestions(r.Context(), params)
	if errors.Is(err, myschool.ErrInvalidParams) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		s.tel.ReportWarning(report_myschool_scrape, err, subject)
		writeError(w, http.StatusBadGateway, fmt.Sprintf("scrape failed: %v", err))
		return
	}
	if len(result.Questions) == 0 && result.Blocked {
		s.tel.ReportWarning(report_myschool_scrape, myschool.ErrBlocked, subject, result.SessionID)
		writeError(w, http.StatusForbidden, blockedDetail)
		return
	}

	added, err := s.store.InsertBulk(r.Context(), result.Questions)
	if err != nil {
		s.tel.ReportBroken(report_myschool_scrape, err, subject)
		writeError(w, http.StatusInternalServerError, "failed to store questions")
		return
	}
	s.tel.ReportCount(report_myschool_added, int64(added))

	writeJSON(w, http.StatusOK, api.Message{
		Message: fmt.Sprintf("Scraped and added %d questions for %s (Year %d+)", added, subject, params.MinYear),
		Added:   added,
	})
}
