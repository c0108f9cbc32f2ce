package service

import "net/http"

// Handler routes the REST API, `staticDir` is served under / when it is set.
func (s Service) Handler(staticDir string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /questions", s.ListQuestions)
	mux.HandleFunc("POST /questions/bulk", s.BulkUpload)
	mux.HandleFunc("DELETE /questions", s.ClearQuestions)
	mux.HandleFunc("GET /clear-questions", s.ClearQuestions)
	mux.HandleFunc("GET /filters", s.Filters)
	mux.HandleFunc("GET /fetch-aloc", s.FetchAloc)
	mux.HandleFunc("GET /myschool-subjects", s.MySchoolSubjects)
	mux.HandleFunc("POST /scrape/myschool", s.ScrapeMySchool)
	mux.HandleFunc("GET /api/health", s.Health)
	if staticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(staticDir)))
	}

	return chain(mux, withCORS, s.withRecover)
}
