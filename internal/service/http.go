package service

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"pastquestions-backend/internal/api"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, api.Error{Detail: detail})
}

func queryString(r *http.Request, name string) string {
	return strings.TrimSpace(r.URL.Query().Get(name))
}

// queryInt parses an optional integer query parameter, `fallback` is
// returned when it is absent.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	value := queryString(r, name)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("query parameter '%s' must be an integer, got '%s'", name, value)
	}
	return parsed, nil
}

func queryYear(r *http.Request) (*int, error) {
	year, err := queryInt(r, "year", 0)
	if err != nil {
		return nil, err
	}
	if year == 0 {
		return nil, nil
	}
	return &year, nil
}
