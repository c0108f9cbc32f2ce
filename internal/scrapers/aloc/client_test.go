package aloc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"pastquestions-backend/internal/components/telemetry"
	"pastquestions-backend/internal/questions"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const multipleFixture = `{
	"subject": "chemistry",
	"status": 200,
	"data": [
		{
			"id": 41,
			"question": "Which of these is an alkali metal?",
			"option": {"a": "Sodium", "b": "Iron", "c": "Copper", "d": "Zinc", "e": ""},
			"section": "",
			"image": "",
			"answer": "a",
			"solution": "Sodium is in group 1.",
			"examtype": "UTME",
			"examyear": "2010"
		},
		{
			"id": "42",
			"question": "Pick the odd one",
			"option": {"a": "1", "b": "2", "c": "3", "d": "4", "e": "5"},
			"answer": "",
			"examtype": "",
			"examyear": 2014
		},
		{
			"id": 43,
			"question": "Undated",
			"option": {"a": "x", "b": "y", "c": "z", "d": "w"},
			"answer": "c",
			"examtype": "WAEC",
			"examyear": "2010/2011"
		}
	]
}`

func TestGetMultiple(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v2/m", r.URL.Path)
		require.Equal(t, "secret", r.Header.Get("AccessToken"))
		require.Equal(t, "chemistry", r.URL.Query().Get("subject"))
		require.Equal(t, "3", r.URL.Query().Get("count"))
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(multipleFixture))
	}))
	defer srv.Close()

	client, err := NewClient(Options{BaseURL: srv.URL + "/api/v2", Token: "secret"}, telemetry.NewRecorder())
	require.NoError(t, err)

	records, err := client.GetMultiple(context.Background(), "chemistry", 3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	converted := make([]questions.Question, len(records))
	for i, r := range records {
		converted[i] = r.ToQuestion("Chemistry")
	}

	expected := []questions.Question{
		{
			Body:         "Which of these is an alkali metal?",
			Options:      []string{"Sodium", "Iron", "Copper", "Zinc"},
			Answer:       "A",
			Explanation:  "Sodium is in group 1.",
			Subject:      "chemistry",
			Topic:        questions.DefaultTopic,
			Year:         questions.YearPtr(2010),
			ExamType:     "utme",
			QuestionType: questions.TypeObjective,
			SourceURL:    "aloc-41",
		},
		{
			Body:         "Pick the odd one",
			Options:      []string{"1", "2", "3", "4", "5"},
			Answer:       "A",
			Subject:      "chemistry",
			Topic:        questions.DefaultTopic,
			Year:         questions.YearPtr(2014),
			ExamType:     "jamb",
			QuestionType: questions.TypeObjective,
			SourceURL:    "aloc-42",
		},
		{
			Body:         "Undated",
			Options:      []string{"x", "y", "z", "w"},
			Answer:       "C",
			Subject:      "chemistry",
			Topic:        questions.DefaultTopic,
			ExamType:     "waec",
			QuestionType: questions.TypeObjective,
			SourceURL:    "aloc-43",
		},
	}
	if diff := cmp.Diff(expected, converted); diff != "" {
		t.Fatal(diff)
	}
}

func TestGetQuestion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/q", r.URL.Path)
		require.Equal(t, "2019", r.URL.Query().Get("year"))
		require.Equal(t, "utme", r.URL.Query().Get("type"))
		w.Header().Set("content-type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"subject": "physics",
			"status":  200,
			"data": map[string]any{
				"id":       7,
				"question": "Unit of force?",
				"option":   map[string]string{"a": "Newton", "b": "Joule", "c": "Watt", "d": "Pascal"},
				"answer":   "a",
				"examyear": "2019",
			},
		})
	}))
	defer srv.Close()

	client, err := NewClient(Options{BaseURL: srv.URL, Token: "secret"}, telemetry.NewRecorder())
	require.NoError(t, err)

	record, err := client.GetQuestion(context.Background(), "physics", 2019, "utme")
	require.NoError(t, err)
	require.Equal(t, "Unit of force?", record.Question)
	require.Equal(t, looseString("7"), record.ID)
}

func TestUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": "invalid access token"}`))
	}))
	defer srv.Close()

	tel := telemetry.NewRecorder()
	client, err := NewClient(Options{BaseURL: srv.URL, Token: "wrong"}, tel)
	require.NoError(t, err)

	_, err = client.GetMultiple(context.Background(), "chemistry", 10)
	require.ErrorContains(t, err, "invalid access token")
	require.Len(t, tel.Reports(report_client_get_multiple), 1)
}

func TestMissingToken(t *testing.T) {
	_, err := NewClient(Options{}, telemetry.NewRecorder())
	require.True(t, errors.Is(err, ErrMissingToken))
}
