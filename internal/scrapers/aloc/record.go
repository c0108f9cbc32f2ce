package aloc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"pastquestions-backend/internal/questions"
)

// looseString accepts both json strings and numbers, the api is not consistent
// about ids and years.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		err := json.Unmarshal(data, &str)
		if err != nil {
			return err
		}
		*s = looseString(str)
		return nil
	}
	var num json.Number
	err := json.Unmarshal(data, &num)
	if err != nil {
		return fmt.Errorf("expected a string or a number, got %s", data)
	}
	*s = looseString(num.String())
	return nil
}

type RecordOptions struct {
	A string `json:"a"`
	B string `json:"b"`
	C string `json:"c"`
	D string `json:"d"`
	E string `json:"e"`
}

type Record struct {
	ID       looseString   `json:"id"`
	Question string        `json:"question"`
	Option   RecordOptions `json:"option"`
	Section  string        `json:"section"`
	Image    string        `json:"image"`
	Answer   string        `json:"answer"`
	Solution string        `json:"solution"`
	ExamType string        `json:"examtype"`
	ExamYear looseString   `json:"examyear"`
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ToQuestion converts the record into an objective question of `subject`.
func (r Record) ToQuestion(subject string) questions.Question {
	options := []string{r.Option.A, r.Option.B, r.Option.C, r.Option.D}
	if strings.TrimSpace(r.Option.E) != "" {
		options = append(options, r.Option.E)
	}

	answer := strings.ToUpper(strings.TrimSpace(r.Answer))
	if answer == "" {
		answer = "A"
	}

	var year *int
	rawYear := strings.TrimSpace(string(r.ExamYear))
	if isDigits(rawYear) {
		parsed, err := strconv.Atoi(rawYear)
		if err == nil {
			year = &parsed
		}
	}

	examType := strings.ToLower(strings.TrimSpace(r.ExamType))
	if examType == "" {
		examType = questions.DefaultExamType
	}

	sourceUrl := ""
	if r.ID != "" {
		sourceUrl = "aloc-" + string(r.ID)
	}

	return questions.Question{
		Body:         r.Question,
		Options:      options,
		Answer:       answer,
		Explanation:  r.Solution,
		Subject:      strings.ToLower(strings.TrimSpace(subject)),
		Topic:        questions.DefaultTopic,
		Year:         year,
		ExamType:     examType,
		QuestionType: questions.TypeObjective,
		SourceURL:    sourceUrl,
	}
}
