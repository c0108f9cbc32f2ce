// Package questions holds the record every source is normalized into.
package questions

import (
	"fmt"
	"strings"
)

const (
	TypeObjective = "objective"
	TypeTheory    = "theory"
	// TypePractical only exists as a listing bucket on myschool, it is stored as theory.
	TypePractical = "practical"

	DefaultTopic    = "General"
	DefaultExamType = "jamb"

	MinYear = 1950
)

// ExamTypes are the exam bodies walked when no specific one is requested.
var ExamTypes = []string{"jamb", "waec", "neco"}

// Question is the normalized past question. Its JSON form is what the bulk
// upload endpoint accepts and what the partition cache stores.
type Question struct {
	Body         string   `json:"body"`
	Options      []string `json:"options"`
	Answer       string   `json:"answer"`
	Explanation  string   `json:"explanation"`
	Subject      string   `json:"subject"`
	Topic        string   `json:"topic"`
	Year         *int     `json:"year"`
	ExamType     string   `json:"exam_type"`
	QuestionType string   `json:"question_type"`
	SourceURL    string   `json:"source_url"`
}

// Stored is a question that has been given an id by storage.
type Stored struct {
	ID int64 `json:"id"`
	Question
}

// YearInRange reports whether `year` is a plausible exam year given the current year.
func YearInRange(year, currentYear int) bool {
	return year >= MinYear && year <= currentYear+1
}

// YearPtr is a shorthand for taking the address of a year literal.
func YearPtr(year int) *int {
	return &year
}

// YearEquals compares an optional year to a concrete one.
func YearEquals(year *int, other int) bool {
	return year != nil && *year == other
}

// NormalizeQuestionType maps the source-side bucket names onto the two stored types.
func NormalizeQuestionType(qtype string) string {
	switch strings.ToLower(strings.TrimSpace(qtype)) {
	case TypeTheory, TypePractical:
		return TypeTheory
	default:
		return TypeObjective
	}
}

// Normalize fills defaults and lowercases the enum-like fields, it is what
// storage applies before inserting.
func (q Question) Normalize() Question {
	q.Subject = strings.ToLower(strings.TrimSpace(q.Subject))
	q.ExamType = strings.ToLower(strings.TrimSpace(q.ExamType))
	if q.ExamType == "" {
		q.ExamType = DefaultExamType
	}
	q.QuestionType = NormalizeQuestionType(q.QuestionType)
	if strings.TrimSpace(q.Topic) == "" {
		q.Topic = DefaultTopic
	}
	if q.QuestionType != TypeObjective || q.Options == nil {
		q.Options = []string{}
	}
	return q
}

// Validate checks the record invariants.
func (q Question) Validate(currentYear int) error {
	if strings.TrimSpace(q.Body) == "" {
		return fmt.Errorf("question body is empty")
	}
	if len(q.Options) > 5 {
		return fmt.Errorf("question has %d options, at most 5 are allowed", len(q.Options))
	}
	switch q.QuestionType {
	case TypeObjective:
		if len(q.Options) == 0 {
			return fmt.Errorf("objective question has no options")
		}
	case TypeTheory:
		if len(q.Options) > 0 {
			return fmt.Errorf("theory question has options")
		}
	default:
		return fmt.Errorf("unknown question type '%s'", q.QuestionType)
	}
	if q.Year != nil && !YearInRange(*q.Year, currentYear) {
		return fmt.Errorf("year %d is out of range", *q.Year)
	}
	return nil
}
