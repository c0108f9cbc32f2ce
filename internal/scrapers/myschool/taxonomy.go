package myschool

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"pastquestions-backend/internal/questions"
)

var ErrInvalidParams = errors.New("invalid scrape parameters")

// Bucket is one (exam type, question type, year) listing on the site, its pages
// are walked from 1 upward.
type Bucket struct {
	ExamType string
	// QuestionType is the site's listing type: objective, theory or practical.
	QuestionType string
	Year         int
}

// StoredType is the question type records from this bucket are stored as.
func (b Bucket) StoredType() string {
	return questions.NormalizeQuestionType(b.QuestionType)
}

// Coordinate addresses a single listing page.
type Coordinate struct {
	Bucket
	Page int
}

func (b Bucket) At(page int) Coordinate {
	return Coordinate{Bucket: b, Page: page}
}

// URL returns the listing page url under `subjectUrl`, parameters are in the site's own order.
func (c Coordinate) URL(subjectUrl string) string {
	return fmt.Sprintf(
		"%s?page=%d&exam_type=%s&exam_year=%d&type=%s",
		strings.TrimRight(subjectUrl, "/?"),
		c.Page,
		url.QueryEscape(c.ExamType),
		c.Year,
		url.QueryEscape(c.QuestionType),
	)
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%s %d (%s) page %d", c.ExamType, c.Year, c.QuestionType, c.Page)
}

// listingTypes expands a requested question type into the site's listing types.
func listingTypes(questionType string) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(questionType)) {
	case "":
		return []string{questions.TypeObjective, questions.TypeTheory, questions.TypePractical}, nil
	case questions.TypeObjective:
		return []string{questions.TypeObjective}, nil
	case questions.TypeTheory:
		return []string{questions.TypeTheory, questions.TypePractical}, nil
	case questions.TypePractical:
		return []string{questions.TypePractical}, nil
	}
	return nil, fmt.Errorf("%w: unknown question type '%s'", ErrInvalidParams, questionType)
}

// PlanBuckets lists every bucket a walk visits, in order: exam types, then
// listing types, then years from maxYear down to minYear.
func PlanBuckets(examType, questionType string, minYear, maxYear int) ([]Bucket, error) {
	if minYear > maxYear {
		return nil, fmt.Errorf("%w: min year %d is after max year %d", ErrInvalidParams, minYear, maxYear)
	}
	qtypes, err := listingTypes(questionType)
	if err != nil {
		return nil, err
	}

	examTypes := questions.ExamTypes
	if examType != "" {
		examTypes = []string{strings.ToLower(strings.TrimSpace(examType))}
	}

	var plan []Bucket
	for _, etype := range examTypes {
		for _, qtype := range qtypes {
			for year := maxYear; year >= minYear; year-- {
				plan = append(plan, Bucket{
					ExamType:     etype,
					QuestionType: qtype,
					Year:         year,
				})
			}
		}
	}
	return plan, nil
}
