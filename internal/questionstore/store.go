package questionstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"pastquestions-backend/internal/db"
	"pastquestions-backend/internal/questions"
	"pastquestions-backend/pkg/textutil"
)

// Store persists questions, every insert goes through duplicate detection.
type Store struct {
	db     *sql.DB
	qry    *db.Queries
	makeTx db.MakeTx
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:     database,
		qry:    db.New(database),
		makeTx: db.NewMakeTx(database),
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullYear(year *int) sql.NullInt64 {
	if year == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*year), Valid: true}
}

func fromRow(row db.Question) (questions.Stored, error) {
	options := []string{}
	if row.Options != "" {
		err := json.Unmarshal([]byte(row.Options), &options)
		if err != nil {
			return questions.Stored{}, fmt.Errorf("question %d: decode options: %w", row.ID, err)
		}
	}
	var year *int
	if row.Year.Valid {
		year = questions.YearPtr(int(row.Year.Int64))
	}
	return questions.Stored{
		ID: row.ID,
		Question: questions.Question{
			Body:         row.Body,
			Options:      options,
			Answer:       row.Answer,
			Explanation:  row.Explanation,
			Subject:      row.Subject,
			Topic:        row.Topic,
			Year:         year,
			ExamType:     row.ExamType,
			QuestionType: row.QuestionType,
			SourceURL:    row.SourceUrl.String,
		},
	}, nil
}

type ListFilter struct {
	Subject      string
	Year         *int
	ExamType     string
	QuestionType string
	Topic        string
}

// List returns the stored questions matching every non-empty filter field,
// text fields compare case-insensitively.
func (s Store) List(ctx context.Context, filter ListFilter) ([]questions.Stored, error) {
	rows, err := s.qry.ListQuestions(ctx, db.ListQuestionsParams{
		Subject:      nullString(filter.Subject),
		Year:         nullYear(filter.Year),
		ExamType:     nullString(filter.ExamType),
		QuestionType: nullString(filter.QuestionType),
		Topic:        nullString(filter.Topic),
	})
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	out := make([]questions.Stored, 0, len(rows))
	for _, row := range rows {
		stored, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	return out, nil
}

func insert(ctx context.Context, qry *db.Queries, q questions.Question) (int64, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return 0, err
	}
	return qry.CreateQuestion(ctx, db.CreateQuestionParams{
		Body:         q.Body,
		Options:      string(options),
		Answer:       q.Answer,
		Explanation:  q.Explanation,
		Subject:      q.Subject,
		Topic:        q.Topic,
		Year:         nullYear(q.Year),
		ExamType:     q.ExamType,
		QuestionType: q.QuestionType,
		SourceUrl:    nullString(q.SourceURL),
	})
}

// InsertBulk normalizes and inserts `qs` in one transaction. A question is
// skipped when its source url is already stored, or when a question with the
// same body, subject, year and exam type is. It returns how many were added.
func (s Store) InsertBulk(ctx context.Context, qs []questions.Question) (int, error) {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("bulk insert: %w", err)
	}
	defer discard()

	added := 0
	for _, q := range qs {
		q = q.Normalize()
		_, err := tx.FindDuplicate(ctx, db.FindDuplicateParams{
			SourceUrl: nullString(q.SourceURL),
			Body:      q.Body,
			Subject:   q.Subject,
			Year:      nullYear(q.Year),
			ExamType:  q.ExamType,
		})
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("bulk insert: find duplicate: %w", err)
		}
		_, err = insert(ctx, tx, q)
		if err != nil {
			return 0, fmt.Errorf("bulk insert: %w", err)
		}
		added++
	}

	err = commit()
	if err != nil {
		return 0, fmt.Errorf("bulk insert: commit: %w", err)
	}
	return added, nil
}

// InsertNewBodies inserts the questions whose body is not stored yet, sources
// without stable urls are deduplicated this way.
func (s Store) InsertNewBodies(ctx context.Context, qs []questions.Question) (int, error) {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("insert new bodies: %w", err)
	}
	defer discard()

	added := 0
	for _, q := range qs {
		q = q.Normalize()
		count, err := tx.CountQuestionsWithBody(ctx, q.Body)
		if err != nil {
			return 0, fmt.Errorf("insert new bodies: %w", err)
		}
		if count > 0 {
			continue
		}
		_, err = insert(ctx, tx, q)
		if err != nil {
			return 0, fmt.Errorf("insert new bodies: %w", err)
		}
		added++
	}

	err = commit()
	if err != nil {
		return 0, fmt.Errorf("insert new bodies: commit: %w", err)
	}
	return added, nil
}

// SourceURLs returns the source urls stored for a subject.
func (s Store) SourceURLs(ctx context.Context, subject string) ([]string, error) {
	rows, err := s.qry.GetSourceURLsForSubject(ctx, strings.ToLower(strings.TrimSpace(subject)))
	if err != nil {
		return nil, fmt.Errorf("source urls: %w", err)
	}
	urls := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Valid && r.String != "" {
			urls = append(urls, r.String)
		}
	}
	return urls, nil
}

type Filters struct {
	Subjects      []string `json:"subjects"`
	Years         []int    `json:"years"`
	Topics        []string `json:"topics"`
	QuestionTypes []string `json:"question_types"`
}

func uniqueSorted(values []string, transform func(string) string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, v := range values {
		if v == "" {
			continue
		}
		v = transform(v)
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Filters lists the values a client can filter on. Subjects always cover the
// whole store, the other facets are narrowed by `subject` and `examType`.
func (s Store) Filters(ctx context.Context, subject, examType string) (Filters, error) {
	subjects, err := s.qry.GetDistinctSubjects(ctx)
	if err != nil {
		return Filters{}, fmt.Errorf("filters: subjects: %w", err)
	}
	years, err := s.qry.GetDistinctYears(ctx, db.GetDistinctYearsParams{
		Subject:  nullString(subject),
		ExamType: nullString(examType),
	})
	if err != nil {
		return Filters{}, fmt.Errorf("filters: years: %w", err)
	}
	topics, err := s.qry.GetDistinctTopics(ctx, db.GetDistinctTopicsParams{
		Subject:  nullString(subject),
		ExamType: nullString(examType),
	})
	if err != nil {
		return Filters{}, fmt.Errorf("filters: topics: %w", err)
	}
	qtypes, err := s.qry.GetDistinctQuestionTypes(ctx, db.GetDistinctQuestionTypesParams{
		Subject:  nullString(subject),
		ExamType: nullString(examType),
	})
	if err != nil {
		return Filters{}, fmt.Errorf("filters: question types: %w", err)
	}

	out := Filters{
		Subjects:      uniqueSorted(subjects, textutil.Capitalize),
		Years:         []int{},
		Topics:        uniqueSorted(topics, func(s string) string { return s }),
		QuestionTypes: uniqueSorted(qtypes, strings.ToLower),
	}
	for _, y := range years {
		if y.Valid && y.Int64 != 0 {
			out.Years = append(out.Years, int(y.Int64))
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out.Years)))
	return out, nil
}

// Clear deletes every stored question and returns how many there were.
func (s Store) Clear(ctx context.Context) (int64, error) {
	count, err := s.qry.DeleteAllQuestions(ctx)
	if err != nil {
		return 0, fmt.Errorf("clear questions: %w", err)
	}
	return count, nil
}
