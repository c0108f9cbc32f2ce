package fuzzing

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"pastquestions-backend/internal/components/telemetry"
	"pastquestions-backend/internal/db"
	"pastquestions-backend/internal/questions"
	"pastquestions-backend/internal/questionstore"
	"pastquestions-backend/pkg/migrations"
	"pastquestions-backend/pkg/textutil"
)

// StoreProvider creates question stores backed by in-memory sqlite, each with
// a pool of records that overlap so dedup paths are hit often.
type StoreProvider struct{}

func (StoreProvider) CreateTarget(ctx context.Context, tel telemetry.API, rndm *rand.Rand) (Target, error) {
	sqlite, err := migrations.OpenAndMigrateDB(ctx, db.Schema, migrations.Database{File: ":memory:"})
	if err != nil {
		return nil, err
	}

	target := &StoreTarget{
		store:   questionstore.NewStore(sqlite),
		rndm:    rndm,
		variant: RandomSwitch(6, 2, 1, 1),
		close:   func() { sqlite.Close() },
	}
	for i := 0; i < 12; i++ {
		q := questions.Question{
			Body:         fmt.Sprintf("%d. %s?", i, RandomSentence(rndm, 3+rndm.Intn(6))),
			Options:      []string{"A one", "B two", "C three", "D four"},
			Answer:       Pick(rndm, []string{"A", "B", "C", "D"}),
			Subject:      Pick(rndm, []string{"chemistry", "biology", "english language"}),
			ExamType:     Pick(rndm, []string{"jamb", "waec", "neco"}),
			QuestionType: questions.TypeObjective,
		}
		if rndm.Intn(2) == 0 {
			q.Topic = Pick(rndm, []string{"Organic chemistry", "Ecology", "Comprehension"})
		}
		if rndm.Intn(4) > 0 {
			q.Year = questions.YearPtr(2000 + rndm.Intn(25))
		}
		if rndm.Intn(5) == 0 {
			q.QuestionType = Pick(rndm, []string{questions.TypeTheory, questions.TypePractical})
			q.Options = nil
		}
		if rndm.Intn(3) > 0 {
			q.SourceURL = fmt.Sprintf("https://myschool.ng/classroom/%s/%d", textutil.Slug(q.Subject, "-"), i)
		}
		target.pool = append(target.pool, q)
	}
	return target, nil
}

// StoreTarget checks the storage invariants:
//   - no two rows share a source url
//   - no two rows share body, subject, year and exam type
//   - every row is normalized
//   - insert counts match the rows that appeared
type StoreTarget struct {
	store   questionstore.Store
	rndm    *rand.Rand
	pool    []questions.Question
	variant func(rndm *rand.Rand) int
	close   func()
}

// randomRecord picks a pool record, sometimes reshaped the way another source
// would send it.
func (t *StoreTarget) randomRecord() questions.Question {
	q := Pick(t.rndm, t.pool)
	q.Options = append([]string(nil), q.Options...)
	switch t.variant(t.rndm) {
	case 1:
		// same record, different casing
		q.Subject = strings.ToUpper(q.Subject)
		q.ExamType = strings.ToUpper(q.ExamType)
	case 2:
		// same text without a url in another year
		q.SourceURL = ""
		q.Year = questions.YearPtr(2000 + t.rndm.Intn(25))
	case 3:
		q.Topic = ""
	}
	return q
}

func (t *StoreTarget) randomBatch() []questions.Question {
	batch := make([]questions.Question, t.rndm.Intn(6))
	for i := range batch {
		batch[i] = t.randomRecord()
	}
	return batch
}

func yearKey(year *int) string {
	if year == nil {
		return "null"
	}
	return fmt.Sprint(*year)
}

func (t *StoreTarget) checkRows(ctx context.Context, res *Results) ([]questions.Stored, error) {
	rows, err := t.store.List(ctx, questionstore.ListFilter{})
	if err != nil {
		return nil, err
	}

	urls := map[string]int64{}
	keys := map[string]int64{}
	for _, row := range rows {
		if row.SourceURL != "" {
			if other, ok := urls[row.SourceURL]; ok {
				res.Fail(fmt.Errorf("rows %d and %d share source url %s", other, row.ID, row.SourceURL))
			}
			urls[row.SourceURL] = row.ID
		}
		key := strings.Join([]string{row.Body, row.Subject, yearKey(row.Year), row.ExamType}, "|")
		if other, ok := keys[key]; ok {
			res.Fail(fmt.Errorf("rows %d and %d are the same question: %s", other, row.ID, key))
		}
		keys[key] = row.ID

		if normalized := row.Question.Normalize(); normalized.Subject != row.Subject ||
			normalized.ExamType != row.ExamType ||
			normalized.QuestionType != row.QuestionType ||
			normalized.Topic != row.Topic {
			res.Fail(fmt.Errorf("row %d is not normalized: %+v", row.ID, row.Question))
		}
	}
	return rows, nil
}

func (t *StoreTarget) StepInsertBulk(ctx context.Context, res *Results) error {
	before, err := t.checkRows(ctx, res)
	if err != nil {
		return err
	}
	added, err := t.store.InsertBulk(ctx, t.randomBatch())
	if err != nil {
		return err
	}
	after, err := t.checkRows(ctx, res)
	if err != nil {
		return err
	}
	if len(after)-len(before) != added {
		res.Fail(fmt.Errorf("insert bulk reported %d added but %d rows appeared", added, len(after)-len(before)))
	}
	return nil
}

func (t *StoreTarget) StepInsertNewBodies(ctx context.Context, res *Results) error {
	before, err := t.checkRows(ctx, res)
	if err != nil {
		return err
	}
	bodies := map[string]bool{}
	for _, row := range before {
		bodies[row.Body] = true
	}

	batch := t.randomBatch()
	fresh := map[string]bool{}
	for _, q := range batch {
		if !bodies[q.Body] {
			fresh[q.Body] = true
		}
	}

	added, err := t.store.InsertNewBodies(ctx, batch)
	if err != nil {
		return err
	}
	if added != len(fresh) {
		res.Fail(fmt.Errorf("insert new bodies added %d, expected %d", added, len(fresh)))
	}
	_, err = t.checkRows(ctx, res)
	return err
}

func (t *StoreTarget) StepFilters(ctx context.Context, res *Results) error {
	filters, err := t.store.Filters(ctx, "", "")
	if err != nil {
		return err
	}
	for i := 1; i < len(filters.Years); i++ {
		if filters.Years[i] >= filters.Years[i-1] {
			res.Fail(fmt.Errorf("years are not unique and newest first: %v", filters.Years))
			break
		}
	}
	if !sort.StringsAreSorted(filters.Subjects) {
		res.Fail(fmt.Errorf("subjects are not sorted: %v", filters.Subjects))
	}
	for _, subject := range filters.Subjects {
		if subject != textutil.Capitalize(subject) {
			res.Fail(fmt.Errorf("subject '%s' is not capitalized", subject))
		}
	}
	return nil
}

func (t *StoreTarget) StepClear(ctx context.Context, res *Results) error {
	// clearing is rare so state has time to build up
	if t.rndm.Intn(10) > 0 {
		return nil
	}
	before, err := t.checkRows(ctx, res)
	if err != nil {
		return err
	}
	deleted, err := t.store.Clear(ctx)
	if err != nil {
		return err
	}
	if int(deleted) != len(before) {
		res.Fail(fmt.Errorf("clear deleted %d of %d rows", deleted, len(before)))
	}
	after, err := t.checkRows(ctx, res)
	if err != nil {
		return err
	}
	if len(after) != 0 {
		res.Fail(fmt.Errorf("%d rows left after clear", len(after)))
	}
	return nil
}

func (t *StoreTarget) OnEnd(ctx context.Context, res *Results) {
	t.close()
}
