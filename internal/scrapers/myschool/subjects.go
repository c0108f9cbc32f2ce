package myschool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"pastquestions-backend/pkg/htmlutil"
	"pastquestions-backend/pkg/textutil"

	"github.com/antzucaro/matchr"
)

const (
	report_subjects_cache = "subjects.cache"
)

type Subject struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// slugs under /classroom/ that are site sections rather than subjects
var nonSubjectSlugs = []string{
	"video",
	"news",
	"jamb",
	"waec",
	"neco",
	"novel",
	"brochure",
	"syllabus",
	"questions",
	"performance",
	"exam",
	"member",
	"practice",
	"topics",
}

func isSubjectLink(slug, name string) bool {
	if slug == "" || strings.Contains(slug, "/") || name == "" {
		return false
	}
	lowered := strings.ToLower(slug)
	for _, excluded := range nonSubjectSlugs {
		if strings.Contains(lowered, excluded) {
			return false
		}
	}
	return !strings.Contains(name, "Questions") && !strings.Contains(name, "Exam")
}

func (s *Scraper) readSubjectsCache() []Subject {
	if s.subjectsCache == "" {
		return nil
	}
	contents, err := os.ReadFile(s.subjectsCache)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		s.tel.ReportWarning(report_subjects_cache, err)
		return nil
	}
	var subjects []Subject
	err = json.Unmarshal(contents, &subjects)
	if err != nil {
		s.tel.ReportWarning(report_subjects_cache, fmt.Errorf("parse %s: %w", s.subjectsCache, err))
		return nil
	}
	return subjects
}

func (s *Scraper) writeSubjectsCache(subjects []Subject) {
	if s.subjectsCache == "" {
		return
	}
	contents, err := json.Marshal(subjects)
	if err != nil {
		s.tel.ReportBroken(report_subjects_cache, err)
		return
	}
	err = os.MkdirAll(filepath.Dir(s.subjectsCache), 0755)
	if err == nil {
		err = os.WriteFile(s.subjectsCache, contents, 0644)
	}
	if err != nil {
		s.tel.ReportWarning(report_subjects_cache, err)
	}
}

// ScrapeSubjects lists the subjects on the classroom index, the result is
// cached and the cache is preferred when it has any subjects.
func (s *Scraper) ScrapeSubjects(ctx context.Context) ([]Subject, error) {
	cached := s.readSubjectsCache()
	if len(cached) > 0 {
		return cached, nil
	}

	ctx, span := tracer.Start(ctx, "ScrapeSubjects")
	defer span.End()

	indexUrl := s.BaseURL.JoinPath("classroom").String()
	doc, outcome := s.fetcher.Fetch(ctx, indexUrl)
	if doc == nil {
		if outcome.Blocked {
			return nil, fmt.Errorf("fetch subject index: %w", ErrBlocked)
		}
		if outcome.Err != nil {
			return nil, fmt.Errorf("fetch subject index: %w", outcome.Err)
		}
		return nil, fmt.Errorf("fetch subject index: status %d", outcome.Status)
	}

	prefix := s.BaseURL.JoinPath("classroom").String() + "/"
	seen := map[string]bool{}
	subjects := []Subject{}
	for _, anchor := range htmlutil.GetAnchors(ctx, doc.Find(`a[href*="/classroom/"]`), s.BaseURL) {
		if !strings.HasPrefix(anchor.Href, prefix) {
			continue
		}
		slug := strings.TrimPrefix(anchor.Href, prefix)
		if !isSubjectLink(slug, anchor.Name) || seen[anchor.Href] {
			continue
		}
		seen[anchor.Href] = true
		subjects = append(subjects, Subject{Name: anchor.Name, URL: anchor.Href})
	}

	if len(subjects) == 0 && outcome.Blocked {
		return nil, fmt.Errorf("fetch subject index: %w", ErrBlocked)
	}
	if len(subjects) > 0 {
		s.writeSubjectsCache(subjects)
	}
	return subjects, nil
}

// FindSubject looks up `query` by name or slug. When nothing matches exactly it
// returns up to 3 suggestions ranked by similarity.
func FindSubject(subjects []Subject, query string) (Subject, bool, []Subject) {
	normalized := textutil.NormalizeName(query)
	slug := textutil.Slug(query, "-")

	type scored struct {
		subject Subject
		score   float64
	}
	var ranked []scored
	for _, subject := range subjects {
		if textutil.NormalizeName(subject.Name) == normalized {
			return subject, true, nil
		}
		parsed, err := url.Parse(subject.URL)
		if err == nil && path.Base(parsed.Path) == slug {
			return subject, true, nil
		}
		ranked = append(ranked, scored{
			subject: subject,
			score:   matchr.JaroWinkler(textutil.NormalizeName(subject.Name), normalized, false),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	var suggestions []Subject
	for i := 0; i < len(ranked) && i < 3; i++ {
		suggestions = append(suggestions, ranked[i].subject)
	}
	return Subject{}, false, suggestions
}
