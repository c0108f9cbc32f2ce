// Package partitions caches scraped questions on disk, one JSON array per
// (subject, exam type, year, question type).
package partitions

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pastquestions-backend/internal/assert"
	"pastquestions-backend/internal/components/telemetry"
	"pastquestions-backend/internal/questions"
	"pastquestions-backend/pkg/textutil"
)

const (
	report_cache_load        = "cache.load"
	report_cache_clear_empty = "cache.clear-empty"
)

const FileName = "questions.json"

type Key struct {
	Subject      string
	ExamType     string
	Year         int
	QuestionType string
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%d/%s", k.Subject, k.ExamType, k.Year, k.QuestionType)
}

// Path returns the partition file of `k` under `root`.
func (k Key) Path(root string) string {
	return filepath.Join(
		root,
		textutil.Slug(k.Subject, "_"),
		strings.ToLower(strings.TrimSpace(k.ExamType)),
		strconv.Itoa(k.Year),
		strings.ToLower(strings.TrimSpace(k.QuestionType)),
		FileName,
	)
}

type Cache struct {
	Root string
	tel  telemetry.API
}

func NewCache(root string, tel telemetry.API) Cache {
	assert.NotEmptyStr(root, "cache root")
	assert.NotNil(tel, "telemetry")
	return Cache{
		Root: root,
		tel:  telemetry.NewScopedAPI("partitions", tel),
	}
}

// Load reads a partition. `found` is false when it has never been saved, an
// empty partition that was saved is found with no questions.
func (c Cache) Load(key Key) (qs []questions.Question, found bool, err error) {
	path := key.Path(c.Root)
	contents, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load partition %s: %w", key, err)
	}
	err = json.Unmarshal(contents, &qs)
	if err != nil {
		c.tel.ReportWarning(report_cache_load, fmt.Errorf("decode %s: %w", path, err))
		return nil, false, fmt.Errorf("load partition %s: %w", key, err)
	}
	if qs == nil {
		qs = []questions.Question{}
	}
	return qs, true, nil
}

// Save writes a partition, replacing what was there.
func (c Cache) Save(key Key, qs []questions.Question) error {
	if qs == nil {
		qs = []questions.Question{}
	}
	path := key.Path(c.Root)
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return fmt.Errorf("save partition %s: %w", key, err)
	}
	contents, err := json.MarshalIndent(qs, "", "  ")
	if err != nil {
		return fmt.Errorf("save partition %s: %w", key, err)
	}

	tmp := path + ".tmp"
	err = os.WriteFile(tmp, contents, 0644)
	if err != nil {
		return fmt.Errorf("save partition %s: %w", key, err)
	}
	err = os.Rename(tmp, path)
	if err != nil {
		return fmt.Errorf("save partition %s: %w", key, err)
	}
	return nil
}

// ClearEmpty removes every partition that holds an empty array so the next
// sync scrapes those years again. Unreadable files are reported and skipped.
func (c Cache) ClearEmpty() ([]string, error) {
	removed := []string{}
	err := filepath.WalkDir(c.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == c.Root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || d.Name() != FileName {
			return nil
		}

		contents, err := os.ReadFile(path)
		if err != nil {
			c.tel.ReportWarning(report_cache_clear_empty, err, path)
			return nil
		}
		var entries []json.RawMessage
		err = json.Unmarshal(contents, &entries)
		if err != nil {
			c.tel.ReportWarning(report_cache_clear_empty, fmt.Errorf("decode %s: %w", path, err))
			return nil
		}
		if len(entries) > 0 {
			return nil
		}

		err = os.Remove(path)
		if err != nil {
			c.tel.ReportWarning(report_cache_clear_empty, err, path)
			return nil
		}
		removed = append(removed, path)
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("clear empty partitions: %w", err)
	}
	return removed, nil
}
