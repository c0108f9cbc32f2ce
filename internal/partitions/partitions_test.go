package partitions

import (
	"os"
	"path/filepath"
	"testing"

	"pastquestions-backend/internal/components/telemetry"
	"pastquestions-backend/internal/questions"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestKeyPath(t *testing.T) {
	key := Key{Subject: "English Language", ExamType: "WAEC", Year: 2019, QuestionType: "objective"}
	require.Equal(
		t,
		filepath.Join("data", "english_language", "waec", "2019", "objective", "questions.json"),
		key.Path("data"),
	)
}

func TestSaveAndLoad(t *testing.T) {
	cache := NewCache(t.TempDir(), telemetry.NewRecorder())
	key := Key{Subject: "Chemistry", ExamType: "jamb", Year: 2020, QuestionType: "objective"}

	qs, found, err := cache.Load(key)
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, qs)

	saved := []questions.Question{{
		Body:         "CO<sub>2</sub> is a?",
		Options:      []string{"gas", "solid"},
		Answer:       "A",
		Subject:      "chemistry",
		Topic:        questions.DefaultTopic,
		Year:         questions.YearPtr(2020),
		ExamType:     "jamb",
		QuestionType: questions.TypeObjective,
		SourceURL:    "https://myschool.ng/classroom/chemistry/1",
	}}
	require.NoError(t, cache.Save(key, saved))

	qs, found, err = cache.Load(key)
	require.NoError(t, err)
	require.True(t, found)
	if diff := cmp.Diff(saved, qs); diff != "" {
		t.Fatal(diff)
	}

	require.NoError(t, cache.Save(key, nil))
	qs, found, err = cache.Load(key)
	require.NoError(t, err)
	require.True(t, found)
	require.Empty(t, qs)
}

func TestLoadCorrupt(t *testing.T) {
	tel := telemetry.NewRecorder()
	cache := NewCache(t.TempDir(), tel)
	key := Key{Subject: "physics", ExamType: "neco", Year: 2011, QuestionType: "theory"}

	path := key.Path(cache.Root)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("[{"), 0644))

	_, _, err := cache.Load(key)
	require.Error(t, err)
	require.Len(t, tel.Reports(report_cache_load), 1)
}

func TestClearEmpty(t *testing.T) {
	tel := telemetry.NewRecorder()
	cache := NewCache(t.TempDir(), tel)

	empty := Key{Subject: "biology", ExamType: "waec", Year: 2005, QuestionType: "objective"}
	full := Key{Subject: "biology", ExamType: "waec", Year: 2006, QuestionType: "objective"}
	require.NoError(t, cache.Save(empty, nil))
	require.NoError(t, cache.Save(full, []questions.Question{{Body: "b", QuestionType: "theory"}}))

	broken := filepath.Join(cache.Root, "biology", "waec", "2007", "objective", FileName)
	require.NoError(t, os.MkdirAll(filepath.Dir(broken), 0755))
	require.NoError(t, os.WriteFile(broken, []byte("not json"), 0644))

	removed, err := cache.ClearEmpty()
	require.NoError(t, err)
	require.Equal(t, []string{empty.Path(cache.Root)}, removed)
	require.NoFileExists(t, empty.Path(cache.Root))
	require.FileExists(t, full.Path(cache.Root))
	require.FileExists(t, broken)
	require.Len(t, tel.Reports(report_cache_clear_empty), 1)
}

func TestClearEmptyMissingRoot(t *testing.T) {
	cache := NewCache(filepath.Join(t.TempDir(), "missing"), telemetry.NewRecorder())
	removed, err := cache.ClearEmpty()
	require.NoError(t, err)
	require.Empty(t, removed)
}
