package telemetry

import (
	"strings"
	"sync"
)

type Report struct {
	Kind   string
	ID     string
	Params []any
}

// Recorder is an API that keeps every report in memory so tests can assert on them.
type Recorder struct {
	mutex   sync.Mutex
	reports []Report
	counts  map[string]int64
}

func NewRecorder() *Recorder {
	return &Recorder{counts: map[string]int64{}}
}

func (r *Recorder) add(kind, id string, params []any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, Report{Kind: kind, ID: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.add("broken", id, params)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.add("warning", id, params)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {}

func (r *Recorder) ReportCount(id string, count int64) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.counts[id] = count
}

// Reports returns every broken/warning report whose id contains `substr`.
func (r *Recorder) Reports(substr string) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var out []Report
	for _, rep := range r.reports {
		if strings.Contains(rep.ID, substr) {
			out = append(out, rep)
		}
	}
	return out
}

func (r *Recorder) Count(id string) int64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.counts[id]
}
