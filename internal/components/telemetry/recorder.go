package telemetry

import (
	"strings"
	"sync"
)

// Report is a single call recorded by Recorder.
type Report struct {
	ID     string
	Params []any
}

// Recorder is an API that keeps every report in memory so tests can assert on them.
type Recorder struct {
	mu       sync.Mutex
	Broken   []Report
	Warnings []Report
	Counts   map[string]int64
}

func NewRecorder() *Recorder {
	return &Recorder{Counts: map[string]int64{}}
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Broken = append(r.Broken, Report{ID: id, Params: params})
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, Report{ID: id, Params: params})
}

func (r *Recorder) ReportDebug(string, ...any) {}

func (r *Recorder) ReportCount(id string, count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Counts[id] = count
}

// BrokenWithSuffix returns the broken reports whose id ends with suffix, scoped ids carry a namespace prefix.
func (r *Recorder) BrokenWithSuffix(suffix string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return filterSuffix(r.Broken, suffix)
}

// WarningsWithSuffix is BrokenWithSuffix for warnings.
func (r *Recorder) WarningsWithSuffix(suffix string) []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return filterSuffix(r.Warnings, suffix)
}

func filterSuffix(reports []Report, suffix string) []Report {
	var out []Report
	for _, rep := range reports {
		if strings.HasSuffix(rep.ID, suffix) {
			out = append(out, rep)
		}
	}
	return out
}
