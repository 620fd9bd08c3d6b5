package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"clantool/internal/components/assert"
	"clantool/internal/components/telemetry"
)

const (
	report_stale    = "reconciler.stale-snapshot"
	report_rejected = "reconciler.rejected-snapshot"
	report_fatal    = "reconciler.fatal"
)

// Reconciler routes snapshots to the writer of their clan, in observation order.
type Reconciler struct {
	tel telemetry.API

	mu      sync.Mutex
	writers map[int32]*Writer
}

func NewReconciler(tel telemetry.API) *Reconciler {
	assert.NotNil(tel)
	return &Reconciler{
		tel:     tel,
		writers: map[int32]*Writer{},
	}
}

func (r *Reconciler) Register(clan int32, w *Writer) {
	assert.NotNil(w)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.writers[clan] = w
}

func (r *Reconciler) Writer(clan int32) (*Writer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.writers[clan]
	return w, ok
}

// Clans returns the registered clans in ascending order.
func (r *Reconciler) Clans() []int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	clans := make([]int32, 0, len(r.writers))
	for clan := range r.writers {
		clans = append(clans, clan)
	}
	slices.Sort(clans)
	return clans
}

// ordered sorts snapshots by observation time and drops all but the first of
// those observed at the same instant.
func ordered(snaps []Snapshot) []Snapshot {
	out := slices.Clone(snaps)
	slices.SortStableFunc(out, func(a, b Snapshot) int {
		return a.ObservedAt.Compare(b.ObservedAt)
	})
	return slices.CompactFunc(out, func(a, b Snapshot) bool {
		return a.ObservedAt.Equal(b.ObservedAt)
	})
}

// Submit applies snapshots of one clan oldest first. Stale and rejected
// snapshots are reported and skipped, the first storage error stops the batch
// since every later snapshot depends on it.
func (r *Reconciler) Submit(ctx context.Context, clan int32, snaps ...Snapshot) ([]Result, error) {
	w, ok := r.Writer(clan)
	if !ok {
		return nil, fmt.Errorf("clan %d has no registered writer", clan)
	}

	var results []Result
	for _, snap := range ordered(snaps) {
		res, err := w.Reconcile(ctx, snap)
		var ambiguous *AmbiguousInputError
		switch {
		case err == nil:
			results = append(results, res)
		case errors.Is(err, ErrStaleSnapshot):
			r.tel.ReportDebug("skipped stale snapshot", clan, err)
			r.tel.ReportCount(report_stale, 1)
			results = append(results, res)
		case errors.As(err, &ambiguous),
			errors.Is(err, ErrInvalidSnapshot),
			errors.Is(err, ErrInvalidEvent):
			r.tel.ReportWarning(report_rejected, clan, err)
		case IsFatal(err):
			r.tel.ReportBroken(report_fatal, clan, err)
			return results, err
		default:
			return results, err
		}
	}
	return results, nil
}
