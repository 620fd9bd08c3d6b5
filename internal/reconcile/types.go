package reconcile

import (
	"time"

	"clantool/internal/extract"
)

type EventKind int

const (
	EventLeave EventKind = iota
	EventJoin
	EventContinue
	EventTrialEnd
	EventTrialStart
)

func (k EventKind) String() string {
	switch k {
	case EventLeave:
		return "leave"
	case EventJoin:
		return "join"
	case EventContinue:
		return "continue"
	case EventTrialEnd:
		return "trial-end"
	case EventTrialStart:
		return "trial-start"
	}
	return "unknown"
}

// Cause is an externally supplied classification of a leave. A leave without
// one is stored as pending.
type Cause struct {
	Kicked bool
	Reason string
}

type Snapshot struct {
	ObservedAt time.Time
	Members    []extract.Member
	Total      int32
	// Clan is nil when the clan page was not fetched with this roster.
	Clan *extract.Clan
	// Trials is nil when no trial roster was observed, an empty non-nil slice
	// means every open trial has ended.
	Trials []int32
	Causes map[int32]Cause
}

type OpenPeriod struct {
	Nr   int64
	ID   int32
	From time.Time
}

type OpenTrial struct {
	ID   int32
	From time.Time
}

// State is what is persisted for a clan right before a snapshot is applied.
type State struct {
	Memberships []OpenPeriod
	Trials      []OpenTrial
}

type Event struct {
	Kind EventKind
	ID   int32
	// Nr is the period a leave closes.
	Nr   int64
	Date time.Time
	// Cause is only set on leaves, nil means pending.
	Cause *Cause
	// Member carries the observed stats of joins and continues.
	Member *extract.Member
}

type Result struct {
	Clan       int32
	ObservedAt time.Time
	Events     []Event
	// Skipped is set when the snapshot was not newer than the last one applied.
	Skipped bool
}

func (r Result) Count(kind EventKind) int {
	count := 0
	for _, e := range r.Events {
		if e.Kind == kind {
			count++
		}
	}
	return count
}
