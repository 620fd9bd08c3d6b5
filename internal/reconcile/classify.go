package reconcile

import (
	"fmt"
	"slices"
	"time"

	"clantool/internal/extract"
)

func dateOf(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func sortByID(events []Event) {
	slices.SortFunc(events, func(a, b Event) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}

func uniqueMembers(members []extract.Member) (map[int32]extract.Member, error) {
	present := make(map[int32]extract.Member, len(members))
	for _, m := range members {
		if _, ok := present[m.ID]; ok {
			return nil, &AmbiguousInputError{Kind: "member", ID: m.ID}
		}
		present[m.ID] = m
	}
	return present, nil
}

func uniqueTrials(ids []int32) (map[int32]struct{}, error) {
	present := make(map[int32]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := present[id]; ok {
			return nil, &AmbiguousInputError{Kind: "trial", ID: id}
		}
		present[id] = struct{}{}
	}
	return present, nil
}

func openByID(state State) (map[int32]OpenPeriod, error) {
	open := make(map[int32]OpenPeriod, len(state.Memberships))
	for _, p := range state.Memberships {
		if existing, ok := open[p.ID]; ok {
			return nil, fmt.Errorf(
				"%w: member %d has open periods %d and %d",
				ErrInvariantViolation, p.ID, existing.Nr, p.Nr,
			)
		}
		open[p.ID] = p
	}
	return open, nil
}

func openTrialsByID(state State) (map[int32]OpenTrial, error) {
	open := make(map[int32]OpenTrial, len(state.Trials))
	for _, t := range state.Trials {
		if _, ok := open[t.ID]; ok {
			return nil, fmt.Errorf("%w: member %d has more than one open trial", ErrInvariantViolation, t.ID)
		}
		open[t.ID] = t
	}
	return open, nil
}

// Classify diffs a snapshot against the state persisted right before it and
// returns the transitions it implies: leaves, joins, continues, trial ends
// and trial starts in that order, each group ordered by member id.
//
// Nothing is returned alongside an error, a snapshot is applied whole or not
// at all.
func Classify(snap Snapshot, prior State) ([]Event, error) {
	if snap.ObservedAt.IsZero() {
		return nil, fmt.Errorf("%w: missing observation time", ErrInvalidSnapshot)
	}
	date := dateOf(snap.ObservedAt)

	present, err := uniqueMembers(snap.Members)
	if err != nil {
		return nil, err
	}
	var presentTrials map[int32]struct{}
	if snap.Trials != nil {
		presentTrials, err = uniqueTrials(snap.Trials)
		if err != nil {
			return nil, err
		}
	}

	open, err := openByID(prior)
	if err != nil {
		return nil, err
	}
	openTrials, err := openTrialsByID(prior)
	if err != nil {
		return nil, err
	}

	var leaves, joins, continues []Event
	for id, period := range open {
		if _, ok := present[id]; ok {
			continue
		}
		if date.Before(period.From) {
			return nil, fmt.Errorf(
				"%w: member %d would leave on %s before joining on %s",
				ErrInvalidSnapshot, id, date.Format(time.DateOnly), period.From.Format(time.DateOnly),
			)
		}
		leave := Event{Kind: EventLeave, ID: id, Nr: period.Nr, Date: date}
		if cause, ok := snap.Causes[id]; ok {
			leave.Cause = &cause
		}
		leaves = append(leaves, leave)
	}
	for id, member := range present {
		kind := EventJoin
		if _, ok := open[id]; ok {
			kind = EventContinue
		}
		event := Event{Kind: kind, ID: id, Date: date, Member: &member}
		if kind == EventJoin {
			joins = append(joins, event)
		} else {
			continues = append(continues, event)
		}
	}

	var trialEnds, trialStarts []Event
	if presentTrials != nil {
		for id, trial := range openTrials {
			if _, ok := presentTrials[id]; ok {
				continue
			}
			if date.Before(trial.From) {
				return nil, fmt.Errorf("%w: trial of member %d would end before it started", ErrInvalidSnapshot, id)
			}
			trialEnds = append(trialEnds, Event{Kind: EventTrialEnd, ID: id, Date: date})
		}
		for id := range presentTrials {
			if _, ok := openTrials[id]; ok {
				continue
			}
			trialStarts = append(trialStarts, Event{Kind: EventTrialStart, ID: id, Date: date})
		}
	}

	groups := [][]Event{leaves, joins, continues, trialEnds, trialStarts}
	events := []Event{}
	for _, group := range groups {
		sortByID(group)
		events = append(events, group...)
	}
	return events, nil
}
