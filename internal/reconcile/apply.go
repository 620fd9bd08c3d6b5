package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"clantool/internal/components/db"
	"clantool/internal/extract"
)

func invalidEvent(e Event, format string, args ...any) error {
	return fmt.Errorf(
		"%w: %s of member %d: %s",
		ErrInvalidEvent, e.Kind, e.ID, fmt.Sprintf(format, args...),
	)
}

func describeLeave(e Event) string {
	if e.Cause == nil {
		return fmt.Sprintf("member %d left (period %d, cause pending)", e.ID, e.Nr)
	}
	if e.Cause.Kicked {
		return fmt.Sprintf("member %d was kicked (period %d): %s", e.ID, e.Nr, e.Cause.Reason)
	}
	return fmt.Sprintf("member %d left (period %d): %s", e.ID, e.Nr, e.Cause.Reason)
}

// apply writes events with txqry, validating each one against state and the
// effects of the events before it. Log entries are stamped with observedAt,
// or with the event date when it is zero.
func (w *Writer) apply(ctx context.Context, txqry *db.Queries, state State, events []Event, observedAt time.Time) error {
	open, err := openByID(state)
	if err != nil {
		return err
	}
	openTrials, err := openTrialsByID(state)
	if err != nil {
		return err
	}

	for _, e := range events {
		if e.Date.IsZero() {
			return invalidEvent(e, "missing date")
		}
		date := dateOf(e.Date)
		day := db.FormatDate(e.Date)
		logged := observedAt
		if logged.IsZero() {
			logged = e.Date
		}

		switch e.Kind {
		case EventLeave:
			period, ok := open[e.ID]
			if !ok || period.Nr != e.Nr {
				return invalidEvent(e, "period %d is not open", e.Nr)
			}
			if date.Before(period.From) {
				return invalidEvent(e, "leave on %s precedes join on %s", day, db.FormatDate(period.From))
			}
			closed, err := txqry.CloseMembership(ctx, db.CloseMembershipParams{Nr: e.Nr, To: day})
			if err != nil {
				return err
			}
			if closed != 1 {
				return fmt.Errorf("%w: closing period %d touched %d rows", ErrInvariantViolation, e.Nr, closed)
			}
			cause := db.CreateMembershipCauseParams{Nr: e.Nr}
			if e.Cause != nil {
				cause.Kicked = e.Cause.Kicked
				cause.Cause = sql.NullString{String: e.Cause.Reason, Valid: true}
			}
			err = txqry.CreateMembershipCause(ctx, cause)
			if err != nil {
				return err
			}
			delete(open, e.ID)
			err = writeLog(ctx, txqry, logged, describeLeave(e))
			if err != nil {
				return err
			}

		case EventJoin:
			if existing, ok := open[e.ID]; ok {
				return invalidEvent(e, "period %d is still open", existing.Nr)
			}
			nr, err := txqry.CreateMembership(ctx, db.CreateMembershipParams{ID: int64(e.ID), From: day})
			if err != nil {
				return err
			}
			open[e.ID] = OpenPeriod{Nr: nr, ID: e.ID, From: date}
			err = writeLog(ctx, txqry, logged, fmt.Sprintf("member %d joined (period %d)", e.ID, nr))
			if err != nil {
				return err
			}
			err = writeStats(ctx, txqry, day, e.Member)
			if err != nil {
				return err
			}

		case EventContinue:
			if _, ok := open[e.ID]; !ok {
				return invalidEvent(e, "no open period")
			}
			err := writeStats(ctx, txqry, day, e.Member)
			if err != nil {
				return err
			}

		case EventTrialEnd:
			trial, ok := openTrials[e.ID]
			if !ok {
				return invalidEvent(e, "no open trial")
			}
			if date.Before(trial.From) {
				return invalidEvent(e, "trial end on %s precedes start on %s", day, db.FormatDate(trial.From))
			}
			closed, err := txqry.CloseTrial(ctx, db.CloseTrialParams{ID: int64(e.ID), To: day})
			if err != nil {
				return err
			}
			if closed != 1 {
				return fmt.Errorf("%w: closing trial of %d touched %d rows", ErrInvariantViolation, e.ID, closed)
			}
			delete(openTrials, e.ID)
			err = writeLog(ctx, txqry, logged, fmt.Sprintf("trial of member %d ended", e.ID))
			if err != nil {
				return err
			}

		case EventTrialStart:
			if _, ok := openTrials[e.ID]; ok {
				return invalidEvent(e, "trial is still open")
			}
			err := txqry.CreateTrial(ctx, db.CreateTrialParams{ID: int64(e.ID), From: day})
			if err != nil {
				return err
			}
			openTrials[e.ID] = OpenTrial{ID: e.ID, From: date}
			err = writeLog(ctx, txqry, logged, fmt.Sprintf("trial of member %d started", e.ID))
			if err != nil {
				return err
			}

		default:
			return invalidEvent(e, "unknown event kind %d", int(e.Kind))
		}
	}
	return nil
}

func writeStats(ctx context.Context, txqry *db.Queries, day string, member *extract.Member) error {
	if member == nil {
		return nil
	}
	err := txqry.UpsertMemberStat(ctx, db.UpsertMemberStatParams{
		ID:   int64(member.ID),
		Date: day,
		Exp:  member.Exp,
		Cp:   int64(member.Contribution),
	})
	if err != nil {
		return err
	}
	if member.Name == "" {
		return nil
	}
	return txqry.UpsertMemberName(ctx, db.UpsertMemberNameParams{
		ID:   int64(member.ID),
		Name: member.Name,
		Date: day,
	})
}

func writeLog(ctx context.Context, txqry *db.Queries, at time.Time, msg string) error {
	return txqry.InsertLog(ctx, db.InsertLogParams{
		Date: db.FormatTimestamp(at),
		Msg:  msg,
	})
}
