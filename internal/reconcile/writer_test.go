package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"clantool/internal/components/db"
	"clantool/internal/components/telemetry"
	"clantool/internal/dbtest"
	"clantool/internal/extract"

	"github.com/stretchr/testify/require"
)

func setupWriter(t *testing.T) (*Writer, *sql.DB, *telemetry.Recorder) {
	database, _ := dbtest.Setup(t)
	tel := telemetry.NewRecorder()
	return NewWriter(1, database, tel), database, tel
}

func at(date string, hour int) time.Time {
	return day(date).Add(time.Duration(hour) * time.Hour)
}

// dump renders every persisted row so two states can be compared.
func dump(t *testing.T, database *sql.DB) []string {
	queries := []string{
		"SELECT m.`nr`, m.`id`, m.`from`, m.`to`, c.`kicked`, c.`cause` FROM `membership` m LEFT JOIN `membership_cause` c ON c.`nr` = m.`nr` ORDER BY m.`nr`",
		"SELECT `id`, `from`, `to` FROM `member_trial` ORDER BY `id`, `from`",
		"SELECT `id`, `date`, `exp`, `cp` FROM `member` ORDER BY `id`, `date`",
		"SELECT `id`, `name`, `date`, `updated` FROM `member_names` ORDER BY `id`, `name`",
		"SELECT `date`, `wins`, `losses`, `draws`, `members` FROM `clan` ORDER BY `date`",
		"SELECT `key`, `value` FROM `settings` ORDER BY `key`",
		"SELECT `date`, `msg` FROM `log` ORDER BY `rowid`",
	}

	var out []string
	for _, query := range queries {
		rows, err := database.Query(query)
		if err != nil {
			t.Fatal(err)
		}
		columns, err := rows.Columns()
		if err != nil {
			t.Fatal(err)
		}
		for rows.Next() {
			values := make([]any, len(columns))
			ptrs := make([]any, len(columns))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				t.Fatal(err)
			}
			out = append(out, fmt.Sprint(values...))
		}
		rows.Close()
	}
	return out
}

func TestReconcileJoinThenLeave(t *testing.T) {
	w, database, _ := setupWriter(t)
	ctx := context.Background()

	res, err := w.Reconcile(ctx, Snapshot{
		ObservedAt: at("2024-06-01", 12),
		Members:    []extract.Member{member(1), member(2)},
	})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 2, res.Count(EventJoin))

	res, err = w.Reconcile(ctx, Snapshot{
		ObservedAt: at("2024-06-02", 12),
		Members:    []extract.Member{member(1)},
	})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 1, res.Count(EventLeave))
	require.Equal(t, 1, res.Count(EventContinue))
	require.Equal(t, 0, res.Count(EventJoin))

	periods, err := db.New(database).GetMemberships(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, periods, 1)
	require.Equal(t, "2024-06-01", periods[0].From)
	require.Equal(t, "2024-06-02", periods[0].To.String)
	// pending cause
	require.True(t, periods[0].Kicked.Valid)
	require.False(t, periods[0].Kicked.Bool)
	require.False(t, periods[0].Cause.Valid)

	require.NoError(t, w.Verify(ctx))
}

func TestReconcileIdempotent(t *testing.T) {
	w, database, _ := setupWriter(t)
	ctx := context.Background()

	snap := Snapshot{
		ObservedAt: at("2024-06-01", 12),
		Members:    []extract.Member{member(1), member(2)},
		Clan:       &extract.Clan{Members: 2, Wins: 10, Losses: 5, Draws: 1},
		Trials:     []int32{2},
	}
	_, err := w.Reconcile(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	before := dump(t, database)

	res, err := w.Reconcile(ctx, snap)
	require.ErrorIs(t, err, ErrStaleSnapshot)
	require.True(t, res.Skipped)
	require.Empty(t, res.Events)
	require.Equal(t, before, dump(t, database))

	// classifying again against the state the snapshot produced only yields continues
	state, err := w.State(ctx)
	if err != nil {
		t.Fatal(err)
	}
	events, err := Classify(snap, state)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range events {
		require.Equal(t, EventContinue, e.Kind)
	}
}

func TestReconcileRejoin(t *testing.T) {
	w, database, _ := setupWriter(t)
	ctx := context.Background()

	for i, present := range []bool{true, false, true} {
		snap := Snapshot{ObservedAt: at("2024-06-01", i)}
		if present {
			snap.Members = []extract.Member{member(7)}
		}
		_, err := w.Reconcile(ctx, snap)
		if err != nil {
			t.Fatal(err)
		}
	}

	periods, err := db.New(database).GetMemberships(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, periods, 2)
	require.NotEqual(t, periods[0].Nr, periods[1].Nr)
	require.Equal(t, "2024-06-01", periods[0].To.String)
	require.False(t, periods[1].To.Valid)
	require.NoError(t, w.Verify(ctx))
}

func TestReconcileStats(t *testing.T) {
	w, database, _ := setupWriter(t)
	ctx := context.Background()
	qry := db.New(database)

	dr := extract.Member{ID: 9926942, Name: "Dr.Alptraum", Exp: 10826457, Contribution: 6830}
	_, err := w.Reconcile(ctx, Snapshot{
		ObservedAt: at("2024-06-01", 8),
		Members:    []extract.Member{dr},
		Clan:       &extract.Clan{Members: 35, Wins: 12324, Losses: 7195, Draws: 449},
	})
	if err != nil {
		t.Fatal(err)
	}

	dr.Exp++
	dr.Name = "Alptraum"
	_, err = w.Reconcile(ctx, Snapshot{ObservedAt: at("2024-06-01", 20), Members: []extract.Member{dr}})
	if err != nil {
		t.Fatal(err)
	}

	stats, err := qry.GetMemberStats(ctx, "2024-06-01")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, []db.Member{{ID: 9926942, Date: "2024-06-01", Exp: 10826458, Cp: 6830}}, stats)

	clan, err := qry.GetClanStat(ctx, "2024-06-01")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, db.Clan{Date: "2024-06-01", Wins: 12324, Losses: 7195, Draws: 449, Members: 35}, clan)

	open, err := qry.GetOpenMembers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, open, 1)
	require.True(t, open[0].Name.Valid)

	// a rename never creates new history
	periods, err := qry.GetMemberships(ctx, 9926942)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, periods, 1)
}

func TestReconcileTrials(t *testing.T) {
	w, database, _ := setupWriter(t)
	ctx := context.Background()

	_, err := w.Reconcile(ctx, Snapshot{ObservedAt: at("2024-06-01", 1), Trials: []int32{3}})
	if err != nil {
		t.Fatal(err)
	}
	// no trial roster, the trial stays open
	_, err = w.Reconcile(ctx, Snapshot{ObservedAt: at("2024-06-02", 1)})
	if err != nil {
		t.Fatal(err)
	}
	res, err := w.Reconcile(ctx, Snapshot{ObservedAt: at("2024-06-03", 1), Trials: []int32{}})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 1, res.Count(EventTrialEnd))

	trials, err := db.New(database).GetTrials(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, trials, 1)
	require.Equal(t, "2024-06-01", trials[0].From)
	require.Equal(t, "2024-06-03", trials[0].To.String)
}

func TestReconcileDuplicateRejectsWholeSnapshot(t *testing.T) {
	w, database, _ := setupWriter(t)
	ctx := context.Background()
	before := dump(t, database)

	_, err := w.Reconcile(ctx, Snapshot{
		ObservedAt: at("2024-06-01", 1),
		Members:    []extract.Member{member(1), member(2), member(1)},
	})
	var ambiguous *AmbiguousInputError
	require.ErrorAs(t, err, &ambiguous)
	require.False(t, IsFatal(err))
	require.Equal(t, before, dump(t, database))

	_, halted, err := w.Halted(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, halted)
}

func TestReconcileInvariantViolationHalts(t *testing.T) {
	w, database, tel := setupWriter(t)
	ctx := context.Background()

	first := dbtest.InsertMembership(t, database, 5, dbtest.Date(t, "2024-01-01"), nil)
	dbtest.InsertMembership(t, database, 5, dbtest.Date(t, "2024-02-01"), nil)

	_, err := w.Reconcile(ctx, Snapshot{ObservedAt: at("2024-06-01", 1), Members: []extract.Member{member(1)}})
	require.ErrorIs(t, err, ErrInvariantViolation)
	require.True(t, IsFatal(err))
	require.Len(t, tel.BrokenWithSuffix(report_halted), 1)

	reason, halted, err := w.Halted(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, halted)
	require.Contains(t, reason, "member 5")

	// nothing of the rejected snapshot was written
	periods, err := db.New(database).GetMemberships(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	require.Empty(t, periods)

	_, err = w.Reconcile(ctx, Snapshot{ObservedAt: at("2024-06-02", 1)})
	require.ErrorIs(t, err, ErrHalted)
	require.True(t, IsFatal(err))
	require.ErrorIs(t, w.ApplyEvents(ctx, nil), ErrHalted)

	require.ErrorIs(t, w.Resume(ctx), ErrInvariantViolation)

	// manual correction
	_, err = database.Exec("UPDATE `membership` SET `to` = '2024-02-01' WHERE `nr` = ?", first)
	if err != nil {
		t.Fatal(err)
	}
	dbtest.InsertMembershipCause(t, database, first, "duplicate", false)

	require.NoError(t, w.Resume(ctx))
	_, halted, err = w.Halted(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, halted)

	res, err := w.Reconcile(ctx, Snapshot{ObservedAt: at("2024-06-03", 1), Members: []extract.Member{member(5)}})
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 1, res.Count(EventContinue))
}

func TestApplyEventsAtomic(t *testing.T) {
	w, database, _ := setupWriter(t)
	ctx := context.Background()
	before := dump(t, database)

	date := day("2024-06-01")
	err := w.ApplyEvents(ctx, []Event{
		{Kind: EventJoin, ID: 1, Date: date, Member: memberPtr(1)},
		{Kind: EventJoin, ID: 2, Date: date},
		{Kind: EventJoin, ID: 1, Date: date},
	})
	require.ErrorIs(t, err, ErrInvalidEvent)
	require.False(t, IsFatal(err))
	require.Equal(t, before, dump(t, database))
}

func TestApplyEventsLeaveWithCause(t *testing.T) {
	w, database, _ := setupWriter(t)
	ctx := context.Background()

	nr := dbtest.InsertMembership(t, database, 4, dbtest.Date(t, "2024-01-01"), nil)

	err := w.ApplyEvents(ctx, []Event{{Kind: EventLeave, ID: 4, Nr: nr + 1, Date: day("2024-06-01")}})
	require.ErrorIs(t, err, ErrInvalidEvent)

	err = w.ApplyEvents(ctx, []Event{{Kind: EventLeave, ID: 4, Nr: nr, Date: day("2023-06-01")}})
	require.ErrorIs(t, err, ErrInvalidEvent)

	err = w.ApplyEvents(ctx, []Event{{
		Kind:  EventLeave,
		ID:    4,
		Nr:    nr,
		Date:  day("2024-06-01"),
		Cause: &Cause{Kicked: true, Reason: "inactive"},
	}})
	if err != nil {
		t.Fatal(err)
	}

	periods, err := db.New(database).GetMemberships(ctx, 4)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, periods, 1)
	require.True(t, periods[0].Kicked.Bool)
	require.Equal(t, "inactive", periods[0].Cause.String)

	logs, err := db.New(database).GetLogs(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	require.Contains(t, logs[0].Msg, "was kicked")
}

func TestReconcileConcurrent(t *testing.T) {
	w, database, _ := setupWriter(t)
	ctx := context.Background()
	// a second writer on the same store behaves like another process
	other := NewWriter(1, database, telemetry.NewRecorder())

	rosters := [][]extract.Member{
		{member(1), member(2)},
		{member(2), member(3)},
		{member(1), member(3)},
		{member(4)},
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(rosters)*2)
	for i, roster := range rosters {
		for _, writer := range []*Writer{w, other} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := writer.Reconcile(ctx, Snapshot{
					ObservedAt: at("2024-06-01", i),
					Members:    roster,
				})
				if err != nil && !errors.Is(err, ErrStaleSnapshot) {
					errs <- err
				}
			}()
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	require.NoError(t, w.Verify(ctx))
	duplicates, err := db.New(database).GetMultipleOpenMemberships(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Empty(t, duplicates)
}

func TestReconcileLogKeepsTimeOfDay(t *testing.T) {
	w, database, _ := setupWriter(t)
	ctx := context.Background()

	joined := at("2024-06-01", 15).Add(42 * time.Minute)
	_, err := w.Reconcile(ctx, Snapshot{
		ObservedAt: joined,
		Members:    []extract.Member{dbtest.CreateMember("a", 1, 10, 1)},
	})
	if err != nil {
		t.Fatal(err)
	}
	left := at("2024-06-02", 9)
	_, err = w.Reconcile(ctx, Snapshot{ObservedAt: left, Members: []extract.Member{}})
	if err != nil {
		t.Fatal(err)
	}

	logs, err := db.New(database).GetLogs(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, logs, 2)
	require.Equal(t, "2024-06-02T09:00:00Z", logs[0].Date)
	require.Contains(t, logs[0].Msg, "left")
	require.Equal(t, "2024-06-01T15:42:00Z", logs[1].Date)
	require.Contains(t, logs[1].Msg, "joined")
}

func TestWriterRefusesStoreOfAnotherClan(t *testing.T) {
	w, database, _ := setupWriter(t)
	ctx := context.Background()
	other := NewWriter(2, database, telemetry.NewRecorder())

	_, err := w.Reconcile(ctx, Snapshot{ObservedAt: at("2024-06-01", 1), Members: []extract.Member{member(10)}})
	if err != nil {
		t.Fatal(err)
	}
	before := dump(t, database)

	res, err := other.Reconcile(ctx, Snapshot{ObservedAt: at("2024-06-01", 2), Members: []extract.Member{member(20)}})
	require.ErrorIs(t, err, ErrForeignStore)
	require.True(t, IsFatal(err))
	require.Empty(t, res.Events)

	err = other.ApplyEvents(ctx, []Event{{Kind: EventJoin, ID: 20, Date: day("2024-06-01")}})
	require.ErrorIs(t, err, ErrForeignStore)
	require.Equal(t, before, dump(t, database))

	open, err := db.New(database).GetOpenMemberships(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, open, 1)
	require.Equal(t, int64(10), open[0].ID)
}
