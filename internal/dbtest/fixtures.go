package dbtest

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"clantool/internal/components/db"
	"clantool/internal/extract"

	"github.com/mazen160/go-random"
)

func CreateMember(name string, id int32, exp int64, contribution int32) extract.Member {
	return extract.Member{
		ID:           id,
		Name:         name,
		Exp:          exp,
		Contribution: contribution,
	}
}

// Date parses a `2006-01-02` date and fails the test if it can't.
func Date(t testing.TB, date string) time.Time {
	parsed, err := db.ParseDate(date)
	if err != nil {
		t.Fatal(err)
	}
	return parsed
}

// InsertMembership inserts a period and returns its nr, leave may be nil for an open period.
func InsertMembership(t testing.TB, database *sql.DB, id int32, join time.Time, leave *time.Time) int64 {
	var to sql.NullString
	if leave != nil {
		to = sql.NullString{String: db.FormatDate(*leave), Valid: true}
	}
	res, err := database.ExecContext(
		context.Background(),
		"INSERT INTO `membership` (`id`, `from`, `to`) VALUES (?, ?, ?)",
		id, db.FormatDate(join), to,
	)
	if err != nil {
		t.Fatal(err)
	}
	nr, err := res.LastInsertId()
	if err != nil {
		t.Fatal(err)
	}
	if nr == 0 {
		t.Fatal("no last insert id")
	}
	return nr
}

// InsertFullMembership inserts a closed period together with its cause.
func InsertFullMembership(t testing.TB, database *sql.DB, id int32, join, leave time.Time, cause string, kicked bool) int64 {
	nr := InsertMembership(t, database, id, join, &leave)
	InsertMembershipCause(t, database, nr, cause, kicked)
	return nr
}

func InsertMembershipCause(t testing.TB, database *sql.DB, nr int64, cause string, kicked bool) {
	err := db.New(database).CreateMembershipCause(context.Background(), db.CreateMembershipCauseParams{
		Nr:     nr,
		Kicked: kicked,
		Cause:  sql.NullString{String: cause, Valid: true},
	})
	if err != nil {
		t.Fatal(err)
	}
}

// InsertTrial inserts an open trial.
func InsertTrial(t testing.TB, database *sql.DB, id int32, start time.Time) {
	err := db.New(database).CreateTrial(context.Background(), db.CreateTrialParams{
		ID:   int64(id),
		From: db.FormatDate(start),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func InsertSettings(t testing.TB, database *sql.DB, key, value string) {
	_, err := database.ExecContext(
		context.Background(),
		"INSERT INTO `settings` (`key`, `value`) VALUES (?, ?)",
		key, value,
	)
	if err != nil {
		t.Fatal(err)
	}
}

func randomInt(t testing.TB, min, max int) int {
	n, err := random.IntRange(min, max)
	if err != nil {
		t.Fatal(err)
	}
	return n
}

// InsertRandomMembership inserts amount periods with distinct random start
// dates for when the exact dates don't matter. Periods are randomly open or
// closed, so the result may well violate the single open period rule.
func InsertRandomMembership(t testing.TB, database *sql.DB, id int32, amount int) {
	const retryLimit = 100
	epoch := time.Unix(0, 0).UTC()
	seen := map[string]struct{}{}

	for i := 0; i < amount; i++ {
		var from time.Time
		for retries := 0; ; retries++ {
			if retries > retryLimit {
				t.Fatalf("could not generate a distinct start date after %d tries", retryLimit)
			}
			from = epoch.AddDate(0, 0, randomInt(t, 0, 1<<16)+retries)
			if _, ok := seen[db.FormatDate(from)]; !ok {
				break
			}
		}
		seen[db.FormatDate(from)] = struct{}{}

		var leave *time.Time
		if randomInt(t, 0, 2) == 1 {
			to := from.AddDate(0, 0, randomInt(t, 0, 256))
			leave = &to
		}
		InsertMembership(t, database, id, from, leave)
	}
}

// RandomName returns a throwaway display name.
func RandomName(t testing.TB) string {
	name, err := random.String(12)
	if err != nil {
		t.Fatal(err)
	}
	return name
}
