// Package history is the read side of a clan's membership history plus the
// few manual corrections allowed on it.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clantool/internal/components/assert"
	"clantool/internal/components/chrono"
	"clantool/internal/components/db"
	"clantool/internal/components/telemetry"
)

const (
	report_cause   = "history.set-cause"
	report_setting = "history.set-setting"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrPeriodOpen = errors.New("period is still open")
)

// Period is one membership period. To is nil while it is open, Cause is nil
// while it is open or its cause is still pending.
type Period struct {
	Nr    int64
	ID    int32
	Name  string
	From  time.Time
	To    *time.Time
	Cause *Cause
}

type Cause struct {
	Kicked bool
	Reason string
}

type Trial struct {
	ID   int32
	From time.Time
	To   *time.Time
}

type Service struct {
	qry    *db.Queries
	makeTx db.MakeTx
	time   chrono.API
	tel    telemetry.API
}

func NewService(data *sql.DB, time chrono.API, tel telemetry.API) Service {
	assert.NotNil(data)
	assert.NotNil(time)
	assert.NotNil(tel)
	return Service{
		qry:    db.New(data),
		makeTx: db.NewMakeTx(data),
		time:   time,
		tel:    tel,
	}
}

func parseTo(to sql.NullString) (*time.Time, error) {
	if !to.Valid {
		return nil, nil
	}
	date, err := db.ParseDate(to.String)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

func toPeriod(nr, id int64, from string, to sql.NullString, kicked sql.NullBool, cause, name sql.NullString) (Period, error) {
	fromDate, err := db.ParseDate(from)
	if err != nil {
		return Period{}, fmt.Errorf("period %d: %w", nr, err)
	}
	toDate, err := parseTo(to)
	if err != nil {
		return Period{}, fmt.Errorf("period %d: %w", nr, err)
	}
	period := Period{
		Nr:   nr,
		ID:   int32(id),
		Name: name.String,
		From: fromDate,
		To:   toDate,
	}
	if toDate != nil && cause.Valid {
		period.Cause = &Cause{Kicked: kicked.Bool, Reason: cause.String}
	}
	return period, nil
}

// Memberships returns every period of a member, oldest first.
func (s Service) Memberships(ctx context.Context, id int32) ([]Period, error) {
	rows, err := s.qry.GetMemberships(ctx, int64(id))
	if err != nil {
		return nil, err
	}
	periods := make([]Period, 0, len(rows))
	for _, r := range rows {
		p, err := toPeriod(r.Nr, r.ID, r.From, r.To, r.Kicked, r.Cause, sql.NullString{})
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, nil
}

// Changes returns the periods that started or ended on or after since.
func (s Service) Changes(ctx context.Context, since time.Time) ([]Period, error) {
	rows, err := s.qry.GetMembershipChanges(ctx, db.FormatDate(since))
	if err != nil {
		return nil, err
	}
	periods := make([]Period, 0, len(rows))
	for _, r := range rows {
		p, err := toPeriod(r.Nr, r.ID, r.From, r.To, r.Kicked, r.Cause, r.Name)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, nil
}

// Open returns the current members with their latest known name.
func (s Service) Open(ctx context.Context) ([]Period, error) {
	rows, err := s.qry.GetOpenMembers(ctx)
	if err != nil {
		return nil, err
	}
	periods := make([]Period, 0, len(rows))
	for _, r := range rows {
		p, err := toPeriod(r.Nr, r.ID, r.From, sql.NullString{}, sql.NullBool{}, sql.NullString{}, r.Name)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, nil
}

func (s Service) Trials(ctx context.Context, id int32) ([]Trial, error) {
	rows, err := s.qry.GetTrials(ctx, int64(id))
	if err != nil {
		return nil, err
	}
	trials := make([]Trial, 0, len(rows))
	for _, r := range rows {
		from, err := db.ParseDate(r.From)
		if err != nil {
			return nil, err
		}
		to, err := parseTo(r.To)
		if err != nil {
			return nil, err
		}
		trials = append(trials, Trial{ID: int32(r.ID), From: from, To: to})
	}
	return trials, nil
}

// SetCause classifies why a closed period ended. Open periods have no cause.
func (s Service) SetCause(ctx context.Context, nr int64, kicked bool, reason string) error {
	txqry, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return err
	}
	defer discard()

	period, err := txqry.GetMembership(ctx, nr)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: period %d", ErrNotFound, nr)
	}
	if err != nil {
		return err
	}
	if !period.To.Valid {
		return fmt.Errorf("%w: period %d of member %d", ErrPeriodOpen, nr, period.ID)
	}

	err = txqry.UpsertMembershipCause(ctx, db.UpsertMembershipCauseParams{
		Nr:     nr,
		Kicked: kicked,
		Cause:  sql.NullString{String: reason, Valid: true},
	})
	if err != nil {
		s.tel.ReportBroken(report_cause, nr, err)
		return err
	}

	verb := "left"
	if kicked {
		verb = "was kicked"
	}
	err = txqry.InsertLog(ctx, db.InsertLogParams{
		Date: db.FormatTimestamp(s.time.Now()),
		Msg:  fmt.Sprintf("cause of period %d set: member %d %s: %s", nr, period.ID, verb, reason),
	})
	if err != nil {
		return err
	}
	return commit()
}

// Setting returns ErrNotFound for keys that were never set.
func (s Service) Setting(ctx context.Context, key string) (string, error) {
	value, err := s.qry.GetSetting(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: setting %q", ErrNotFound, key)
	}
	return value, err
}

func (s Service) SetSetting(ctx context.Context, key, value string) error {
	err := s.qry.SetSetting(ctx, db.SetSettingParams{Key: key, Value: value})
	if err != nil {
		s.tel.ReportBroken(report_setting, key, err)
	}
	return err
}

// Logs returns the newest audit log entries first.
func (s Service) Logs(ctx context.Context, limit int) ([]db.Log, error) {
	return s.qry.GetLogs(ctx, int64(limit))
}
