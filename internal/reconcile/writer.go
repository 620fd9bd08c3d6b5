package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"clantool/internal/components/assert"
	"clantool/internal/components/db"
	"clantool/internal/components/telemetry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("clantool.reconcile")

const (
	report_halted  = "writer.halted"
	report_halt    = "writer.persist-halt"
	report_metrics = "writer.metrics"
)

const (
	// SettingLastObserved holds the observation time of the newest applied snapshot.
	SettingLastObserved = "reconcile.last_observed"
	// SettingHalted holds the reason automatic writes were stopped, absent while writes are allowed.
	SettingHalted = "reconcile.halted"
	// SettingClan holds the id of the clan whose history the store keeps, it
	// is written by the first transaction of a writer.
	SettingClan = "reconcile.clan"
)

// Writer is the only way history of a clan gets written. Calls are serialized,
// each snapshot is applied in a single transaction.
type Writer struct {
	clan   int32
	qry    *db.Queries
	makeTx db.MakeTx
	tel    telemetry.API
	events metric.Int64Counter

	mu sync.Mutex
}

func NewWriter(clan int32, data *sql.DB, tel telemetry.API) *Writer {
	assert.NotNil(data)
	assert.NotNil(tel)

	events, err := otel.Meter("clantool.reconcile").Int64Counter(
		"reconcile_events",
		metric.WithDescription("membership transitions written"),
	)
	if err != nil {
		tel.ReportWarning(report_metrics, err)
	}

	return &Writer{
		clan:   clan,
		qry:    db.New(data),
		makeTx: db.NewMakeTx(data),
		tel:    tel,
		events: events,
	}
}

func (w *Writer) Clan() int32 {
	return w.clan
}

func (w *Writer) storageErr(op string, err error) error {
	var storageErr *StorageError
	if errors.As(err, &storageErr) {
		return err
	}
	return &StorageError{Clan: w.clan, Op: op, Err: err}
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, ErrStaleSnapshot) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Reconcile applies a snapshot: it classifies it against the state read in
// the same transaction, writes the resulting events and stats and advances
// the observation watermark. A snapshot that isn't newer than the watermark
// returns ErrStaleSnapshot with Result.Skipped set.
func (w *Writer) Reconcile(ctx context.Context, snap Snapshot) (result Result, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, span := tracer.Start(ctx, "Reconcile", trace.WithAttributes(
		attribute.Int("clan", int(w.clan)),
		attribute.Int("members", len(snap.Members)),
	))
	defer func() { endSpan(span, err) }()

	result = Result{Clan: w.clan, ObservedAt: snap.ObservedAt}

	txqry, discard, commit, err := w.makeTx(ctx)
	if err != nil {
		return result, w.storageErr("begin", err)
	}
	defer discard()

	err = w.checkHalted(ctx, txqry)
	if err != nil {
		return result, err
	}
	err = w.claim(ctx, txqry)
	if err != nil {
		return result, err
	}

	last, found, err := lastObserved(ctx, txqry)
	if err != nil {
		return result, w.storageErr("read watermark", err)
	}
	if found && !snap.ObservedAt.After(last) {
		result.Skipped = true
		return result, fmt.Errorf(
			"%w: observed %s, last applied %s",
			ErrStaleSnapshot, snap.ObservedAt.Format(time.RFC3339), last.Format(time.RFC3339),
		)
	}

	state, err := loadState(ctx, txqry)
	if err != nil {
		return result, w.fail(ctx, discard, "load state", err)
	}
	events, err := Classify(snap, state)
	if err != nil {
		return result, w.fail(ctx, discard, "classify", err)
	}
	err = w.apply(ctx, txqry, state, events, snap.ObservedAt)
	if err != nil {
		return result, w.fail(ctx, discard, "apply", err)
	}

	if snap.Clan != nil {
		err = txqry.UpsertClanStat(ctx, db.UpsertClanStatParams{
			Date:    db.FormatDate(snap.ObservedAt),
			Wins:    int64(snap.Clan.Wins),
			Losses:  int64(snap.Clan.Losses),
			Draws:   int64(snap.Clan.Draws),
			Members: int64(snap.Clan.Members),
		})
		if err != nil {
			return result, w.storageErr("clan stats", err)
		}
	}

	err = txqry.SetSetting(ctx, db.SetSettingParams{
		Key:   SettingLastObserved,
		Value: snap.ObservedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return result, w.storageErr("write watermark", err)
	}

	err = commit()
	if err != nil {
		return result, w.storageErr("commit", err)
	}

	result.Events = events
	w.count(ctx, events)
	return result, nil
}

// ApplyEvents writes an already classified event list in one transaction.
// Every event is checked against the state read inside that transaction.
func (w *Writer) ApplyEvents(ctx context.Context, events []Event) (err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ctx, span := tracer.Start(ctx, "ApplyEvents", trace.WithAttributes(
		attribute.Int("clan", int(w.clan)),
		attribute.Int("events", len(events)),
	))
	defer func() { endSpan(span, err) }()

	txqry, discard, commit, err := w.makeTx(ctx)
	if err != nil {
		return w.storageErr("begin", err)
	}
	defer discard()

	err = w.checkHalted(ctx, txqry)
	if err != nil {
		return err
	}
	err = w.claim(ctx, txqry)
	if err != nil {
		return err
	}
	state, err := loadState(ctx, txqry)
	if err != nil {
		return w.fail(ctx, discard, "load state", err)
	}
	err = w.apply(ctx, txqry, state, events, time.Time{})
	if err != nil {
		return w.fail(ctx, discard, "apply", err)
	}

	err = commit()
	if err != nil {
		return w.storageErr("commit", err)
	}
	w.count(ctx, events)
	return nil
}

// State reads the open membership and trial periods of the clan.
func (w *Writer) State(ctx context.Context) (State, error) {
	state, err := loadState(ctx, w.qry)
	if err != nil {
		return State{}, w.storageErr("load state", err)
	}
	return state, nil
}

func (w *Writer) count(ctx context.Context, events []Event) {
	if w.events == nil {
		return
	}
	for _, e := range events {
		if e.Kind == EventContinue {
			continue
		}
		w.events.Add(ctx, 1, metric.WithAttributes(
			attribute.Int("clan", int(w.clan)),
			attribute.String("kind", e.Kind.String()),
		))
	}
}

// fail rolls back the running transaction, invariant violations additionally
// stop automatic writes until Resume is called.
func (w *Writer) fail(ctx context.Context, discard func() error, op string, err error) error {
	var ambiguous *AmbiguousInputError
	if errors.As(err, &ambiguous) || errors.Is(err, ErrInvalidSnapshot) || errors.Is(err, ErrInvalidEvent) {
		return fmt.Errorf("clan %d: %s: %w", w.clan, op, err)
	}

	storageErr := w.storageErr(op, err)
	if !errors.Is(err, ErrInvariantViolation) {
		return storageErr
	}

	// sqlite allows a single writer, the halt marker can only be written once
	// the failed transaction is gone
	discard()
	w.tel.ReportBroken(report_halted, w.clan, storageErr)
	haltErr := w.qry.SetSetting(ctx, db.SetSettingParams{
		Key:   SettingHalted,
		Value: storageErr.Error(),
	})
	if haltErr != nil {
		w.tel.ReportBroken(report_halt, w.clan, haltErr)
	}
	return storageErr
}

func (w *Writer) checkHalted(ctx context.Context, qry *db.Queries) error {
	reason, err := qry.GetSetting(ctx, SettingHalted)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return w.storageErr("read halt marker", err)
	}
	return &StorageError{Clan: w.clan, Op: "check halted", Err: fmt.Errorf("%w: %s", ErrHalted, reason)}
}

// claim makes sure the store keeps the history of this writer's clan only.
// The schema has no clan column, a second clan writing to the same store
// would close the first clan's periods.
func (w *Writer) claim(ctx context.Context, qry *db.Queries) error {
	owner, err := qry.GetSetting(ctx, SettingClan)
	if errors.Is(err, sql.ErrNoRows) {
		err = qry.SetSetting(ctx, db.SetSettingParams{
			Key:   SettingClan,
			Value: strconv.FormatInt(int64(w.clan), 10),
		})
		if err != nil {
			return w.storageErr("claim store", err)
		}
		return nil
	}
	if err != nil {
		return w.storageErr("read store owner", err)
	}
	if owner != strconv.FormatInt(int64(w.clan), 10) {
		return &StorageError{Clan: w.clan, Op: "claim store", Err: fmt.Errorf("%w: owned by clan %s", ErrForeignStore, owner)}
	}
	return nil
}

// Halted returns the reason automatic writes are stopped for this clan.
func (w *Writer) Halted(ctx context.Context) (reason string, halted bool, err error) {
	reason, err = w.qry.GetSetting(ctx, SettingHalted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, w.storageErr("read halt marker", err)
	}
	return reason, true, nil
}

// Verify checks the persisted history of the clan, the returned error wraps
// ErrInvariantViolation and lists every problem found.
func (w *Writer) Verify(ctx context.Context) error {
	var errlist []error

	duplicates, err := w.qry.GetMultipleOpenMemberships(ctx)
	if err != nil {
		return w.storageErr("verify", err)
	}
	for _, id := range duplicates {
		errlist = append(errlist, fmt.Errorf("%w: member %d has more than one open period", ErrInvariantViolation, id))
	}

	mismatches, err := w.qry.GetCauseMismatches(ctx)
	if err != nil {
		return w.storageErr("verify", err)
	}
	for _, nr := range mismatches {
		errlist = append(errlist, fmt.Errorf("%w: period %d has a cause iff it is open", ErrInvariantViolation, nr))
	}

	return errors.Join(errlist...)
}

// Resume lifts a halt once the history verifies again.
func (w *Writer) Resume(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.Verify(ctx)
	if err != nil {
		return err
	}

	txqry, discard, commit, err := w.makeTx(ctx)
	if err != nil {
		return w.storageErr("begin", err)
	}
	defer discard()

	err = txqry.DeleteSetting(ctx, SettingHalted)
	if err != nil {
		return w.storageErr("resume", err)
	}
	err = txqry.InsertLog(ctx, db.InsertLogParams{
		Date: db.FormatTimestamp(time.Now()),
		Msg:  "automatic reconciliation resumed",
	})
	if err != nil {
		return w.storageErr("resume", err)
	}
	err = commit()
	if err != nil {
		return w.storageErr("commit", err)
	}

	w.tel.ReportDebug("resumed reconciliation", w.clan)
	return nil
}

func lastObserved(ctx context.Context, qry *db.Queries) (time.Time, bool, error) {
	value, err := qry.GetSetting(ctx, SettingLastObserved)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	last, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false, err
	}
	return last, true, nil
}

func loadState(ctx context.Context, qry *db.Queries) (State, error) {
	memberships, err := qry.GetOpenMemberships(ctx)
	if err != nil {
		return State{}, err
	}
	trials, err := qry.GetOpenTrials(ctx)
	if err != nil {
		return State{}, err
	}

	state := State{}
	for _, m := range memberships {
		from, err := db.ParseDate(m.From)
		if err != nil {
			return State{}, fmt.Errorf("membership %d: %w", m.Nr, err)
		}
		state.Memberships = append(state.Memberships, OpenPeriod{
			Nr:   m.Nr,
			ID:   int32(m.ID),
			From: from,
		})
	}
	for _, t := range trials {
		from, err := db.ParseDate(t.From)
		if err != nil {
			return State{}, fmt.Errorf("trial of %d: %w", t.ID, err)
		}
		state.Trials = append(state.Trials, OpenTrial{
			ID:   int32(t.ID),
			From: from,
		})
	}

	// run the same checks the classifier relies on so violations are caught
	// even when only events are applied
	if _, err := openByID(state); err != nil {
		return State{}, err
	}
	if _, err := openTrialsByID(state); err != nil {
		return State{}, err
	}
	return state, nil
}
