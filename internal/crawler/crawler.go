package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"clantool/internal/components/assert"
	"clantool/internal/components/chrono"
	"clantool/internal/components/telemetry"
	"clantool/internal/extract"
	"clantool/internal/reconcile"

	"golang.org/x/sync/errgroup"
)

const (
	report_fetch       = "crawl.fetch"
	report_clan_stats  = "crawl.clan-stats"
	report_total_count = "crawl.total-count"
	report_reconcile   = "crawl.reconcile"
	report_lookup      = "crawl.lookup"
)

// Fetcher is implemented by Client.
type Fetcher interface {
	FetchRoster(ctx context.Context, clan int32) ([]byte, error)
	FetchClan(ctx context.Context, clan int32) ([]byte, error)
	FetchProfile(ctx context.Context, id int32) ([]byte, error)
}

type Crawler struct {
	fetcher    Fetcher
	reconciler *reconcile.Reconciler
	time       chrono.API
	tel        telemetry.API
}

func NewCrawler(fetcher Fetcher, reconciler *reconcile.Reconciler, time chrono.API, tel telemetry.API) Crawler {
	assert.NotNil(fetcher)
	assert.NotNil(reconciler)
	assert.NotNil(time)
	assert.NotNil(tel)
	return Crawler{
		fetcher:    fetcher,
		reconciler: reconciler,
		time:       time,
		tel:        tel,
	}
}

// Snapshot fetches and parses the roster and clan page of a clan. A roster
// that can't be fetched or parsed fails the call, clan stats are optional.
func (c Crawler) Snapshot(ctx context.Context, clan int32) (reconcile.Snapshot, error) {
	observedAt := c.time.Now()

	var roster, page []byte
	var pageErr error
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		roster, err = c.fetcher.FetchRoster(groupCtx, clan)
		return err
	})
	group.Go(func() error {
		page, pageErr = c.fetcher.FetchClan(groupCtx, clan)
		return nil
	})
	err := group.Wait()
	if err != nil {
		return reconcile.Snapshot{}, err
	}

	members, total, err := extract.ParseRoster(roster)
	if err != nil {
		return reconcile.Snapshot{}, err
	}
	if int(total) != len(members) {
		c.tel.ReportDebug(report_total_count, clan, total, len(members))
	}

	snap := reconcile.Snapshot{
		ObservedAt: observedAt,
		Members:    members,
		Total:      total,
	}

	if pageErr != nil {
		c.tel.ReportWarning(report_clan_stats, clan, pageErr)
		return snap, nil
	}
	stats, err := extract.ParseClanStats(page)
	if err != nil {
		c.tel.ReportWarning(report_clan_stats, clan, err)
		return snap, nil
	}
	snap.Clan = &stats
	return snap, nil
}

// Crawl takes a snapshot of a clan and hands it to the reconciler.
func (c Crawler) Crawl(ctx context.Context, clan int32) (reconcile.Result, error) {
	snap, err := c.Snapshot(ctx, clan)
	if err != nil {
		c.tel.ReportWarning(report_fetch, clan, err)
		return reconcile.Result{}, fmt.Errorf("clan %d: %w", clan, err)
	}

	results, err := c.reconciler.Submit(ctx, clan, snap)
	if err != nil {
		c.tel.ReportBroken(report_reconcile, clan, err)
		return reconcile.Result{}, err
	}
	if len(results) == 0 {
		return reconcile.Result{Clan: clan, ObservedAt: snap.ObservedAt, Skipped: true}, nil
	}

	res := results[0]
	c.tel.ReportDebug(
		"crawled clan",
		clan,
		telemetry.KV{Key: "members", Value: len(snap.Members)},
		telemetry.KV{Key: "joins", Value: res.Count(reconcile.EventJoin)},
		telemetry.KV{Key: "leaves", Value: res.Count(reconcile.EventLeave)},
	)
	return res, nil
}

// CrawlAll crawls every registered clan in parallel, a failing clan doesn't
// stop the others.
func (c Crawler) CrawlAll(ctx context.Context) ([]reconcile.Result, error) {
	clans := c.reconciler.Clans()

	var mu sync.Mutex
	var results []reconcile.Result
	var errlist []error

	group := errgroup.Group{}
	group.SetLimit(4)
	for _, clan := range clans {
		group.Go(func() error {
			res, err := c.Crawl(ctx, clan)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errlist = append(errlist, err)
				return nil
			}
			results = append(results, res)
			return nil
		})
	}
	group.Wait()

	return results, errors.Join(errlist...)
}

// LookupName resolves the current name of an account, ok is false if the
// account doesn't exist.
func (c Crawler) LookupName(ctx context.Context, id int32) (name string, ok bool, err error) {
	raw, err := c.fetcher.FetchProfile(ctx, id)
	if err != nil {
		c.tel.ReportWarning(report_lookup, id, err)
		return "", false, err
	}
	return extract.ParseProfileName(raw)
}
