package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"clantool/internal/components/chrono"
	"clantool/internal/components/telemetry"
	"clantool/internal/dbtest"
	"clantool/internal/extract"
	"clantool/internal/reconcile"

	"github.com/stretchr/testify/require"
)

const rosterDay1 = `{"Total_Count": 3, "members": [
	{"USN": 9926942, "name": "Dr.Alptraum", "position_title": "Member", "xp_point": 10826457, "contribution": 6830},
	{"USN": 100, "name": "Second", "position_title": "Officer", "xp_point": 5, "contribution": 1},
	{"USN": 200, "name": "Applicant", "xp_point": 1, "contribution": 0}
]}`

const rosterDay2 = `{"Total_Count": 2, "members": [
	{"USN": 9926942, "name": "Dr.Alptraum", "position_title": "Member", "xp_point": 10826999, "contribution": 6900}
]}`

const clanPage = `<div>35 Clan members</div>
<div class="match_details">12324<br><span>Wins</span></div>
<div class="match_details">7195<br><span>Losses</span></div>
<div class="match_details">449<br><span>Draws</span></div>`

type fakeUpstream struct {
	roster   atomic.Value
	clanPage atomic.Value
	hits     atomic.Int64
}

func newUpstream(t *testing.T) (*fakeUpstream, *httptest.Server) {
	up := &fakeUpstream{}
	up.roster.Store(rosterDay1)
	up.clanPage.Store(clanPage)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /roster/{clan}", func(w http.ResponseWriter, r *http.Request) {
		up.hits.Add(1)
		if r.PathValue("clan") != "7" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(up.roster.Load().(string)))
	})
	mux.HandleFunc("GET /clan/{clan}", func(w http.ResponseWriter, r *http.Request) {
		up.hits.Add(1)
		w.Write([]byte(up.clanPage.Load().(string)))
	})
	mux.HandleFunc("GET /profile/{id}", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "clantool-test", r.UserAgent())
		if r.PathValue("id") == "1" {
			w.Write([]byte(`{"p_o_ErrID": -702, "dsProfileHeaderInfo": []}`))
			return
		}
		w.Write([]byte(`{"p_o_ErrID": 0, "dsProfileHeaderInfo": [{"NICK": "Dr.Alptraum"}]}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return up, server
}

func testConfig(server *httptest.Server) Config {
	return Config{
		RosterUrl:      server.URL + "/roster/{clan}",
		ClanUrl:        server.URL + "/clan/{clan}",
		ProfileUrl:     server.URL + "/profile/{id}",
		UserAgent:      "clantool-test",
		TimeoutSeconds: 5,
	}
}

func setupCrawler(t *testing.T, server *httptest.Server, clock chrono.API) (Crawler, *telemetry.Recorder) {
	database, _ := dbtest.Setup(t)
	tel := telemetry.NewRecorder()
	reconciler := reconcile.NewReconciler(tel)
	reconciler.Register(7, reconcile.NewWriter(7, database, tel))
	return NewCrawler(NewClient(testConfig(server), tel), reconciler, clock, tel), tel
}

func TestFillTemplate(t *testing.T) {
	require.Equal(t, "https://x/clan?id=-3&a=-3", fillTemplate("https://x/clan?id={clan}&a={clan}", "clan", -3))
}

func TestCrawl(t *testing.T) {
	up, server := newUpstream(t)
	clock := chrono.NewFixedImpl(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	crawler, _ := setupCrawler(t, server, clock)
	ctx := context.Background()

	res, err := crawler.Crawl(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 2, res.Count(reconcile.EventJoin))

	up.roster.Store(rosterDay2)
	clock.Advance(24 * time.Hour)
	res, err = crawler.Crawl(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 1, res.Count(reconcile.EventLeave))
	require.Equal(t, 1, res.Count(reconcile.EventContinue))

	// same clock reading again, nothing to do
	res, err = crawler.Crawl(ctx, 7)
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, res.Skipped)
}

func TestSnapshotClanStatsOptional(t *testing.T) {
	up, server := newUpstream(t)
	clock := chrono.NewFixedImpl(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	crawler, tel := setupCrawler(t, server, clock)

	snap, err := crawler.Snapshot(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, &extract.Clan{Members: 35, Wins: 12324, Losses: 7195, Draws: 449}, snap.Clan)
	require.Equal(t, int32(3), snap.Total)
	require.Len(t, snap.Members, 2)
	require.Equal(t, clock.Now(), snap.ObservedAt)

	up.clanPage.Store("<html>maintenance</html>")
	snap, err = crawler.Snapshot(context.Background(), 7)
	if err != nil {
		t.Fatal(err)
	}
	require.Nil(t, snap.Clan)
	require.Len(t, tel.WarningsWithSuffix(report_clan_stats), 1)
}

func TestCrawlBrokenRoster(t *testing.T) {
	up, server := newUpstream(t)
	clock := chrono.NewFixedImpl(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	crawler, tel := setupCrawler(t, server, clock)

	up.roster.Store(`{"Total_Count": 1, "members": [{"USN": 1, "position_title": "Member"}]}`)
	_, err := crawler.Crawl(context.Background(), 7)
	require.ErrorIs(t, err, extract.ErrMissingField)
	require.Len(t, tel.WarningsWithSuffix(report_fetch), 1)
}

func TestCrawlHttpError(t *testing.T) {
	_, server := newUpstream(t)
	clock := chrono.NewFixedImpl(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	crawler, _ := setupCrawler(t, server, clock)

	_, err := crawler.Crawl(context.Background(), 8)
	require.ErrorContains(t, err, "404")
}

func TestCrawlAll(t *testing.T) {
	_, server := newUpstream(t)
	clock := chrono.NewFixedImpl(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))

	database, _ := dbtest.Setup(t)
	other, _ := dbtest.Setup(t)
	tel := telemetry.NewRecorder()
	reconciler := reconcile.NewReconciler(tel)
	reconciler.Register(7, reconcile.NewWriter(7, database, tel))
	// unknown upstream clan, fails on its own
	reconciler.Register(8, reconcile.NewWriter(8, other, tel))
	crawler := NewCrawler(NewClient(testConfig(server), tel), reconciler, clock, tel)

	results, err := crawler.CrawlAll(context.Background())
	require.Error(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int32(7), results[0].Clan)
}

func TestLookupName(t *testing.T) {
	_, server := newUpstream(t)
	clock := chrono.NewFixedImpl(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	crawler, _ := setupCrawler(t, server, clock)
	ctx := context.Background()

	name, ok, err := crawler.LookupName(ctx, 9926942)
	if err != nil {
		t.Fatal(err)
	}
	require.True(t, ok)
	require.Equal(t, "Dr.Alptraum", name)

	_, ok, err = crawler.LookupName(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	require.False(t, ok)
}

func TestClientRateLimit(t *testing.T) {
	up, server := newUpstream(t)
	cfg := testConfig(server)
	cfg.RequestsPerSecond = 1000
	client := NewClient(cfg, telemetry.NewRecorder())

	for i := 0; i < 3; i++ {
		_, err := client.FetchClan(context.Background(), 7)
		if err != nil {
			t.Fatal(err)
		}
	}
	require.Equal(t, int64(3), up.hits.Load())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.FetchRoster(ctx, 7)
	require.Error(t, err)
}

func TestClientMissingUrl(t *testing.T) {
	client := NewClient(Config{}, telemetry.NewRecorder())
	_, err := client.FetchProfile(context.Background(), 1)
	require.ErrorContains(t, err, "not configured")
}
