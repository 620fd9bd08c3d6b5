package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"clantool/internal/components/chrono"
	"clantool/internal/components/configutil"
	"clantool/internal/components/telemetry"
	"clantool/internal/crawler"
	"clantool/internal/history"
	"clantool/internal/reconcile"
	"clantool/pkg/migrations"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// app holds everything a command needs, one open store per configured clan.
type app struct {
	cfg        Config
	tel        telemetry.API
	time       chrono.API
	dbs        map[int32]*sql.DB
	reconciler *reconcile.Reconciler
	crawler    crawler.Crawler
}

func newTel(verbose bool) telemetry.API {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return telemetry.NewSlogAPI(level)
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	tel := newTel(verbose || cfg.Verbose)

	clock, err := chrono.NewStandardImpl(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}

	a := &app{
		cfg:        cfg,
		tel:        tel,
		time:       clock,
		dbs:        map[int32]*sql.DB{},
		reconciler: reconcile.NewReconciler(telemetry.NewScopedAPI("reconcile", tel)),
	}
	for _, clan := range cfg.Clans {
		dsn, err := configutil.ResolvePath(clan.Database)
		if err != nil {
			a.close()
			return nil, err
		}
		database, err := migrations.OpenAndMigrateDB(ctx, dsn, cfg.Pool)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("clan %d: %w", clan.ID, err)
		}
		a.dbs[clan.ID] = database
		a.reconciler.Register(clan.ID, reconcile.NewWriter(clan.ID, database, tel))
	}

	a.crawler = crawler.NewCrawler(
		crawler.NewClient(cfg.Crawler, telemetry.NewScopedAPI("client", tel)),
		a.reconciler,
		clock,
		telemetry.NewScopedAPI("crawler", tel),
	)
	return a, nil
}

func (a *app) close() {
	for clan, database := range a.dbs {
		err := database.Close()
		if err != nil {
			a.tel.ReportWarning("app.close-db", clan, err)
		}
	}
}

func (a *app) clan() (int32, *sql.DB, error) {
	cfg, err := a.cfg.Clan(clanFlag)
	if err != nil {
		return 0, nil, err
	}
	return cfg.ID, a.dbs[cfg.ID], nil
}

func (a *app) writer() (*reconcile.Writer, error) {
	id, _, err := a.clan()
	if err != nil {
		return nil, err
	}
	w, ok := a.reconciler.Writer(id)
	if !ok {
		return nil, fmt.Errorf("clan %d has no writer", id)
	}
	return w, nil
}

func (a *app) history() (history.Service, error) {
	_, database, err := a.clan()
	if err != nil {
		return history.Service{}, err
	}
	return history.NewService(database, a.time, a.tel), nil
}

// withApp opens the app for the duration of a command.
func withApp(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		return run(cmd, a, args)
	}
}

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(cmd.OutOrStdout())
	return t
}

func exitCode(err error) int {
	if reconcile.IsFatal(err) {
		return 2
	}
	if errors.Is(err, os.ErrNotExist) {
		return 3
	}
	return 1
}
