package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"clantool/internal/components/configutil"
	"clantool/pkg/migrations"
)

const (
	exampleConfig = "config.example.json5"
	configFile    = "config.json5"
)

type clanConfig struct {
	ID       int32  `json:"id"`
	Database string `json:"database"`
}

type config struct {
	Clans []clanConfig       `json:"clans"`
	Pool  migrations.Options `json:"pool"`
}

func copyFile(src, dst string) error {
	contents, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, contents, 0600)
}

// create sets up a dev environment in root: the dev state directory, a config
// copied from the example and an empty, migrated store for every clan in it.
func create(ctx context.Context, root string, recreate bool) error {
	_, err := os.Stat(filepath.Join(root, "go.mod"))
	if os.IsNotExist(err) {
		return fmt.Errorf("the dev environment must be created in the repository root (the same directory as the 'go.mod' file)")
	}

	state := filepath.Join(root, "dev", ".state")
	if recreate {
		err = os.RemoveAll(state)
		if err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	err = os.MkdirAll(state, 0777)
	if err != nil {
		return err
	}

	cfgPath := filepath.Join(root, configFile)
	_, err = os.Stat(cfgPath)
	if os.IsNotExist(err) {
		err = copyFile(filepath.Join(root, exampleConfig), cfgPath)
		if err != nil {
			return err
		}
		fmt.Println("created", cfgPath)
	}

	cfg, err := configutil.ReadConfig[config](cfgPath)
	if err != nil {
		return err
	}
	for _, clan := range cfg.Clans {
		path, err := configutil.ResolvePath(clan.Database)
		if err != nil {
			return err
		}
		fmt.Printf("migrating clan %d at %s\n", clan.ID, path)
		database, err := migrations.OpenAndMigrateDB(ctx, path, cfg.Pool)
		if err != nil {
			return fmt.Errorf("clan %d: %w", clan.ID, err)
		}
		database.Close()
	}
	return nil
}

func main() {
	recreate := flag.Bool("recreate", false, "recreate the dev environment from scratch")
	flag.Parse()

	err := create(context.Background(), ".", *recreate)
	if err != nil {
		slog.Error("failed to create dev environment", "err", err.Error())
		os.Exit(1)
	}

	slog.Info("dev environment created sucessfully!")
}
