package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"clantool/internal/components/configutil"
	"clantool/internal/components/telemetry"
	"clantool/internal/crawler"
	"clantool/pkg/migrations"
)

type ClanConfig struct {
	ID int32 `json:"id"`
	// Database is a file path (`<dev_state>` is expanded) or a libsql url,
	// every clan keeps its history in its own store.
	Database string `json:"database"`
}

type Config struct {
	Timezone string `json:"timezone" env:"CLANTOOL_TIMEZONE"`
	// Schedule is a cron spec evaluated in Timezone.
	Schedule  string             `json:"schedule" env:"CLANTOOL_SCHEDULE"`
	Clans     []ClanConfig       `json:"clans"`
	Pool      migrations.Options `json:"pool"`
	Crawler   crawler.Config     `json:"crawler"`
	Telemetry telemetry.Config   `json:"telemetry"`
	Verbose   bool               `json:"verbose" env:"CLANTOOL_VERBOSE"`
}

func (c Config) Validate() error {
	if len(c.Clans) == 0 {
		return fmt.Errorf("config: no clans configured")
	}
	seen := map[int32]bool{}
	stores := map[string]int32{}
	for _, clan := range c.Clans {
		if clan.Database == "" {
			return fmt.Errorf("config: clan %d has no database", clan.ID)
		}
		if seen[clan.ID] {
			return fmt.Errorf("config: clan %d is configured twice", clan.ID)
		}
		seen[clan.ID] = true

		key := storeKey(clan.Database)
		if owner, ok := stores[key]; ok {
			return fmt.Errorf("config: clans %d and %d share the database %s", owner, clan.ID, clan.Database)
		}
		stores[key] = clan.ID
	}
	return nil
}

// storeKey normalizes a database setting so two spellings of the same store
// compare equal.
func storeKey(database string) string {
	if migrations.IsRemote(database) {
		return strings.TrimSuffix(database, "/")
	}
	if strings.HasPrefix(database, "<dev_state>") {
		return filepath.Clean(database)
	}
	abs, err := filepath.Abs(database)
	if err != nil {
		return filepath.Clean(database)
	}
	return abs
}

// Clan returns the config of a clan, id 0 picks the first configured one.
func (c Config) Clan(id int32) (ClanConfig, error) {
	if id == 0 && len(c.Clans) > 0 {
		return c.Clans[0], nil
	}
	for _, clan := range c.Clans {
		if clan.ID == id {
			return clan, nil
		}
	}
	return ClanConfig{}, fmt.Errorf("clan %d is not configured", id)
}

type location struct {
	Path string `env:"CLANTOOL_CONFIG" envDefault:"config.json5"`
}

func loadConfig(path string) (Config, error) {
	if path == "" {
		var loc location
		err := configutil.ParseEnv(&loc)
		if err != nil {
			return Config{}, err
		}
		path = loc.Path
	}

	cfg, err := configutil.Load[Config](path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 * * * *"
	}
	return cfg, cfg.Validate()
}
