// Package dbtest sets up isolated schema instances for tests that need a real
// store and tears them down again when the test ends.
package dbtest

import (
	"sync"

	"clantool/internal/components/configutil"
)

type Config struct {
	// DB is a file path or libsql url, tests use a fresh temp file when empty.
	DB       string `env:"CLANTOOL_TEST_DB"`
	MaxConns int    `env:"CLANTOOL_TEST_DB_MAX_CONNS" envDefault:"4"`
	// KeepTables leaves created tables in place for inspection.
	KeepTables bool `env:"CLANTOOL_TEST_KEEP_TABLES"`
	// LibsqlImage enables the containerized libsql-server test.
	LibsqlImage string `env:"CLANTOOL_TEST_LIBSQL_IMAGE"`
}

// LoadConfig resolves the test configuration from the environment once per process.
var LoadConfig = sync.OnceValues(func() (Config, error) {
	var cfg Config
	err := configutil.ParseEnv(&cfg)
	return cfg, err
})
