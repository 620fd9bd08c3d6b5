package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string `json:"name"`
	Retries int    `json:"retries" env:"TEST_CONFIGUTIL_RETRIES"`
	Nested  struct {
		Url string `json:"url"`
	} `json:"nested"`
}

func TestReadConfigMergesLocal(t *testing.T) {
	cfg, err := ReadConfig[testConfig]("testdata/app.json5")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "local", cfg.Name)
	require.Equal(t, 3, cfg.Retries)
	require.Equal(t, "http://localhost", cfg.Nested.Url)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "missing.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TEST_CONFIGUTIL_RETRIES", "9")
	cfg, err := Load[testConfig]("testdata/app.json5")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, 9, cfg.Retries)
}

func TestLocalName(t *testing.T) {
	require.Equal(t, "dir/config.local.json5", localName("dir/config.json5"))
	require.Equal(t, "config.local", localName("config"))
}

func TestResolvePathPassthrough(t *testing.T) {
	path, err := ResolvePath("/var/lib/clantool.db")
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "/var/lib/clantool.db", path)
}
