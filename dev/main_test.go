package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	root := t.TempDir()
	clanDB := filepath.Join(root, "stores", "clan5.db")

	err := os.WriteFile(filepath.Join(root, "go.mod"), []byte("module clantool\n"), 0600)
	if err != nil {
		t.Fatal(err)
	}
	err = os.WriteFile(
		filepath.Join(root, exampleConfig),
		[]byte(fmt.Sprintf(`{clans: [{id: 5, database: %q}]}`, clanDB)),
		0600,
	)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	err = create(ctx, root, false)
	if err != nil {
		t.Fatal(err)
	}
	require.FileExists(t, filepath.Join(root, configFile))
	require.FileExists(t, clanDB)
	require.DirExists(t, filepath.Join(root, "dev", ".state"))

	// running again keeps everything in place
	err = create(ctx, root, true)
	if err != nil {
		t.Fatal(err)
	}
	require.FileExists(t, clanDB)
}

func TestCreateOutsideRoot(t *testing.T) {
	err := create(context.Background(), t.TempDir(), false)
	require.ErrorContains(t, err, "repository root")
}
