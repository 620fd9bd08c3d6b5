package history

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.RecordName(ctx, 1, "Dr.Alptraum"))
	require.NoError(t, svc.RecordName(ctx, 2, "Alpha"))
	require.NoError(t, svc.RecordName(ctx, 3, "zzz"))
	// an older name of member 2
	require.NoError(t, svc.RecordName(ctx, 2, "Alptraum2"))

	matches, err := svc.Search(ctx, "alptraum", 2)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, matches, 2)
	require.Equal(t, int32(2), matches[0].ID)
	require.Equal(t, "Alptraum2", matches[0].Name)
	require.Equal(t, int32(1), matches[1].ID)
	require.Greater(t, matches[0].Similarity, matches[1].Similarity)

	// names without a single common character are left out
	matches, err = svc.Search(ctx, "alptraum", 0)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, matches, 2)
}
