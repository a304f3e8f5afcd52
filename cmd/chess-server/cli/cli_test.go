package cli

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"chessduel/internal/storage"
	"chessduel/internal/testutil"
)

func TestInitQueryPrune(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chess.db")
	testutil.NoError(t, Run([]string{"init", "-path", path}))

	store, err := storage.NewStore(path, false)
	testutil.NoError(t, err)
	store.RecordNewGame(storage.GameRecord{
		GameID:        "old",
		InitialFEN:    "8/8/8/8/8/8/8/K6k w - - 0 1",
		WhitePlayerID: "w",
		BlackPlayerID: "b",
		StartTimeUTC:  time.Now().UTC().Add(-48 * time.Hour),
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	testutil.NoError(t, store.Flush(ctx))
	testutil.NoError(t, store.Close())

	testutil.NoError(t, Run([]string{"query", "-path", path}))
	testutil.NoError(t, Run([]string{"query", "-path", path, "-gameId", "old", "-moves"}))
	testutil.True(t, Run([]string{"query", "-path", path, "-moves"}) != nil)
	testutil.NoError(t, Run([]string{"prune", "-path", path, "-older-than", "24h"}))

	store, err = storage.NewStore(path, false)
	testutil.NoError(t, err)
	games, err := store.QueryGames("*")
	testutil.NoError(t, err)
	testutil.Equal(t, len(games), 0)
	testutil.NoError(t, store.Close())

	testutil.NoError(t, Run([]string{"delete", "-path", path}))
	testutil.True(t, Run(nil) != nil)
	testutil.True(t, Run([]string{"init"}) != nil)
	testutil.True(t, Run([]string{"bogus"}) != nil)
}
