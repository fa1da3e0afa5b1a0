package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.sqlite")
	a, err := Open(context.Background(), DialectSQLite, path, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestOpenDialects(t *testing.T) {
	ctx := context.Background()

	a, err := Open(ctx, DialectNone, "", "")
	require.NoError(t, err)
	assert.Nil(t, a, "none should disable the archive")

	_, err = Open(ctx, DialectPostgres, "", "")
	assert.Error(t, err, "postgres without a DSN")

	_, err = Open(ctx, "oracle", "", "")
	assert.Error(t, err)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.sqlite")
	ctx := context.Background()
	a, err := Open(ctx, DialectSQLite, path, "")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	a, err = Open(ctx, DialectSQLite, path, "")
	require.NoError(t, err)
	defer a.Close()

	var n int
	require.NoError(t, a.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSaveAndListResults(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()

	older := MatchResult{
		MatchID:    uuid.New(),
		LobbyID:    uuid.New(),
		NumPlayers: 2,
		Winner:     -1,
		Reason:     "assistants",
		Rounds:     10,
		Actions:    120,
		FinishedAt: time.UnixMilli(1_000_000).UTC(),
		Seats: []SeatResult{
			{Seat: 0, Nickname: "ana", TowersLeft: 5, Professors: 2, Connected: true},
			{Seat: 1, Nickname: "bo", TowersLeft: 5, Professors: 2, Connected: true},
		},
	}
	newer := MatchResult{
		MatchID:        uuid.New(),
		LobbyID:        uuid.New(),
		NumPlayers:     3,
		Expert:         true,
		Winner:         2,
		WinnerNickname: "cy",
		Reason:         "islands",
		Rounds:         6,
		Actions:        90,
		FinishedAt:     time.UnixMilli(2_000_000).UTC(),
		Seats: []SeatResult{
			{Seat: 0, Nickname: "ana", TowersLeft: 4},
			{Seat: 1, Nickname: "bo", TowersLeft: 3, Connected: true},
			{Seat: 2, Nickname: "cy", TowersLeft: 1, Professors: 3, Connected: true},
		},
	}
	require.NoError(t, a.SaveResult(ctx, older))
	require.NoError(t, a.SaveResult(ctx, newer))

	got, err := a.Results(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, newer.MatchID, got[0].MatchID, "newest first")
	assert.Equal(t, newer, got[0])
	assert.Equal(t, older, got[1])

	got, err = a.Results(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSaveResultDuplicate(t *testing.T) {
	a := openTestArchive(t)
	ctx := context.Background()
	r := MatchResult{MatchID: uuid.New(), LobbyID: uuid.New(), NumPlayers: 2, Reason: "bag"}
	require.NoError(t, a.SaveResult(ctx, r))
	assert.Error(t, a.SaveResult(ctx, r))
	assert.Error(t, a.SaveResult(ctx, MatchResult{}), "nil match id")
}

func TestNilArchive(t *testing.T) {
	var a *Archive
	assert.NoError(t, a.SaveResult(context.Background(), MatchResult{MatchID: uuid.New()}))
	res, err := a.Results(context.Background(), 5)
	assert.NoError(t, err)
	assert.Nil(t, res)
	assert.NoError(t, a.Close())
}
