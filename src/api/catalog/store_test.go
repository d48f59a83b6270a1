package catalog

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/playforge/catalog/src/api/types"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func countRows(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count(*)"}).AddRow(n)
}

func TestCreateFromSnapshot(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `games` WHERE slug = \\?").
		WithArgs("puzzle-x").
		WillReturnRows(countRows(0))
	mock.ExpectExec("INSERT INTO `games`").
		WillReturnResult(sqlmock.NewResult(0, 1))

	game, err := store.CreateFromSnapshot(types.JSONMap{
		"title":       "Puzzle X",
		"description": "a maze game",
		"genre":       "puzzle",
	}, "ed1")
	require.NoError(t, err)
	assert.Equal(t, "puzzle-x", game.Slug)
	assert.Equal(t, "Puzzle X", game.Title)
	assert.Equal(t, "a maze game", game.Description)
	assert.Equal(t, types.GameActive, game.Status)
	assert.Equal(t, types.ProcessingNone, game.ProcessingStatus)
	assert.Equal(t, "ed1", game.CreatedByID)
	// Unknown snapshot keys land in metadata, not on columns.
	assert.Equal(t, "puzzle", game.Metadata.Str("genre"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplySnapshotMergesFields(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	mock.ExpectExec("UPDATE `games` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	game := &types.Game{
		ID:     "g1",
		Slug:   "puzzle-x",
		Title:  "Puzzle X",
		Status: types.GameActive,
	}
	err := store.ApplySnapshot(game, types.JSONMap{
		"description": "updated copy",
		"status":      "bogus", // unknown statuses are ignored
	})
	require.NoError(t, err)
	assert.Equal(t, "Puzzle X", game.Title)
	assert.Equal(t, "updated copy", game.Description)
	assert.Equal(t, types.GameActive, game.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHoldForProcessing(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	mock.ExpectExec("UPDATE `games` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.HoldForProcessing("g1", "tmp/123.zip")
	require.NoError(t, err)

	mock.ExpectExec("UPDATE `games` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = store.HoldForProcessing("missing", "tmp/123.zip")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

// MarkProcessing is conditional on the pending status so a redelivered job
// cannot restart a finished entry.
func TestMarkProcessingClaims(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	mock.ExpectExec("UPDATE `games` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := store.MarkProcessing("g1")
	require.NoError(t, err)
	assert.True(t, claimed)

	mock.ExpectExec("UPDATE `games` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err = store.MarkProcessing("g1")
	require.NoError(t, err)
	assert.False(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	mock.ExpectQuery("SELECT \\* FROM `games` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "title"}))

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
