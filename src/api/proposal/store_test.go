package proposal

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playforge/catalog/src/api/types"
)

func TestSubmitCreate(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	mock.ExpectExec("INSERT INTO `game_proposals`").
		WillReturnResult(sqlmock.NewResult(0, 1))

	p, err := store.Submit(types.ProposalCreate, nil, "ed1", types.JSONMap{"title": "Puzzle X"})
	require.NoError(t, err)
	assert.Equal(t, types.ProposalPending, p.Status)
	assert.Equal(t, types.ProposalCreate, p.Kind)
	assert.Nil(t, p.GameID)
	assert.NotEmpty(t, p.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitUpdateChecksTarget(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `games` WHERE id = \\?").
		WillReturnRows(countRows(0))

	gone := "gone"
	_, err := store.Submit(types.ProposalUpdate, &gone, "ed1", types.JSONMap{})
	assert.ErrorIs(t, err, ErrTargetMissing)

	_, err = store.Submit(types.ProposalUpdate, nil, "ed1", types.JSONMap{})
	assert.ErrorIs(t, err, ErrTargetMissing)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitUnknownKind(t *testing.T) {
	db, _ := newMockDB(t)
	store := NewStore(db)

	_, err := store.Submit("merge", nil, "ed1", types.JSONMap{})
	assert.Error(t, err)
}

func TestListMineFiltersByStatus(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	mock.ExpectQuery("SELECT \\* FROM `game_proposals` WHERE editor_id = \\? AND status = \\?").
		WithArgs("ed1", types.ProposalDeclined, defaultPageSize).
		WillReturnRows(proposalRow("p1", types.ProposalCreate, nil, "ed1", types.ProposalDeclined, `{}`))

	props, err := store.ListMine("ed1", types.ProposalDeclined, 0, 0)
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "p1", props[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListAllPagination(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	mock.ExpectQuery("SELECT \\* FROM `game_proposals` ORDER BY created_at DESC").
		WithArgs(10, 25).
		WillReturnRows(sqlmock.NewRows(proposalCols))

	props, err := store.ListAll("", 25, 10)
	require.NoError(t, err)
	assert.Empty(t, props)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSnapshotMergesOntoPending(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	mock.ExpectQuery("SELECT \\* FROM `game_proposals` WHERE id = \\?").
		WillReturnRows(proposalRow("p1", types.ProposalCreate, nil, "ed1", types.ProposalPending,
			`{"title":"Puzzle X","description":"v1"}`))
	mock.ExpectExec("UPDATE `game_proposals` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	p, err := store.UpdateSnapshot("p1", "ed1", types.JSONMap{"description": "v2"})
	require.NoError(t, err)
	assert.Equal(t, "Puzzle X", p.ProposedData.Str("title"))
	assert.Equal(t, "v2", p.ProposedData.Str("description"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSnapshotGuards(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	mock.ExpectQuery("SELECT \\* FROM `game_proposals` WHERE id = \\?").
		WillReturnRows(proposalRow("p1", types.ProposalCreate, nil, "ed1", types.ProposalPending, `{}`))

	_, err := store.UpdateSnapshot("p1", "someone-else", types.JSONMap{})
	assert.ErrorIs(t, err, ErrNotOwner)

	mock.ExpectQuery("SELECT \\* FROM `game_proposals` WHERE id = \\?").
		WillReturnRows(proposalRow("p1", types.ProposalCreate, nil, "ed1", types.ProposalDeclined, `{}`))

	_, err = store.UpdateSnapshot("p1", "ed1", types.JSONMap{})
	assert.ErrorIs(t, err, ErrInvalidState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteByOwner(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	mock.ExpectQuery("SELECT \\* FROM `game_proposals` WHERE id = \\?").
		WillReturnRows(proposalRow("p1", types.ProposalCreate, nil, "ed1", types.ProposalPending, `{}`))
	mock.ExpectExec("DELETE FROM `game_proposals`").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Delete("p1", Actor{ID: "ed1"})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteApprovedNeedsAdmin(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	mock.ExpectQuery("SELECT \\* FROM `game_proposals` WHERE id = \\?").
		WillReturnRows(proposalRow("p1", types.ProposalCreate, nil, "ed1", types.ProposalApproved, `{}`))

	err := store.Delete("p1", Actor{ID: "ed1"})
	assert.ErrorIs(t, err, ErrForbidden)

	mock.ExpectQuery("SELECT \\* FROM `game_proposals` WHERE id = \\?").
		WillReturnRows(proposalRow("p1", types.ProposalCreate, nil, "ed1", types.ProposalApproved, `{}`))
	mock.ExpectExec("DELETE FROM `game_proposals`").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = store.Delete("p1", Actor{ID: "adm", Admin: true})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewStore(db)

	mock.ExpectQuery("SELECT \\* FROM `game_proposals` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows(proposalCols))

	err := store.Delete("missing", Actor{ID: "ed1"})
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
