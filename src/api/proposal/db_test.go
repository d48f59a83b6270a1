package proposal

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
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

var proposalCols = []string{
	"id", "kind", "game_id", "editor_id", "status",
	"previous_proposal_id", "proposed_data", "admin_feedback",
	"reviewed_by", "feedback_acked_at",
}

func proposalRow(id, kind string, gameID interface{}, editorID, status, snapshot string) *sqlmock.Rows {
	return sqlmock.NewRows(proposalCols).
		AddRow(id, kind, gameID, editorID, status, nil, []byte(snapshot), "", nil, nil)
}
