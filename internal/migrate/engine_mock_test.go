package migrate

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sqlbridge/internal/dberr"
)

// newMock creates a sqlmock database that must see every expectation in order.
func newMock(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	eng, _ := quietEngine(db)
	return eng, mock
}

func ledgerRows(entries ...Entry) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"id", "name", "hash"})
	for _, e := range entries {
		rows.AddRow(e.ID, e.Name, e.Hash)
	}
	return rows
}

func TestApplyMock_EnsureLedgerFailureIsDatabaseError(t *testing.T) {
	eng, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(createLedgerSQL)).
		WillReturnError(errors.New("attempt to write a readonly database"))

	_, err := eng.Apply(context.Background(), []Migration{migA})
	require.Error(t, err)

	assert.True(t, dberr.IsDatabase(err), "got %v", err)
	assert.Contains(t, err.Error(), "attempt to write a readonly database")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMock_ReadLedgerFailureIsDatabaseError(t *testing.T) {
	eng, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(createLedgerSQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(selectLedgerSQL)).
		WillReturnError(errors.New("database disk image is malformed"))

	_, err := eng.Apply(context.Background(), []Migration{migA})
	require.Error(t, err)

	assert.True(t, dberr.IsDatabase(err), "got %v", err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMock_LedgerInsertFailureStopsWalk(t *testing.T) {
	eng, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(createLedgerSQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(selectLedgerSQL)).WillReturnRows(ledgerRows())
	mock.ExpectExec(regexp.QuoteMeta(migA.SQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(insertLedgerSQL)).
		WillReturnError(errors.New("database is locked"))
	// Nothing for migB: any further call fails the expectations

	report, err := eng.Apply(context.Background(), []Migration{migA, migB})
	require.Error(t, err)

	assert.True(t, dberr.IsMigration(err), "got %v", err)
	assert.Equal(t, "A", dberr.SubjectOf(err))
	assert.Contains(t, err.Error(), "error recording migration A")
	assert.Contains(t, err.Error(), "database is locked")
	assert.Empty(t, report.Applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMock_VerifiedEntriesAreNotExecuted(t *testing.T) {
	eng, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(createLedgerSQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(selectLedgerSQL)).WillReturnRows(ledgerRows(
		Entry{ID: 1, Name: "A", Hash: migA.Hash()},
		Entry{ID: 2, Name: "B", Hash: migB.Hash()},
	))
	mock.ExpectExec(regexp.QuoteMeta(migC.SQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(insertLedgerSQL)).WillReturnResult(sqlmock.NewResult(3, 1))

	report, err := eng.Apply(context.Background(), []Migration{migA, migB, migC})
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, report.Verified)
	assert.Equal(t, []string{"C"}, report.Applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyMock_CommitFailureInTransactionalMode(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	eng, _ := quietEngine(db, WithTransactionalBatches(true))

	mock.ExpectExec(regexp.QuoteMeta(createLedgerSQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(selectLedgerSQL)).WillReturnRows(ledgerRows())
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(migA.SQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(insertLedgerSQL)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("disk I/O error"))

	_, err = eng.Apply(context.Background(), []Migration{migA})
	require.Error(t, err)
	assert.True(t, dberr.IsMigration(err))
	assert.Contains(t, err.Error(), "error committing migration A")
	assert.NoError(t, mock.ExpectationsWereMet())
}
