package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"clantool/internal/components/telemetry"
	"clantool/internal/extract"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestReconcileRollsBackOnStorageFailure(t *testing.T) {
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	w := NewWriter(1, database, telemetry.NewRecorder())

	mock.ExpectBegin()
	mock.ExpectQuery("name: GetSetting").WithArgs(SettingHalted).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("name: GetSetting").WithArgs(SettingClan).WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("1"))
	mock.ExpectQuery("name: GetSetting").WithArgs(SettingLastObserved).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("name: GetOpenMemberships").WillReturnRows(sqlmock.NewRows([]string{"nr", "id", "from", "to"}))
	mock.ExpectQuery("name: GetOpenTrials").WillReturnRows(sqlmock.NewRows([]string{"id", "from", "to"}))
	mock.ExpectExec("name: CreateMembership :execlastid").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("name: InsertLog").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err = w.Reconcile(context.Background(), Snapshot{
		ObservedAt: at("2024-06-01", 1),
		Members:    []extract.Member{member(1)},
	})

	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	require.Equal(t, "apply", storageErr.Op)
	require.False(t, storageErr.Fatal())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcileBeginFailure(t *testing.T) {
	database, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer database.Close()

	w := NewWriter(1, database, telemetry.NewRecorder())
	mock.ExpectBegin().WillReturnError(errors.New("database is locked"))

	_, err = w.Reconcile(context.Background(), Snapshot{ObservedAt: at("2024-06-01", 1)})
	var storageErr *StorageError
	require.ErrorAs(t, err, &storageErr)
	require.Equal(t, "begin", storageErr.Op)
	require.False(t, IsFatal(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
