package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SciData-Delivery/Delivery-Service/internal/errvalues"
	"github.com/SciData-Delivery/Delivery-Service/internal/models"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestGetUserByUsername(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{
		"public_id", "username", "password_hash", "is_facility", "active", "facility_ref", "delivery_unit",
	}).AddRow("pub-1", "facility", "hash", true, true, "fac", "unit-north")

	mock.ExpectQuery("SELECT public_id, username").WithArgs("facility").WillReturnRows(rows)

	user, err := store.GetUserByUsername(context.Background(), "facility")
	require.NoError(t, err)
	assert.Equal(t, "pub-1", user.PublicID)
	assert.True(t, user.IsFacility)
	assert.Equal(t, "unit-north", user.DeliveryUnit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT public_id, username").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"public_id"}))

	_, err := store.GetUserByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, errvalues.ErrNotFound)
}

func TestGetProjectNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, title").
		WithArgs("nosuch").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetProject(context.Background(), "nosuch")
	assert.ErrorIs(t, err, errvalues.ErrNotFound)
}

func TestIsProjectMember(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("fac001", "pub-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	member, err := store.IsProjectMember(context.Background(), "fac001", "pub-1")
	require.NoError(t, err)
	assert.True(t, member)
}

func TestCreateProjectTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO projects").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO project_members").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO project_members").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	now := time.Now()
	err := store.CreateProject(context.Background(), models.Project{
		ID: "fac001", Title: "t", Owner: "owner-1", Facility: "fac-1",
		Status: models.StatusOngoing, Bucket: "fac001-bucket",
		PublicKey: "pk", PrivateKey: "sk", DateCreated: now, DateUpdated: now,
	}, []string{"fac-1", "owner-1"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProjectRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO projects").WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := store.CreateProject(context.Background(), models.Project{ID: "fac001"}, nil)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertFileReportsCreation(t *testing.T) {
	store, mock := newMockStore(t)

	file := models.File{
		ID: "id-1", Name: "reads.fastq", NameInBucket: "reads.fastq.c4gh",
		ProjectID: "fac001", UploadedAt: time.Now(),
	}

	mock.ExpectQuery("INSERT INTO files").
		WillReturnRows(sqlmock.NewRows([]string{"created"}).AddRow(true))
	created, err := store.UpsertFile(context.Background(), file)
	require.NoError(t, err)
	assert.True(t, created)

	mock.ExpectQuery("INSERT INTO files").
		WillReturnRows(sqlmock.NewRows([]string{"created"}).AddRow(false))
	created, err = store.UpsertFile(context.Background(), file)
	require.NoError(t, err)
	assert.False(t, created)
}

func TestDeleteProjectFiles(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM files").WithArgs("fac001").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("UPDATE projects SET size = 0").WithArgs("fac001").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.DeleteProjectFiles(context.Background(), "fac001")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProjectFilesRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM files").WithArgs("fac001").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	err := store.DeleteProjectFiles(context.Background(), "fac001")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
