package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/attendly-api/internal/models"
)

func newJoinRequestRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestJoinRequestRepositoryListPendingByTeacher(t *testing.T) {
	db, mock, cleanup := newJoinRequestRepoMock(t)
	defer cleanup()
	repo := NewJoinRequestRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "student_name", "teacher_id", "teacher_name", "status", "created_at"}).
		AddRow("r1", "s1", "Student One", "t1", "Teacher One", "PENDING", time.Now()).
		AddRow("r2", "s2", "Student Two", "t1", "Teacher One", "PENDING", time.Now())
	mock.ExpectQuery("SELECT id, student_id, student_name, teacher_id, teacher_name, status, created_at").
		WithArgs("t1", models.JoinRequestPending).
		WillReturnRows(rows)

	requests, err := repo.ListPendingByTeacher(context.Background(), "t1")
	require.NoError(t, err)
	assert.Len(t, requests, 2)
	assert.Equal(t, "r1", requests[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJoinRequestRepositoryCreatePending(t *testing.T) {
	db, mock, cleanup := newJoinRequestRepoMock(t)
	defer cleanup()
	repo := NewJoinRequestRepository(db)

	mock.ExpectExec("INSERT INTO join_requests").
		WithArgs(sqlmock.AnyArg(), "s1", "Student One", "t1", "Teacher One", models.JoinRequestPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	request := &models.JoinRequest{StudentID: "s1", StudentName: "Student One", TeacherID: "t1", TeacherName: "Teacher One"}
	inserted, err := repo.CreatePending(context.Background(), request)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotEmpty(t, request.ID)
	assert.Equal(t, models.JoinRequestPending, request.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJoinRequestRepositoryCreatePendingDuplicate(t *testing.T) {
	db, mock, cleanup := newJoinRequestRepoMock(t)
	defer cleanup()
	repo := NewJoinRequestRepository(db)

	// The conditional insert touches no rows when an open request exists.
	mock.ExpectExec("INSERT INTO join_requests").
		WithArgs(sqlmock.AnyArg(), "s1", "Student One", "t1", "Teacher One", models.JoinRequestPending, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	request := &models.JoinRequest{StudentID: "s1", StudentName: "Student One", TeacherID: "t1", TeacherName: "Teacher One"}
	inserted, err := repo.CreatePending(context.Background(), request)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJoinRequestRepositoryCreatePendingRacedInsert(t *testing.T) {
	db, mock, cleanup := newJoinRequestRepoMock(t)
	defer cleanup()
	repo := NewJoinRequestRepository(db)

	// Both racers pass NOT EXISTS; the loser hits the partial unique index
	// and must surface as a duplicate, not an error.
	mock.ExpectExec("INSERT INTO join_requests").
		WithArgs(sqlmock.AnyArg(), "s1", "Student One", "t1", "Teacher One", models.JoinRequestPending, sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "join_requests_pending_unique"})

	request := &models.JoinRequest{StudentID: "s1", StudentName: "Student One", TeacherID: "t1", TeacherName: "Teacher One"}
	inserted, err := repo.CreatePending(context.Background(), request)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJoinRequestRepositoryResolve(t *testing.T) {
	db, mock, cleanup := newJoinRequestRepoMock(t)
	defer cleanup()
	repo := NewJoinRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE join_requests SET status = $2 WHERE id = $1 AND status = $3")).
		WithArgs("r1", models.JoinRequestAccepted, models.JoinRequestPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	resolved, err := repo.Resolve(context.Background(), "r1", models.JoinRequestAccepted)
	require.NoError(t, err)
	assert.True(t, resolved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJoinRequestRepositoryResolveAlreadyTerminal(t *testing.T) {
	db, mock, cleanup := newJoinRequestRepoMock(t)
	defer cleanup()
	repo := NewJoinRequestRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE join_requests SET status = $2 WHERE id = $1 AND status = $3")).
		WithArgs("r1", models.JoinRequestRejected, models.JoinRequestPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	resolved, err := repo.Resolve(context.Background(), "r1", models.JoinRequestRejected)
	require.NoError(t, err)
	assert.False(t, resolved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestJoinRequestRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newJoinRequestRepoMock(t)
	defer cleanup()
	repo := NewJoinRequestRepository(db)

	mock.ExpectQuery("SELECT id, student_id, student_name, teacher_id, teacher_name, status, created_at").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
