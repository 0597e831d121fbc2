package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/attendly/attendly-api/internal/models"
)

// JoinRequestRepository handles persistence of join requests.
type JoinRequestRepository struct {
	db *sqlx.DB
}

// NewJoinRequestRepository constructs the repository.
func NewJoinRequestRepository(db *sqlx.DB) *JoinRequestRepository {
	return &JoinRequestRepository{db: db}
}

// ListPendingByTeacher returns the open requests addressed to a teacher,
// oldest first.
func (r *JoinRequestRepository) ListPendingByTeacher(ctx context.Context, teacherID string) ([]models.JoinRequest, error) {
	const query = `SELECT id, student_id, student_name, teacher_id, teacher_name, status, created_at
        FROM join_requests WHERE teacher_id = $1 AND status = $2 ORDER BY created_at ASC`
	var requests []models.JoinRequest
	if err := r.db.SelectContext(ctx, &requests, query, teacherID, models.JoinRequestPending); err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	return requests, nil
}

// FindByID returns a request by identifier.
func (r *JoinRequestRepository) FindByID(ctx context.Context, id string) (*models.JoinRequest, error) {
	const query = `SELECT id, student_id, student_name, teacher_id, teacher_name, status, created_at
        FROM join_requests WHERE id = $1 LIMIT 1`
	var request models.JoinRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find join request: %w", err)
	}
	return &request, nil
}

// CreatePending inserts a new PENDING request unless one is already open for
// the same (student, teacher) pair. The conditional insert keeps the
// at-most-one-pending invariant; when two submitters pass the NOT EXISTS
// check simultaneously the partial unique index rejects the loser, which is
// reported the same way as a plain repeat. Returns false when the pair
// already has an open request.
func (r *JoinRequestRepository) CreatePending(ctx context.Context, request *models.JoinRequest) (bool, error) {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = time.Now().UTC()
	}
	request.Status = models.JoinRequestPending

	const query = `INSERT INTO join_requests (id, student_id, student_name, teacher_id, teacher_name, status, created_at)
        SELECT $1, $2, $3, $4, $5, $6, $7
        WHERE NOT EXISTS (
            SELECT 1 FROM join_requests WHERE student_id = $2 AND teacher_id = $4 AND status = $6
        )`
	res, err := r.db.ExecContext(ctx, query,
		request.ID,
		request.StudentID,
		request.StudentName,
		request.TeacherID,
		request.TeacherName,
		request.Status,
		request.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return false, nil
		}
		return false, fmt.Errorf("create join request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create join request result: %w", err)
	}
	return affected == 1, nil
}

// Resolve transitions a PENDING request to a terminal status. Returns false
// when the request was already resolved; the status guard makes the
// transition happen at most once even under racing responders.
func (r *JoinRequestRepository) Resolve(ctx context.Context, id string, status models.JoinRequestStatus) (bool, error) {
	const query = `UPDATE join_requests SET status = $2 WHERE id = $1 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, id, status, models.JoinRequestPending)
	if err != nil {
		return false, fmt.Errorf("resolve join request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolve join request result: %w", err)
	}
	return affected == 1, nil
}
