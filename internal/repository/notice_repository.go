package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/attendly/attendly-api/internal/models"
)

// NoticeRepository handles persistence of notices.
type NoticeRepository struct {
	db *sqlx.DB
}

// NewNoticeRepository constructs the repository.
func NewNoticeRepository(db *sqlx.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

// ListByTeachers returns notices authored by any of the teachers, newest
// first. An empty teacher set yields an empty list.
func (r *NoticeRepository) ListByTeachers(ctx context.Context, teacherIDs []string) ([]models.Notice, error) {
	if len(teacherIDs) == 0 {
		return []models.Notice{}, nil
	}
	const query = `SELECT id, teacher_id, teacher_name, title, content, created_at
        FROM notices WHERE teacher_id = ANY($1::text[]) ORDER BY created_at DESC`
	var notices []models.Notice
	if err := r.db.SelectContext(ctx, &notices, query, pq.Array(teacherIDs)); err != nil {
		return nil, fmt.Errorf("list notices: %w", err)
	}
	return notices, nil
}

// ListAll returns every notice, newest first.
func (r *NoticeRepository) ListAll(ctx context.Context) ([]models.Notice, error) {
	const query = `SELECT id, teacher_id, teacher_name, title, content, created_at FROM notices ORDER BY created_at DESC`
	var notices []models.Notice
	if err := r.db.SelectContext(ctx, &notices, query); err != nil {
		return nil, fmt.Errorf("list all notices: %w", err)
	}
	return notices, nil
}

// Create persists a new notice.
func (r *NoticeRepository) Create(ctx context.Context, notice *models.Notice) error {
	if notice.ID == "" {
		notice.ID = uuid.NewString()
	}
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notices (id, teacher_id, teacher_name, title, content, created_at)
        VALUES (:id, :teacher_id, :teacher_name, :title, :content, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notice); err != nil {
		return fmt.Errorf("create notice: %w", err)
	}
	return nil
}

// Update rewrites the notice title and content. Returns sql.ErrNoRows when
// the id is unknown.
func (r *NoticeRepository) Update(ctx context.Context, notice *models.Notice) error {
	const query = `UPDATE notices SET title = $2, content = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, notice.ID, notice.Title, notice.Content)
	if err != nil {
		return fmt.Errorf("update notice: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update notice result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID returns a notice by identifier.
func (r *NoticeRepository) FindByID(ctx context.Context, id string) (*models.Notice, error) {
	const query = `SELECT id, teacher_id, teacher_name, title, content, created_at FROM notices WHERE id = $1 LIMIT 1`
	var notice models.Notice
	if err := r.db.GetContext(ctx, &notice, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find notice: %w", err)
	}
	return &notice, nil
}

// Delete removes a notice; deleting an unknown id is a no-op.
func (r *NoticeRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM notices WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete notice: %w", err)
	}
	return nil
}
