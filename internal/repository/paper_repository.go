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

// PaperRepository handles persistence of question paper metadata.
type PaperRepository struct {
	db *sqlx.DB
}

// NewPaperRepository constructs the repository.
func NewPaperRepository(db *sqlx.DB) *PaperRepository {
	return &PaperRepository{db: db}
}

// ListByTeachers returns papers uploaded by any of the teachers, newest
// first. An empty teacher set yields an empty list.
func (r *PaperRepository) ListByTeachers(ctx context.Context, teacherIDs []string) ([]models.QuestionPaper, error) {
	if len(teacherIDs) == 0 {
		return []models.QuestionPaper{}, nil
	}
	const query = `SELECT id, teacher_id, teacher_name, subject, year, title, file_name, file_path, uploaded_at
        FROM question_papers WHERE teacher_id = ANY($1::text[]) ORDER BY uploaded_at DESC`
	var papers []models.QuestionPaper
	if err := r.db.SelectContext(ctx, &papers, query, pq.Array(teacherIDs)); err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	return papers, nil
}

// ListAll returns every paper, newest first.
func (r *PaperRepository) ListAll(ctx context.Context) ([]models.QuestionPaper, error) {
	const query = `SELECT id, teacher_id, teacher_name, subject, year, title, file_name, file_path, uploaded_at
        FROM question_papers ORDER BY uploaded_at DESC`
	var papers []models.QuestionPaper
	if err := r.db.SelectContext(ctx, &papers, query); err != nil {
		return nil, fmt.Errorf("list all papers: %w", err)
	}
	return papers, nil
}

// FindByID returns a paper by identifier.
func (r *PaperRepository) FindByID(ctx context.Context, id string) (*models.QuestionPaper, error) {
	const query = `SELECT id, teacher_id, teacher_name, subject, year, title, file_name, file_path, uploaded_at
        FROM question_papers WHERE id = $1 LIMIT 1`
	var paper models.QuestionPaper
	if err := r.db.GetContext(ctx, &paper, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find paper: %w", err)
	}
	return &paper, nil
}

// Create persists paper metadata.
func (r *PaperRepository) Create(ctx context.Context, paper *models.QuestionPaper) error {
	if paper.ID == "" {
		paper.ID = uuid.NewString()
	}
	if paper.UploadedAt.IsZero() {
		paper.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO question_papers (id, teacher_id, teacher_name, subject, year, title, file_name, file_path, uploaded_at)
        VALUES (:id, :teacher_id, :teacher_name, :subject, :year, :title, :file_name, :file_path, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, paper); err != nil {
		return fmt.Errorf("create paper: %w", err)
	}
	return nil
}

// Delete removes paper metadata; deleting an unknown id is a no-op.
func (r *PaperRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM question_papers WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete paper: %w", err)
	}
	return nil
}
