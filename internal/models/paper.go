package models

import "time"

// QuestionPaper is an uploaded exam paper. The document itself lives on the
// filesystem; FilePath is the storage-relative location and is never exposed
// directly — downloads go through signed URLs.
type QuestionPaper struct {
	ID          string    `db:"id" json:"id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	TeacherName string    `db:"teacher_name" json:"teacher_name"`
	Subject     string    `db:"subject" json:"subject"`
	Year        string    `db:"year" json:"year"`
	Title       string    `db:"title" json:"title"`
	FileName    string    `db:"file_name" json:"file_name"`
	FilePath    string    `db:"file_path" json:"-"`
	UploadedAt  time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// QuestionPaperDownload pairs a paper with its signed download token.
type QuestionPaperDownload struct {
	QuestionPaper
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}
