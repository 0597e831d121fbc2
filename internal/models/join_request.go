package models

import "time"

// JoinRequestStatus tracks the request lifecycle. PENDING is the only
// non-terminal state; ACCEPTED and REJECTED are final and retained as audit
// records.
type JoinRequestStatus string

const (
	JoinRequestPending  JoinRequestStatus = "PENDING"
	JoinRequestAccepted JoinRequestStatus = "ACCEPTED"
	JoinRequestRejected JoinRequestStatus = "REJECTED"
)

// ValidResponse reports whether the status is an allowed teacher response.
func (s JoinRequestStatus) ValidResponse() bool {
	return s == JoinRequestAccepted || s == JoinRequestRejected
}

// JoinRequest mediates a student's request to be linked to a teacher. Names
// are denormalized at creation time and not kept in sync with later renames.
type JoinRequest struct {
	ID          string            `db:"id" json:"id"`
	StudentID   string            `db:"student_id" json:"student_id"`
	StudentName string            `db:"student_name" json:"student_name"`
	TeacherID   string            `db:"teacher_id" json:"teacher_id"`
	TeacherName string            `db:"teacher_name" json:"teacher_name"`
	Status      JoinRequestStatus `db:"status" json:"status"`
	CreatedAt   time.Time         `db:"created_at" json:"created_at"`
}
