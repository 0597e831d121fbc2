package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendancePresent || s == AttendanceAbsent
}

// DateLayout is the calendar-day format used for attendance dates.
const DateLayout = "2006-01-02"

// AttendanceRecord is one attendance fact. The (student_id, subject, date)
// triple is a natural key backed by a unique index.
type AttendanceRecord struct {
	ID          string           `db:"id" json:"id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	StudentName string           `db:"student_name" json:"student_name"`
	TeacherID   string           `db:"teacher_id" json:"teacher_id"`
	Subject     string           `db:"subject" json:"subject"`
	Date        string           `db:"date" json:"date"`
	Status      AttendanceStatus `db:"status" json:"status"`
	RecordedAt  time.Time        `db:"recorded_at" json:"recorded_at"`
}

// AttendanceFilter scopes listing queries. Subject "All" means no subject
// filter; the date range is inclusive on both ends.
type AttendanceFilter struct {
	StudentID string
	TeacherID string
	Subject   string
	StartDate string
	EndDate   string
}
