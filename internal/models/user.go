package models

import (
	"time"

	"github.com/lib/pq"
)

// UserRole represents the portal roles.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// Valid returns true when the role is a supported value.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

// User represents an account stored in the users table. Role-specific fields
// live in their own variants (TeacherProfile, StudentProfile) rather than as
// always-present optional columns.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Role         UserRole  `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherProfile carries the teacher-only fields.
type TeacherProfile struct {
	UserID      string         `db:"user_id" json:"-"`
	Subjects    pq.StringArray `db:"subjects" json:"subjects"`
	AllowInvite bool           `db:"allow_invite" json:"allow_invite"`
}

// StudentProfile carries the student-only fields. TeacherIDs is a set: the
// link table enforces uniqueness, ordering is not significant.
type StudentProfile struct {
	TeacherIDs []string `json:"teacher_ids"`
}

// UserDetail is the API shape of an account: the base record plus the variant
// matching its role.
type UserDetail struct {
	User
	Teacher *TeacherProfile `json:"teacher,omitempty"`
	Student *StudentProfile `json:"student,omitempty"`
}

// CreateUserRequest is the payload for registering an account. The portal may
// supply its own id; subjects and allow_invite apply to TEACHER accounts only.
type CreateUserRequest struct {
	ID          string   `json:"id"`
	Email       string   `json:"email" validate:"required,email"`
	Password    string   `json:"password" validate:"required,min=6"`
	Name        string   `json:"name" validate:"required"`
	Role        UserRole `json:"role" validate:"required,oneof=ADMIN TEACHER STUDENT"`
	Subjects    []string `json:"subjects"`
	AllowInvite *bool    `json:"allow_invite"`
}

// UpdateUserRequest is the payload for partial account updates.
type UpdateUserRequest struct {
	Email       *string  `json:"email" validate:"omitempty,email"`
	Name        *string  `json:"name"`
	Password    *string  `json:"password" validate:"omitempty,min=6"`
	Subjects    []string `json:"subjects"`
	AllowInvite *bool    `json:"allow_invite"`
}

// BulkAssignRequest maps every listed student to every listed teacher.
type BulkAssignRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
	TeacherIDs []string `json:"teacher_ids" validate:"required,min=1,dive,required"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
