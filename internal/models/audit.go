package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionUserCreate     = "USER_CREATE"
	AuditActionUserUpdate     = "USER_UPDATE"
	AuditActionUserDelete     = "USER_DELETE"
	AuditActionBulkAssign     = "BULK_ASSIGN"
	AuditActionRequestSubmit  = "REQUEST_SUBMIT"
	AuditActionRequestRespond = "REQUEST_RESPOND"
	AuditActionAttendanceMark = "ATTENDANCE_MARK"
	AuditActionNoticeCreate   = "NOTICE_CREATE"
	AuditActionNoticeUpdate   = "NOTICE_UPDATE"
	AuditActionNoticeDelete   = "NOTICE_DELETE"
	AuditActionPaperUpload    = "PAPER_UPLOAD"
	AuditActionPaperDelete    = "PAPER_DELETE"
	AuditActionSettingsUpdate = "SETTINGS_UPDATE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
