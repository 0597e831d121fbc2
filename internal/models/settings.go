package models

import "time"

// SettingsID is the key of the single global settings row.
const SettingsID = "global"

// Settings is the portal-wide configuration document.
type Settings struct {
	ID               string    `db:"id" json:"id"`
	SchoolName       string    `db:"school_name" json:"school_name"`
	AcademicYear     string    `db:"academic_year" json:"academic_year"`
	QRSessionMinutes int       `db:"qr_session_minutes" json:"qr_session_minutes"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultSettings returns the row created when none exists yet.
func DefaultSettings() Settings {
	return Settings{
		ID:               SettingsID,
		SchoolName:       "My School",
		AcademicYear:     "2024-2025",
		QRSessionMinutes: 5,
	}
}
