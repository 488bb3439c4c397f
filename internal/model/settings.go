package model

import (
	"time"
)

// BookingSettings is the singleton row of clinic business parameters.
// Hours are local clinic time. Mutated only through the admin settings
// surface; never deleted.
type BookingSettings struct {
	StartHour       int       `db:"start_hour" json:"start_hour"`
	EndHour         int       `db:"end_hour" json:"end_hour"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	BufferMinutes   int       `db:"buffer_minutes" json:"buffer_minutes"`
	DailyLimit      int       `db:"daily_limit" json:"daily_limit"`
	FollowUpEnabled bool      `db:"follow_up_enabled" json:"follow_up_enabled"`
	FollowUpDays    int       `db:"follow_up_days" json:"follow_up_days"`
	LockMinutes     int       `db:"lock_minutes" json:"lock_minutes"`
	UPIID           string    `db:"upi_id" json:"upi_id"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultBookingSettings are the values seeded on first access.
func DefaultBookingSettings() *BookingSettings {
	return &BookingSettings{
		StartHour:       9,
		EndHour:         17,
		DurationMinutes: 60,
		BufferMinutes:   15,
		DailyLimit:      8,
		FollowUpEnabled: true,
		FollowUpDays:    7,
		LockMinutes:     5,
		UPIID:           "your-upi-id@bank",
	}
}

// BookingSettingsPatch carries an admin settings update; nil fields are left
// unchanged. Admin input is trusted beyond field types.
type BookingSettingsPatch struct {
	StartHour       *int    `json:"start_hour"`
	EndHour         *int    `json:"end_hour"`
	DurationMinutes *int    `json:"duration_minutes"`
	BufferMinutes   *int    `json:"buffer_minutes"`
	DailyLimit      *int    `json:"daily_limit"`
	FollowUpEnabled *bool   `json:"follow_up_enabled"`
	FollowUpDays    *int    `json:"follow_up_days"`
	LockMinutes     *int    `json:"lock_minutes"`
	UPIID           *string `json:"upi_id"`
}

// Apply copies the non-nil patch fields onto s.
func (p *BookingSettingsPatch) Apply(s *BookingSettings) {
	if p.StartHour != nil {
		s.StartHour = *p.StartHour
	}
	if p.EndHour != nil {
		s.EndHour = *p.EndHour
	}
	if p.DurationMinutes != nil {
		s.DurationMinutes = *p.DurationMinutes
	}
	if p.BufferMinutes != nil {
		s.BufferMinutes = *p.BufferMinutes
	}
	if p.DailyLimit != nil {
		s.DailyLimit = *p.DailyLimit
	}
	if p.FollowUpEnabled != nil {
		s.FollowUpEnabled = *p.FollowUpEnabled
	}
	if p.FollowUpDays != nil {
		s.FollowUpDays = *p.FollowUpDays
	}
	if p.LockMinutes != nil {
		s.LockMinutes = *p.LockMinutes
	}
	if p.UPIID != nil {
		s.UPIID = *p.UPIID
	}
}
