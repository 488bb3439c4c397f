package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending     AppointmentStatus = "pending"
	AppointmentStatusConfirmed   AppointmentStatus = "confirmed"
	AppointmentStatusCompleted   AppointmentStatus = "completed"
	AppointmentStatusCancelled   AppointmentStatus = "cancelled"
	AppointmentStatusRescheduled AppointmentStatus = "rescheduled"
	AppointmentStatusNoShow      AppointmentStatus = "no_show"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPending PaymentStatus = "pending"
)

type AppointmentType string

const (
	AppointmentTypeConsultation AppointmentType = "consultation"
	AppointmentTypeVaccination  AppointmentType = "vaccination"
	AppointmentTypeSurgery      AppointmentType = "surgery"
	AppointmentTypeFollowUp     AppointmentType = "follow_up"
	AppointmentTypeGrooming     AppointmentType = "grooming"
	AppointmentTypeWellness     AppointmentType = "wellness"
	AppointmentTypeEmergency    AppointmentType = "emergency"
	AppointmentTypeOther        AppointmentType = "other"
)

// BlockingStatuses are the statuses that occupy a slot for overlap checks.
var BlockingStatuses = []AppointmentStatus{
	AppointmentStatusPending,
	AppointmentStatusConfirmed,
	AppointmentStatusCompleted,
	AppointmentStatusNoShow,
}

// CountableStatuses is the complement of {cancelled, rescheduled}: the
// statuses that count against daily and provider capacity.
func IsCountable(s AppointmentStatus) bool {
	return s != AppointmentStatusCancelled && s != AppointmentStatusRescheduled
}

func IsBlocking(s AppointmentStatus) bool {
	for _, b := range BlockingStatuses {
		if s == b {
			return true
		}
	}
	return false
}

// Appointment is the authoritative booking record. StartAt is unique across
// all appointments regardless of status; the storage layer enforces it and
// that uniqueness is the anti-double-booking guarantee.
type Appointment struct {
	Base
	UserID           uuid.UUID         `db:"user_id" json:"user_id"`
	PetID            uuid.UUID         `db:"pet_id" json:"pet_id"`
	ProviderID       *uuid.UUID        `db:"provider_id" json:"provider_id,omitempty"`
	AssignedAt       *time.Time        `db:"assigned_at" json:"assigned_at,omitempty"`
	LastModifiedBy   *uuid.UUID        `db:"last_modified_by" json:"last_modified_by,omitempty"`
	StartAt          time.Time         `db:"start_at" json:"start_at"`
	EndAt            time.Time         `db:"end_at" json:"end_at"`
	Status           AppointmentStatus `db:"status" json:"status"`
	PaymentStatus    PaymentStatus     `db:"payment_status" json:"payment_status"`
	PaymentReference string            `db:"payment_reference" json:"payment_reference,omitempty"`
	ApptType         AppointmentType   `db:"appt_type" json:"appt_type,omitempty"`
	StaffNotes       string            `db:"staff_notes" json:"staff_notes,omitempty"`
	RescheduleCount  int               `db:"reschedule_count" json:"reschedule_count"`
	IsFollowUp       bool              `db:"is_follow_up" json:"is_follow_up"`
	FollowUpOf       *uuid.UUID        `db:"follow_up_of" json:"follow_up_of,omitempty"`
	Reminder24hAt    *time.Time        `db:"reminder_24h_sent_at" json:"reminder_24h_sent_at,omitempty"`
	Reminder1hAt     *time.Time        `db:"reminder_1h_sent_at" json:"reminder_1h_sent_at,omitempty"`
}

// CreateBookingRequest is the pet-parent commit call.
type CreateBookingRequest struct {
	PetID            uuid.UUID `json:"pet_id" binding:"required"`
	LockToken        uuid.UUID `json:"lock_token" binding:"required"`
	PaymentReference string    `json:"payment_reference"`
}

// LockSlotRequest reserves a slot while the booking form is completed.
type LockSlotRequest struct {
	Date string `json:"date" binding:"required"`
	Time string `json:"time" binding:"required"`
}

// StaffBookingRequest is the staff override booking call. Duration is one of
// the fixed staff-facing choices.
type StaffBookingRequest struct {
	UserID          uuid.UUID         `json:"user_id" binding:"required"`
	PetID           uuid.UUID         `json:"pet_id" binding:"required"`
	ProviderID      *uuid.UUID        `json:"provider_id"`
	Date            string            `json:"date" binding:"required"`
	Time            string            `json:"time" binding:"required"`
	DurationMinutes int               `json:"duration_minutes" binding:"omitempty,oneof=15 30 45 60 90 120"`
	Status          AppointmentStatus `json:"status" binding:"omitempty,oneof=pending confirmed"`
	ApptType        AppointmentType   `json:"appt_type"`
	StaffNotes      string            `json:"staff_notes"`
	OverrideRules   bool              `json:"override_rules"`
}

// UpdateAppointmentRequest is the staff status/assignment update.
type UpdateAppointmentRequest struct {
	Status           *AppointmentStatus `json:"status" binding:"omitempty,oneof=pending confirmed completed cancelled no_show"`
	PaymentStatus    *PaymentStatus     `json:"payment_status" binding:"omitempty,oneof=unpaid paid pending"`
	PaymentReference *string            `json:"payment_reference"`
	ProviderID       *uuid.UUID         `json:"provider_id"`
	StaffNotes       *string            `json:"staff_notes"`
}
