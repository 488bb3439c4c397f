package model

import (
	"time"

	"github.com/google/uuid"
)

type RescheduleRequestStatus string

const (
	RescheduleStatusPending  RescheduleRequestStatus = "pending"
	RescheduleStatusApproved RescheduleRequestStatus = "approved"
	RescheduleStatusRejected RescheduleRequestStatus = "rejected"
)

// RescheduleRequest is a pet parent's proposal for a new slot, awaiting a
// staff decision. pending -> approved|rejected, terminal.
type RescheduleRequest struct {
	ID                     uuid.UUID               `db:"id" json:"id"`
	AppointmentID          uuid.UUID               `db:"appointment_id" json:"appointment_id"`
	RequestedBy            uuid.UUID               `db:"requested_by" json:"requested_by"`
	RequestedStartAt       time.Time               `db:"requested_start_at" json:"requested_start_at"`
	RequestedEndAt         time.Time               `db:"requested_end_at" json:"requested_end_at"`
	Status                 RescheduleRequestStatus `db:"status" json:"status"`
	AdminNote              string                  `db:"admin_note" json:"admin_note,omitempty"`
	ReviewedBy             *uuid.UUID              `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt             *time.Time              `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ResultingAppointmentID *uuid.UUID              `db:"resulting_appointment_id" json:"resulting_appointment_id,omitempty"`
	CreatedAt              time.Time               `db:"created_at" json:"created_at"`
}

// SubmitRescheduleRequest is the pet-parent submission payload.
type SubmitRescheduleRequest struct {
	Date string `json:"date" binding:"required"`
	Time string `json:"time" binding:"required"`
}

// ReviewRescheduleRequest carries the staff decision note.
type ReviewRescheduleRequest struct {
	Note string `json:"note"`
}

// BulkRescheduleReview processes several requests with one decision.
type BulkRescheduleReview struct {
	Action     string      `json:"action" binding:"required,oneof=approve reject"`
	RequestIDs []uuid.UUID `json:"request_ids" binding:"required,min=1"`
	Note       string      `json:"note"`
}
