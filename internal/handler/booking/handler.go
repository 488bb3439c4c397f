// Package booking exposes the pet-parent booking surface: availability,
// slot locks, booking commits and reschedule requests.
package booking

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sacrapods/nutrivet-api/internal/handler"
	"github.com/sacrapods/nutrivet-api/internal/middleware"
	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/service/booking"
	"github.com/sacrapods/nutrivet-api/pkg/httputil"
)

type Handler struct {
	service *booking.Service
}

func NewHandler(service *booking.Service) *Handler {
	return &Handler{service: service}
}

// DailySlots returns the availability grid for ?date=YYYY-MM-DD. The
// caller's own locks stay visible as available.
func (h *Handler) DailySlots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		handler.RespondBadRequest(c, "date is required")
		return
	}
	identity, _ := middleware.IdentityFrom(c)

	opts := booking.DailySlotsOpts{}
	if identity != nil {
		opts.Viewer = identity.ID
	}
	slots, remaining, err := h.service.DailySlots(c.Request.Context(), date, opts)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"slots": slots, "remaining": remaining})
}

// LockSlot reserves a slot for the caller while they finish the form.
func (h *Handler) LockSlot(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		httputil.RespondRejection(c, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	var req model.LockSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBadRequest(c, err.Error())
		return
	}

	lock, err := h.service.AcquireLock(c.Request.Context(), identity, &req)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondCreated(c, gin.H{
		"lock_token": lock.Token,
		"expires_at": lock.ExpiresAt,
	})
}

// ReleaseLock frees the caller's lock early.
func (h *Handler) ReleaseLock(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		httputil.RespondRejection(c, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		handler.RespondBadRequest(c, "invalid lock token")
		return
	}
	if err := h.service.ReleaseLock(c.Request.Context(), identity, token); err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"released": true})
}

// CreateAppointment commits a booking against a held lock.
func (h *Handler) CreateAppointment(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		httputil.RespondRejection(c, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	var req model.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBadRequest(c, err.Error())
		return
	}

	appt, err := h.service.CreateFromLock(c.Request.Context(), identity, &req)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondCreated(c, appt)
}

// GetAppointment returns one of the caller's appointments.
func (h *Handler) GetAppointment(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		httputil.RespondRejection(c, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondBadRequest(c, "invalid appointment ID")
		return
	}

	appt, err := h.service.GetForUser(c.Request.Context(), identity, id)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appt)
}

// ListMyAppointments returns the caller's appointment history.
func (h *Handler) ListMyAppointments(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		httputil.RespondRejection(c, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	appts, err := h.service.ListForUser(c.Request.Context(), identity.ID)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appts)
}

// Reschedule moves the caller's appointment to a new slot directly.
func (h *Handler) Reschedule(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		httputil.RespondRejection(c, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondBadRequest(c, "invalid appointment ID")
		return
	}

	var req model.SubmitRescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBadRequest(c, err.Error())
		return
	}

	appt, err := h.service.RescheduleDirect(c.Request.Context(), identity, id, req.Date, req.Time)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondCreated(c, appt)
}

// RescheduleFromLock moves the caller's appointment onto a locked slot.
func (h *Handler) RescheduleFromLock(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		httputil.RespondRejection(c, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondBadRequest(c, "invalid appointment ID")
		return
	}

	var req struct {
		LockToken uuid.UUID `json:"lock_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBadRequest(c, err.Error())
		return
	}

	appt, err := h.service.RescheduleFromLock(c.Request.Context(), identity, id, req.LockToken)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondCreated(c, appt)
}

// SubmitRescheduleRequest files a proposal for staff review.
func (h *Handler) SubmitRescheduleRequest(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		httputil.RespondRejection(c, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondBadRequest(c, "invalid appointment ID")
		return
	}

	var req model.SubmitRescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBadRequest(c, err.Error())
		return
	}

	request, err := h.service.SubmitReschedule(c.Request.Context(), identity, id, &req)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondCreated(c, request)
}

// ListMyRescheduleRequests returns the caller's reschedule requests.
func (h *Handler) ListMyRescheduleRequests(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		httputil.RespondRejection(c, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}

	requests, err := h.service.ListMyReschedules(c.Request.Context(), identity)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, requests)
}
