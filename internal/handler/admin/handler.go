// Package admin exposes the staff surface: override bookings, appointment
// management, reschedule review, blocked dates and slots, provider capacity
// and clinic settings.
package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sacrapods/nutrivet-api/internal/handler"
	"github.com/sacrapods/nutrivet-api/internal/middleware"
	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/service/audit"
	"github.com/sacrapods/nutrivet-api/internal/service/booking"
	"github.com/sacrapods/nutrivet-api/internal/service/capacity"
	"github.com/sacrapods/nutrivet-api/internal/service/settings"
	"github.com/sacrapods/nutrivet-api/internal/worker"
	"github.com/sacrapods/nutrivet-api/pkg/httputil"
)

type Handler struct {
	booking   *booking.Service
	capacity  *capacity.Service
	settings  *settings.Service
	audit     *audit.Service
	reminders *worker.ReminderWorker
}

func NewHandler(b *booking.Service, cap *capacity.Service, s *settings.Service, a *audit.Service, r *worker.ReminderWorker) *Handler {
	return &Handler{booking: b, capacity: cap, settings: s, audit: a, reminders: r}
}

func staffIdentity(c *gin.Context) (*model.Identity, bool) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		httputil.RespondRejection(c, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return nil, false
	}
	return identity, true
}

// DailySlots is the staff availability grid: arbitrary duration, sub-hour
// steps.
func (h *Handler) DailySlots(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		handler.RespondBadRequest(c, "date is required")
		return
	}
	dur := 0
	if raw := c.Query("duration"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			handler.RespondBadRequest(c, "invalid duration")
			return
		}
		dur = parsed
	}

	slots, remaining, err := h.booking.DailySlots(c.Request.Context(), date, booking.DailySlotsOpts{
		DurationMinutes: dur,
		AllowSubHour:    true,
	})
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, gin.H{"slots": slots, "remaining": remaining})
}

// CreateBooking books on behalf of a client, optionally overriding rules.
func (h *Handler) CreateBooking(c *gin.Context) {
	identity, ok := staffIdentity(c)
	if !ok {
		return
	}

	var req model.StaffBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBadRequest(c, err.Error())
		return
	}

	appt, err := h.booking.StaffBook(c.Request.Context(), identity, &req)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}

	h.audit.Log(c.Request.Context(), model.AuditEntityAppointment, appt.ID.String(), "staff_booking",
		identity, "Staff booking created", model.JSONMap{
			"override_rules": req.OverrideRules,
			"start_at":       appt.StartAt,
		})
	httputil.RespondCreated(c, appt)
}

// UpdateAppointment applies a staff patch to status, payment, provider or
// notes.
func (h *Handler) UpdateAppointment(c *gin.Context) {
	identity, ok := staffIdentity(c)
	if !ok {
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondBadRequest(c, "invalid appointment ID")
		return
	}

	var req model.UpdateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBadRequest(c, err.Error())
		return
	}

	appt, err := h.booking.UpdateAppointment(c.Request.Context(), identity, id, &req)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}

	h.audit.Log(c.Request.Context(), model.AuditEntityAppointment, appt.ID.String(), "status_or_note_update",
		identity, "Appointment updated from dashboard", model.JSONMap{
			"status":         appt.Status,
			"payment_status": appt.PaymentStatus,
		})
	httputil.RespondWithSuccess(c, appt)
}

// ListDay returns all appointments on one local date.
func (h *Handler) ListDay(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		handler.RespondBadRequest(c, "date is required")
		return
	}
	appts, err := h.booking.ListDay(c.Request.Context(), date)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appts)
}

// Calendar returns the day-grouped staff calendar for ?from=&to=.
func (h *Handler) Calendar(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		handler.RespondBadRequest(c, "from and to are required")
		return
	}
	days, err := h.booking.Calendar(c.Request.Context(), from, to)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, days)
}

// --- reschedule review ---

func (h *Handler) ListPendingReschedules(c *gin.Context) {
	requests, err := h.booking.ListPendingReschedules(c.Request.Context())
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, requests)
}

func (h *Handler) ApproveReschedule(c *gin.Context) {
	identity, ok := staffIdentity(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondBadRequest(c, "invalid request ID")
		return
	}
	var req model.ReviewRescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		handler.RespondBadRequest(c, err.Error())
		return
	}

	request, err := h.booking.ApproveReschedule(c.Request.Context(), identity, id, req.Note)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}

	h.audit.Log(c.Request.Context(), model.AuditEntityReschedule, request.ID.String(), string(request.Status),
		identity, "Reschedule request reviewed", model.JSONMap{
			"appointment_id": request.AppointmentID,
			"note":           request.AdminNote,
		})
	httputil.RespondWithSuccess(c, request)
}

func (h *Handler) RejectReschedule(c *gin.Context) {
	identity, ok := staffIdentity(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondBadRequest(c, "invalid request ID")
		return
	}
	var req model.ReviewRescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		handler.RespondBadRequest(c, err.Error())
		return
	}

	request, err := h.booking.RejectReschedule(c.Request.Context(), identity, id, req.Note)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}

	h.audit.Log(c.Request.Context(), model.AuditEntityReschedule, request.ID.String(), "rejected",
		identity, "Reschedule request rejected", model.JSONMap{
			"appointment_id": request.AppointmentID,
			"note":           request.AdminNote,
		})
	httputil.RespondWithSuccess(c, request)
}

func (h *Handler) BulkReviewReschedules(c *gin.Context) {
	identity, ok := staffIdentity(c)
	if !ok {
		return
	}
	var req model.BulkRescheduleReview
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.booking.BulkReview(c.Request.Context(), identity, &req)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}

// --- blocked dates and slots ---

type blockDateRequest struct {
	Date   string `json:"date" binding:"required"`
	Reason string `json:"reason"`
}

type blockRangeRequest struct {
	From   string `json:"from" binding:"required"`
	To     string `json:"to" binding:"required"`
	Reason string `json:"reason"`
}

type blockSlotRequest struct {
	Date   string `json:"date" binding:"required"`
	Time   string `json:"time" binding:"required"`
	Reason string `json:"reason"`
}

func (h *Handler) ListBlockedDates(c *gin.Context) {
	dates, err := h.booking.ListBlockedDates(c.Request.Context())
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, dates)
}

func (h *Handler) BlockDate(c *gin.Context) {
	identity, ok := staffIdentity(c)
	if !ok {
		return
	}
	var req blockDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBadRequest(c, err.Error())
		return
	}

	blocked, created, err := h.booking.BlockDate(c.Request.Context(), req.Date, req.Reason)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}

	if created {
		h.audit.Log(c.Request.Context(), model.AuditEntityBlockedDate, blocked.ID.String(), "created",
			identity, "Blocked date "+req.Date, nil)
	}
	httputil.RespondCreated(c, gin.H{"blocked": blocked, "created": created})
}

func (h *Handler) BlockDateRange(c *gin.Context) {
	identity, ok := staffIdentity(c)
	if !ok {
		return
	}
	var req blockRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBadRequest(c, err.Error())
		return
	}

	created, err := h.booking.BlockDateRange(c.Request.Context(), req.From, req.To, req.Reason)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}

	h.audit.Log(c.Request.Context(), model.AuditEntityBlockedDate, req.From, "range_created",
		identity, "Blocked date range "+req.From+" to "+req.To, model.JSONMap{"created": created})
	httputil.RespondCreated(c, gin.H{"created": created})
}

func (h *Handler) UnblockDate(c *gin.Context) {
	identity, ok := staffIdentity(c)
	if !ok {
		return
	}
	date := c.Param("date")
	if err := h.booking.UnblockDate(c.Request.Context(), date); err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	h.audit.Log(c.Request.Context(), model.AuditEntityBlockedDate, date, "deleted",
		identity, "Removed blocked date "+date, nil)
	httputil.RespondWithSuccess(c, gin.H{"deleted": true})
}

func (h *Handler) ListBlockedSlots(c *gin.Context) {
	slots, err := h.booking.ListBlockedSlots(c.Request.Context())
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, slots)
}

func (h *Handler) BlockSlot(c *gin.Context) {
	identity, ok := staffIdentity(c)
	if !ok {
		return
	}
	var req blockSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBadRequest(c, err.Error())
		return
	}

	blocked, created, err := h.booking.BlockSlot(c.Request.Context(), req.Date, req.Time, req.Reason)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}

	if created {
		h.audit.Log(c.Request.Context(), model.AuditEntityBlockedSlot, blocked.ID.String(), "created",
			identity, "Blocked slot "+req.Date+" "+req.Time, nil)
	}
	httputil.RespondCreated(c, gin.H{"blocked": blocked, "created": created})
}

func (h *Handler) UnblockSlot(c *gin.Context) {
	identity, ok := staffIdentity(c)
	if !ok {
		return
	}
	var req blockSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBadRequest(c, err.Error())
		return
	}
	if err := h.booking.UnblockSlot(c.Request.Context(), req.Date, req.Time); err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	h.audit.Log(c.Request.Context(), model.AuditEntityBlockedSlot, req.Date+" "+req.Time, "deleted",
		identity, "Removed blocked slot", nil)
	httputil.RespondWithSuccess(c, gin.H{"deleted": true})
}

// --- settings ---

func (h *Handler) GetSettings(c *gin.Context) {
	current, err := h.settings.Get(c.Request.Context())
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, current)
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	identity, ok := staffIdentity(c)
	if !ok {
		return
	}
	var patch model.BookingSettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		handler.RespondBadRequest(c, err.Error())
		return
	}

	updated, err := h.settings.Update(c.Request.Context(), &patch)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}

	h.audit.Log(c.Request.Context(), model.AuditEntitySettings, "singleton", "updated",
		identity, "Booking settings updated", model.JSONMap{
			"daily_limit": updated.DailyLimit,
			"start_hour":  updated.StartHour,
			"end_hour":    updated.EndHour,
		})
	httputil.RespondWithSuccess(c, updated)
}

// SweepReminders triggers the reminder sweep on demand, same pass the worker
// binary runs on its ticker.
func (h *Handler) SweepReminders(c *gin.Context) {
	identity, ok := staffIdentity(c)
	if !ok {
		return
	}
	h.reminders.SweepOnce(c.Request.Context())
	h.audit.Log(c.Request.Context(), model.AuditEntitySystem, "reminders", "sweep",
		identity, "Manual reminder sweep", nil)
	httputil.RespondWithSuccess(c, gin.H{"swept": true})
}

// --- provider capacity ---

func (h *Handler) GetProviderCapacity(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondBadRequest(c, "invalid provider ID")
		return
	}
	cap, err := h.capacity.GetCapacity(c.Request.Context(), providerID)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, cap)
}

func (h *Handler) SetProviderCapacity(c *gin.Context) {
	identity, ok := staffIdentity(c)
	if !ok {
		return
	}
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondBadRequest(c, "invalid provider ID")
		return
	}
	var req model.UpsertProviderCapacityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBadRequest(c, err.Error())
		return
	}

	cap, err := h.capacity.SetCapacity(c.Request.Context(), providerID, &req)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}

	h.audit.Log(c.Request.Context(), model.AuditEntityProvider, providerID.String(), "capacity_updated",
		identity, "Provider capacity updated", model.JSONMap{
			"daily_limit": cap.DailyLimit,
			"active":      cap.Active,
		})
	httputil.RespondWithSuccess(c, cap)
}

func (h *Handler) ProviderLoad(c *gin.Context) {
	providerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.RespondBadRequest(c, "invalid provider ID")
		return
	}
	days := 7
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 31 {
			handler.RespondBadRequest(c, "invalid days")
			return
		}
		days = parsed
	}

	load, err := h.capacity.DailyLoad(c.Request.Context(), providerID, days)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, load)
}

func (h *Handler) BulkAssignProvider(c *gin.Context) {
	identity, ok := staffIdentity(c)
	if !ok {
		return
	}
	var req model.BulkAssignProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondBadRequest(c, err.Error())
		return
	}

	result, err := h.capacity.BulkAssign(c.Request.Context(), identity, &req)
	if err != nil {
		handler.RespondServiceError(c, err)
		return
	}

	h.audit.Log(c.Request.Context(), model.AuditEntityProvider, req.ProviderID.String(), "bulk_assign",
		identity, "Bulk provider assignment", model.JSONMap{
			"assigned": result.Assigned,
			"skipped":  result.Skipped,
		})
	httputil.RespondWithSuccess(c, result)
}
