package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sacrapods/nutrivet-api/internal/handler"
	adminhandler "github.com/sacrapods/nutrivet-api/internal/handler/admin"
	bookinghandler "github.com/sacrapods/nutrivet-api/internal/handler/booking"
	"github.com/sacrapods/nutrivet-api/internal/middleware"
	"github.com/sacrapods/nutrivet-api/internal/model"
)

type Router struct {
	engine   *gin.Engine
	auth     *middleware.AuthMiddleware
	bookingH *bookinghandler.Handler
	adminH   *adminhandler.Handler
	healthH  *handler.HealthHandler
	metrics  *routerMetrics
}

type Config struct {
	RateLimitRPS   float64
	RateLimitBurst int
	CORSConfig     middleware.CORSConfig
	MetricsPrefix  string
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	bookingH *bookinghandler.Handler,
	adminH *adminhandler.Handler,
	healthH *handler.HealthHandler,
	config Config,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:   engine,
		auth:     auth,
		bookingH: bookingH,
		adminH:   adminH,
		healthH:  healthH,
		metrics:  initRouterMetrics(config.MetricsPrefix),
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
		r.metricsMiddleware(),
	)
	engine.Use(middleware.CORS(config.CORSConfig))

	rateLimiter := middleware.NewRateLimiter(config.RateLimitRPS, config.RateLimitBurst)
	engine.Use(rateLimiter.RateLimit())

	return r
}

func (r *Router) Setup() {
	r.engine.GET("/health", r.healthH.Health)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")
	api.Use(r.auth.Authenticate())

	r.setupBookingRoutes(api)
	r.setupAdminRoutes(api)
}

func (r *Router) setupBookingRoutes(rg *gin.RouterGroup) {
	slots := rg.Group("/slots")
	{
		slots.GET("", r.bookingH.DailySlots)
		slots.POST("/lock", r.bookingH.LockSlot)
		slots.DELETE("/lock/:token", r.bookingH.ReleaseLock)
	}

	appointments := rg.Group("/appointments")
	{
		appointments.POST("", r.bookingH.CreateAppointment)
		appointments.GET("", r.bookingH.ListMyAppointments)
		appointments.GET("/:id", r.bookingH.GetAppointment)
		appointments.POST("/:id/reschedule", r.bookingH.Reschedule)
		appointments.POST("/:id/reschedule-from-lock", r.bookingH.RescheduleFromLock)
		appointments.POST("/:id/reschedule-requests", r.bookingH.SubmitRescheduleRequest)
	}

	rg.GET("/reschedule-requests", r.bookingH.ListMyRescheduleRequests)
}

func (r *Router) setupAdminRoutes(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(r.auth.RequireRole(model.RoleAdmin, model.RoleVet))
	{
		admin.GET("/slots", r.adminH.DailySlots)
		admin.POST("/appointments", r.adminH.CreateBooking)
		admin.GET("/appointments", r.adminH.ListDay)
		admin.PATCH("/appointments/:id", r.adminH.UpdateAppointment)
		admin.POST("/appointments/bulk-assign", r.adminH.BulkAssignProvider)
		admin.GET("/calendar", r.adminH.Calendar)

		admin.GET("/reschedule-requests", r.adminH.ListPendingReschedules)
		admin.POST("/reschedule-requests/:id/approve", r.adminH.ApproveReschedule)
		admin.POST("/reschedule-requests/:id/reject", r.adminH.RejectReschedule)
		admin.POST("/reschedule-requests/bulk", r.adminH.BulkReviewReschedules)

		admin.GET("/blocked-dates", r.adminH.ListBlockedDates)
		admin.POST("/blocked-dates", r.adminH.BlockDate)
		admin.POST("/blocked-dates/range", r.adminH.BlockDateRange)
		admin.DELETE("/blocked-dates/:date", r.adminH.UnblockDate)
		admin.GET("/blocked-slots", r.adminH.ListBlockedSlots)
		admin.POST("/blocked-slots", r.adminH.BlockSlot)
		admin.POST("/blocked-slots/delete", r.adminH.UnblockSlot)

		admin.POST("/reminders/sweep", r.adminH.SweepReminders)

		admin.GET("/settings", r.adminH.GetSettings)
		admin.PATCH("/settings", r.adminH.UpdateSettings)

		admin.GET("/providers/:id/capacity", r.adminH.GetProviderCapacity)
		admin.PUT("/providers/:id/capacity", r.adminH.SetProviderCapacity)
		admin.GET("/providers/:id/load", r.adminH.ProviderLoad)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

func initRouterMetrics(prefix string) *routerMetrics {
	return &routerMetrics{
		requestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()

		c.Next()

		status := fmt.Sprintf("%d", c.Writer.Status())
		duration := time.Since(start).Seconds()

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(duration)
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		if c.Writer.Status() >= 400 {
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "http").Inc()
		}
	}
}
