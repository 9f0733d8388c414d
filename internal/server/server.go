package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"makerspace/internal/auth"
	"makerspace/internal/booking"
	"makerspace/internal/cancellation"
	"makerspace/internal/config"
	"makerspace/internal/equipment"
	"makerspace/internal/schedule"
	"makerspace/internal/user"
)

type Handlers struct {
	User         *user.Handler
	Equipment    *equipment.Handler
	Booking      *booking.Handler
	Cancellation *cancellation.Handler
	Schedule     *schedule.Handler
}

// HealthCheck pings one backing service. A nil check is reported as disabled.
type HealthCheck func(ctx context.Context) error

type HealthChecks struct {
	Database HealthCheck
	Redis    HealthCheck
}

type Server struct {
	router *gin.Engine
	http   *http.Server
	config *config.Config
}

func New(cfg *config.Config, h Handlers, checks HealthChecks) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware())

	router.GET("/health", Health(checks))
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	writeLimit := RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)

	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", h.User.GetMe)
		protected.GET("/equipment", h.Equipment.ListEquipment)
		protected.GET("/equipment/:equipmentID", h.Equipment.GetEquipmentDetail)
		protected.POST("/equipment/:equipmentID/book", writeLimit, h.Booking.BookEquipment)
		protected.POST("/equipment/:equipmentID/book-bulk", writeLimit, h.Booking.BookEquipmentBulk)
		protected.POST("/equipment/:equipmentID/cancellations", writeLimit, h.Cancellation.CreateCancellation)
		protected.GET("/bookings", h.Booking.ListMyBookings)
		protected.GET("/bookings/:bookingID", h.Booking.GetBooking)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/equipment", h.Equipment.GetAllEquipmentWithBookings)
		admin.POST("/equipment", h.Equipment.CreateEquipment)
		admin.PUT("/equipment/:equipmentID", h.Equipment.UpdateEquipment)
		admin.POST("/equipment/:equipmentID/duplicate", h.Equipment.DuplicateEquipment)
		admin.DELETE("/equipment/:equipmentID", h.Equipment.DeleteEquipment)
		admin.PATCH("/equipment/:equipmentID/availability", h.Equipment.ToggleAvailability)
		admin.POST("/equipment/:equipmentID/workshop-slots", h.Equipment.ReserveWorkshopSlots)
		admin.GET("/equipment/:equipmentID/bookings", h.Booking.ListEquipmentBookings)

		admin.GET("/cancellations", h.Cancellation.ListCancellations)
		admin.PATCH("/cancellations/:id/resolved", h.Cancellation.UpdateResolved)

		admin.GET("/settings", h.Schedule.GetSettings)
		admin.PUT("/settings/level3-schedule", h.Schedule.UpdateLevel3Schedule)
		admin.PUT("/settings/level4-unavailable-hours", h.Schedule.UpdateLevel4UnavailableHours)

		admin.GET("/analytics/bookings", h.Booking.BookingStats)
	}

	return &Server{
		router: router,
		config: cfg,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start blocks until the server stops. It returns nil after Shutdown.
func (s *Server) Start() error {
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
