package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"staysync/internal/infra/config"
	"staysync/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	ConfirmPayment(c *gin.Context)
}

type HostBookingHTTP interface {
	UpdateStatus(c *gin.Context)
	Resync(c *gin.Context)
	SyncLog(c *gin.Context)
}

type AvailabilityHTTP interface {
	Check(c *gin.Context)
	Calendar(c *gin.Context)
	Block(c *gin.Context)
	Unblock(c *gin.Context)
}

type PropertyHTTP interface {
	Get(c *gin.Context)
	List(c *gin.Context)
	Create(c *gin.Context)
	Delete(c *gin.Context)
	Connect(c *gin.Context)
	Disconnect(c *gin.Context)
	SetStatus(c *gin.Context)
	UpdatePricing(c *gin.Context)
	Sync(c *gin.Context)
	SyncLog(c *gin.Context)
}

type ChannelHTTP interface {
	Booking(c *gin.Context)
}

type Handlers struct {
	Booking        BookingHTTP
	HostBooking    HostBookingHTTP
	Availability   AvailabilityHTTP
	Property       PropertyHTTP
	Channel        ChannelHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the engine without binding an address.
func NewRouter(obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", channelKeyHeader},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Property != nil {
		api.GET("/properties/:id", h.Property.Get)

		hostGroup := api.Group("/host/properties")
		hostGroup.GET("", h.Property.List)
		hostGroup.POST("", h.Property.Create)
		hostGroup.DELETE("/:id", h.Property.Delete)
		hostGroup.PUT("/:id/connections/:platform", h.Property.Connect)
		hostGroup.DELETE("/:id/connections/:platform", h.Property.Disconnect)
		hostGroup.PUT("/:id/status", h.Property.SetStatus)
		hostGroup.PUT("/:id/pricing", h.Property.UpdatePricing)
		hostGroup.POST("/:id/sync", h.Property.Sync)
		hostGroup.GET("/:id/sync-log", h.Property.SyncLog)
	}
	if h.Availability != nil {
		api.GET("/properties/:id/availability", h.Availability.Check)
		api.GET("/host/properties/:id/calendar", h.Availability.Calendar)
		api.POST("/host/blocks", h.Availability.Block)
		api.DELETE("/host/blocks/:id", h.Availability.Unblock)
	}
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.GET("/bookings/:id", h.Booking.Get)
		api.POST("/payments/confirmations", h.Booking.ConfirmPayment)
	}
	if h.HostBooking != nil {
		hostBookings := api.Group("/host/bookings")
		hostBookings.PATCH("/:id/status", h.HostBooking.UpdateStatus)
		hostBookings.POST("/:id/resync", h.HostBooking.Resync)
		hostBookings.GET("/:id/sync-log", h.HostBooking.SyncLog)
	}
	if h.Channel != nil {
		api.POST("/channels/:platform/bookings", h.Channel.Booking)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
