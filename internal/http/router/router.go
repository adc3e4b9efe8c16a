package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/livebook-backend/internal/config"
	"github.com/ignatzorin/livebook-backend/internal/domain/valueobject"
	"github.com/ignatzorin/livebook-backend/internal/http/middleware"
	"github.com/ignatzorin/livebook-backend/internal/interface/http/handler"
	"github.com/ignatzorin/livebook-backend/internal/interface/http/response"
)

// Handlers - все хэндлеры, которые монтирует SetupRouter.
type Handlers struct {
	Health       *handler.HealthHandler
	WS           *handler.WSHandler
	Catalog      *handler.CatalogHandler
	Booking      *handler.BookingHandler
	Deliverable  *handler.DeliverableHandler
	Dispute      *handler.DisputeHandler
	AdminDispute *handler.AdminDisputeHandler
	Notification *handler.NotificationHandler
}

func SetupRouter(cfg *config.Config, h Handlers, tokens middleware.TokenParser, rateStore limiter.Store) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "маршрут не найден")
	})

	r.GET("/health", h.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(rateStore, cfg.RateLimitLimit, cfg.RateLimitPeriod))

	// токен передаётся в query, заголовки в браузерном WebSocket недоступны
	api.GET("/ws", h.WS.Handle)

	// Публичный каталог
	api.GET("/creators/:id/services", middleware.UUIDValidator("id"), h.Catalog.ListCreatorServices)
	api.GET("/services/:id", middleware.UUIDValidator("id"), h.Catalog.GetService)

	auth := middleware.AuthMiddleware(tokens)
	creator := middleware.RequireRole(valueobject.RoleCreator)
	brand := middleware.RequireRole(valueobject.RoleBrand)

	protected := api.Group("")
	protected.Use(auth)
	{
		protected.POST("/services", creator, h.Catalog.CreateService)
	}

	bookings := api.Group("/bookings")
	bookings.Use(auth)
	{
		bookings.POST("", brand, h.Booking.CreateBooking)
		bookings.GET("/my", h.Booking.ListMyBookings)

		byID := bookings.Group("/:id")
		byID.Use(middleware.UUIDValidator("id"))
		{
			byID.GET("", h.Booking.GetBooking)
			byID.GET("/history", h.Booking.GetHistory)

			byID.POST("/accept", creator, h.Booking.Accept)
			byID.POST("/decline", creator, h.Booking.Decline)
			byID.POST("/cancel", brand, h.Booking.Cancel)
			byID.POST("/approve", brand, h.Booking.Approve)
			byID.POST("/revision", brand, h.Booking.RequestRevision)

			byID.POST("/deliverables", creator, h.Deliverable.Submit)
			byID.GET("/deliverables", h.Deliverable.CurrentSet)
			byID.GET("/deliverables/history", h.Deliverable.History)

			byID.POST("/dispute", h.Dispute.Open)
			byID.GET("/dispute", h.Dispute.GetByBooking)
		}
	}

	disputes := api.Group("/disputes")
	disputes.Use(auth, middleware.UUIDValidator("id"))
	{
		disputes.GET("/:id", h.Dispute.Get)
		disputes.POST("/:id/respond", h.Dispute.Respond)
	}

	admin := api.Group("/admin")
	admin.Use(auth, middleware.RequireRole(valueobject.RoleAdmin))
	{
		admin.GET("/disputes", h.AdminDispute.List)
		admin.POST("/disputes/:id/escalate", middleware.UUIDValidator("id"), h.AdminDispute.Escalate)
		admin.POST("/disputes/:id/resolve", middleware.UUIDValidator("id"), h.AdminDispute.Resolve)
	}

	notifications := api.Group("/notifications")
	notifications.Use(auth)
	{
		notifications.GET("", h.Notification.ListNotifications)
		notifications.GET("/unread/count", h.Notification.CountUnread)
		notifications.PUT("/read-all", h.Notification.MarkAllAsRead)
		notifications.PUT("/:id/read", middleware.UUIDValidator("id"), h.Notification.MarkAsRead)
	}

	return r
}
