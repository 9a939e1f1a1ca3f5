package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/mamadbah2/inventory/internal/server/handlers"
	"github.com/mamadbah2/inventory/internal/server/middleware"
)

// Handlers groups the route handlers mounted by New.
type Handlers struct {
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Items         *handlers.ItemHandler
	Transactions  *handlers.TransactionHandler
	Commands      *handlers.CommandHandler
	Reports       *handlers.ReportHandler
	Notifications *handlers.NotificationHandler
}

// New wires the Gin engine with required routes and middlewares. Everything but the
// health check and the login requires a bearer token.
func New(h Handlers, verifier middleware.TokenVerifier, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	r.GET("/healthz", h.Health.Check)
	r.POST("/login", h.Auth.Login)

	api := r.Group("/")
	api.Use(middleware.Auth(verifier, handlers.ErrorWriter(logger)))

	api.POST("/items", h.Items.Create)
	api.GET("/items", h.Items.List)
	api.GET("/items/:id", h.Items.Get)
	api.PUT("/items/:id", h.Items.Update)
	api.DELETE("/items/:id", h.Items.Delete)

	api.POST("/addItem", h.Transactions.RecordTotal)
	api.POST("/transactions", h.Transactions.Record)
	api.GET("/transactions", h.Transactions.List)
	api.GET("/transactions/filter", h.Transactions.Filter)
	api.GET("/transactions/totals", h.Transactions.Totals)
	api.DELETE("/transactions/delete-multiple", h.Transactions.DeleteMany)
	api.GET("/product-availability", h.Transactions.Availability)

	api.POST("/commands", h.Commands.Execute)

	api.GET("/reports/stock", h.Reports.Stock)
	api.POST("/reports/stock", h.Reports.Generate)
	api.POST("/reconcile", h.Reports.Reconcile)

	api.POST("/send-message", h.Notifications.SendMessage)

	logger.Info("router initialized", zap.Int("routes", len(r.Routes())))
	return r
}

// WithCORS wraps the engine so browsers on the allowed origins can call the API.
func WithCORS(next http.Handler, allowedOrigins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	}).Handler(next)
}
