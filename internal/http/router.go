package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/bigocean-backend/internal/http/handlers"
	httpMW "github.com/yungbote/bigocean-backend/internal/http/middleware"
	"github.com/yungbote/bigocean-backend/internal/observability"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string
	Metrics        *observability.Metrics

	AuthMiddleware    *httpMW.AuthMiddleware
	AssessmentHandler *httpH.AssessmentHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.AllowedOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	protected := r.Group("/api")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	// Assessments
	if cfg.AssessmentHandler != nil {
		protected.POST("/assessments", cfg.AssessmentHandler.Start)
		protected.GET("/assessments/eligibility", cfg.AssessmentHandler.Eligibility)
		protected.POST("/assessments/:id/messages", cfg.AssessmentHandler.SendMessage)
		protected.POST("/assessments/:id/end", cfg.AssessmentHandler.End)
		protected.POST("/assessments/:id/results", cfg.AssessmentHandler.GenerateResults)
		protected.GET("/assessments/:id/results", cfg.AssessmentHandler.GetResults)
	}

	return r
}
