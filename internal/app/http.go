package app

import (
	apphttp "github.com/yungbote/bigocean-backend/internal/http"
	httpH "github.com/yungbote/bigocean-backend/internal/http/handlers"
	httpMW "github.com/yungbote/bigocean-backend/internal/http/middleware"
	"github.com/yungbote/bigocean-backend/internal/observability"
	"github.com/yungbote/bigocean-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, clients Clients, serviceset Services, metrics *observability.Metrics) *apphttp.Server {
	log.Info("Wiring HTTP server...")
	checks := map[string]httpH.HealthCheckFunc{}
	for name, fn := range clients.healthChecks() {
		checks[name] = fn
	}
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:               log,
		ServiceName:       serviceName,
		AllowedOrigins:    cfg.AllowedOrigins,
		Metrics:           metrics,
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, serviceset.Auth),
		AssessmentHandler: httpH.NewAssessmentHandler(log, serviceset.Assessment),
		HealthHandler:     httpH.NewHealthHandler(checks),
	})
}
