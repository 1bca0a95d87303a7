package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/socialreel-backend/internal/http/handlers"
	httpMW "github.com/yungbote/socialreel-backend/internal/http/middleware"
	"github.com/yungbote/socialreel-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string

	// Empty disables the bearer check.
	APIBearerToken string

	HealthHandler  *httpH.HealthHandler
	MontageHandler *httpH.MontageHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/", cfg.HealthHandler.Heartbeat)
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	api.Use(httpMW.RequireBearer(cfg.Log, cfg.APIBearerToken))
	{
		if cfg.MontageHandler != nil {
			api.GET("/status", cfg.MontageHandler.GetStatus)
			api.POST("/run", cfg.MontageHandler.TriggerRun)
		}
	}

	return r
}
