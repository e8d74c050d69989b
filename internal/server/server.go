package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	analyticsdomain "github.com/smallbiznis/coursepulse/internal/analytics/domain"
	"github.com/smallbiznis/coursepulse/internal/config"
	"github.com/smallbiznis/coursepulse/internal/observability"
	obsmiddleware "github.com/smallbiznis/coursepulse/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/coursepulse/internal/observability/metrics"
	obstracing "github.com/smallbiznis/coursepulse/internal/observability/tracing"
	"github.com/smallbiznis/coursepulse/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine    *gin.Engine
	cfg       config.Config
	analytics analyticsdomain.Service
	limiter   *ratelimit.Limiter
	log       *zap.Logger

	// inflight coalesces identical analytics reads.
	inflight singleflight.Group
}

type ServerParams struct {
	fx.In

	Gin       *gin.Engine
	Cfg       config.Config
	Analytics analyticsdomain.Service
	Limiter   *ratelimit.Limiter `optional:"true"`
	Log       *zap.Logger
}

func NewServer(p ServerParams) *Server {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	svc := &Server{
		engine:    p.Gin,
		cfg:       p.Cfg,
		analytics: p.Analytics,
		limiter:   p.Limiter,
		log:       log.Named("http.server"),
	}

	svc.RegisterAnalyticsRoutes()

	return svc
}

func (s *Server) RegisterAnalyticsRoutes() {
	api := s.engine.Group("/api/analytics")

	api.GET("/revenue", s.limiter.Middleware("revenue", scopeKey), s.Revenue)
	api.GET("/completion", s.limiter.Middleware("completion", scopeKey), s.Completion)
	api.GET("/enrollments", s.limiter.Middleware("enrollments", scopeKey), s.Enrollments)
	api.GET("/overview", s.limiter.Middleware("overview", scopeKey), s.Overview)
	api.POST("/delta", s.PeriodDelta)

	students := api.Group("/students/:student_id")
	students.GET("/courses/:course_id/progress", s.limiter.Middleware("course_progress", studentKey), s.CourseProgress)
	students.GET("/stats", s.limiter.Middleware("student_stats", studentKey), s.StudentStats)
}
