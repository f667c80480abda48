package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/annel0/voxel-export/internal/logging"
	"github.com/annel0/voxel-export/internal/metrics"
	"github.com/annel0/voxel-export/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// StatusServer отдаёт /health, /metrics и прогресс экспорта по HTTP
type StatusServer struct {
	router   *gin.Engine
	progress *Progress
	started  time.Time
	logger   *logging.Logger
}

// NewStatusServer создаёт сервер; HTTP-метрики регистрируются в reg
// рядом с метриками экспорта и отдаются тем же /metrics.
func NewStatusServer(reg *prometheus.Registry, progress *Progress) (*StatusServer, error) {
	gin.SetMode(gin.ReleaseMode)

	logger := logging.GetComponentLogger("status_api")
	router := gin.New()        // без стандартного logger
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware("voxel-export-status"))
	router.Use(middleware.NewRequestLogger(logger).Handler())

	promMw, err := middleware.NewPrometheusMiddleware("status_api", reg)
	if err != nil {
		return nil, err
	}
	router.Use(promMw.Handler())

	s := &StatusServer{
		router:   router,
		progress: progress,
		started:  time.Now(),
		logger:   logger,
	}
	s.setupRoutes(reg)
	return s, nil
}

func (s *StatusServer) setupRoutes(reg *prometheus.Registry) {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api := s.router.Group("/api")
	{
		api.GET("/status", s.handleStatus)
		api.GET("/process", s.handleProcess)
	}
}

// handleHealth проверка состояния сервера
func (s *StatusServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": metrics.FormatDuration(time.Since(s.started)),
	})
}

func (s *StatusServer) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.progress.Snapshot())
}

func (s *StatusServer) handleProcess(c *gin.Context) {
	report, err := metrics.SampleProcess()
	if err != nil {
		// частичный снимок всё равно полезен
		s.logger.Debug("Неполный снимок процесса: %v", err)
	}
	c.JSON(http.StatusOK, report)
}

// Handler возвращает http.Handler (удобно для httptest)
func (s *StatusServer) Handler() http.Handler {
	return s.router
}

// Start запускает сервер на addr в отдельной горутине.
// Возвращённая функция выполняет graceful shutdown.
func (s *StatusServer) Start(addr string) func(context.Context) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		s.logger.Info("📈 Статус экспорта и /metrics доступны по адресу %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Ошибка HTTP сервера статуса: %v", err)
		}
	}()
	return srv.Shutdown
}
