package web

import (
	"context"
	"net/http"
	"time"

	"dialog-agent/config"
	"dialog-agent/dialog"
	"dialog-agent/web/format"
	"dialog-agent/web/handlers"
	"dialog-agent/web/middleware"
	"dialog-agent/web/types"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	router  *gin.Engine
	engine  *dialog.Engine
	limiter *middleware.PlayerRateLimiter
	logger  *zap.Logger
	config  *config.Config
}

func NewServer(engine *dialog.Engine, logger *zap.Logger, config *config.Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		c.Set("logger", logger)
		c.Next()
	})

	server := &Server{
		router: router,
		engine: engine,
		limiter: middleware.NewPlayerRateLimiter(middleware.RateLimiterConfig{
			RepliesPerMinute: config.RateLimitRepliesPerMin,
			BurstSize:        config.RateLimitBurstSize,
			CleanupInterval:  5 * time.Minute,
			IdleTTL:          config.RelationshipIdleTimeout,
		}, logger),
		logger: logger,
		config: config,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	dialogHandler := handlers.NewDialogHandler(s.engine, format.NewRenderer(s.config.RenderMarkdown), s.logger)
	partnerHandler := handlers.NewPartnerHandler(s.engine, s.logger)

	api := s.router.Group("/api")
	api.Use(middleware.PlayerMiddleware())
	api.Use(middleware.RateLimitMiddleware(s.limiter))
	{
		api.POST("/reply", dialogHandler.Reply)
		api.POST("/keywords", dialogHandler.Keywords)
		api.POST("/options", dialogHandler.Options)

		api.GET("/partners/:partner/tables", partnerHandler.ListTables)
		api.POST("/partners/:partner/tables/:table", partnerHandler.AddTable)
		api.DELETE("/partners/:partner/tables/:table", partnerHandler.RemoveTable)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, types.HealthResponse{
		Status:        "ok",
		Tables:        s.engine.Catalog().Len(),
		Words:         s.engine.Dictionary().WordCount(),
		Relationships: len(s.engine.Metrics().Keys()),
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting web server", zap.String("address", addr))

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Web server failed to start", zap.Error(err))
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		s.limiter.Stop()
		return err
	}

	s.logger.Info("Shutting down web server")
	s.limiter.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close releases background resources when the server is never started.
func (s *Server) Close() {
	s.limiter.Stop()
}
