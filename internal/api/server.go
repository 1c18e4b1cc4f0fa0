package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"waste-ninja-go/internal/api/handlers"
	"waste-ninja-go/internal/api/middleware"
	"waste-ninja-go/internal/config"
	"waste-ninja-go/internal/services"
)

type Server struct {
	config    *config.Config
	container *services.ServiceContainer
	router    *gin.Engine
	server    *http.Server

	pageHandler     *handlers.PageHandler
	healthHandler   *handlers.HealthHandler
	classifyHandler *handlers.ClassifyHandler
	annotateHandler *handlers.AnnotateHandler
	framesHandler   *handlers.FramesHandler
	streamsHandler  *handlers.StreamsHandler
	systemHandler   *handlers.SystemHandler
}

// NewServer wires the HTTP surface on top of an already built container.
func NewServer(cfg *config.Config, container *services.ServiceContainer) (*Server, error) {
	if container == nil {
		return nil, errors.New("service container is required")
	}

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxUploadBytes

	s := &Server{
		config:          cfg,
		container:       container,
		router:          router,
		pageHandler:     handlers.NewPageHandler(container),
		healthHandler:   handlers.NewHealthHandler(container),
		classifyHandler: handlers.NewClassifyHandler(container),
		annotateHandler: handlers.NewAnnotateHandler(container),
		framesHandler:   handlers.NewFramesHandler(container),
		streamsHandler:  handlers.NewStreamsHandler(container),
		systemHandler:   handlers.NewSystemHandler(container),
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestContext())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.CORS())
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("Starting Waste Ninja API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then stops the services.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping Waste Ninja API")
	httpErr := s.server.Shutdown(ctx)
	return errors.Join(httpErr, s.container.Shutdown(ctx))
}
