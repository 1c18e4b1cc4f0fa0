package api

import "github.com/gin-gonic/gin"

func (s *Server) setupRoutes() {
	s.router.GET("/", s.pageHandler.Index)
	s.router.GET("/health", s.healthHandler.HealthCheck)
	s.router.GET("/metrics", gin.WrapH(s.container.Metrics.Handler()))
	s.router.GET("/ws/frames", s.framesHandler.Frames)

	api := s.router.Group("/api")
	{
		api.GET("/info", s.healthHandler.Info)
		api.GET("/classify", s.classifyHandler.Classify)
		api.POST("/classify", s.classifyHandler.Classify)
		api.GET("/categories", s.classifyHandler.Categories)
		api.POST("/annotate", s.annotateHandler.Annotate)
	}

	streams := s.router.Group("/streams")
	{
		streams.GET("", s.streamsHandler.ListStreams)
		streams.GET("/:id/mjpeg", s.streamsHandler.MJPEG)
		streams.GET("/:id/frame", s.streamsHandler.LatestFrame)
		streams.GET("/:id/urls", s.streamsHandler.URLs)
	}

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
	}
}
