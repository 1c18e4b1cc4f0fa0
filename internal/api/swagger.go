package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"waste-ninja-go/docs"
)

func (s *Server) setupSwagger() {
	docs.SwaggerInfo.Version = s.config.Version
	docs.SwaggerInfo.Host = s.config.SwaggerHost

	s.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	s.router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
}
