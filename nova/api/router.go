package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

/********** Router **********/
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), gin.Logger())

	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.GET("/license", s.lastResult)
		api.POST("/license/verify", s.verifyLicense)
		api.POST("/token", s.issueToken)
		api.GET("/system", s.systemInfo)
	}

	admin := api.Group("/")
	admin.Use(s.AdminRequired())
	{
		admin.POST("/license/recheck", s.recheck)
		admin.GET("/audit", s.listAudit)
	}

	r.GET("/ws/license", s.streamLicense)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "time": time.Now().UnixMilli()})
	})
	return r
}

// GET /api/health
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": s.now().UnixMilli()})
}
