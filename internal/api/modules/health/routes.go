package health

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the routes for the health module
func RegisterRoutes(g *gin.RouterGroup, checks map[string]Check) {
	g.GET("/health", getStatus)
	g.GET("/health/ready", getReadiness(checks))
}
