package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hermes-backend/controllers"
)

// Handlers groups the controllers mounted by SetupRoutes.
type Handlers struct {
	Personnel *controllers.RecordController
	Users     *controllers.RecordController
	Chatbot   *controllers.ChatbotController
	Admin     *controllers.AdminController
}

func mountRecords(g *gin.RouterGroup, h *controllers.RecordController) {
	g.GET("", h.Search)
	g.GET("/:id", h.GetByID)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.PUT("/:id/metadata/:key", h.SetMetadata)
}

// SetupRoutes mengatur semua rute utama aplikasi
func SetupRoutes(r *gin.Engine, h Handlers) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Hermes User Database API",
			"version": "2.0.0",
			"endpoints": gin.H{
				"personnel": "/api/personnel",
				"users":     "/api/users",
				"chatbot":   "/chatbot",
				"metrics":   "/metrics",
			},
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		if h.Personnel != nil {
			mountRecords(api.Group("/personnel"), h.Personnel)
		}
		if h.Users != nil {
			mountRecords(api.Group("/users"), h.Users)
		}
	}

	// Rute untuk chatbot
	if h.Chatbot != nil {
		r.POST("/chatbot", h.Chatbot.Command)
		r.POST("/chatbot/webhook", h.Chatbot.Webhook)
	}

	if h.Admin != nil {
		admin := r.Group("/admin")
		{
			admin.GET("/metrics", h.Admin.GetAdminMetricsHandler)
			admin.POST("/export/:variant", h.Admin.ExportHandler)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Endpoint not found"})
	})
}
