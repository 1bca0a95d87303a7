package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct{}

func NewHealthHandler() *HealthHandler { return &HealthHandler{} }

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Heartbeat answers the bare root probe used by uptime monitors.
func (h *HealthHandler) Heartbeat(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "service": "social-video"})
}
