package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/socialreel-backend/internal/http/response"
	"github.com/yungbote/socialreel-backend/internal/montage"
)

type MontageHandler struct {
	orchestrator *montage.Orchestrator
}

func NewMontageHandler(orchestrator *montage.Orchestrator) *MontageHandler {
	return &MontageHandler{orchestrator: orchestrator}
}

// GET /api/status
func (h *MontageHandler) GetStatus(c *gin.Context) {
	st, err := h.orchestrator.Status(c.Request.Context())
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "status_failed", err)
		return
	}
	response.RespondOK(c, st)
}

// POST /api/run
//
// The build runs detached, so acceptance is all the caller can learn
// here. A trigger against a running build is still a success, it just
// joins the in-flight run, answered with 202.
func (h *MontageHandler) TriggerRun(c *gin.Context) {
	if h.orchestrator.Trigger() {
		response.RespondAccepted(c, gin.H{"accepted": true, "already_running": true})
		return
	}
	response.RespondOK(c, gin.H{"accepted": true})
}
