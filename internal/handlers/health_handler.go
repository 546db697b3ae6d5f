package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Health always answers 200 while the process is up. The database field says
// whether the store answered a ping.
func (h *Handler) Health(c *gin.Context) {
	status := HealthStatus{Status: "online", Database: "ok"}

	sqlDB, err := h.db.DB()
	if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status.Database = "unreachable"
	}
	respond(c, http.StatusOK, "", status)
}
