package handlers

import (
	"net/http"

	"branch-pos/internal/apperr"
	"branch-pos/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AskRequest struct {
	Message string `json:"message" binding:"required"`
}

type AskResponse struct {
	Reply string `json:"reply"`
}

func (h *Handler) AskAI(c *gin.Context) {
	// 1. Disabled without an API key
	if h.agent == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, Response{
			Success: false,
			Message: "assistant is not configured",
			Error:   "unavailable",
		})
		return
	}

	var req AskRequest
	if err := bind(c, &req); err != nil {
		h.fail(c, apperr.Validation("message is required"))
		return
	}

	// 2. Run the Agent
	reply, err := h.agent.Ask(c.Request.Context(), req.Message)
	if err != nil {
		h.logger.Error("assistant failed", zap.Uint("user_id", middleware.UserID(c)), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, Response{
			Success: false,
			Message: "assistant is unavailable right now",
			Error:   "upstream_error",
		})
		return
	}

	// 3. Return the Answer
	respond(c, http.StatusOK, "", AskResponse{Reply: reply})
}
