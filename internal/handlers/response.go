package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"branch-pos/internal/apperr"
	"branch-pos/internal/database"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       any         `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Response{Success: true, Message: message, Data: data})
}

func respondPage(c *gin.Context, data any, page database.Page, total int64) {
	page = page.Normalize()
	pages := total / int64(page.Limit)
	if total%int64(page.Limit) != 0 {
		pages++
	}
	c.JSON(http.StatusOK, Response{
		Success:    true,
		Data:       data,
		Pagination: &Pagination{Page: page.Page, Limit: page.Limit, Total: total, TotalPages: pages},
	})
}

// fail maps err onto its HTTP status. Internal causes are logged, never sent.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Message: apperr.Message(err),
		Error:   string(apperr.KindOf(err)),
	})
}

// bind decodes the JSON body, reporting decoding problems as validation errors.
func bind(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	return nil
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid id %q", c.Param("id"))
	}
	return uint(id), nil
}

// queryUint reads an optional numeric query parameter. Missing means 0.
func queryUint(c *gin.Context, key string) (uint, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.Validation("%s must be a positive integer", key)
	}
	return uint(v), nil
}

// queryBool returns nil when the parameter is absent.
func queryBool(c *gin.Context, key string) (*bool, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperr.Validation("%s must be true or false", key)
	}
	return &v, nil
}

// queryTime accepts RFC 3339 or a bare date. A bare date used as an upper
// bound covers the whole day.
func queryTime(c *gin.Context, key string, endOfDay bool) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, apperr.Validation("%s must be a date (YYYY-MM-DD) or RFC 3339 timestamp", key)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func pageFrom(c *gin.Context) database.Page {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return database.Page{Page: page, Limit: limit}.Normalize()
}

// likePattern builds a case-insensitive LIKE pattern for a search term.
func likePattern(term string) string {
	return "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
}
