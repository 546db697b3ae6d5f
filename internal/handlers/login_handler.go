package handlers

import (
	"errors"
	"net/http"
	"strings"

	"branch-pos/internal/apperr"
	"branch-pos/internal/auth"
	"branch-pos/internal/database"
	"branch-pos/internal/middleware"
	"branch-pos/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresIn int64        `json:"expires_in"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (h *Handler) Login(c *gin.Context) {
	var input LoginRequest
	// 1. Validate Input JSON
	if err := bind(c, &input); err != nil {
		h.fail(c, err)
		return
	}

	// 2. Find User in DB. Unknown email and wrong password look the same.
	var user models.User
	err := h.db.WithContext(c.Request.Context()).Where("email = ?", normalizeEmail(input.Email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		h.fail(c, apperr.Unauthorized("invalid credentials"))
		return
	}
	if err != nil {
		h.fail(c, database.Translate(err, "user"))
		return
	}

	// 3. Verify Password (Bcrypt)
	if !auth.CheckPassword(user.PasswordHash, input.Password) {
		h.fail(c, apperr.Unauthorized("invalid credentials"))
		return
	}
	if !user.IsActive {
		h.fail(c, apperr.Unauthorized("account is disabled"))
		return
	}

	// 4. Generate JWT Token
	token, err := h.tokens.GenerateToken(&user)
	if err != nil {
		h.fail(c, apperr.Internal(err, "failed to generate token"))
		return
	}

	now := h.now()
	if err := h.db.WithContext(c.Request.Context()).Model(&user).Update("last_login_at", now).Error; err != nil {
		h.logger.Warn("could not record last login", zap.Uint("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLoginAt = &now
	}

	// 5. Success! Return Token and User
	respond(c, http.StatusOK, "login successful", LoginResponse{
		User:      &user,
		Token:     token,
		ExpiresIn: int64(h.tokens.TTL().Seconds()),
	})
}

type RegisterRequest struct {
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Register is only routed when ALLOW_REGISTRATION is set. New accounts are cashiers.
func (h *Handler) Register(c *gin.Context) {
	var input RegisterRequest

	// 1. Parse JSON
	if err := bind(c, &input); err != nil {
		h.fail(c, err)
		return
	}

	// 2. Hash the Password
	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	// 3. Create User Model
	user := models.User{
		Email:        normalizeEmail(input.Email),
		PasswordHash: hash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         models.RoleCashier,
		IsActive:     true,
	}

	// 4. Save to DB
	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		h.fail(c, database.Translate(err, "user"))
		return
	}

	h.logger.Info("user registered", zap.Uint("user_id", user.ID), zap.String("email", user.Email))
	respond(c, http.StatusCreated, "user created", &user)
}

func (h *Handler) Me(c *gin.Context) {
	var user models.User
	err := h.db.WithContext(c.Request.Context()).Preload("Branch").First(&user, middleware.UserID(c)).Error
	if err != nil {
		h.fail(c, database.Translate(err, "user"))
		return
	}
	respond(c, http.StatusOK, "", &user)
}
