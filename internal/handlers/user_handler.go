package handlers

import (
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

type UserInput struct {
	Email     *string      `json:"email"`
	Password  *string      `json:"password"`
	FirstName *string      `json:"first_name"`
	LastName  *string      `json:"last_name"`
	Role      *models.Role `json:"role"`
	BranchID  *uint        `json:"branch_id"`
	IsActive  *bool        `json:"is_active"`
}

// apply copies the fields that were sent onto user.
func (in *UserInput) apply(db *gorm.DB, user *models.User) error {
	if in.Email != nil {
		user.Email = normalizeEmail(*in.Email)
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
	}
	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.Role != nil {
		user.Role = *in.Role
	}
	if in.BranchID != nil {
		if *in.BranchID == 0 {
			user.BranchID = nil
		} else {
			if err := db.First(&models.Branch{}, *in.BranchID).Error; err != nil {
				return apperr.Reference("branch %d does not exist", *in.BranchID)
			}
			user.BranchID = in.BranchID
		}
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}

	if user.Email == "" || !strings.Contains(user.Email, "@") {
		return apperr.Validation("a valid email is required")
	}
	if !user.Role.Valid() {
		return apperr.Validation("role %q is not valid", user.Role)
	}
	return nil
}

// guardOwner stops anyone but an owner from granting the owner role or
// editing an owner account.
func guardOwner(c *gin.Context, before, after models.Role) error {
	if middleware.Role(c) == models.RoleOwner {
		return nil
	}
	if before == models.RoleOwner || after == models.RoleOwner {
		return apperr.Forbidden("only an owner can manage owner accounts")
	}
	return nil
}

func (h *Handler) ListUsers(c *gin.Context) {
	page := pageFrom(c)
	active, err := queryBool(c, "active")
	if err != nil {
		h.fail(c, err)
		return
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.User{})
	if term := c.Query("search"); term != "" {
		p := likePattern(term)
		q = q.Where("LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?", p, p, p)
	}
	if active != nil {
		q = q.Where("is_active = ?", *active)
	}
	if role := c.Query("role"); role != "" {
		q = q.Where("role = ?", role)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		h.fail(c, database.Translate(err, "users"))
		return
	}
	var users []models.User
	if err := q.Scopes(page.Scope).Order("id").Find(&users).Error; err != nil {
		h.fail(c, database.Translate(err, "users"))
		return
	}
	respondPage(c, users, page, total)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var user models.User
	if err := h.db.WithContext(c.Request.Context()).Preload("Branch").First(&user, id).Error; err != nil {
		h.fail(c, database.Translate(err, "user"))
		return
	}
	respond(c, http.StatusOK, "", &user)
}

func (h *Handler) CreateUser(c *gin.Context) {
	var input UserInput
	if err := bind(c, &input); err != nil {
		h.fail(c, err)
		return
	}
	if input.Password == nil {
		h.fail(c, apperr.Validation("password is required"))
		return
	}

	db := h.db.WithContext(c.Request.Context())
	user := models.User{IsActive: true}
	if err := input.apply(db, &user); err != nil {
		h.fail(c, err)
		return
	}
	if err := guardOwner(c, "", user.Role); err != nil {
		h.fail(c, err)
		return
	}
	if err := db.Create(&user).Error; err != nil {
		h.fail(c, database.Translate(err, "user"))
		return
	}

	h.logger.Info("user created", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
	respond(c, http.StatusCreated, "user created", &user)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var input UserInput
	if err := bind(c, &input); err != nil {
		h.fail(c, err)
		return
	}

	db := h.db.WithContext(c.Request.Context())
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		h.fail(c, database.Translate(err, "user"))
		return
	}
	before := user.Role
	if err := input.apply(db, &user); err != nil {
		h.fail(c, err)
		return
	}
	if err := guardOwner(c, before, user.Role); err != nil {
		h.fail(c, err)
		return
	}
	if err := db.Omit("Branch").Save(&user).Error; err != nil {
		h.fail(c, database.Translate(err, "user"))
		return
	}
	respond(c, http.StatusOK, "user updated", &user)
}

// DeleteUser deactivates and soft-deletes an account. Users cannot delete themselves.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if id == middleware.UserID(c) {
		h.fail(c, apperr.Validation("you cannot delete your own account"))
		return
	}
	db := h.db.WithContext(c.Request.Context())
	var target models.User
	if err := db.First(&target, id).Error; err != nil {
		h.fail(c, database.Translate(err, "user"))
		return
	}
	if err := guardOwner(c, target.Role, target.Role); err != nil {
		h.fail(c, err)
		return
	}
	if err := softDelete(db, &models.User{}, id, "user"); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "user deleted", nil)
}

// softDelete clears is_active and stamps deleted_at in one transaction.
func softDelete(db *gorm.DB, model any, id uint, what string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(model).Where("id = ?", id).Update("is_active", false)
		if res.Error != nil {
			return database.Translate(res.Error, what)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("%s not found", what)
		}
		return database.Translate(tx.Delete(model, id).Error, what)
	})
}
