package handlers

import (
	"net/http"
	"strings"

	"branch-pos/internal/database"
	"branch-pos/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BranchInput struct {
	Name       *string `json:"name"`
	Code       *string `json:"code"`
	Address    *string `json:"address"`
	City       *string `json:"city"`
	State      *string `json:"state"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	IsActive   *bool   `json:"is_active"`
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func (in *BranchInput) apply(b *models.Branch) error {
	setString(&b.Name, in.Name)
	setString(&b.Address, in.Address)
	setString(&b.City, in.City)
	setString(&b.State, in.State)
	setString(&b.PostalCode, in.PostalCode)
	setString(&b.Country, in.Country)
	setString(&b.Phone, in.Phone)
	setString(&b.Email, in.Email)
	if in.Code != nil {
		b.Code = strings.ToUpper(strings.TrimSpace(*in.Code))
	}
	if in.IsActive != nil {
		b.IsActive = *in.IsActive
	}
	return b.Validate()
}

func (h *Handler) ListBranches(c *gin.Context) {
	page := pageFrom(c)
	active, err := queryBool(c, "active")
	if err != nil {
		h.fail(c, err)
		return
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.Branch{})
	if term := c.Query("search"); term != "" {
		p := likePattern(term)
		q = q.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ? OR LOWER(city) LIKE ?", p, p, p)
	}
	if active != nil {
		q = q.Where("is_active = ?", *active)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		h.fail(c, database.Translate(err, "branches"))
		return
	}
	var branches []models.Branch
	if err := q.Scopes(page.Scope).Order("id").Find(&branches).Error; err != nil {
		h.fail(c, database.Translate(err, "branches"))
		return
	}
	respondPage(c, branches, page, total)
}

func (h *Handler) GetBranch(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var branch models.Branch
	if err := h.db.WithContext(c.Request.Context()).First(&branch, id).Error; err != nil {
		h.fail(c, database.Translate(err, "branch"))
		return
	}
	respond(c, http.StatusOK, "", &branch)
}

func (h *Handler) CreateBranch(c *gin.Context) {
	var input BranchInput
	if err := bind(c, &input); err != nil {
		h.fail(c, err)
		return
	}
	branch := models.Branch{IsActive: true}
	if err := input.apply(&branch); err != nil {
		h.fail(c, err)
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&branch).Error; err != nil {
		h.fail(c, database.Translate(err, "branch"))
		return
	}
	h.logger.Info("branch created", zap.Uint("branch_id", branch.ID), zap.String("code", branch.Code))
	respond(c, http.StatusCreated, "branch created", &branch)
}

func (h *Handler) UpdateBranch(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var input BranchInput
	if err := bind(c, &input); err != nil {
		h.fail(c, err)
		return
	}

	db := h.db.WithContext(c.Request.Context())
	var branch models.Branch
	if err := db.First(&branch, id).Error; err != nil {
		h.fail(c, database.Translate(err, "branch"))
		return
	}
	if err := input.apply(&branch); err != nil {
		h.fail(c, err)
		return
	}
	if err := db.Save(&branch).Error; err != nil {
		h.fail(c, database.Translate(err, "branch"))
		return
	}
	respond(c, http.StatusOK, "branch updated", &branch)
}

func (h *Handler) DeleteBranch(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := softDelete(h.db.WithContext(c.Request.Context()), &models.Branch{}, id, "branch"); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "branch deleted", nil)
}
