package handlers

import (
	"net/http"

	"branch-pos/internal/apperr"
	"branch-pos/internal/database"
	"branch-pos/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CustomerInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	Company   *string `json:"company"`
	TaxID     *string `json:"tax_id"`
	IsActive  *bool   `json:"is_active"`
	// BranchIDs replaces the branch associations when present.
	BranchIDs *[]uint `json:"branch_ids"`
}

func (in *CustomerInput) apply(cu *models.Customer) error {
	setString(&cu.FirstName, in.FirstName)
	setString(&cu.LastName, in.LastName)
	setString(&cu.Phone, in.Phone)
	setString(&cu.Address, in.Address)
	setString(&cu.Company, in.Company)
	setString(&cu.TaxID, in.TaxID)
	if in.Email != nil {
		cu.Email = normalizeEmail(*in.Email)
	}
	if in.IsActive != nil {
		cu.IsActive = *in.IsActive
	}
	return cu.Validate()
}

// loadBranches resolves ids into branches, failing on the first unknown one.
func loadBranches(db *gorm.DB, ids []uint) ([]models.Branch, error) {
	branches := make([]models.Branch, 0, len(ids))
	if len(ids) == 0 {
		return branches, nil
	}
	if err := db.Where("id IN ?", ids).Find(&branches).Error; err != nil {
		return nil, database.Translate(err, "branch")
	}
	found := make(map[uint]bool, len(branches))
	for _, b := range branches {
		found[b.ID] = true
	}
	for _, id := range ids {
		if !found[id] {
			return nil, apperr.Reference("branch %d does not exist", id)
		}
	}
	return branches, nil
}

func (h *Handler) ListCustomers(c *gin.Context) {
	page := pageFrom(c)
	active, err := queryBool(c, "active")
	if err != nil {
		h.fail(c, err)
		return
	}
	branchID, err := queryUint(c, "branch_id")
	if err != nil {
		h.fail(c, err)
		return
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.Customer{})
	if term := c.Query("search"); term != "" {
		p := likePattern(term)
		q = q.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(company) LIKE ?", p, p, p, p)
	}
	if active != nil {
		q = q.Where("is_active = ?", *active)
	}
	if branchID != 0 {
		q = q.Where("id IN (?)", h.db.Table("customer_branches").Select("customer_id").Where("branch_id = ?", branchID))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		h.fail(c, database.Translate(err, "customers"))
		return
	}
	var customers []models.Customer
	if err := q.Scopes(page.Scope).Preload("Branches").Order("id").Find(&customers).Error; err != nil {
		h.fail(c, database.Translate(err, "customers"))
		return
	}
	respondPage(c, customers, page, total)
}

func (h *Handler) GetCustomer(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var customer models.Customer
	if err := h.db.WithContext(c.Request.Context()).Preload("Branches").First(&customer, id).Error; err != nil {
		h.fail(c, database.Translate(err, "customer"))
		return
	}
	respond(c, http.StatusOK, "", &customer)
}

func (h *Handler) CreateCustomer(c *gin.Context) {
	var input CustomerInput
	if err := bind(c, &input); err != nil {
		h.fail(c, err)
		return
	}

	db := h.db.WithContext(c.Request.Context())
	customer := models.Customer{IsActive: true}
	if err := input.apply(&customer); err != nil {
		h.fail(c, err)
		return
	}
	if input.BranchIDs != nil {
		branches, err := loadBranches(db, *input.BranchIDs)
		if err != nil {
			h.fail(c, err)
			return
		}
		customer.Branches = branches
	}

	// Create also writes the customer_branches join rows.
	if err := db.Omit("Branches.*").Create(&customer).Error; err != nil {
		h.fail(c, database.Translate(err, "customer"))
		return
	}
	respond(c, http.StatusCreated, "customer created", &customer)
}

func (h *Handler) UpdateCustomer(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	var input CustomerInput
	if err := bind(c, &input); err != nil {
		h.fail(c, err)
		return
	}

	err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if err := tx.First(&customer, id).Error; err != nil {
			return database.Translate(err, "customer")
		}
		if err := input.apply(&customer); err != nil {
			return err
		}
		if err := tx.Omit("Branches").Save(&customer).Error; err != nil {
			return database.Translate(err, "customer")
		}
		if input.BranchIDs == nil {
			return nil
		}
		branches, err := loadBranches(tx, *input.BranchIDs)
		if err != nil {
			return err
		}
		assoc := tx.Model(&customer).Association("Branches")
		if len(branches) == 0 {
			return database.Translate(assoc.Clear(), "customer")
		}
		return database.Translate(assoc.Replace(branches), "customer")
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	var customer models.Customer
	if err := h.db.WithContext(c.Request.Context()).Preload("Branches").First(&customer, id).Error; err != nil {
		h.fail(c, database.Translate(err, "customer"))
		return
	}
	respond(c, http.StatusOK, "customer updated", &customer)
}

func (h *Handler) DeleteCustomer(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	if err := softDelete(h.db.WithContext(c.Request.Context()), &models.Customer{}, id, "customer"); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "customer deleted", nil)
}
