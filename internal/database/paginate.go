package database

import "gorm.io/gorm"

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps the page into sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageSize
	}
	if p.Limit > MaxPageSize {
		p.Limit = MaxPageSize
	}
	return p
}

// Scope applies LIMIT/OFFSET for the page.
func (p Page) Scope(db *gorm.DB) *gorm.DB {
	p = p.Normalize()
	return db.Offset((p.Page - 1) * p.Limit).Limit(p.Limit)
}
