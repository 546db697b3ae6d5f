// Package handlers exposes the HTTP API on top of the services.
package handlers

import (
	"time"

	"branch-pos/internal/ai"
	"branch-pos/internal/auth"
	"branch-pos/internal/config"
	"branch-pos/internal/inventory"
	"branch-pos/internal/sales"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler holds what the endpoints need. Build it once with New.
type Handler struct {
	db        *gorm.DB
	cfg       *config.Config
	tokens    *auth.TokenManager
	inventory *inventory.Service
	sales     *sales.Service
	agent     *ai.Agent // nil when the assistant is disabled
	logger    *zap.Logger
	now       func() time.Time
}

type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Tokens    *auth.TokenManager
	Inventory *inventory.Service
	Sales     *sales.Service
	Agent     *ai.Agent
	Logger    *zap.Logger
}

func New(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		db:        d.DB,
		cfg:       d.Config,
		tokens:    d.Tokens,
		inventory: d.Inventory,
		sales:     d.Sales,
		agent:     d.Agent,
		logger:    logger,
		now:       time.Now,
	}
}
