package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoUserAdmin/GoUserAdmin/internal/auth"
	"github.com/GoUserAdmin/GoUserAdmin/internal/config"
	"github.com/GoUserAdmin/GoUserAdmin/internal/rbac"
	authmiddleware "github.com/GoUserAdmin/GoUserAdmin/internal/web/middleware/auth"
)

// Deps are the shared dependencies handed to every handler service.
type Deps struct {
	Cfg   *config.Config
	DB    *gorm.DB
	Auth  *auth.Service
	Repo  *rbac.Repository
	Table *rbac.Table
	Guard *authmiddleware.Guard
}

// Valid reports whether every dependency is set.
func (d *Deps) Valid() bool {
	return d != nil && d.Cfg != nil && d.DB != nil && d.Auth != nil &&
		d.Repo != nil && d.Table != nil && d.Guard != nil
}

// Service is the interface for a web handler service.
type Service interface {
	Init(router fiber.Router, deps *Deps) error
}

// ReloadTable refreshes the cached role table after a role or permission change.
// A failure is logged; the repository stays the source of truth.
func (d *Deps) ReloadTable(ctx context.Context) {
	if err := d.Table.Reload(ctx); err != nil {
		log.Error().Err(err).Msg("failed to reload role table")
	}
}
