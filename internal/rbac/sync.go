package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GoUserAdmin/GoUserAdmin/internal/db/models"
)

// Sync writes the catalog into the database: missing permissions and roles are created,
// existing ones get their category, action and description refreshed, and every role
// definition's permission links are added. Links added by administrators are kept.
// Running Sync repeatedly is a no-op after the first run.
func Sync(ctx context.Context, repo *Repository, cat Catalog) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		permIDs := make(map[string]uint, len(cat.Permissions))

		for _, def := range cat.Permissions {
			if !ValidAction(def.Action) {
				return fmt.Errorf("%w: %q for %s", ErrInvalidAction, def.Action, def.Key)
			}

			var p models.Permission

			err := tx.Where("permission_key = ?", def.Key).
				Assign(models.Permission{Category: def.Category, Action: def.Action, Description: def.Description}).
				FirstOrCreate(&p, models.Permission{Key: def.Key}).Error
			if err != nil {
				return fmt.Errorf("failed to sync permission %s: %w", def.Key, err)
			}

			permIDs[def.Key] = p.ID
		}

		for _, def := range cat.Roles {
			var role models.Role

			err := tx.Where("name = ?", def.Name).
				Attrs(models.Role{Description: def.Description}).
				FirstOrCreate(&role, models.Role{Name: def.Name}).Error
			if err != nil {
				return fmt.Errorf("failed to sync role %s: %w", def.Name, err)
			}

			for _, key := range def.Permissions {
				id, ok := permIDs[key]
				if !ok {
					return fmt.Errorf("role %s references unknown permission %s: %w", def.Name, key, ErrPermissionNotFound)
				}

				err := tx.Clauses(clause.OnConflict{DoNothing: true}).
					Omit(clause.Associations).
					Create(&models.RolePermission{RoleID: role.ID, PermissionID: id}).Error
				if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
					return fmt.Errorf("failed to link %s to role %s: %w", key, def.Name, err)
				}
			}
		}

		log.Info().Int("permissions", len(cat.Permissions)).Int("roles", len(cat.Roles)).
			Msg("role and permission definitions synchronized")

		return nil
	})
}
