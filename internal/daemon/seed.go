package daemon

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoUserAdmin/GoUserAdmin/internal/auth"
	"github.com/GoUserAdmin/GoUserAdmin/internal/config"
	"github.com/GoUserAdmin/GoUserAdmin/internal/db/controller/user"
	"github.com/GoUserAdmin/GoUserAdmin/internal/db/models"
	"github.com/GoUserAdmin/GoUserAdmin/internal/rbac"
	"github.com/GoUserAdmin/GoUserAdmin/internal/uniuri"
)

const generatedPasswordLen = 20

// seed creates the configured admin account with the admin role while the user table is empty.
func seed(ctx context.Context, admin config.Admin, db *gorm.DB, svc *auth.Service, repo *rbac.Repository) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}

	if count > 0 {
		return nil
	}

	if admin.Email == "" {
		log.Warn().Msg("no users and no admin.email configured, nobody can log in")

		return nil
	}

	plaintext := admin.Password
	generated := plaintext == ""

	if generated {
		plaintext = uniuri.NewLen(generatedPasswordLen)
	}

	hash, err := svc.HashPassword(ctx, plaintext)
	if err != nil {
		return err
	}

	name := admin.Name
	if name == "" {
		name = "Administrator"
	}

	u, err := user.Create(ctx, db, name, admin.Email, hash)
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	role, err := repo.GetRoleByName(ctx, rbac.RoleAdmin)
	if err != nil {
		return err
	}

	if _, err = repo.AssignRoleToUser(ctx, u.ID, role.ID); err != nil {
		return err
	}

	if generated {
		// shown once, the hash is all that is stored
		log.Warn().Str("email", u.Email).Str("password", plaintext).Msg("created initial admin user with generated password")

		return nil
	}

	log.Info().Str("email", u.Email).Msg("created initial admin user")

	return nil
}
