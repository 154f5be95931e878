// Package user provides CRUD operations for user accounts.
package user

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/GoUserAdmin/GoUserAdmin/internal/db/models"
)

const emailQueryPattern = "email = ?"

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailInUse is returned when an email address is already registered.
	ErrEmailInUse = errors.New("email already in use")
	// ErrEmailEmpty is returned when attempting to store a user without email.
	ErrEmailEmpty = errors.New("email cannot be empty")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
)

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Get retrieves a user by ID.
func Get(ctx context.Context, db *gorm.DB, id uint64) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var u models.User
	if err := db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return &u, nil
}

// GetByEmail retrieves a user by email address.
func GetByEmail(ctx context.Context, db *gorm.DB, email string) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailEmpty
	}

	var u models.User
	if err := db.WithContext(ctx).Where(emailQueryPattern, email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, err
	}

	return &u, nil
}

// List returns a page of users ordered by id and the total number of users.
func List(ctx context.Context, db *gorm.DB, limit, offset int) ([]models.User, int64, error) {
	if db == nil {
		return nil, 0, ErrDBNil
	}

	var (
		users []models.User
		total int64
	)

	q := db.WithContext(ctx).Model(&models.User{})

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit > 0 {
		q = q.Limit(limit)
	}

	if err := q.Offset(offset).Order("id").Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// Create stores a new user with an already hashed password.
func Create(ctx context.Context, db *gorm.DB, name, email, passwordHash string) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrEmailEmpty
	}

	u := &models.User{
		Name:     strings.TrimSpace(name),
		Email:    email,
		Password: passwordHash,
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where(emailQueryPattern, email).Count(&count).Error; err != nil {
			return err
		}

		if count > 0 {
			return ErrEmailInUse
		}

		return tx.Create(u).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailInUse
		}

		return nil, err
	}

	return u, nil
}

// Update changes name and email of a user. Empty values keep the current value.
func Update(ctx context.Context, db *gorm.DB, id uint64, name, email string) (*models.User, error) {
	if db == nil {
		return nil, ErrDBNil
	}

	var u models.User

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&u, id).Error; err != nil {
			return err
		}

		if email = NormalizeEmail(email); email != "" && email != u.Email {
			var count int64
			if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", email, id).Count(&count).Error; err != nil {
				return err
			}

			if count > 0 {
				return ErrEmailInUse
			}

			u.Email = email
		}

		if name = strings.TrimSpace(name); name != "" {
			u.Name = name
		}

		return tx.Save(&u).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrEmailInUse
		default:
			return nil, err
		}
	}

	return &u, nil
}

// UpdatePassword replaces the stored password hash.
func UpdatePassword(ctx context.Context, db *gorm.DB, id uint64, passwordHash string) error {
	if db == nil {
		return ErrDBNil
	}

	res := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password", passwordHash)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Delete removes a user and all of their role assignments.
func Delete(ctx context.Context, db *gorm.DB, id uint64) error {
	if db == nil {
		return ErrDBNil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return ErrUserNotFound
		}

		return nil
	})
}
