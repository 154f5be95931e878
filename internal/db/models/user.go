package models

import "time"

// User represents a user account in the system.
// Users authenticate with email and password and receive permissions through roles.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey" json:"id"`
	// Name is the user's display name.
	Name string `gorm:"size:255;not null" json:"name"`
	// Email is the user's unique email address used for login.
	Email string `gorm:"unique;size:255;not null" json:"email"`
	// Password is the hashed password (bcrypt or argon2id). Never serialized.
	Password string `gorm:"size:255;not null" json:"-"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// All returns every model managed by AutoMigrate, parents before junction tables.
func All() []any {
	return []any{
		&User{},
		&Role{},
		&Permission{},
		&UserRole{},
		&RolePermission{},
	}
}
