package models

import "time"

// Permission represents an atomic capability in the authorization system.
// A permission is identified by a unique key (e.g. "USER_READ") and scoped to a
// category and an action.
type Permission struct {
	// ID is the unique identifier for the permission.
	ID uint `gorm:"primaryKey" json:"id"`
	// Key is the unique permission identifier (e.g., "USER_READ").
	// Stored as permission_key because "key" is reserved in MySQL.
	Key string `gorm:"column:permission_key;unique;size:50;not null" json:"key"`
	// Category groups permissions by functional area (e.g., "user_management").
	Category string `gorm:"size:50;not null;index" json:"category"`
	// Action is the action allowed within the category (e.g., "read", "approve").
	Action string `gorm:"size:50;not null" json:"action"`
	// Description provides a human-readable explanation of what this permission grants.
	Description string `gorm:"size:255" json:"description,omitempty"`
	// CreatedAt is the timestamp when the permission was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the database table name for the Permission model.
func (Permission) TableName() string {
	return "permissions"
}
