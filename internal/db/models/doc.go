// Package models contains the gorm model definitions for users, roles, permissions
// and their junction tables.
package models
