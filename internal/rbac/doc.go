// Package rbac stores roles, permissions and their assignments.
//
// Users hold roles, roles hold permissions, and a user's effective permissions are the
// union of the permissions of all their roles. Definitions is the built-in catalog written
// to the database by Sync at startup; Table is a read-mostly in-memory copy of the
// role to permission mapping loaded back from the database.
package rbac
