// Package auth provides the fiber guard protecting API routes.
//
// Authenticate moves a request from unauthenticated to authenticated by verifying its
// bearer token. The Require family then checks the route's requirement. Rejected
// requests get a JSON error body and never reach the handler:
//
//	401 {"error":"Authentication required"}   no or malformed Authorization header
//	401 {"error":"Invalid or expired token"}  token rejected, reason only logged
//	403 {"error":"Insufficient permissions"}  requirement not met
//	500 {"error":"Internal server error"}     blacklist or database failure
//
// Usage:
//
//	guard := authmiddleware.New(authService)
//	api := app.Group("/api", guard.Authenticate())
//	api.Delete("/users/:id", guard.RequirePermission(rbac.PermUserDelete), h.Delete)
package auth
