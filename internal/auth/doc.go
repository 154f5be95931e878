// Package auth ties credentials, tokens and authorization together for the request layer.
//
// A request passes through three states. It starts unauthenticated, becomes authenticated
// once AuthenticateRequest accepts its bearer token, and is authorized once AuthorizeRequest
// accepts the route's Requirement. A rejection at any step ends the request.
//
// Typical wiring:
//
//	svc, err := auth.New(db, repo, hasher, tokens, engine, auth.Options{DefaultRole: "staff"})
//	res, err := svc.Login(ctx, email, plaintext)
//	session, err := svc.IssueSession(ctx, &res.User)
//
//	principal, err := svc.AuthenticateRequest(ctx, c.Get("Authorization"))
//	err = svc.AuthorizeRequest(ctx, principal, authz.Permission(rbac.PermUserDelete))
package auth
