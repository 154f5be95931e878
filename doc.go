// Package main runs GoUserAdmin, a JSON API managing user accounts, roles and
// permissions. Clients log in for a signed bearer token carrying the user's roles;
// every protected route checks the token, its revocation state and the route's
// role or permission requirement before the handler runs.
package main
