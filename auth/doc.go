// Package auth guards the administrative HTTP routes.
//
// Requests are authenticated by a static API key (X-API-Key) or an HS256
// bearer JWT, tried in that order by a CompositeAuthenticator. The resulting
// Identity is then checked by an Authorizer, normally RequireRole("admin").
// Middleware wires both into an http.Handler chain and answers 401 or 403.
package auth
