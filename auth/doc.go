// Package auth authenticates operators of the cache admin surface.
//
// Two credential kinds are supported: HS256 JWT bearer tokens and a
// static API key. Chain tries them in order and Middleware enforces an
// authenticated identity carrying a required role before a request reaches
// an admin handler.
package auth
