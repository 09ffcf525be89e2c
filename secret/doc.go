// Package secret resolves secret values in configuration.
//
// Configuration strings go through strict environment expansion
// (ExpandEnvStrict) and then through secret references of the form
// "secretref:<provider>:<ref>". The file provider reads mounted secrets:
//
//	ADMIN_JWT_SECRET=secretref:file:/run/secrets/admin_jwt
//
// References may also appear inline, as in
// "redis://:secretref:file:/run/secrets/redis_pw@redis:6379/0".
package secret
