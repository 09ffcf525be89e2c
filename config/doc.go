// Package config loads process configuration for entitycache.
//
// Values are layered with koanf in increasing priority: built-in defaults,
// an optional YAML file (CONFIG_PATH, then config.yaml), and environment
// variables. Per entity type, CACHE_TTL_<ENTITY> sets the TTL in seconds
// and CACHE_PREFIX_<ENTITY> the key prefix:
//
//	CACHE_TTL_DOSSIER=600
//	CACHE_PREFIX_AI_RESPONSE=ai:v2:
//
// Secret-bearing values (REDIS_URL, ADMIN_JWT_SECRET, ADMIN_API_KEY) may use
// ${VAR} expansion and secretref:file:/path references.
package config
