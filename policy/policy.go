package policy

import "time"

// EntityType identifies a family of cached values sharing one policy.
type EntityType string

// Known entity types.
const (
	Dossier     EntityType = "dossier"
	User        EntityType = "user"
	Session     EntityType = "session"
	Search      EntityType = "search"
	AIResponse  EntityType = "ai_response"
	Translation EntityType = "translation"
	Workspace   EntityType = "workspace"
	Default     EntityType = "default"
)

// String returns the entity type identifier.
func (e EntityType) String() string {
	return string(e)
}

// Policy configures caching for one entity type.
type Policy struct {
	// TTL is how long entries of this type stay fresh. Always positive.
	TTL time.Duration

	// KeyPrefix is prepended to every identifier of this type.
	KeyPrefix string

	// Tags group this type's keys for bulk invalidation.
	Tags []string
}

// TTLSeconds returns the TTL rounded down to whole seconds.
func (p Policy) TTLSeconds() int64 {
	return int64(p.TTL / time.Second)
}

// EffectiveTTL returns override when positive, otherwise the policy TTL.
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return p.TTL
}

// ReservedPrefix is the key namespace of the coordinator's own bookkeeping
// (durable metrics, tag sets). No entity prefix may start with it, so
// invalidating any entity type never touches these keys.
const ReservedPrefix = "entitycache:"

// Override replaces parts of a built-in policy. Zero fields keep the built-in value.
type Override struct {
	TTL       time.Duration
	KeyPrefix string
}

func builtins() map[EntityType]Policy {
	return map[EntityType]Policy{
		Dossier:     {TTL: 5 * time.Minute, KeyPrefix: "dossier:", Tags: []string{"dossiers"}},
		User:        {TTL: 10 * time.Minute, KeyPrefix: "user:", Tags: []string{"users"}},
		Session:     {TTL: 30 * time.Minute, KeyPrefix: "session:", Tags: []string{"sessions"}},
		Search:      {TTL: 2 * time.Minute, KeyPrefix: "search:", Tags: []string{"search"}},
		AIResponse:  {TTL: time.Hour, KeyPrefix: "ai:", Tags: []string{"ai"}},
		Translation: {TTL: 24 * time.Hour, KeyPrefix: "translation:", Tags: []string{"translations"}},
		Workspace:   {TTL: 5 * time.Minute, KeyPrefix: "workspace:", Tags: []string{"workspaces", "dossiers"}},
		Default:     {TTL: 5 * time.Minute, KeyPrefix: "cache:", Tags: []string{}},
	}
}

// EntityTypes returns the built-in entity types in a stable order.
func EntityTypes() []EntityType {
	return []EntityType{Dossier, User, Session, Search, AIResponse, Translation, Workspace, Default}
}
