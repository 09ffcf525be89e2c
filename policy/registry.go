package policy

import (
	"fmt"
	"sort"
	"strings"
)

// Registry resolves entity types to policies and builds cache keys.
//
// Contract:
// - Concurrency: a Registry is immutable after construction and safe for concurrent use.
// - Errors: Resolve never fails; unknown types resolve to the Default policy.
type Registry struct {
	policies map[EntityType]Policy
	keyer    *Keyer
}

// NewRegistry builds a registry from the built-in table with optional overrides.
// Overrides for types outside the built-in table add new entries based on the
// default policy. Prefixes inside ReservedPrefix are ignored.
func NewRegistry(overrides map[EntityType]Override) *Registry {
	policies := builtins()
	for et, o := range overrides {
		p, ok := policies[et]
		if !ok {
			p = policies[Default]
			p.KeyPrefix = string(et) + ":"
			p.Tags = []string{}
		}
		if o.TTL > 0 {
			p.TTL = o.TTL
		}
		if o.KeyPrefix != "" && !strings.HasPrefix(o.KeyPrefix, ReservedPrefix) {
			p.KeyPrefix = o.KeyPrefix
		}
		if strings.HasPrefix(p.KeyPrefix, ReservedPrefix) {
			p.KeyPrefix = policies[Default].KeyPrefix
		}
		policies[et] = p
	}
	return &Registry{policies: policies, keyer: NewKeyer()}
}

// Resolve returns the policy for et, or the default policy when et is unknown.
func (r *Registry) Resolve(et EntityType) Policy {
	p, ok := r.policies[et]
	if !ok {
		p = r.policies[Default]
	}
	p.Tags = append([]string{}, p.Tags...)
	return p
}

// Known reports whether et has its own policy.
func (r *Registry) Known(et EntityType) bool {
	_, ok := r.policies[et]
	return ok
}

// Tags returns the static invalidation tags of et. Never nil.
func (r *Registry) Tags(et EntityType) []string {
	return r.Resolve(et).Tags
}

// BuildKey builds the cache key for identifier under et's prefix.
//
// String identifiers are used verbatim. Any other value is canonicalized and
// hashed, so logically identical lookups always produce the same key.
func (r *Registry) BuildKey(et EntityType, identifier any) (string, error) {
	prefix := r.Resolve(et).KeyPrefix
	switch id := identifier.(type) {
	case string:
		return prefix + id, nil
	case fmt.Stringer:
		return prefix + id.String(), nil
	}
	hash, err := r.keyer.Hash(identifier)
	if err != nil {
		return "", err
	}
	return prefix + hash, nil
}

// MustBuildKey is BuildKey for identifiers known to be hashable.
func (r *Registry) MustBuildKey(et EntityType, identifier any) string {
	key, err := r.BuildKey(et, identifier)
	if err != nil {
		panic(err)
	}
	return key
}

// Pattern returns a glob pattern scoped to et's prefix.
func (r *Registry) Pattern(et EntityType, pattern string) string {
	return r.Resolve(et).KeyPrefix + pattern
}

// Policies returns a copy of the full policy table.
func (r *Registry) Policies() map[EntityType]Policy {
	out := make(map[EntityType]Policy, len(r.policies))
	for et := range r.policies {
		out[et] = r.Resolve(et)
	}
	return out
}

// Types returns all registered entity types sorted by name.
func (r *Registry) Types() []EntityType {
	types := make([]EntityType, 0, len(r.policies))
	for et := range r.policies {
		types = append(types, et)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
