// Package service provides a cache-aware base for entity services.
//
// Base bundles the two canonical read patterns, by id and by list
// parameters, with lifecycle hooks that keep the cache consistent after
// writes. A concrete service only declares its entity type:
//
//	base := service.NewBase[*Dossier](coordinator, policy.Dossier)
//	d, err := base.GetByID(ctx, id, func(ctx context.Context) (*Dossier, error) {
//		return repo.Get(ctx, id)
//	})
//
// Per-call options bypass the cache (SkipCache), refresh it without
// reading (ForceRefresh), or override the TTL and tags.
//
// List caches live under "<prefix>list:<hash>" and are cleared with the
// pattern "<prefix>*list*" by every lifecycle hook.
package service
