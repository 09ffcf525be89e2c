package service

import "time"

type callOptions struct {
	skipCache    bool
	forceRefresh bool
	ttl          time.Duration
	tags         []string
}

// CallOption adjusts a single read.
type CallOption func(*callOptions)

// SkipCache bypasses the cache entirely: the fetcher runs and nothing is
// stored.
func SkipCache() CallOption {
	return func(o *callOptions) { o.skipCache = true }
}

// ForceRefresh skips the cache read but stores the fresh result.
func ForceRefresh() CallOption {
	return func(o *callOptions) { o.forceRefresh = true }
}

// TTL overrides the policy TTL for this read.
func TTL(d time.Duration) CallOption {
	return func(o *callOptions) { o.ttl = d }
}

// Tags adds tags to the stored entry.
func Tags(tags ...string) CallOption {
	return func(o *callOptions) { o.tags = append(o.tags, tags...) }
}

func buildCallOptions(opts []CallOption) callOptions {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
