// Package health provides health checking for the cache layer.
//
// A Checker reports the state of one dependency as a Result with a Status
// of Healthy, Degraded or Unhealthy. StoreChecker pings the key-value
// store and reports its latency and key count; BreakerChecker reports the
// circuit state of a guarded store; MemoryChecker reports process heap usage. An Aggregator runs registered checkers concurrently
// under a shared timeout and folds them into a Report.
//
//	agg := health.NewAggregator()
//	agg.Register("store", health.NewStoreChecker(gw, health.StoreCheckerConfig{}))
//	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{}))
//	report := agg.Report(ctx)
//
// LivenessHandler and ReadinessHandler expose the usual probe endpoints.
package health
