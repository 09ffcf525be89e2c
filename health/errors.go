package health

import "errors"

var (
	// ErrCheckFailed marks a check whose own threshold was crossed, as opposed
	// to a dependency returning an error.
	ErrCheckFailed = errors.New("health: check failed")

	// ErrCheckTimeout is attached to results of checks that missed the
	// aggregator deadline.
	ErrCheckTimeout = errors.New("health: check timeout")

	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrSlowResponse marks a store that answered above its latency threshold.
	ErrSlowResponse = errors.New("health: slow response")
)
