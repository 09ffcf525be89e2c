package main

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/jonwraymond/entitycache/observe"
)

// newSupervisor builds the root supervisor. Supervisor events are logged
// as warnings.
func newSupervisor(name string, shutdownTimeout time.Duration, logger observe.Logger) *suture.Supervisor {
	return suture.New(name, suture.Spec{
		EventHook: func(e suture.Event) {
			logger.Warn(context.Background(), "supervisor event",
				observe.F("type", e.Type()), observe.F("event", e.String()))
		},
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		Timeout:          shutdownTimeout,
	})
}
