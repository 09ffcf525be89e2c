package metrics

import "errors"

var (
	// ErrNilGateway is returned when a Collector is built without a gateway.
	ErrNilGateway = errors.New("metrics: nil gateway")

	// ErrAlreadyRunning is returned by Start when the flusher is running.
	ErrAlreadyRunning = errors.New("metrics: flusher already running")
)
