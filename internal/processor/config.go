package processor

import "time"

// Config controls the simulated vendor behaviour.
type Config struct {
	// Latency is added to every call.
	Latency time.Duration
}
