// Package gather defines the shared contract for background data jobs.
package gather

import "context"

// Gatherer is the interface for all data gathering and derivation processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run executes one full pass of the process.
	Run(ctx context.Context) error
}
