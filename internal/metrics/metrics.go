// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Recorder captures metric events for the application.
type Recorder interface {
	// Post management metrics
	IncPostCreated()
	IncPostUpdated()
	IncPostDeleted()

	// Read path metrics
	IncPostCacheHit()
	IncPostCacheMiss()

	// ObserveStoreDuration records one store call. op is the store
	// operation name, outcome is "ok" or "error".
	ObserveStoreDuration(op, outcome string, duration time.Duration)

	// Event pipeline metrics
	IncEventPublished(status string) // status: "success" or "dropped"

	IncRateLimited()
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
