package runtime

import "time"

// WorkerOptions configures a Worker's prerequisite-wait and deadline
// behavior, matching the original task queue's own constants.
type WorkerOptions struct {
	// PrerequisiteCheckInterval is how often a not-yet-ready prerequisite is
	// re-polled.
	PrerequisiteCheckInterval time.Duration
	// PrerequisiteCeiling is the maximum time to wait for a single
	// prerequisite before giving up.
	PrerequisiteCeiling time.Duration
	// SoftDeadline and HardDeadline bound the whole step execution,
	// mirroring the original Celery task's soft/hard time limits.
	SoftDeadline time.Duration
	HardDeadline time.Duration
}

func DefaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		PrerequisiteCheckInterval: 5 * time.Second,
		PrerequisiteCeiling:       30 * time.Minute,
		SoftDeadline:              3600 * time.Second,
		HardDeadline:              7200 * time.Second,
	}
}
