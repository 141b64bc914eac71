package runtime

import "errors"

// ErrPrerequisiteFailed wraps a prerequisite step's failure. It is never
// retried: if a prerequisite is terminally failed, retrying this step would
// just fail the same way again, so the worker Terms the message instead of
// Nak-ing it.
var ErrPrerequisiteFailed = errors.New("prerequisite step failed")

// ErrStepFailed wraps a failure in the step body itself (built-in operation
// or prompt-based execution). It is retried up to the consumer's configured
// MaxDeliver, the same 3-attempt budget the original task queue used.
var ErrStepFailed = errors.New("step execution failed")

// ErrPrerequisiteTimeout indicates a prerequisite never became ready within
// its bounded wait ceiling.
var ErrPrerequisiteTimeout = errors.New("prerequisite wait timed out")
