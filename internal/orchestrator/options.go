package orchestrator

import (
	"time"

	"github.com/rfoley/loom/internal/logging"
)

// Defaults for optional scheduler settings.
const (
	// DefaultMaxConcurrentTasks bounds the per-stage fan-out.
	DefaultMaxConcurrentTasks = 3
	// DefaultTaskTimeout is the per-task execution deadline.
	DefaultTaskTimeout = 10 * time.Minute
	// DefaultTaskRetries is the number of additional attempts after a
	// failed execution.
	DefaultTaskRetries = 2
	// DefaultRetryBackoff is the initial delay between attempts; it
	// doubles per attempt.
	DefaultRetryBackoff = 2 * time.Second
)

// Option configures an Orchestrator. Use With* functions to create Options.
type Option func(*Orchestrator)

// WithMaxConcurrent sets the maximum number of tasks executing at once
// within a stage.
func WithMaxConcurrent(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxConcurrent = n
		}
	}
}

// WithTaskTimeout sets the per-task execution deadline. Zero disables
// the deadline.
func WithTaskTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.taskTimeout = d }
}

// WithRetries sets the retry policy: additional attempts after a
// failed execution and the initial backoff, which doubles per attempt.
func WithRetries(attempts int, backoff time.Duration) Option {
	return func(o *Orchestrator) {
		if attempts >= 0 {
			o.taskRetries = attempts
		}
		if backoff > 0 {
			o.retryBackoff = backoff
		}
	}
}

// WithArbitrator sets the post-stage conflict checker.
func WithArbitrator(a Arbitrator) Option {
	return func(o *Orchestrator) { o.arbitrator = a }
}

// WithLogger sets the debug logger.
func WithLogger(l *logging.DebugLogger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}
