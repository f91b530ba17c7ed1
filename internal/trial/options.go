package trial

// Option configures Run and Compare.
type Option func(*options)

type options struct {
	convergence     ConvergenceConfig
	progress        func(Progress)
	checkpoint      func(Checkpoint) error
	checkpointEvery int
}

func newOptions(opts []Option) options {
	o := options{convergence: DisabledConvergenceConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithConvergence stops a trial early once its loss stalls.
// Without it every trial runs its full iteration count.
func WithConvergence(config ConvergenceConfig) Option {
	return func(o *options) {
		o.convergence = config
	}
}

// WithProgress calls fn after every step. Under Compare, fn is called from
// several goroutines and must be safe for concurrent use.
func WithProgress(fn func(Progress)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithCheckpoints calls fn every n steps with the state needed to resume.
// The final state is available from the Result and is not passed to fn.
func WithCheckpoints(n int, fn func(Checkpoint) error) Option {
	return func(o *options) {
		o.checkpointEvery = n
		o.checkpoint = fn
	}
}
