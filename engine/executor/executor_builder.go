package executor

// ExecutorBuilderOption is a functional option for configuring an executor.
type ExecutorBuilderOption func(*executor)

// WithLabel names the executor in log records.
//
// Parameters:
//   - label: the executor label
//
// Returns:
//   - ExecutorBuilderOption: a function that applies the label option to an executor
func WithLabel(label string) ExecutorBuilderOption {
	return func(e *executor) {
		e.label = label
	}
}

// WithPresent controls whether frames that render into a drawable present it. Enabled by default.
//
// Parameters:
//   - present: true to present drawables
//
// Returns:
//   - ExecutorBuilderOption: a function that applies the present option to an executor
func WithPresent(present bool) ExecutorBuilderOption {
	return func(e *executor) {
		e.present = present
	}
}

// WithWaitUntilCompleted makes RunFrame block until the GPU finished the frame.
//
// Parameters:
//   - wait: true to wait for completion after every commit
//
// Returns:
//   - ExecutorBuilderOption: a function that applies the wait option to an executor
func WithWaitUntilCompleted(wait bool) ExecutorBuilderOption {
	return func(e *executor) {
		e.wait = wait
	}
}
