package renderer

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDevice is returned when no device is available.
	ErrNoDevice = errors.New("no device available")

	// ErrForeignDevice is returned when an object is bound to a device that did not create it.
	ErrForeignDevice = errors.New("object belongs to a different device")

	// ErrUnsupportedFormat is returned for pixel formats a device cannot create or render to.
	ErrUnsupportedFormat = errors.New("unsupported pixel format")

	// ErrUnsupportedSampleCount is returned for sample counts a device cannot render with.
	ErrUnsupportedSampleCount = errors.New("unsupported sample count")
)

// SetupError reports a failure while acquiring the device, the queue or a pipeline. It is fatal.
type SetupError struct {
	Op  string
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup failed: %s: %v", e.Op, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// PipelineBuildError reports a pipeline that could not be built. Diagnostic carries the
// backend's message and Err the underlying cause, if any.
type PipelineBuildError struct {
	Pipeline   string
	Diagnostic string
	Err        error
}

func (e *PipelineBuildError) Error() string {
	msg := fmt.Sprintf("pipeline %q", e.Pipeline)
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PipelineBuildError) Unwrap() error {
	return e.Err
}

// SubmissionError reports a failure acquiring, encoding, committing or executing a command buffer.
type SubmissionError struct {
	Label string
	Op    string
	Err   error
}

func (e *SubmissionError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("submission failed: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("submission %q failed: %s: %v", e.Label, e.Op, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// CheckDevice returns ErrForeignDevice, wrapped with the object's label, when o was not created by d.
// A nil object passes.
//
// Parameters:
//   - d: the expected owner
//   - o: the object to check
//
// Returns:
//   - error: nil when o belongs to d
func CheckDevice(d Device, o Object) error {
	if o == nil {
		return nil
	}
	if o.Device() != d {
		return fmt.Errorf("%q: %w", o.Label(), ErrForeignDevice)
	}
	return nil
}
