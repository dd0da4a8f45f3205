package shader

import "fmt"

// EntryPointNotFound is returned when a library has no entry point with the requested name.
type EntryPointNotFound struct {
	Name    string
	Library string
}

func (e *EntryPointNotFound) Error() string {
	if e.Library == "" {
		return fmt.Sprintf("entry point %q not found", e.Name)
	}
	return fmt.Sprintf("entry point %q not found in library %q", e.Name, e.Library)
}

// CompileError reports a module that failed to pre-process, parse, lower or validate.
type CompileError struct {
	Module string
	Stage  string
	Err    error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("shader module %q: %s: %v", e.Module, e.Stage, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}
