package shader

import (
	"fmt"

	"github.com/gogpu/naga"
)

// moduleSource is one named WGSL module pending compilation.
type moduleSource struct {
	name string
	code string
}

// library is the implementation of the Library interface.
type library struct {
	label    string
	sources  []moduleSource
	includes map[string]string
	validate bool

	functions map[string]*Function
	names     []string

	// errs collects builder option failures, reported by NewLibrary.
	errs []error
}

// Library is a compiled collection of named shader entry points. Functions are reflected
// from WGSL once at construction and are immutable afterwards.
type Library interface {
	// Label returns the library's debug label.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Function looks up an entry point by name.
	//
	// Parameters:
	//   - name: the entry point name
	//
	// Returns:
	//   - *Function: the reflected entry point
	//   - error: *EntryPointNotFound if no module declares the name
	Function(name string) (*Function, error)

	// Functions returns every entry point in declaration order.
	//
	// Returns:
	//   - []*Function: the reflected entry points
	Functions() []*Function

	// Names returns every entry point name in declaration order.
	//
	// Returns:
	//   - []string: the entry point names
	Names() []string
}

var _ Library = &library{}

// NewLibrary pre-processes, parses, reflects and optionally validates every configured WGSL module.
//
// Parameters:
//   - options: functional options adding sources, includes and validation settings
//
// Returns:
//   - Library: the compiled library
//   - error: the first option or compile failure, or a duplicate entry point name
func NewLibrary(options ...LibraryBuilderOption) (Library, error) {
	l := &library{
		label:     "library",
		includes:  make(map[string]string),
		validate:  true,
		functions: make(map[string]*Function),
	}
	for _, opt := range options {
		opt(l)
	}
	if len(l.errs) > 0 {
		return nil, l.errs[0]
	}

	pp := NewPreProcessor(l.includes)
	for _, src := range l.sources {
		if err := l.compile(pp, src); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *library) compile(pp PreProcessor, src moduleSource) error {
	code, err := pp.Process(src.code)
	if err != nil {
		return &CompileError{Module: src.name, Stage: "pre-process", Err: err}
	}

	ast, err := naga.Parse(code)
	if err != nil {
		return &CompileError{Module: src.name, Stage: "parse", Err: err}
	}
	module, err := naga.LowerWithSource(ast, code)
	if err != nil {
		return &CompileError{Module: src.name, Stage: "lower", Err: err}
	}

	functions, err := reflectModule(src.name, code, module)
	if err != nil {
		return &CompileError{Module: src.name, Stage: "reflect", Err: err}
	}

	var spirv []byte
	if l.validate {
		// Compiles a fresh copy so reflection never observes backend rewrites of the IR.
		spirv, err = naga.CompileWithOptions(code, naga.DefaultOptions())
		if err != nil {
			return &CompileError{Module: src.name, Stage: "validate", Err: err}
		}
	}

	for _, f := range functions {
		if prev, ok := l.functions[f.Name]; ok {
			return &CompileError{
				Module: src.name,
				Stage:  "link",
				Err:    fmt.Errorf("entry point %q already declared in module %q", f.Name, prev.Module),
			}
		}
		f.SPIRV = spirv
		l.functions[f.Name] = f
		l.names = append(l.names, f.Name)
	}
	return nil
}

func (l *library) Label() string {
	return l.label
}

func (l *library) Function(name string) (*Function, error) {
	f, ok := l.functions[name]
	if !ok {
		return nil, &EntryPointNotFound{Name: name, Library: l.label}
	}
	return f, nil
}

func (l *library) Functions() []*Function {
	out := make([]*Function, 0, len(l.names))
	for _, n := range l.names {
		out = append(out, l.functions[n])
	}
	return out
}

func (l *library) Names() []string {
	return append([]string(nil), l.names...)
}
