package shader

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// LibraryBuilderOption is a functional option applied to a library during construction via NewLibrary.
type LibraryBuilderOption func(*library)

// WithLabel sets the library's debug label, used in lookup errors.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - LibraryBuilderOption: a function that applies the label option to a library
func WithLabel(label string) LibraryBuilderOption {
	return func(l *library) {
		l.label = label
	}
}

// WithSource adds an in-memory WGSL module.
//
// Parameters:
//   - name: the module name reported in errors
//   - code: the WGSL source
//
// Returns:
//   - LibraryBuilderOption: a function that applies the source option to a library
func WithSource(name, code string) LibraryBuilderOption {
	return func(l *library) {
		l.sources = append(l.sources, moduleSource{name: name, code: code})
	}
}

// WithSourceFromPath reads a WGSL module from disk. The module is named after the file.
//
// Parameters:
//   - p: the file path
//
// Returns:
//   - LibraryBuilderOption: a function that applies the source option to a library
func WithSourceFromPath(p string) LibraryBuilderOption {
	return func(l *library) {
		data, err := os.ReadFile(p)
		if err != nil {
			l.errs = append(l.errs, fmt.Errorf("failed to read shader %s: %w", p, err))
			return
		}
		l.sources = append(l.sources, moduleSource{name: filepath.Base(p), code: string(data)})
	}
}

// WithSourceFS adds every file in fsys matching any of the glob patterns, in lexical order.
// Files whose base name starts with "_" are registered as includes under their name without
// the leading underscore and extension instead of compiled as modules.
//
// Parameters:
//   - fsys: the file system, typically an embed.FS
//   - patterns: fs.Glob patterns, e.g. "shaders/*.wgsl"
//
// Returns:
//   - LibraryBuilderOption: a function that applies the source option to a library
func WithSourceFS(fsys fs.FS, patterns ...string) LibraryBuilderOption {
	return func(l *library) {
		var matches []string
		for _, pattern := range patterns {
			m, err := fs.Glob(fsys, pattern)
			if err != nil {
				l.errs = append(l.errs, fmt.Errorf("invalid shader pattern %q: %w", pattern, err))
				return
			}
			matches = append(matches, m...)
		}
		if len(matches) == 0 {
			l.errs = append(l.errs, fmt.Errorf("no shader sources match %v", patterns))
			return
		}
		sort.Strings(matches)

		for _, name := range matches {
			data, err := fs.ReadFile(fsys, name)
			if err != nil {
				l.errs = append(l.errs, fmt.Errorf("failed to read shader %s: %w", name, err))
				return
			}
			base := path.Base(name)
			if inc, ok := strings.CutPrefix(base, "_"); ok {
				l.includes[strings.TrimSuffix(inc, path.Ext(inc))] = string(data)
				continue
			}
			l.sources = append(l.sources, moduleSource{name: base, code: string(data)})
		}
	}
}

// WithInclude registers a snippet that modules can pull in with //@oxy:include <name>.
//
// Parameters:
//   - name: the include name
//   - code: the WGSL snippet
//
// Returns:
//   - LibraryBuilderOption: a function that applies the include option to a library
func WithInclude(name, code string) LibraryBuilderOption {
	return func(l *library) {
		l.includes[name] = code
	}
}

// WithValidation toggles naga IR validation and SPIR-V generation. Enabled by default.
//
// Parameters:
//   - validate: true to validate every module
//
// Returns:
//   - LibraryBuilderOption: a function that applies the validation option to a library
func WithValidation(validate bool) LibraryBuilderOption {
	return func(l *library) {
		l.validate = validate
	}
}
