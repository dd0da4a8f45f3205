// pre_processor.go implements the Oxy WGSL shader pre-processor. It scans shader
// source code for //@oxy:include annotations and replaces each one with the WGSL
// snippet registered under that name, so shared struct definitions are written once.
//
// Syntax: //@oxy:include <name>
//
// Included snippets may themselves include other snippets. A snippet is injected at
// most once per module; repeated includes of the same name expand to nothing.
package shader

import (
	"fmt"
	"strings"
)

// annotationPrefix is the marker that identifies an Oxy annotation within a WGSL comment line.
const annotationPrefix = "//@oxy:"

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// includes maps snippet names to their WGSL source.
	includes map[string]string

	// included records the snippets expanded during the most recent Process call, in order.
	included []string
}

// PreProcessor expands //@oxy:include annotations in WGSL source.
type PreProcessor interface {
	// Process replaces every //@oxy:include annotation with the registered snippet.
	//
	// Parameters:
	//   - source: the raw WGSL source code
	//
	// Returns:
	//   - string: the expanded WGSL source code
	//   - error: an error if an annotation is malformed, unknown or cyclic
	Process(source string) (string, error)

	// Included returns the snippet names expanded by the most recent Process call, in order.
	//
	// Returns:
	//   - []string: the expanded snippet names
	Included() []string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor that resolves includes from the given registry.
//
// Parameters:
//   - includes: snippet sources keyed by include name
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(includes map[string]string) PreProcessor {
	return &preProcessor{includes: includes}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.included = p.included[:0]
	seen := make(map[string]bool)
	return p.expand(source, seen, nil)
}

func (p *preProcessor) expand(source string, seen map[string]bool, stack []string) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), annotationPrefix)
		if !ok {
			out = append(out, line)
			continue
		}

		fields := strings.Fields(rest)
		if len(fields) != 2 || fields[0] != "include" {
			return "", fmt.Errorf("line %d: malformed annotation %q", i+1, strings.TrimSpace(line))
		}
		name := fields[1]
		for _, s := range stack {
			if s == name {
				return "", fmt.Errorf("line %d: include cycle %s -> %s", i+1, strings.Join(stack, " -> "), name)
			}
		}
		if seen[name] {
			continue
		}
		snippet, ok := p.includes[name]
		if !ok {
			return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", i+1, name)
		}

		expanded, err := p.expand(snippet, seen, append(stack, name))
		if err != nil {
			return "", fmt.Errorf("include %q: %w", name, err)
		}
		seen[name] = true
		p.included = append(p.included, name)
		out = append(out, expanded)
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Included() []string {
	return p.included
}
