// pre_processor.go implements the WGSL include pre-processor. It scans shader source for
// include directives and splices in registered WGSL snippets, so struct declarations shared
// between Go and WGSL (the default vertex input, uniform blocks) are written once.
//
// A directive is a line of the form
//
//	//!include <name>
//
// Leading whitespace is ignored. Directives are expanded once per name; a second include of the
// same name expands to nothing. Snippets may themselves contain directives.
package shader

import (
	"fmt"
	"strings"
)

const includeDirective = "//!include"

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// includes maps include names to their WGSL source.
	includes map[string]string

	// included lists the names expanded by the last Process call, in expansion order.
	included []string
}

// PreProcessor expands include directives in WGSL source.
type PreProcessor interface {
	// Process expands every include directive in source.
	//
	// Parameters:
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - string: the expanded source
	//   - error: an error if a directive is malformed, names an unknown include, or includes form a cycle
	Process(source string) (string, error)

	// Included returns the include names expanded by the most recent Process call.
	//
	// Returns:
	//   - []string: include names in expansion order
	Included() []string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor resolving directives against includes.
//
// Parameters:
//   - includes: include names mapped to WGSL snippets
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(includes map[string]string) PreProcessor {
	p := &preProcessor{includes: make(map[string]string, len(includes))}
	for name, src := range includes {
		p.includes[name] = src
	}
	return p
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
		name, ok, err := parseInclude(line)
		if err != nil {
			return "", fmt.Errorf("line %d: %w", i+1, err)
		}
		if !ok {
			out = append(out, line)
			continue
		}

		for _, s := range stack {
			if s == name {
				return "", fmt.Errorf("line %d: include cycle through %q", i+1, name)
			}
		}
		if seen[name] {
			continue
		}
		src, ok := p.includes[name]
		if !ok {
			return "", fmt.Errorf("line %d: unknown include %q", i+1, name)
		}
		seen[name] = true
		p.included = append(p.included, name)

		expanded, err := p.expand(src, seen, append(stack, name))
		if err != nil {
			return "", fmt.Errorf("include %q: %w", name, err)
		}
		out = append(out, expanded)
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Included() []string {
	return p.included
}

// parseInclude reports whether line is an include directive and returns the included name.
func parseInclude(line string) (string, bool, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), includeDirective)
	if !ok {
		return "", false, nil
	}
	fields := strings.Fields(rest)
	if len(fields) != 1 {
		return "", false, fmt.Errorf("include directive needs exactly one name, got %q", strings.TrimSpace(rest))
	}
	return fields[0], true, nil
}
