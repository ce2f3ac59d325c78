// pre_processor.go implements the mellohi WGSL pre-processor. A line of the form
//
//	//@mellohi:include <name>
//
// is replaced with the WGSL source registered under name. Included sources may themselves
// include others; each name is expanded at most once per shader.
package shader

import (
	"fmt"
	"strings"
	"sync"
)

const includeDirective = "//@mellohi:include"

var (
	includesMu sync.RWMutex
	includes   = map[string]string{}
)

// Register makes source available to shaders under the given include name. Registering a name
// again replaces its source. Packages register their WGSL struct definitions from init.
//
// Parameters:
//   - name: the include name used after the directive
//   - source: the WGSL source to splice in
func Register(name, source string) {
	includesMu.Lock()
	defer includesMu.Unlock()
	includes[name] = source
}

func lookupInclude(name string) (string, bool) {
	includesMu.RLock()
	defer includesMu.RUnlock()
	src, ok := includes[name]
	return src, ok
}

// PreProcess expands every include directive in source.
//
// Parameters:
//   - source: the raw WGSL source
//
// Returns:
//   - string: the expanded source
//   - error: an error naming the line of a malformed directive or an unregistered include
func PreProcess(source string) (string, error) {
	return expand(source, map[string]bool{})
}

func expand(source string, seen map[string]bool) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), includeDirective)
		if !ok {
			out = append(out, line)
			continue
		}

		name := strings.TrimSpace(rest)
		if name == "" || strings.ContainsAny(name, " \t") {
			return "", fmt.Errorf("line %d: malformed include directive %q", i+1, strings.TrimSpace(line))
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		src, ok := lookupInclude(name)
		if !ok {
			return "", fmt.Errorf("line %d: unknown include %q", i+1, name)
		}
		expanded, err := expand(src, seen)
		if err != nil {
			return "", fmt.Errorf("include %q: %w", name, err)
		}
		out = append(out, expanded)
	}
	return strings.Join(out, "\n"), nil
}
