// pre_processor.go implements the Oxy WGSL shader pre-processor. It scans shader source for
// //@oxy:include directives and splices the named files into the source before compilation.
//
// An include path is resolved against the directory of the file that names it first, then
// against each compiler search path in order. Every file is expanded at most once per root
// source, so diamond includes and include cycles collapse to a single copy.
package shader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const includeDirective = "//@oxy:include"

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	// searchPaths are the directories consulted after the including file's own directory.
	searchPaths []string
}

// PreProcessor expands //@oxy:include directives in WGSL source.
type PreProcessor interface {
	// Process reads the file at path and returns its source with every include expanded.
	//
	// Parameters:
	//   - path: the root source file
	//
	// Returns:
	//   - string: the expanded source
	//   - error: an error if a file cannot be read or an include cannot be resolved
	Process(path string) (string, error)

	// ProcessSource expands includes in in-memory source. Relative includes resolve against
	// the search paths only.
	//
	// Parameters:
	//   - name: a display name used in error messages
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - string: the expanded source
	//   - error: an error if an include cannot be resolved
	ProcessSource(name, source string) (string, error)

	// Resolve locates a source file, trying path as given and then each search path.
	//
	// Parameters:
	//   - path: the file to locate
	//
	// Returns:
	//   - string: the resolved path
	//   - error: an error if the file does not exist anywhere
	Resolve(path string) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor that resolves includes against searchPaths.
//
// Parameters:
//   - searchPaths: directories consulted for includes, in order
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor(searchPaths ...string) PreProcessor {
	return &preProcessor{searchPaths: append([]string(nil), searchPaths...)}
}

func (p *preProcessor) Process(path string) (string, error) {
	resolved, err := p.Resolve(path)
	if err != nil {
		return "", err
	}
	seen := map[string]bool{}
	return p.expandFile(resolved, seen)
}

func (p *preProcessor) ProcessSource(name, source string) (string, error) {
	return p.expand(name, "", source, map[string]bool{})
}

func (p *preProcessor) Resolve(path string) (string, error) {
	if found, ok := p.lookup(path, ""); ok {
		return found, nil
	}
	return "", fmt.Errorf("source file %q not found in %d search paths", path, len(p.searchPaths))
}

func (p *preProcessor) expandFile(path string, seen map[string]bool) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	seen[abs] = true

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read shader source %s: %w", path, err)
	}
	return p.expand(path, filepath.Dir(path), string(raw), seen)
}

func (p *preProcessor) expand(name, dir, source string, seen map[string]bool) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	for i, line := range lines {
		target, ok, err := parseInclude(line)
		if err != nil {
			return "", fmt.Errorf("%s:%d: %w", name, i+1, err)
		}
		if !ok {
			out = append(out, line)
			continue
		}

		found, ok := p.lookup(target, dir)
		if !ok {
			return "", fmt.Errorf("%s:%d: @oxy:include %q not found", name, i+1, target)
		}
		abs, err := filepath.Abs(found)
		if err != nil {
			abs = found
		}
		if seen[abs] {
			continue
		}

		included, err := p.expandFile(found, seen)
		if err != nil {
			return "", err
		}
		out = append(out, included)
	}
	return strings.Join(out, "\n"), nil
}

// lookup resolves target against dir and then the search paths. Absolute paths are used as is.
func (p *preProcessor) lookup(target, dir string) (string, bool) {
	if filepath.IsAbs(target) {
		return target, fileExists(target)
	}

	candidates := make([]string, 0, len(p.searchPaths)+1)
	if dir != "" {
		candidates = append(candidates, filepath.Join(dir, target))
	} else {
		candidates = append(candidates, target)
	}
	for _, sp := range p.searchPaths {
		candidates = append(candidates, filepath.Join(sp, target))
	}

	for _, c := range candidates {
		if fileExists(c) {
			return c, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// parseInclude recognizes a line of the form //@oxy:include "path".
func parseInclude(line string) (string, bool, error) {
	trimmed := strings.TrimSpace(line)
	rest, ok := strings.CutPrefix(trimmed, includeDirective)
	if !ok {
		return "", false, nil
	}
	rest = strings.TrimSpace(rest)
	if len(rest) < 2 || rest[0] != '"' || rest[len(rest)-1] != '"' {
		return "", false, errors.New("malformed @oxy:include, expected a quoted path")
	}
	target := rest[1 : len(rest)-1]
	if target == "" {
		return "", false, errors.New("empty @oxy:include path")
	}
	return target, true, nil
}
