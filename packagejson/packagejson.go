/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package packagejson provides parsing and subpath resolution for package.json files.
package packagejson

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"

	"bennypowers.dev/chunktree/fs"
)

// ErrNotExported is returned when a subpath is not exported by the package.
var ErrNotExported = errors.New("not exported by package.json")

// DefaultConditions is the default export condition priority for bundled browser code.
var DefaultConditions = []string{"browser", "import", "module", "default"}

// ResolveOptions configures how conditional exports are resolved.
type ResolveOptions struct {
	// Conditions is the ordered list of conditions to try when resolving exports.
	// If nil, defaults to DefaultConditions.
	Conditions []string
}

// PackageJSON represents the subset of package.json relevant for module resolution.
type PackageJSON struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Main    string `json:"main,omitempty"`
	Module  string `json:"module,omitempty"`
	Exports any    `json:"exports,omitempty"`
	Imports any    `json:"imports,omitempty"`

	RawWorkspaces json.RawMessage `json:"workspaces,omitempty"`
}

type workspacesObjectFormat struct {
	Packages []string `json:"packages"`
}

// WorkspacePatterns returns the workspace glob patterns from the workspaces field.
// Both ["packages/*"] and {"packages": ["libs/*"]} are understood.
func (pkg *PackageJSON) WorkspacePatterns() []string {
	if len(pkg.RawWorkspaces) == 0 {
		return nil
	}
	var patterns []string
	if err := json.Unmarshal(pkg.RawWorkspaces, &patterns); err == nil {
		return patterns
	}
	var obj workspacesObjectFormat
	if err := json.Unmarshal(pkg.RawWorkspaces, &obj); err == nil {
		return obj.Packages
	}
	return nil
}

// Parse parses package.json data.
func Parse(data []byte) (*PackageJSON, error) {
	var pkg PackageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// ParseFile parses a package.json file.
func ParseFile(fs fs.FileSystem, path string) (*PackageJSON, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// EntryPoint returns the file used when the package root is imported and no
// exports are declared: module, then main, then index.js.
func (pkg *PackageJSON) EntryPoint() string {
	switch {
	case pkg.Module != "":
		return trimDotSlash(pkg.Module)
	case pkg.Main != "":
		return trimDotSlash(pkg.Main)
	default:
		return "index.js"
	}
}

// ResolveExport resolves a subpath export to its target file path.
// The subpath should be "." for the main export or "./subpath" for subpath exports.
// Returns the resolved path without leading "./".
// Pass nil for opts to use DefaultConditions.
func (pkg *PackageJSON) ResolveExport(subpath string, opts *ResolveOptions) (string, error) {
	if pkg.Exports == nil {
		return "", ErrNotExported
	}

	// Handle string export and top-level fallback arrays
	switch exports := pkg.Exports.(type) {
	case string, []any:
		if subpath == "." {
			return resolveTarget(exports, "", opts)
		}
		return "", ErrNotExported
	case map[string]any:
		if !hasSubpathKeys(exports) {
			// Condition-only export for the main entry
			if subpath == "." {
				return resolveTarget(exports, "", opts)
			}
			return "", ErrNotExported
		}
		return resolveSubpathMap(exports, subpath, opts)
	}

	return "", ErrNotExported
}

// ResolveImport resolves a "#internal" subpath import declared in the imports field.
func (pkg *PackageJSON) ResolveImport(specifier string, opts *ResolveOptions) (string, error) {
	imports, ok := pkg.Imports.(map[string]any)
	if !ok || !strings.HasPrefix(specifier, "#") {
		return "", ErrNotExported
	}
	return resolveSubpathMap(imports, specifier, opts)
}

// resolveSubpathMap looks up key in a subpath map, trying an exact match first
// and then wildcard patterns, most specific first.
func resolveSubpathMap(subpaths map[string]any, key string, opts *ResolveOptions) (string, error) {
	if value, ok := subpaths[key]; ok && !strings.Contains(key, "*") {
		return resolveTarget(value, "", opts)
	}

	patterns := make([]string, 0, len(subpaths))
	for pattern := range subpaths {
		if strings.Count(pattern, "*") == 1 {
			patterns = append(patterns, pattern)
		}
	}
	// Longest prefix wins, as in the Node.js PATTERN_KEY_COMPARE ordering
	sort.Slice(patterns, func(i, j int) bool {
		pi := strings.Index(patterns[i], "*")
		pj := strings.Index(patterns[j], "*")
		if pi != pj {
			return pi > pj
		}
		return len(patterns[i]) > len(patterns[j])
	})

	for _, pattern := range patterns {
		star := strings.Index(pattern, "*")
		prefix, suffix := pattern[:star], pattern[star+1:]
		if len(key) < len(prefix)+len(suffix) || !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, suffix) {
			continue
		}
		match := key[len(prefix) : len(key)-len(suffix)]
		return resolveTarget(subpaths[pattern], match, opts)
	}

	return "", ErrNotExported
}

// resolveTarget resolves an export target value: a path string, a conditional
// map, or a fallback array. Any "*" in a path is replaced with match.
func resolveTarget(value any, match string, opts *ResolveOptions) (string, error) {
	switch v := value.(type) {
	case string:
		return trimDotSlash(strings.ReplaceAll(v, "*", match)), nil
	case map[string]any:
		for _, cond := range conditionList(opts) {
			if target, ok := v[cond]; ok {
				if result, err := resolveTarget(target, match, opts); err == nil {
					return result, nil
				}
			}
		}
	case []any:
		for _, item := range v {
			if result, err := resolveTarget(item, match, opts); err == nil {
				return result, nil
			}
		}
	}
	return "", ErrNotExported
}

func conditionList(opts *ResolveOptions) []string {
	if opts != nil && len(opts.Conditions) > 0 {
		return opts.Conditions
	}
	return DefaultConditions
}

func hasSubpathKeys(m map[string]any) bool {
	for key := range m {
		if strings.HasPrefix(key, ".") {
			return true
		}
	}
	return false
}

// trimDotSlash removes a leading "./" from a path.
func trimDotSlash(path string) string {
	return strings.TrimPrefix(path, "./")
}
