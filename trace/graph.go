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
package trace

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"bennypowers.dev/chunktree/depgraph"
	"bennypowers.dev/chunktree/fs"
	"bennypowers.dev/chunktree/resolve"
)

// ParseableExtensions are the module extensions the build host parses.
var ParseableExtensions = []string{".js", ".mjs", ".cjs", ".jsx", ".ts", ".tsx", ".mts", ".cts"}

// Hooks receives instrumentation events while modules are walked.
// All events of one module are delivered as a single contiguous run.
// *depgraph.Collector implements Hooks.
type Hooks interface {
	OnDynamicImport(module depgraph.Module, arg depgraph.Argument)
	OnImport(module depgraph.Module, specifier string, line int)
}

// Options configures Build.
type Options struct {
	// Entries are the starting modules or HTML files, absolute or relative to RootDir.
	Entries []string
	// RootDir is the package directory.
	RootDir string
	// Resolver locates import targets. Defaults to a NodeResolver rooted at RootDir.
	Resolver resolve.Resolver
	// Exclude keeps matching modules out of the walk.
	Exclude *depgraph.Excluder
	// Logger receives debug output about skipped modules.
	Logger depgraph.Logger
}

// ModuleGraph represents the modules visited by one build.
type ModuleGraph struct {
	// Entrypoints are the resolved starting modules.
	Entrypoints []string

	// Modules maps module paths to their parsed information
	Modules map[string]*Module

	// Order lists module paths in the order they were walked.
	Order []string

	// Errors collects non-fatal errors encountered during the walk
	Errors []error

	// bareSpecifiers collects all bare import specifiers seen
	bareSpecifiers map[string]bool
}

// Module represents a parsed module in the graph.
type Module struct {
	Path    string         // Path to the module file
	Request string         // Specifier the module was first discovered with
	Imports []ModuleImport // All imports found in the module
}

type queued struct {
	path    string
	request string
}

// Build walks modules breadth-first from opts.Entries, firing hooks for every
// import of every module. Each module is parsed once. Resolution and read
// failures are recorded in the graph's Errors and never abort the walk;
// context cancellation does.
func Build(ctx context.Context, fsys fs.FileSystem, opts Options, hooks Hooks) (*ModuleGraph, error) {
	if len(opts.Entries) == 0 {
		return nil, fmt.Errorf("no entries to build")
	}
	t := &builder{
		fs:       fsys,
		opts:     opts,
		hooks:    hooks,
		resolver: opts.Resolver,
		logger:   opts.Logger,
		graph: &ModuleGraph{
			Modules:        make(map[string]*Module),
			bareSpecifiers: make(map[string]bool),
		},
		seen: make(map[string]bool),
	}
	if t.resolver == nil {
		t.resolver = resolve.NewNodeResolver(fsys, opts.RootDir, nil)
	}
	if t.logger == nil {
		t.logger = nopLogger{}
	}

	for _, entry := range opts.Entries {
		path := entry
		if !filepath.IsAbs(path) {
			path = filepath.Join(opts.RootDir, path)
		}
		path = filepath.Clean(path)
		t.graph.Entrypoints = append(t.graph.Entrypoints, path)
		t.enqueue(queued{path: path, request: entry})
	}

	for len(t.queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := t.queue[0]
		t.queue = t.queue[1:]
		t.visit(next)
	}

	return t.graph, nil
}

type builder struct {
	fs       fs.FileSystem
	opts     Options
	hooks    Hooks
	resolver resolve.Resolver
	logger   depgraph.Logger
	graph    *ModuleGraph
	seen     map[string]bool
	queue    []queued
}

func (t *builder) enqueue(q queued) {
	if t.seen[q.path] {
		return
	}
	t.seen[q.path] = true
	t.queue = append(t.queue, q)
}

func (t *builder) visit(q queued) {
	content, err := t.fs.ReadFile(q.path)
	if err != nil {
		t.fail(fmt.Errorf("reading %s: %w", q.path, err))
		return
	}

	module := depgraph.Module{RawRequest: q.request, Resource: q.path}
	mod := &Module{Path: q.path, Request: q.request}
	t.graph.Modules[q.path] = mod
	t.graph.Order = append(t.graph.Order, q.path)

	if isHTML(q.path) {
		t.visitHTML(module, mod, content)
		return
	}

	imports, err := ExtractImportsWith(GrammarFor(q.path), content)
	if err != nil {
		t.fail(fmt.Errorf("parsing %s: %w", q.path, err))
		return
	}
	mod.Imports = imports
	for _, imp := range imports {
		t.report(module, imp)
	}
}

func (t *builder) visitHTML(module depgraph.Module, mod *Module, content []byte) {
	scripts, err := ExtractScripts(content)
	if err != nil {
		t.fail(fmt.Errorf("parsing %s: %w", mod.Path, err))
		return
	}

	for _, script := range scripts {
		if script.Src != "" {
			if !script.IsModule() {
				continue
			}
			imp := ModuleImport{Specifier: script.Src, Line: script.Line}
			mod.Imports = append(mod.Imports, imp)
			t.report(module, imp)
			continue
		}
		for _, imp := range script.Imports {
			mod.Imports = append(mod.Imports, imp)
			t.report(module, imp)
		}
	}
}

// report fires the hook for imp and queues its target.
func (t *builder) report(module depgraph.Module, imp ModuleImport) {
	if imp.IsDynamic {
		t.hooks.OnDynamicImport(module, imp.Argument)
		if imp.Argument.Kind != depgraph.Literal {
			return
		}
	} else {
		t.hooks.OnImport(module, imp.Specifier, imp.Line)
	}

	if resolve.IsBareSpecifier(imp.Specifier) {
		t.graph.bareSpecifiers[imp.Specifier] = true
	}
	if t.opts.Exclude.Excluded(imp.Specifier) {
		return
	}

	target, err := t.resolver.Resolve(filepath.Dir(module.Resource), imp.Specifier)
	if err != nil {
		t.fail(fmt.Errorf("resolving %q from %s: %w", imp.Specifier, module.Resource, err))
		return
	}
	if t.opts.Exclude.Excluded(target) || !isParseable(target) {
		return
	}
	t.enqueue(queued{path: target, request: imp.Specifier})
}

func (t *builder) fail(err error) {
	t.logger.Debug("%v", err)
	t.graph.Errors = append(t.graph.Errors, err)
}

func isHTML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".html" || ext == ".htm"
}

func isParseable(path string) bool {
	return slices.Contains(ParseableExtensions, strings.ToLower(filepath.Ext(path)))
}

// PackageNames extracts sorted package names from bare specifiers.
// e.g., "lit/decorators.js" -> "lit"
func (g *ModuleGraph) PackageNames() []string {
	packages := make(map[string]bool)
	for spec := range g.bareSpecifiers {
		if strings.HasPrefix(spec, "#") {
			continue
		}
		packages[resolve.PackageName(spec)] = true
	}

	result := make([]string, 0, len(packages))
	for pkg := range packages {
		result = append(result, pkg)
	}
	slices.Sort(result)
	return result
}

type nopLogger struct{}

func (nopLogger) Warning(string, ...any) {}
func (nopLogger) Debug(string, ...any)   {}
