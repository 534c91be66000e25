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
package depgraph

import (
	"path/filepath"
)

// Options configures a Collector.
type Options struct {
	// Mode selects how records and child references are keyed.
	Mode IdentityMode
	// Resolve maps a specifier to a resource path. Required for IdentityResolved;
	// in IdentityRaw mode it is only used to exclude targets and may be nil.
	Resolve ResolveFunc
	// Exclude filters third-party files. Nil excludes nothing.
	Exclude *Excluder
	// IncludeStatic records static import declarations as well as import() calls.
	IncludeStatic bool
	// Logger receives warnings about unresolved specifiers. Nil discards them.
	Logger Logger
}

// Collector accumulates per-file import records for one build.
//
// Hosts report all imports of a module as one contiguous run, so a record is
// only ever matched against the immediately preceding one. Events for F, then
// G, then F again produce two records for F.
//
// A Collector is not safe for concurrent use.
type Collector struct {
	opts    Options
	logger  Logger
	records []*FileRecord
	current *FileRecord
	// currentFile is the resource of the most recently seen importing module.
	currentFile string
	finished    bool
}

// NewCollector creates a Collector for a single build.
func NewCollector(opts Options) *Collector {
	logger := opts.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	return &Collector{opts: opts, logger: logger}
}

// OnDynamicImport handles an import() expression found in module.
// Arguments that are not plain string literals are dropped.
func (c *Collector) OnDynamicImport(module Module, arg Argument) {
	if !c.accept(module) {
		return
	}
	c.touch(module)
	if arg.Kind != Literal {
		c.logger.Debug("skipping non-literal import() argument (%s) in %s:%d", arg.Node, module.Resource, arg.Line)
		return
	}
	c.addChild(filepath.Dir(module.Resource), arg.Value, arg.Line, true)
}

// OnImport handles a static import or re-export declaration in module.
// It has no effect unless Options.IncludeStatic is set.
func (c *Collector) OnImport(module Module, specifier string, line int) {
	if !c.opts.IncludeStatic || !c.accept(module) {
		return
	}
	c.touch(module)
	c.addChild(filepath.Dir(module.Resource), specifier, line, false)
}

// Observe records that module dynamically imported rawSpecifier, resolved
// against contextPath.
func (c *Collector) Observe(module Module, contextPath, rawSpecifier string) {
	if !c.accept(module) {
		return
	}
	c.touch(module)
	c.addChild(contextPath, rawSpecifier, 0, true)
}

// Finish freezes the collector and returns the records in creation order.
// Events arriving after Finish are dropped.
func (c *Collector) Finish() []*FileRecord {
	c.finished = true
	c.current = nil
	return c.records
}

// Records returns the records collected so far.
func (c *Collector) Records() []*FileRecord {
	return c.records
}

// Mode returns the identity mode the collector was configured with.
func (c *Collector) Mode() IdentityMode {
	return c.opts.Mode
}

func (c *Collector) accept(module Module) bool {
	if c.finished {
		c.logger.Warning("import event from %s after collection finished", module.Resource)
		return false
	}
	return !c.opts.Exclude.Excluded(module.Resource)
}

// touch makes the record for module current, creating one if module is not
// the most recently seen file.
func (c *Collector) touch(module Module) {
	if c.current != nil && module.Resource == c.currentFile {
		return
	}
	identity := module.RawRequest
	if c.opts.Mode == IdentityResolved {
		identity = module.Resource
	}
	displayName := module.RawRequest
	if displayName == "" {
		displayName = module.Resource
	}
	c.current = &FileRecord{
		Identity:    identity,
		DisplayName: displayName,
		Resource:    module.Resource,
		Children:    []ChildRef{},
	}
	c.currentFile = module.Resource
	c.records = append(c.records, c.current)
}

func (c *Collector) addChild(contextPath, specifier string, line int, dynamic bool) {
	if c.opts.Exclude.Excluded(specifier) {
		return
	}

	ref := ChildRef{
		DisplayName: specifier,
		Line:        line,
		Dynamic:     dynamic,
	}

	var resolveErr error
	if c.opts.Resolve != nil {
		ref.Resource, resolveErr = c.opts.Resolve(contextPath, specifier)
		if resolveErr != nil {
			ref.Resource = ""
		} else if c.opts.Exclude.Excluded(ref.Resource) {
			return
		}
	}

	switch c.opts.Mode {
	case IdentityResolved:
		switch {
		case c.opts.Resolve == nil:
			ref.Unresolved = true
		case resolveErr != nil:
			c.logger.Warning("cannot resolve %q from %s: %v", specifier, contextPath, resolveErr)
			ref.Unresolved = true
		default:
			ref.Identity = ref.Resource
		}
	case IdentityRaw:
		ref.Identity = specifier
		if resolveErr != nil {
			c.logger.Debug("cannot resolve %q from %s: %v", specifier, contextPath, resolveErr)
			ref.Unresolved = true
		}
	}

	c.current.Children = append(c.current.Children, ref)
}
