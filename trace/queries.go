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
	"embed"
	"fmt"
	"path"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsTypescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

//go:embed queries/*/*.scm
var queryFiles embed.FS

// Grammar selects the tree-sitter grammar a module is parsed with.
type Grammar int

const (
	// TypeScript parses .js, .mjs, .cjs, .ts, .mts and .cts modules.
	TypeScript Grammar = iota
	// TSX parses modules that may contain JSX.
	TSX
)

func (g Grammar) String() string {
	if g == TSX {
		return "tsx"
	}
	return "typescript"
}

// Languages holds pre-initialized tree-sitter language grammars.
var languages = struct {
	typescript *ts.Language
	tsx        *ts.Language
}{
	ts.NewLanguage(tsTypescript.LanguageTypescript()),
	ts.NewLanguage(tsTypescript.LanguageTSX()),
}

func (g Grammar) language() *ts.Language {
	if g == TSX {
		return languages.tsx
	}
	return languages.typescript
}

// Parser pools for reuse.
var parserPools = map[Grammar]*sync.Pool{
	TypeScript: newParserPool(TypeScript),
	TSX:        newParserPool(TSX),
}

func newParserPool(g Grammar) *sync.Pool {
	return &sync.Pool{
		New: func() any {
			parser := ts.NewParser()
			if err := parser.SetLanguage(g.language()); err != nil {
				panic("failed to set " + g.String() + " language: " + err.Error())
			}
			return parser
		},
	}
}

func getParser(g Grammar) *ts.Parser {
	return parserPools[g].Get().(*ts.Parser)
}

func putParser(g Grammar, p *ts.Parser) {
	p.Reset()
	parserPools[g].Put(p)
}

// QueryManager manages compiled tree-sitter queries, one set per grammar.
// Both grammars share the query sources under queries/typescript.
type QueryManager struct {
	mu      sync.Mutex
	closed  bool
	queries map[Grammar]map[string]*ts.Query
}

// NewQueryManager creates a new QueryManager with the named queries compiled
// for every grammar.
func NewQueryManager(names []string) (*QueryManager, error) {
	qm := &QueryManager{
		queries: map[Grammar]map[string]*ts.Query{
			TypeScript: {},
			TSX:        {},
		},
	}

	for _, g := range []Grammar{TypeScript, TSX} {
		for _, name := range names {
			if err := qm.loadQuery(g, name); err != nil {
				qm.Close()
				return nil, err
			}
		}
	}

	return qm, nil
}

func (qm *QueryManager) loadQuery(g Grammar, name string) error {
	queryPath := path.Join("queries", "typescript", name+".scm")
	data, err := queryFiles.ReadFile(queryPath)
	if err != nil {
		return fmt.Errorf("failed to read query %s: %w", queryPath, err)
	}

	query, qerr := ts.NewQuery(g.language(), string(data))
	if qerr != nil {
		return fmt.Errorf("failed to parse query %s for %s: %w", name, g, qerr)
	}
	qm.queries[g][name] = query
	return nil
}

// Close releases all query resources. Safe to call multiple times.
func (qm *QueryManager) Close() {
	qm.mu.Lock()
	if qm.closed {
		qm.mu.Unlock()
		return
	}
	qm.closed = true
	queries := qm.queries
	qm.queries = nil
	qm.mu.Unlock()

	for _, byName := range queries {
		for _, q := range byName {
			q.Close()
		}
	}
}

// Query returns a query by grammar and name.
func (qm *QueryManager) Query(g Grammar, name string) (*ts.Query, error) {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	q, ok := qm.queries[g][name]
	if !ok {
		return nil, fmt.Errorf("query not found: %s/%s", g, name)
	}
	return q, nil
}

// Global query manager singleton
var (
	globalQM     *QueryManager
	globalQMOnce sync.Once
	globalQMErr  error
)

// GetQueryManager returns the global query manager instance.
func GetQueryManager() (*QueryManager, error) {
	globalQMOnce.Do(func() {
		globalQM, globalQMErr = NewQueryManager([]string{"imports"})
	})
	return globalQM, globalQMErr
}
