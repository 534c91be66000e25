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

// Package depgraph collects dynamic import records during a build and
// reconciles them into a rooted dependency tree.
package depgraph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownIdentityMode is returned by ParseIdentityMode for unrecognized names.
var ErrUnknownIdentityMode = errors.New("unknown identity mode")

// IdentityMode selects the key used to link file records to child references.
type IdentityMode int

const (
	// IdentityResolved keys records by the resolved resource path.
	IdentityResolved IdentityMode = iota
	// IdentityRaw keys records by the raw specifier a module was requested with.
	// Two different modules imported with the same specifier from different
	// directories collide under this mode.
	IdentityRaw
)

// String returns the config name of the mode.
func (m IdentityMode) String() string {
	switch m {
	case IdentityResolved:
		return "resolved"
	case IdentityRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// ParseIdentityMode parses "raw" or "resolved". The empty string yields IdentityResolved.
func ParseIdentityMode(s string) (IdentityMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "resolved", "":
		return IdentityResolved, nil
	case "raw":
		return IdentityRaw, nil
	default:
		return 0, fmt.Errorf("%w %q: must be 'raw' or 'resolved'", ErrUnknownIdentityMode, s)
	}
}

// Module identifies the file an instrumentation event came from.
type Module struct {
	RawRequest string // Specifier the module itself was requested with
	Resource   string // Absolute path of the module file
}

// ArgumentKind classifies the argument node of an import() call.
type ArgumentKind int

const (
	// Literal is a plain single- or double-quoted string.
	Literal ArgumentKind = iota
	// Expression is anything else: template strings, identifiers, concatenations.
	Expression
)

// Argument is the first argument of a dynamic import expression.
type Argument struct {
	Kind  ArgumentKind
	Value string // String value; only meaningful for Literal
	Node  string // Syntax node kind, for diagnostics
	Line  int    // 1-indexed line of the argument
}

// FileRecord holds the imports issued by one source file.
type FileRecord struct {
	Identity    string     `json:"identity"`
	DisplayName string     `json:"name"`
	Resource    string     `json:"resource,omitempty"`
	Children    []ChildRef `json:"children"`
}

// ChildRef is one import issued by a file.
type ChildRef struct {
	DisplayName string `json:"name"`
	Identity    string `json:"identity,omitempty"`
	Resource    string `json:"resource,omitempty"`
	Line        int    `json:"line,omitempty"`
	Dynamic     bool   `json:"dynamic"`
	Unresolved  bool   `json:"unresolved,omitempty"`
}

// ResolveFunc resolves a specifier against the directory of the importing file
// and returns the canonical resource path.
type ResolveFunc func(contextPath, specifier string) (string, error)

// Logger receives non-fatal diagnostics.
type Logger interface {
	Warning(format string, args ...any)
	Debug(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warning(string, ...any) {}
func (nopLogger) Debug(string, ...any)   {}
