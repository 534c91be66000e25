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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExcludeMarkers are path fragments identifying third-party code.
var DefaultExcludeMarkers = []string{"node_modules"}

// Excluder decides whether a path belongs to an excluded dependency directory.
// A path is excluded when it contains one of the markers or matches one of the
// glob patterns.
type Excluder struct {
	markers  []string
	patterns []string
}

// NewExcluder creates an Excluder. A nil markers slice selects DefaultExcludeMarkers;
// an empty non-nil slice disables marker matching.
func NewExcluder(markers, patterns []string) (*Excluder, error) {
	if markers == nil {
		markers = DefaultExcludeMarkers
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return &Excluder{markers: markers, patterns: patterns}, nil
}

// Excluded reports whether path should be ignored. The empty path is never excluded.
func (e *Excluder) Excluded(path string) bool {
	if e == nil || path == "" {
		return false
	}
	for _, m := range e.markers {
		if m != "" && strings.Contains(path, m) {
			return true
		}
	}
	if len(e.patterns) == 0 {
		return false
	}
	slashed := filepath.ToSlash(path)
	relative := strings.TrimPrefix(slashed, "/")
	for _, p := range e.patterns {
		// Patterns are validated in NewExcluder
		if ok, _ := doublestar.Match(p, slashed); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, relative); ok {
			return true
		}
	}
	return false
}
