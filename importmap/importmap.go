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

// Package importmap parses ES module import maps and resolves specifiers
// through them.
// See https://developer.mozilla.org/en-US/docs/Web/HTML/Element/script/type/importmap
package importmap

import (
	"encoding/json"
	"sort"
	"strings"

	"bennypowers.dev/chunktree/fs"
)

// ImportMap represents an ES module import map.
type ImportMap struct {
	// Imports maps module specifiers to URLs.
	Imports map[string]string `json:"imports,omitempty"`

	// Scopes maps URL prefixes to import maps that apply when the referrer
	// URL starts with the scope prefix.
	Scopes map[string]map[string]string `json:"scopes,omitempty"`
}

// Parse parses JSON data into an ImportMap.
func Parse(data []byte) (*ImportMap, error) {
	var im ImportMap
	if err := json.Unmarshal(data, &im); err != nil {
		return nil, err
	}
	return &im, nil
}

// ParseFile reads and parses an import map file.
func ParseFile(fsys fs.FileSystem, path string) (*ImportMap, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Resolve maps specifier through the import map as seen from referrer, a web
// path such as "/src/pages/". Scopes matching the referrer are consulted from
// most to least specific, then the top-level imports. Within one map an exact
// key wins over the longest matching trailing-slash key.
func (im *ImportMap) Resolve(specifier, referrer string) (string, bool) {
	if im == nil {
		return "", false
	}

	scopes := make([]string, 0, len(im.Scopes))
	for scope := range im.Scopes {
		if strings.HasPrefix(referrer, scope) {
			scopes = append(scopes, scope)
		}
	}
	sort.Slice(scopes, func(i, j int) bool { return len(scopes[i]) > len(scopes[j]) })

	for _, scope := range scopes {
		if target, ok := lookup(im.Scopes[scope], specifier); ok {
			return target, true
		}
	}
	return lookup(im.Imports, specifier)
}

func lookup(imports map[string]string, specifier string) (string, bool) {
	if target, ok := imports[specifier]; ok {
		return target, true
	}

	best := ""
	for key := range imports {
		if strings.HasSuffix(key, "/") && strings.HasPrefix(specifier, key) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return "", false
	}
	return imports[best] + strings.TrimPrefix(specifier, best), true
}
