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
package packagejson_test

import (
	"errors"
	"testing"

	"bennypowers.dev/chunktree/internal/mapfs"
	"bennypowers.dev/chunktree/packagejson"
)

func mustParse(t *testing.T, data string) *packagejson.PackageJSON {
	t.Helper()
	pkg, err := packagejson.Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return pkg
}

func TestParseFile(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFile("/test/package.json", `{"name": "lit", "version": "3.0.0", "main": "./index.js"}`, 0644)

	pkg, err := packagejson.ParseFile(mfs, "/test/package.json")
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if pkg.Name != "lit" {
		t.Errorf("Expected name 'lit', got %q", pkg.Name)
	}

	if _, err := packagejson.ParseFile(mfs, "/test/missing.json"); err == nil {
		t.Error("Expected error for missing file")
	}

	mfs.AddFile("/bad/package.json", `{"name":`, 0644)
	if _, err := packagejson.ParseFile(mfs, "/bad/package.json"); err == nil {
		t.Error("Expected error for malformed package.json")
	}
}

func TestEntryPoint(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		expected string
	}{
		{"module wins", `{"module": "./esm/index.js", "main": "cjs/index.js"}`, "esm/index.js"},
		{"main", `{"main": "./lib/main.js"}`, "lib/main.js"},
		{"default", `{}`, "index.js"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mustParse(t, tt.json).EntryPoint(); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestResolveExport(t *testing.T) {
	tests := []struct {
		name       string
		json       string
		subpath    string
		conditions []string
		expected   string
		notFound   bool
	}{
		{
			name:     "string export",
			json:     `{"exports": "./index.js"}`,
			subpath:  ".",
			expected: "index.js",
		},
		{
			name:     "string export has no subpaths",
			json:     `{"exports": "./index.js"}`,
			subpath:  "./other.js",
			notFound: true,
		},
		{
			name:     "no exports",
			json:     `{"main": "index.js"}`,
			subpath:  ".",
			notFound: true,
		},
		{
			name:     "subpath export",
			json:     `{"exports": {".": "./index.js", "./button": "./dist/button.js"}}`,
			subpath:  "./button",
			expected: "dist/button.js",
		},
		{
			name:     "condition-only export",
			json:     `{"exports": {"import": "./esm.js", "require": "./cjs.js"}}`,
			subpath:  ".",
			expected: "esm.js",
		},
		{
			name:     "nested conditions",
			json:     `{"exports": {".": {"browser": {"import": "./browser.mjs"}, "default": "./node.js"}}}`,
			subpath:  ".",
			expected: "browser.mjs",
		},
		{
			name:       "custom conditions",
			json:       `{"exports": {".": {"development": "./dev.js", "default": "./prod.js"}}}`,
			subpath:    ".",
			conditions: []string{"development", "default"},
			expected:   "dev.js",
		},
		{
			name:     "wildcard export",
			json:     `{"exports": {".": "./index.js", "./*": "./dist/*.js"}}`,
			subpath:  "./components/card",
			expected: "dist/components/card.js",
		},
		{
			name:     "more specific wildcard wins",
			json:     `{"exports": {"./*": "./dist/*.js", "./icons/*": {"import": "./icons/*.svg.js"}}}`,
			subpath:  "./icons/star",
			expected: "icons/star.svg.js",
		},
		{
			name:     "fallback array",
			json:     `{"exports": {"./polyfill": [{"worker": "./worker.js"}, "./polyfill.js"]}}`,
			subpath:  "./polyfill",
			expected: "polyfill.js",
		},
		{
			name:     "unexported subpath",
			json:     `{"exports": {".": "./index.js"}}`,
			subpath:  "./internal.js",
			notFound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pkg := mustParse(t, tt.json)
			var opts *packagejson.ResolveOptions
			if tt.conditions != nil {
				opts = &packagejson.ResolveOptions{Conditions: tt.conditions}
			}
			got, err := pkg.ResolveExport(tt.subpath, opts)
			if tt.notFound {
				if !errors.Is(err, packagejson.ErrNotExported) {
					t.Fatalf("Expected ErrNotExported, got %q, %v", got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveExport failed: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestResolveImport(t *testing.T) {
	pkg := mustParse(t, `{"imports": {"#utils/*": "./src/utils/*.js", "#config": {"browser": "./src/config.browser.js"}}}`)

	got, err := pkg.ResolveImport("#utils/format", nil)
	if err != nil {
		t.Fatalf("ResolveImport failed: %v", err)
	}
	if got != "src/utils/format.js" {
		t.Errorf("Expected %q, got %q", "src/utils/format.js", got)
	}

	got, err = pkg.ResolveImport("#config", nil)
	if err != nil {
		t.Fatalf("ResolveImport failed: %v", err)
	}
	if got != "src/config.browser.js" {
		t.Errorf("Expected %q, got %q", "src/config.browser.js", got)
	}

	if _, err := pkg.ResolveImport("#missing", nil); !errors.Is(err, packagejson.ErrNotExported) {
		t.Errorf("Expected ErrNotExported, got %v", err)
	}
	if _, err := pkg.ResolveImport("utils", nil); !errors.Is(err, packagejson.ErrNotExported) {
		t.Errorf("Expected ErrNotExported for non-# specifier, got %v", err)
	}
}

func TestWorkspacePatterns(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		expected []string
	}{
		{"array", `{"workspaces": ["packages/*", "apps/web"]}`, []string{"packages/*", "apps/web"}},
		{"object", `{"workspaces": {"packages": ["libs/*"]}}`, []string{"libs/*"}},
		{"absent", `{"name": "x"}`, nil},
		{"malformed", `{"workspaces": 42}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustParse(t, tt.data).WorkspacePatterns()
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("Expected %v, got %v", tt.expected, got)
				}
			}
		})
	}
}
