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

// Package resolve maps import specifiers to module files the way a bundler
// does: relative paths, aliases, import maps and node_modules packages.
package resolve

import (
	"errors"
	"path"
	"path/filepath"
	"strings"

	"bennypowers.dev/chunktree/fs"
	"bennypowers.dev/chunktree/packagejson"
)

// ErrNotFound is wrapped by every resolution failure.
var ErrNotFound = errors.New("module not found")

// Resolver maps a specifier, imported from a file in contextDir, to the path
// of the module file.
type Resolver interface {
	Resolve(contextDir, specifier string) (string, error)
}

// Logger is an interface for logging messages during resolution.
type Logger interface {
	Warning(format string, args ...any)
	Debug(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Warning(string, ...any) {}
func (nopLogger) Debug(string, ...any)   {}

// FindWorkspaceRoot walks up the directory tree to find the workspace root.
// Returns the directory containing node_modules, a package.json or .git.
func FindWorkspaceRoot(fsys fs.FileSystem, startDir string) string {
	dir := startDir
	for {
		if fs.IsDir(fsys, filepath.Join(dir, "node_modules")) {
			return dir
		}

		if fs.IsFile(fsys, filepath.Join(dir, "package.json")) {
			return dir
		}

		// Repository root is a reasonable workspace root
		if fs.IsDir(fsys, filepath.Join(dir, ".git")) {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// LoadRootPackage returns the package.json of rootDir, or nil if it has none.
func LoadRootPackage(fsys fs.FileSystem, rootDir string) *packagejson.PackageJSON {
	pkg, err := packagejson.ParseFile(fsys, filepath.Join(rootDir, "package.json"))
	if err != nil {
		return nil
	}
	return pkg
}

// ToWebPath converts a filesystem path relative to rootDir into a web path.
// e.g., "src/pages" -> "/src/pages". Paths outside rootDir yield "".
func ToWebPath(rootDir, fullPath string) string {
	relPath, err := filepath.Rel(rootDir, fullPath)
	if err != nil {
		return ""
	}
	if relPath == "." {
		return ""
	}
	if strings.HasPrefix(relPath, "..") {
		return ""
	}
	return "/" + filepath.ToSlash(relPath)
}

// IsRelative reports whether specifier is a "./" or "../" style path.
func IsRelative(specifier string) bool {
	return specifier == "." || specifier == ".." ||
		strings.HasPrefix(specifier, "./") || strings.HasPrefix(specifier, "../")
}

// IsBareSpecifier returns true if the specifier is a bare module specifier
// (needs to be resolved via an import map or node_modules).
func IsBareSpecifier(specifier string) bool {
	if specifier == "" || IsRelative(specifier) {
		return false
	}
	if strings.HasPrefix(specifier, "/") {
		return false
	}
	// URL schemes
	if strings.Contains(specifier, "://") || strings.HasPrefix(specifier, "data:") {
		return false
	}
	return true
}

// PackageName extracts the package name from a bare specifier.
// e.g., "lit/decorators.js" -> "lit", "@scope/pkg/x.js" -> "@scope/pkg".
func PackageName(specifier string) string {
	if strings.HasPrefix(specifier, "@") {
		parts := strings.SplitN(specifier, "/", 3)
		if len(parts) >= 2 {
			return path.Join(parts[0], parts[1])
		}
		return specifier
	}
	parts := strings.SplitN(specifier, "/", 2)
	return parts[0]
}

// stripQuery drops "?query" and "#fragment" suffixes bundlers allow on
// requests. A leading "#" marks a package import and is kept.
func stripQuery(specifier string) string {
	if i := strings.IndexByte(specifier, '?'); i >= 0 {
		specifier = specifier[:i]
	}
	if i := strings.IndexByte(specifier, '#'); i > 0 {
		specifier = specifier[:i]
	}
	return specifier
}
