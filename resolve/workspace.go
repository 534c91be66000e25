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
package resolve

import (
	"fmt"
	"path/filepath"
	"strings"

	"bennypowers.dev/chunktree/fs"
	"bennypowers.dev/chunktree/packagejson"
)

// WorkspacePackage is a package declared by the root package.json workspaces field.
type WorkspacePackage struct {
	Name string
	Path string
}

// DiscoverWorkspacePackages finds all workspace packages based on the
// workspaces field in the root package.json.
// Returns nil if no workspaces are defined.
func DiscoverWorkspacePackages(fsys fs.FileSystem, rootDir string) ([]WorkspacePackage, error) {
	rootPkg, err := packagejson.ParseFile(fsys, filepath.Join(rootDir, "package.json"))
	if err != nil {
		return nil, err
	}

	var packages []WorkspacePackage
	for _, pattern := range rootPkg.WorkspacePatterns() {
		dirs, err := expandWorkspacePattern(fsys, rootDir, pattern)
		if err != nil {
			continue
		}
		for _, dir := range dirs {
			pkg, err := parseWorkspacePackage(fsys, dir)
			if err != nil {
				continue
			}
			packages = append(packages, pkg)
		}
	}
	return packages, nil
}

// expandWorkspacePattern expands a workspace pattern to matching directories.
// Supports a literal directory or a single trailing wildcard like "packages/*".
func expandWorkspacePattern(fsys fs.FileSystem, rootDir, pattern string) ([]string, error) {
	pattern = strings.TrimSuffix(pattern, "/")

	if base, ok := strings.CutSuffix(pattern, "/*"); ok {
		fullBase := filepath.Join(rootDir, filepath.FromSlash(base))
		entries, err := fsys.ReadDir(fullBase)
		if err != nil {
			return nil, err
		}
		var dirs []string
		for _, entry := range entries {
			if entry.IsDir() {
				dirs = append(dirs, filepath.Join(fullBase, entry.Name()))
			}
		}
		return dirs, nil
	}

	if !strings.Contains(pattern, "*") {
		fullPath := filepath.Join(rootDir, filepath.FromSlash(pattern))
		if fs.IsDir(fsys, fullPath) {
			return []string{fullPath}, nil
		}
		return nil, nil
	}

	return nil, fmt.Errorf("unsupported workspace pattern %q", pattern)
}

func parseWorkspacePackage(fsys fs.FileSystem, dir string) (WorkspacePackage, error) {
	pkg, err := packagejson.ParseFile(fsys, filepath.Join(dir, "package.json"))
	if err != nil {
		return WorkspacePackage{}, err
	}
	if pkg.Name == "" {
		return WorkspacePackage{}, fmt.Errorf("package at %s has no name", dir)
	}
	return WorkspacePackage{Name: pkg.Name, Path: dir}, nil
}
