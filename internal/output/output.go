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
// Package output writes the reconciled tree for chunktree CLI commands.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"bennypowers.dev/chunktree/depgraph"
	"bennypowers.dev/chunktree/fs"
)

// MarshalTree encodes root as indented JSON. A nil root encodes as null.
func MarshalTree(root *depgraph.Node) ([]byte, error) {
	data, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tree: %w", err)
	}
	return data, nil
}

// Tree writes the encoded tree to path, creating parent directories, or to
// stdout when path is empty. It returns the encoded bytes.
func Tree(fsys fs.FileSystem, stdout io.Writer, path string, root *depgraph.Node) ([]byte, error) {
	data, err := MarshalTree(root)
	if err != nil {
		return nil, err
	}

	if path == "" {
		if _, err := fmt.Fprintln(stdout, string(data)); err != nil {
			return nil, fmt.Errorf("writing tree: %w", err)
		}
		return data, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := fsys.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}
	return data, nil
}
