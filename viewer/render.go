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
// Package viewer renders a reconciled import tree as an HTML page and serves
// it on a local address.
package viewer

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"

	"bennypowers.dev/chunktree/fs"
)

// ErrTemplate is returned when a page template cannot be loaded.
var ErrTemplate = errors.New("template")

//go:embed templates/dependencies.html
var defaultTemplate string

// placeholder matches <%=identifier%> markers.
var placeholder = regexp.MustCompile(`<%=(\w+)%>`)

// DefaultTemplate returns the built-in page template.
func DefaultTemplate() string {
	return defaultTemplate
}

// LoadTemplate reads a template from path, or returns the built-in template
// when path is empty.
func LoadTemplate(fsys fs.FileSystem, path string) (string, error) {
	if path == "" {
		return defaultTemplate, nil
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w %s: %w", ErrTemplate, path, err)
	}
	return string(data), nil
}

// Render replaces every placeholder in template with treeJSON.
// The identifier inside the placeholder is not interpreted.
func Render(template string, treeJSON []byte) []byte {
	return placeholder.ReplaceAllLiteral([]byte(template), treeJSON)
}
