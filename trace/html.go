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
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ScriptTag represents a <script> tag found in HTML.
type ScriptTag struct {
	Type    string         // The type attribute (e.g., "module")
	Src     string         // The src attribute (external script)
	Line    int            // Line of the opening tag
	Inline  bool           // True if script has inline content
	Content string         // The inline script content
	Imports []ModuleImport // Imports found in inline content, with document line numbers
}

// IsModule reports whether the script is an ES module.
func (s ScriptTag) IsModule() bool {
	return strings.EqualFold(strings.TrimSpace(s.Type), "module")
}

// ExtractScripts parses HTML content and extracts all script tags.
func ExtractScripts(content []byte) ([]ScriptTag, error) {
	z := html.NewTokenizer(bytes.NewReader(content))

	var scripts []ScriptTag
	var current *ScriptTag
	contentLine := 0
	line := 1

	for {
		tt := z.Next()
		tokenLine := line
		line += bytes.Count(z.Raw(), []byte("\n"))

		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return scripts, nil
			}
			return nil, z.Err()

		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "script" {
				continue
			}
			script := ScriptTag{Line: tokenLine}
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				switch string(key) {
				case "type":
					script.Type = string(val)
				case "src":
					script.Src = string(val)
				}
			}
			if tt == html.SelfClosingTagToken {
				scripts = append(scripts, script)
				continue
			}
			current = &script
			contentLine = 0

		case html.TextToken:
			if current != nil {
				if contentLine == 0 {
					contentLine = tokenLine
				}
				current.Content += string(z.Text())
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) != "script" || current == nil {
				continue
			}
			finishScript(current, contentLine)
			scripts = append(scripts, *current)
			current = nil
		}
	}
}

// finishScript parses inline content for imports (best-effort; syntax errors are
// ignored). Module scripts report static and dynamic imports, classic scripts
// only dynamic ones.
func finishScript(script *ScriptTag, contentLine int) {
	if script.Src != "" || strings.TrimSpace(script.Content) == "" {
		script.Content = ""
		return
	}
	script.Inline = true

	imports, _ := ExtractImports([]byte(script.Content))
	for _, imp := range imports {
		if !script.IsModule() && !imp.IsDynamic {
			continue
		}
		imp.Line += contentLine - 1
		if imp.IsDynamic {
			imp.Argument.Line = imp.Line
		}
		script.Imports = append(script.Imports, imp)
	}
	script.Content = strings.TrimSpace(script.Content)
}
