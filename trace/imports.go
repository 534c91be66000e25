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
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	ts "github.com/tree-sitter/go-tree-sitter"

	"bennypowers.dev/chunktree/depgraph"
)

// ModuleImport represents an import statement or expression in a module.
type ModuleImport struct {
	Specifier string // The import specifier (e.g., "lit", "./foo.js"); empty for non-literal import()
	IsDynamic bool   // True if this is a dynamic import()
	Line      int    // 1-indexed source line
	// Argument describes the first argument of a dynamic import().
	Argument depgraph.Argument

	offset uint
}

// GrammarFor picks the grammar for a module path by extension.
func GrammarFor(path string) Grammar {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsx", ".tsx":
		return TSX
	default:
		return TypeScript
	}
}

// ExtractImports parses JavaScript/TypeScript content and extracts all import
// specifiers in source order.
func ExtractImports(content []byte) ([]ModuleImport, error) {
	return ExtractImportsWith(TypeScript, content)
}

// ExtractImportsWith is ExtractImports with an explicit grammar.
func ExtractImportsWith(g Grammar, content []byte) ([]ModuleImport, error) {
	qm, err := GetQueryManager()
	if err != nil {
		return nil, err
	}

	parser := getParser(g)
	defer putParser(g, parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse content")
	}
	defer tree.Close()

	query, err := qm.Query(g, "imports")
	if err != nil {
		return nil, err
	}

	cursor := ts.NewQueryCursor()
	defer cursor.Close()

	var imports []ModuleImport
	matches := cursor.Matches(query, tree.RootNode(), content)
	captureNames := query.CaptureNames()

	for {
		match := matches.Next()
		if match == nil {
			break
		}

		for _, capture := range match.Captures {
			name := captureNames[capture.Index]
			text := capture.Node.Utf8Text(content)
			line := int(capture.Node.StartPosition().Row) + 1 // 1-indexed
			offset := capture.Node.StartByte()

			switch name {
			case "import.spec", "reexport.spec":
				imports = append(imports, ModuleImport{
					Specifier: unquote(text),
					IsDynamic: false,
					Line:      line,
					offset:    offset,
				})
			case "dynamicImport.arg":
				arg := argumentOf(capture.Node.Kind(), text, line)
				imports = append(imports, ModuleImport{
					Specifier: arg.Value,
					IsDynamic: true,
					Line:      line,
					Argument:  arg,
					offset:    offset,
				})
			}
		}
	}

	slices.SortStableFunc(imports, func(a, b ModuleImport) int {
		return int(a.offset) - int(b.offset)
	})
	return imports, nil
}

// argumentOf classifies an import() argument. Only quoted strings are
// literals; template strings count as expressions even without substitutions.
func argumentOf(kind, text string, line int) depgraph.Argument {
	if kind == "string" && len(text) >= 2 {
		return depgraph.Argument{
			Kind:  depgraph.Literal,
			Value: unquote(text),
			Node:  kind,
			Line:  line,
		}
	}
	return depgraph.Argument{Kind: depgraph.Expression, Node: kind, Line: line}
}

// unquote returns the value of a quoted JavaScript string literal, decoding
// its escape sequences.
func unquote(quoted string) string {
	if len(quoted) < 2 {
		return ""
	}
	s := quoted[1 : len(quoted)-1]
	if !strings.Contains(s, "\\") {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(s); {
		c := s[i]
		i++
		if c != '\\' || i == len(s) {
			b.WriteByte(c)
			continue
		}
		c = s[i]
		i++
		switch c {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'v':
			b.WriteByte('\v')
		case '0':
			b.WriteByte(0)
		case '\n':
			// line continuation
		case '\r':
			if i < len(s) && s[i] == '\n' {
				i++
			}
		case 'x':
			r, n := hexRune(s[i:], 2)
			if n == 0 {
				b.WriteByte(c)
				break
			}
			b.WriteRune(r)
			i += n
		case 'u':
			r, n := unicodeEscape(s[i:])
			if n == 0 {
				b.WriteByte(c)
				break
			}
			i += n
			// Surrogate pairs are written as two consecutive \u escapes
			if utf16.IsSurrogate(r) && strings.HasPrefix(s[i:], "\\u") {
				if low, m := unicodeEscape(s[i+2:]); m > 0 {
					if pair := utf16.DecodeRune(r, low); pair != utf8.RuneError {
						r = pair
						i += 2 + m
					}
				}
			}
			b.WriteRune(r)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// unicodeEscape decodes the part of a \u escape after the "u": four hex
// digits or a braced code point. It returns the number of bytes consumed.
func unicodeEscape(s string) (rune, int) {
	if !strings.HasPrefix(s, "{") {
		return hexRune(s, 4)
	}
	end := strings.IndexByte(s, '}')
	if end < 2 {
		return 0, 0
	}
	v, err := strconv.ParseUint(s[1:end], 16, 32)
	if err != nil || v > unicode.MaxRune {
		return 0, 0
	}
	return rune(v), end + 1
}

func hexRune(s string, digits int) (rune, int) {
	if len(s) < digits {
		return 0, 0
	}
	v, err := strconv.ParseUint(s[:digits], 16, 32)
	if err != nil {
		return 0, 0
	}
	return rune(v), digits
}
