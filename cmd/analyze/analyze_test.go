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
package analyze

import (
	"bytes"
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/fatih/color"

	"bennypowers.dev/chunktree/depgraph"
	"bennypowers.dev/chunktree/internal/config"
	"bennypowers.dev/chunktree/internal/logger"
	"bennypowers.dev/chunktree/internal/mapfs"
	"bennypowers.dev/chunktree/internal/output"
	"bennypowers.dev/chunktree/testutil"
)

func testConfig() *config.Config {
	return &config.Config{
		Package:        "/app",
		Output:         "treeJSON",
		Identity:       "resolved",
		ExcludeMarkers: depgraph.DefaultExcludeMarkers,
		Renderer:       config.RendererTemplate,
		Log:            config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestAnalyze(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "trace/spa", "/app")

	result, err := Analyze(context.Background(), mfs, testConfig(), logger.NewNop())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(result.Records) != 3 {
		t.Errorf("Expected 3 records, got %d", len(result.Records))
	}
	if len(result.Unreachable) != 0 {
		t.Errorf("Expected every record to be reachable, got %v", result.Unreachable)
	}
	if result.Stats.Cycles != 2 || result.Stats.Depth != 4 {
		t.Errorf("Unexpected stats %+v", result.Stats)
	}

	data, err := output.MarshalTree(result.Tree)
	if err != nil {
		t.Fatalf("MarshalTree failed: %v", err)
	}
	testutil.AssertGoldenJSON(t, "trace/spa/expected-tree.json", data)
}

func TestAnalyzeRawIdentity(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "trace/spa", "/app")
	cfg := testConfig()
	cfg.Identity = "raw"

	result, err := Analyze(context.Background(), mfs, cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	// Records are keyed by the specifier each file was first requested with,
	// while children carry the specifier text used at the import site.
	if result.Tree == nil || result.Tree.Identity != "/src/main.js" {
		t.Fatalf("Expected raw root identity /src/main.js, got %+v", result.Tree)
	}
	var ids []string
	for _, child := range result.Tree.Children {
		ids = append(ids, child.Identity)
	}
	if !slices.Equal(ids, []string{"./pages/home.js", "./pages/about.ts"}) {
		t.Errorf("Unexpected child identities %v", ids)
	}
}

func TestAnalyzeNoDynamicImports(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFiles(map[string]string{
		"/app/package.json": `{"name": "flat", "main": "main.js"}`,
		"/app/main.js":      `import './util.js';`,
		"/app/util.js":      ``,
	})

	result, err := Analyze(context.Background(), mfs, testConfig(), logger.NewNop())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Tree != nil {
		t.Errorf("Expected no tree, got %+v", result.Tree)
	}
	if len(result.Graph.Order) != 2 {
		t.Errorf("Expected 2 walked modules, got %v", result.Graph.Order)
	}
}

func TestAnalyzeReportsUnfollowedImports(t *testing.T) {
	mfs := mapfs.New()
	mfs.AddFiles(map[string]string{
		"/app/main.js": "import('./gone.js');\nimport('./here.js');\n",
		"/app/here.js": ``,
	})
	cfg := testConfig()
	cfg.Entries = []string{"main.js"}

	var buf bytes.Buffer
	log := logger.NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	result, err := Analyze(context.Background(), mfs, cfg, log)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result.Stats.Unresolved != 1 {
		t.Errorf("Expected 1 unresolved reference, got %+v", result.Stats)
	}
	if !strings.Contains(buf.String(), "1 imports could not be followed") {
		t.Errorf("Expected a note about unfollowed imports, got:\n%s", buf.String())
	}
}

func TestAnalyzeBadImportMap(t *testing.T) {
	mfs := testutil.NewFixtureFS(t, "trace/spa", "/app")
	cfg := testConfig()
	cfg.ImportMap = "missing.json"

	if _, err := Analyze(context.Background(), mfs, cfg, logger.NewNop()); err == nil {
		t.Error("Expected error for missing import map")
	}
}

func TestEntries(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		explicit []string
		want     []string
	}{
		{
			name:     "explicit",
			files:    map[string]string{"/app/index.html": ""},
			explicit: []string{"src/a.js"},
			want:     []string{"src/a.js"},
		},
		{
			name:  "index.html",
			files: map[string]string{"/app/index.html": "", "/app/package.json": `{"main": "main.js"}`},
			want:  []string{"index.html"},
		},
		{
			name:  "package.json module",
			files: map[string]string{"/app/package.json": `{"main": "main.js", "module": "src/index.js"}`, "/app/src/index.js": ""},
			want:  []string{"src/index.js"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mfs := mapfs.New()
			mfs.AddFiles(tt.files)
			got, err := Entries(mfs, "/app", tt.explicit)
			if err != nil {
				t.Fatalf("Entries failed: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("Entries() = %v, want %v", got, tt.want)
			}
		})
	}

	mfs := mapfs.New()
	mfs.AddFile("/app/package.json", `{"main": "missing.js"}`, 0644)
	if _, err := Entries(mfs, "/app", nil); err == nil {
		t.Error("Expected error when no entry exists")
	}
}

func TestSummarize(t *testing.T) {
	color.NoColor = true
	mfs := testutil.NewFixtureFS(t, "trace/spa", "/app")
	cfg := testConfig()

	result, err := Analyze(context.Background(), mfs, cfg, logger.NewNop())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	var buf bytes.Buffer
	Summarize(&buf, cfg, result, 2048)
	out := buf.String()

	for _, want := range []string{
		"/src/main.js: 3 modules, depth 4, 2 cycles",
		"Walked 5 modules referencing 1 packages",
		"Wrote /app/treeJSON (2.0 kB)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected summary to contain %q, got:\n%s", want, out)
		}
	}
}
