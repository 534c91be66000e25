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
// Package analyze provides the analyze command for chunktree.
package analyze

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/chunktree/cmd/serve"
	"bennypowers.dev/chunktree/depgraph"
	"bennypowers.dev/chunktree/fs"
	"bennypowers.dev/chunktree/importmap"
	"bennypowers.dev/chunktree/internal/config"
	"bennypowers.dev/chunktree/internal/logger"
	"bennypowers.dev/chunktree/internal/output"
	"bennypowers.dev/chunktree/packagejson"
	"bennypowers.dev/chunktree/resolve"
	"bennypowers.dev/chunktree/trace"
)

// Cmd is the analyze command that walks a package from its entry files,
// collects dynamic imports and writes the reconciled tree.
var Cmd = &cobra.Command{
	Use:   "analyze [entry...]",
	Short: "Build the dynamic import tree of a package",
	Long: `Analyze walks a package's modules starting from its entry files, records every
import() call with a string literal argument, and writes the resulting tree as JSON.

Entries default to index.html in the package directory, falling back to the
package.json module or main field. Unless --serve=false is given, the tree is
then served on a local address and opened in a browser.`,
	Example: `  # Analyze the current package and open the viewer
  chunktree analyze

  # Analyze an explicit entry without serving, printing the tree
  chunktree analyze src/main.ts --serve=false -o -

  # Key records by the specifier text instead of the resolved path
  chunktree analyze --identity raw

  # Resolve "@/..." to src/ and skip test files
  chunktree analyze --alias @=src --exclude "**/*.test.*"`,
	RunE: run,
}

func init() {
	Cmd.Flags().String("identity", depgraph.IdentityResolved.String(), "Record identity (resolved, raw)")
	Cmd.Flags().Bool("include-static", false, "Also record static import declarations")
	Cmd.Flags().StringSlice("exclude", nil, "Glob patterns of files to ignore")
	Cmd.Flags().StringSlice("exclude-markers", depgraph.DefaultExcludeMarkers, "Path fragments of dependency directories to ignore")
	Cmd.Flags().StringToString("alias", nil, "Specifier aliases (e.g. @=src)")
	Cmd.Flags().String("import-map", "", "Import map JSON file used for resolution")
	Cmd.Flags().StringSlice("conditions", nil, "Export condition priority (default: browser,import,module,default)")
	Cmd.Flags().StringSlice("extensions", nil, "Extensions probed when resolving (default: .js,.mjs,.jsx,.ts,.tsx,.mts,.cjs,.json)")
	Cmd.Flags().Bool("serve", true, "Serve the tree after writing it")
	serve.AddFlags(Cmd)
}

// Result is the outcome of one analysis.
type Result struct {
	Tree    *depgraph.Node
	Records []*depgraph.FileRecord
	Graph   *trace.ModuleGraph
	// Unreachable lists record identities not part of Tree.
	Unreachable []string
	Stats       depgraph.TreeStats
}

func run(cmd *cobra.Command, args []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	osfs := fs.NewOSFileSystem()
	cfg, err := config.Load(osfs, viper.GetViper())
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	defer func() { _ = log.Sync() }()

	absRoot, err := filepath.Abs(cfg.Package)
	if err != nil {
		return fmt.Errorf("invalid package directory: %w", err)
	}
	// Without an explicit --package, analyze the enclosing package.
	if !cmd.Flags().Changed("package") && cfg.Package == "." {
		absRoot = resolve.FindWorkspaceRoot(osfs, absRoot)
	}
	cfg.Package = absRoot
	if len(args) > 0 {
		cfg.Entries = args
	}

	result, err := Analyze(cmd.Context(), osfs, cfg, log)
	if err != nil {
		return err
	}

	data, err := output.Tree(osfs, cmd.OutOrStdout(), cfg.OutputPath(), result.Tree)
	if err != nil {
		return err
	}
	Summarize(cmd.ErrOrStderr(), cfg, result, len(data))

	if !cfg.Serve {
		return nil
	}
	return serve.Run(cmd.Context(), osfs, cfg, log, result.Tree, data, cmd.ErrOrStderr())
}

// Analyze runs the build host over cfg.Package and reconciles the collected
// records. cfg.Package must be absolute.
func Analyze(ctx context.Context, fsys fs.FileSystem, cfg *config.Config, log *logger.Logger) (*Result, error) {
	entries, err := Entries(fsys, cfg.Package, cfg.Entries)
	if err != nil {
		return nil, err
	}

	resolver, err := newResolver(fsys, cfg, log.WithComponent("resolve"))
	if err != nil {
		return nil, err
	}
	exclude, err := depgraph.NewExcluder(cfg.ExcludeMarkers, cfg.Exclude)
	if err != nil {
		return nil, err
	}

	collector := depgraph.NewCollector(depgraph.Options{
		Mode:          cfg.IdentityMode(),
		Resolve:       resolver.Resolve,
		Exclude:       exclude,
		IncludeStatic: cfg.IncludeStatic,
		Logger:        log.WithComponent("collector"),
	})

	graph, err := trace.Build(ctx, fsys, trace.Options{
		Entries:  entries,
		RootDir:  cfg.Package,
		Resolver: resolver,
		Exclude:  exclude,
		Logger:   log.WithComponent("trace"),
	}, collector)
	if err != nil {
		return nil, fmt.Errorf("walking modules: %w", err)
	}

	records := collector.Finish()
	tree := depgraph.Build(records)
	result := &Result{
		Tree:        tree,
		Records:     records,
		Graph:       graph,
		Unreachable: depgraph.Unreachable(records, tree),
		Stats:       depgraph.Stats(tree),
	}
	for _, id := range result.Unreachable {
		log.Debug("record %s is not reachable from the root", id)
	}
	if n := len(graph.Errors); n > 0 {
		log.Info("%d imports could not be followed; use --log-level debug to list them", n)
	}
	return result, nil
}

// Entries returns the entry files for rootDir: explicit entries when given,
// else index.html, else the package.json entry point.
func Entries(fsys fs.FileSystem, rootDir string, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	if fs.IsFile(fsys, filepath.Join(rootDir, "index.html")) {
		return []string{"index.html"}, nil
	}
	pkg, err := packagejson.ParseFile(fsys, filepath.Join(rootDir, "package.json"))
	if err == nil {
		entry := pkg.EntryPoint()
		if fs.IsFile(fsys, filepath.Join(rootDir, entry)) {
			return []string{entry}, nil
		}
	}
	return nil, fmt.Errorf("no entry file in %s: pass entries as arguments or add index.html", rootDir)
}

func newResolver(fsys fs.FileSystem, cfg *config.Config, log resolve.Logger) (*resolve.NodeResolver, error) {
	resolver := resolve.NewNodeResolver(fsys, cfg.Package, log)
	if len(cfg.Alias) > 0 {
		resolver = resolver.WithAliases(cfg.Alias)
	}
	if len(cfg.Extensions) > 0 {
		resolver = resolver.WithExtensions(cfg.Extensions)
	}
	if len(cfg.Conditions) > 0 {
		resolver = resolver.WithConditions(cfg.Conditions)
	}
	if cfg.ImportMap != "" {
		path := cfg.ImportMap
		if !filepath.IsAbs(path) {
			path = filepath.Join(cfg.Package, path)
		}
		im, err := importmap.ParseFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("loading import map: %w", err)
		}
		resolver = resolver.WithImportMap(im)
	}
	return resolver, nil
}

// Summarize prints a short report of result to w.
func Summarize(w io.Writer, cfg *config.Config, result *Result, size int) {
	bold := color.New(color.Bold)
	if result.Tree == nil {
		color.New(color.FgYellow).Fprintf(w, "No dynamic imports found in %d modules\n", len(result.Graph.Order))
	} else {
		bold.Fprintf(w, "%s", result.Tree.Name)
		fmt.Fprintf(w, ": %d modules, depth %d", result.Stats.Modules, result.Stats.Depth)
		if result.Stats.Cycles > 0 {
			color.New(color.FgYellow).Fprintf(w, ", %d cycles", result.Stats.Cycles)
		}
		if result.Stats.Unresolved > 0 {
			color.New(color.FgRed).Fprintf(w, ", %d unresolved", result.Stats.Unresolved)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Walked %d modules", len(result.Graph.Order))
	if pkgs := result.Graph.PackageNames(); len(pkgs) > 0 {
		fmt.Fprintf(w, " referencing %d packages", len(pkgs))
	}
	fmt.Fprintln(w)
	if n := len(result.Unreachable); n > 0 {
		color.New(color.FgYellow).Fprintf(w, "%d records are not reachable from the root\n", n)
	}

	if path := cfg.OutputPath(); path != "" {
		color.New(color.FgGreen).Fprintf(w, "Wrote %s (%s)\n", path, humanize.Bytes(uint64(size)))
	}
}
