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
// Package serve provides the serve command for chunktree.
package serve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/chunktree/depgraph"
	"bennypowers.dev/chunktree/fs"
	"bennypowers.dev/chunktree/internal/config"
	"bennypowers.dev/chunktree/internal/logger"
	"bennypowers.dev/chunktree/viewer"
)

// Cmd is the serve command. It serves a previously written tree JSON file.
var Cmd = &cobra.Command{
	Use:   "serve [treeJSON]",
	Short: "Serve a saved dependency tree in the browser",
	Long: `Serve renders a tree written by "chunktree analyze" and serves it on a
local address until interrupted.`,
	Example: `  # Serve ./treeJSON on http://127.0.0.1:8888
  chunktree serve

  # Serve a tree with the echarts renderer on another port
  chunktree serve build/tree.json --renderer echarts --port 9000`,
	Args: cobra.MaximumNArgs(1),
	RunE: run,
}

func init() {
	AddFlags(Cmd)
}

// AddFlags registers the viewer flags on cmd. Flags are bound to viper when
// the command runs, so commands sharing flag names do not clobber each other.
func AddFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("open", true, "Open the viewer in a browser")
	cmd.Flags().String("host", viewer.DefaultHost, "Viewer host")
	cmd.Flags().Int("port", viewer.DefaultPort, "Viewer port")
	cmd.Flags().String("template", "", "Custom page template containing a <%=treeJSON%> placeholder")
	cmd.Flags().String("renderer", config.RendererTemplate, "Page renderer (template, echarts)")
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

	path := cfg.OutputPath()
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("no tree file to serve: pass a path or set --output")
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid tree path: %w", err)
	}

	data, err := osfs.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading tree: %w", err)
	}
	var root *depgraph.Node
	if err := json.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("parsing tree %s: %w", path, err)
	}

	return Run(cmd.Context(), osfs, cfg, log, root, data, cmd.ErrOrStderr())
}

// Page renders the viewer page for root with the configured renderer.
func Page(fsys fs.FileSystem, cfg *config.Config, root *depgraph.Node, treeJSON []byte) ([]byte, error) {
	if cfg.Renderer == config.RendererECharts {
		var buf bytes.Buffer
		if err := viewer.RenderECharts(root, &buf); err != nil {
			return nil, fmt.Errorf("rendering chart: %w", err)
		}
		return buf.Bytes(), nil
	}
	tmpl, err := viewer.LoadTemplate(fsys, cfg.Template)
	if err != nil {
		return nil, err
	}
	return viewer.Render(tmpl, bytes.TrimSpace(treeJSON)), nil
}

// Run renders the page and serves it until ctx is cancelled.
func Run(ctx context.Context, fsys fs.FileSystem, cfg *config.Config, log *logger.Logger, root *depgraph.Node, treeJSON []byte, status io.Writer) error {
	page, err := Page(fsys, cfg, root, treeJSON)
	if err != nil {
		return err
	}

	srv := viewer.NewServer(page, viewer.ServerOptions{
		Host:   cfg.Host,
		Port:   cfg.Port,
		Open:   cfg.Open,
		Logger: log.WithComponent("viewer"),
		OnReady: func(url string) {
			color.New(color.FgGreen).Fprintf(status, "chunktree viewer is running at %s\n", color.CyanString(url))
			fmt.Fprintf(status, "Use %s to close it\n", color.New(color.Bold).Sprint("Ctrl+C"))
		},
	})
	return srv.ListenAndServe(ctx)
}
