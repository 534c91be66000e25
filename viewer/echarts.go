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
package viewer

import (
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"bennypowers.dev/chunktree/depgraph"
)

const (
	chartWidth  = "100%"
	chartHeight = "900px"
)

// RenderECharts writes an interactive tree chart of root to w.
// A nil root renders an empty chart titled accordingly.
func RenderECharts(root *depgraph.Node, w io.Writer) error {
	subtitle := "No dynamic imports were recorded"
	var data []opts.TreeData
	if root != nil {
		stats := depgraph.Stats(root)
		subtitle = root.Name
		data = []opts.TreeData{*treeData(root)}
		if stats.Cycles > 0 {
			subtitle += " (cycles marked ↺)"
		}
	}

	tree := charts.NewTree()
	tree.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "chunktree",
			Width:     chartWidth,
			Height:    chartHeight,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Dynamic import tree",
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
	)

	tree.AddSeries("imports", data, charts.WithTreeOpts(opts.TreeChart{
		Layout:           "orthogonal",
		Orient:           "LR",
		InitialTreeDepth: -1,
		Roam:             opts.Bool(true),
		Label:            &opts.Label{Show: opts.Bool(true), Position: "left"},
		Leaves:           &opts.TreeLeaves{Label: &opts.Label{Show: opts.Bool(true), Position: "right"}},
		Left:             "15%",
		Right:            "20%",
		Top:              "8%",
		Bottom:           "5%",
	}))

	return tree.Render(w)
}

func treeData(n *depgraph.Node) *opts.TreeData {
	name := n.Name
	switch {
	case n.Cycle:
		name += " ↺"
	case n.Unresolved:
		name += " ?"
	}
	d := &opts.TreeData{Name: name}
	for _, child := range n.Children {
		d.Children = append(d.Children, treeData(child))
	}
	return d
}
