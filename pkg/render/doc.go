// Package render turns a styled snapshot into output for consumers.
//
// Three formats are supported:
//
//   - [FormatJSON]: the node/edge/data shape a browser flow-graph widget
//     consumes ([MarshalFlow])
//   - [FormatDOT]: Graphviz DOT with every node pinned at its layout position
//     ([ToDOT])
//   - [FormatSVG]: the DOT output rendered by Graphviz's neato engine, which
//     honours pinned positions ([RenderSVG])
//
// Layout never happens here. Positions come from pkg/layout/force and
// colours and widths from pkg/style; this package only translates them.
//
//	snap := style.Apply(laidOut, selected)
//	svg, err := render.Render(ctx, snap, render.FormatSVG)
package render
