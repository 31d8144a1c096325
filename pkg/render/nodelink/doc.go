// Package nodelink renders phrase hierarchies as node-link diagrams.
//
// # Overview
//
// This package produces directed graph visualizations using Graphviz, where
// phrases appear as boxes and every arrow leads from a general phrase to a
// more specific one that contains it.
//
// # Usage
//
// Convert a store to DOT format, then render to SVG:
//
//	dot := nodelink.ToDOT(store, nodelink.Options[int64]{Phrases: phrases})
//	svg, err := nodelink.RenderSVG(dot)
//
// For PNG or PDF output:
//
//	png, err := nodelink.RenderPNG(dot)
//	pdf, err := nodelink.RenderPDF(dot)
//
// # Options
//
// The [Options] struct controls diagram generation:
//
//   - Direction: top-down (general phrases on top) or left-right
//   - Phrases: display text per element; tokens are used otherwise
//   - Detailed: add element IDs and token counts to labels
//   - Duplicates: draw absorbed elements next to their representative
//   - Include, MaxNodes: draw only part of a large hierarchy
//
// # DOT Format
//
// The [ToDOT] function produces Graphviz DOT source that can be:
//
//   - Rendered directly via [RenderSVG]
//   - Saved and processed with external Graphviz tools
//   - Customized before rendering
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG and
// PNG rendering. PDF conversion requires librsvg (rsvg-convert).
package nodelink
