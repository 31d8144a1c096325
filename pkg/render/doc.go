// Package render turns built hierarchies into pictures.
//
// # Overview
//
// The [nodelink] subpackage draws a hierarchy as a Graphviz node-link
// diagram, general phrases at the top and specific ones below. This package
// holds the format conversion shared by renderers:
//
//	svg, err := nodelink.RenderSVG(dot)
//	pdf, err := render.ToPDF(svg)
//
// # Format Conversion
//
// [ToPDF] converts SVG using the external rsvg-convert tool (from librsvg).
// PNG output does not need it: Graphviz rasterises directly.
//
// [nodelink]: github.com/matzehuels/phrasetower/pkg/render/nodelink
package render
