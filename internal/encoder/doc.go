// Package encoder renders raster snapshots into upscaled, fully opaque PNG
// images and verifies the result before anything leaves the process.
//
// Each raster cell becomes a square block of Scale x Scale pixels using
// nearest-neighbour scaling so block edges stay crisp. Cells holding a
// transparent colour render as the white background. Encoding is
// deterministic: the same snapshot and scale always produce the same bytes.
package encoder
