// Package raster holds the fixed-size pixel grid users paint and the editing
// session that guards it.
package raster

import (
	"fmt"
	"sync"
)

const (
	Width        = 32
	Height       = 32
	DefaultColor = "#ffffff"
	DefaultBrush = "#000000"
)

// Raster is a row-major grid of CSS colour strings.
type Raster struct {
	Width  int      `json:"width"`
	Height int      `json:"height"`
	Pixels []string `json:"pixels"`
}

// Blank returns a raster with every cell set to DefaultColor.
func Blank() Raster {
	pixels := make([]string, Width*Height)
	for i := range pixels {
		pixels[i] = DefaultColor
	}
	return Raster{Width: Width, Height: Height, Pixels: pixels}
}

// Valid reports whether the raster has the expected dimensions and cell count.
func (r Raster) Valid() bool {
	return r.Width == Width && r.Height == Height && len(r.Pixels) == Width*Height
}

// Index converts a coordinate into a row-major cell index.
func (r Raster) Index(x, y int) (int, error) {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return 0, fmt.Errorf("coordinate (%d,%d) outside %dx%d raster", x, y, r.Width, r.Height)
	}
	return y*r.Width + x, nil
}

// At returns the colour at (x, y).
func (r Raster) At(x, y int) (string, error) {
	idx, err := r.Index(x, y)
	if err != nil {
		return "", err
	}
	if idx >= len(r.Pixels) {
		return "", fmt.Errorf("raster has %d cells, index %d out of range", len(r.Pixels), idx)
	}
	return r.Pixels[idx], nil
}

// Clone returns a deep copy.
func (r Raster) Clone() Raster {
	out := r
	out.Pixels = append([]string(nil), r.Pixels...)
	return out
}

// Sanitize returns r when it is valid, otherwise a blank raster and false.
func Sanitize(r Raster) (Raster, bool) {
	if !r.Valid() {
		return Blank(), false
	}
	return r.Clone(), true
}

// Canvas is an editing session over a single raster.
type Canvas struct {
	mu     sync.RWMutex
	raster Raster
}

// NewCanvas starts a session from r, falling back to a blank raster when r is invalid.
func NewCanvas(r Raster) *Canvas {
	clean, _ := Sanitize(r)
	return &Canvas{raster: clean}
}

// Set paints one cell by index and reports whether its colour changed.
func (c *Canvas) Set(index int, colour string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.raster.Pixels) {
		return false, fmt.Errorf("cell index %d out of range", index)
	}
	if c.raster.Pixels[index] == colour {
		return false, nil
	}
	c.raster.Pixels[index] = colour
	return true, nil
}

// Paint sets the cell at (x, y).
func (c *Canvas) Paint(x, y int, colour string) (bool, error) {
	c.mu.RLock()
	idx, err := c.raster.Index(x, y)
	c.mu.RUnlock()
	if err != nil {
		return false, err
	}
	return c.Set(idx, colour)
}

// Fill sets every cell to colour.
func (c *Canvas) Fill(colour string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.raster.Pixels {
		c.raster.Pixels[i] = colour
	}
}

// Clear resets the canvas to a blank raster.
func (c *Canvas) Clear() {
	c.mu.Lock()
	c.raster = Blank()
	c.mu.Unlock()
}

// Snapshot returns an independent copy of the current raster.
func (c *Canvas) Snapshot() Raster {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.raster.Clone()
}
