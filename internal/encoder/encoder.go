package encoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"pixelmint/internal/raster"
)

const (
	MediaTypePNG = "image/png"
	DefaultScale = 20
	MaxScale     = 64
)

// ErrEncoding marks every failure to produce a valid image payload.
var ErrEncoding = errors.New("encoding failed")

var signatures = map[string][]byte{
	MediaTypePNG: {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
}

var background = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Asset is an encoded image ready for publication.
type Asset struct {
	Data      []byte
	MediaType string
	Width     int
	Height    int
}

// PNG encodes rasters at a fixed scale.
type PNG struct {
	Scale int
}

// Encode renders r at the configured scale.
func (p PNG) Encode(r raster.Raster) (Asset, error) {
	scale := p.Scale
	if scale == 0 {
		scale = DefaultScale
	}
	return Encode(r, scale)
}

// Encode renders r into a PNG where each cell covers scale x scale pixels.
func Encode(r raster.Raster, scale int) (Asset, error) {
	img, err := render(r, scale)
	if err != nil {
		return Asset{}, err
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return Asset{}, fmt.Errorf("%w: png: %w", ErrEncoding, err)
	}

	asset := Asset{
		Data:      buf.Bytes(),
		MediaType: MediaTypePNG,
		Width:     img.Bounds().Dx(),
		Height:    img.Bounds().Dy(),
	}
	if err := VerifySignature(asset.Data, asset.MediaType); err != nil {
		return Asset{}, err
	}
	return asset, nil
}

// VerifySignature checks that data begins with the magic bytes of mediaType.
func VerifySignature(data []byte, mediaType string) error {
	sig, ok := signatures[mediaType]
	if !ok {
		return fmt.Errorf("%w: no signature known for media type %q", ErrEncoding, mediaType)
	}
	if !bytes.HasPrefix(data, sig) {
		return fmt.Errorf("%w: payload does not start with %s signature", ErrEncoding, mediaType)
	}
	return nil
}

// Export encodes r and writes the PNG to path.
func Export(r raster.Raster, scale int, path string) (Asset, error) {
	asset, err := Encode(r, scale)
	if err != nil {
		return Asset{}, err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Asset{}, fmt.Errorf("create export directory: %w", err)
		}
	}
	if err := os.WriteFile(path, asset.Data, 0o644); err != nil {
		return Asset{}, fmt.Errorf("write export: %w", err)
	}
	return asset, nil
}

func render(r raster.Raster, scale int) (*image.RGBA, error) {
	if r.Width <= 0 || r.Height <= 0 || len(r.Pixels) != r.Width*r.Height {
		return nil, fmt.Errorf("%w: raster %dx%d with %d cells has no drawable surface", ErrEncoding, r.Width, r.Height, len(r.Pixels))
	}
	if scale < 1 || scale > MaxScale {
		return nil, fmt.Errorf("%w: scale %d outside 1..%d", ErrEncoding, scale, MaxScale)
	}

	cells := image.NewRGBA(image.Rect(0, 0, r.Width, r.Height))
	draw.Draw(cells, cells.Bounds(), &image.Uniform{C: background}, image.Point{}, draw.Src)
	for i, value := range r.Pixels {
		c, err := ParseColour(value)
		if err != nil {
			return nil, fmt.Errorf("%w: cell %d: %w", ErrEncoding, i, err)
		}
		if c.A == 0 {
			continue
		}
		x, y := i%r.Width, i/r.Width
		draw.Draw(cells, image.Rect(x, y, x+1, y+1), &image.Uniform{C: c}, image.Point{}, draw.Over)
	}

	out := image.NewRGBA(image.Rect(0, 0, r.Width*scale, r.Height*scale))
	draw.NearestNeighbor.Scale(out, out.Bounds(), cells, cells.Bounds(), draw.Src, nil)
	return out, nil
}
