package encoder_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"pixelmint/internal/encoder"
	"pixelmint/internal/raster"
)

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return img
}

func rgba(c color.Color) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}

func TestEncodeScalesCellsIntoBlocks(t *testing.T) {
	r := raster.Blank()
	r.Pixels[0] = "#ff0000"
	r.Pixels[raster.Width+1] = "rgb(0, 0, 255)"

	asset, err := encoder.Encode(r, 20)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if asset.MediaType != encoder.MediaTypePNG || asset.Width != 640 || asset.Height != 640 {
		t.Fatalf("unexpected asset metadata: %s %dx%d", asset.MediaType, asset.Width, asset.Height)
	}

	img := decode(t, asset.Data)
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 640 {
		t.Fatalf("unexpected decoded bounds %v", img.Bounds())
	}
	red := color.RGBA{R: 255, A: 255}
	for _, pt := range []image.Point{{0, 0}, {19, 19}, {10, 5}} {
		if got := rgba(img.At(pt.X, pt.Y)); got != red {
			t.Fatalf("pixel %v = %v, want red", pt, got)
		}
	}
	if got := rgba(img.At(20, 0)); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("block edge leaked: pixel (20,0) = %v", got)
	}
	if got := rgba(img.At(25, 25)); got != (color.RGBA{B: 255, A: 255}) {
		t.Fatalf("pixel (25,25) = %v, want blue", got)
	}
}

func TestEncodeRendersTransparentCellsAsBackground(t *testing.T) {
	r := raster.Blank()
	r.Pixels[0] = "transparent"
	r.Pixels[1] = "rgba(0,0,0,0)"
	r.Pixels[2] = ""
	r.Pixels[3] = "#00000000"

	asset, err := encoder.Encode(r, 1)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	img := decode(t, asset.Data)
	white := color.RGBA{255, 255, 255, 255}
	for x := 0; x < 4; x++ {
		if got := rgba(img.At(x, 0)); got != white {
			t.Fatalf("cell %d = %v, want white background", x, got)
		}
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	r := raster.Blank()
	r.Pixels[42] = "teal"
	first, err := encoder.Encode(r, 4)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	second, err := encoder.Encode(r.Clone(), 4)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(first.Data, second.Data) {
		t.Fatal("expected identical payloads for identical snapshots")
	}
}

func TestEncodeFailures(t *testing.T) {
	bad := raster.Blank()
	bad.Pixels[7] = "not-a-colour"

	cases := map[string]struct {
		raster raster.Raster
		scale  int
	}{
		"unparseable colour": {bad, 1},
		"empty raster":       {raster.Raster{}, 1},
		"zero scale":         {raster.Blank(), 0},
		"oversized scale":    {raster.Blank(), encoder.MaxScale + 1},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := encoder.Encode(tc.raster, tc.scale)
			if !errors.Is(err, encoder.ErrEncoding) {
				t.Fatalf("expected ErrEncoding, got %v", err)
			}
		})
	}
}

func TestVerifySignature(t *testing.T) {
	if err := encoder.VerifySignature([]byte("GIF89a..."), encoder.MediaTypePNG); !errors.Is(err, encoder.ErrEncoding) {
		t.Fatalf("expected signature mismatch, got %v", err)
	}
	if err := encoder.VerifySignature([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0}, encoder.MediaTypePNG); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
	if err := encoder.VerifySignature([]byte{0x89}, "image/webp"); err == nil {
		t.Fatal("expected unknown media type to fail")
	}
}

func TestParseColour(t *testing.T) {
	cases := map[string]color.NRGBA{
		"#fff":                {255, 255, 255, 255},
		"#FF8000":             {255, 128, 0, 255},
		"#ff800080":           {255, 128, 0, 128},
		"rgba(10, 20, 30, 1)": {10, 20, 30, 255},
		"rgba(10, 20, 30, 0)": {10, 20, 30, 0},
		"black":               {0, 0, 0, 255},
		"transparent":         {},
	}
	for in, want := range cases {
		got, err := encoder.ParseColour(in)
		if err != nil {
			t.Fatalf("ParseColour(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseColour(%q) = %v, want %v", in, got, want)
		}
	}
	for _, in := range []string{"#12", "rgb(300,0,0)", "rgba(1,2,3,2)", "chartreuse-ish"} {
		if _, err := encoder.ParseColour(in); err == nil {
			t.Fatalf("expected ParseColour(%q) to fail", in)
		}
	}
}

func TestExportWritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "canvas.png")
	asset, err := encoder.Export(raster.Blank(), 2, path)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !bytes.Equal(data, asset.Data) {
		t.Fatal("exported file differs from encoded asset")
	}
	if img := decode(t, data); img.Bounds().Dx() != 64 {
		t.Fatalf("unexpected export width %d", img.Bounds().Dx())
	}
}
