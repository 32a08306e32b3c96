package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"pixelmint/internal/encoder"
	"pixelmint/internal/publish"
	"pixelmint/internal/raster"
)

const ansiReset = "\x1b[0m"

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderCanvas draws r one text row per raster row. Colour output uses
// 24-bit background cells; plain output marks painted cells with '#'.
func renderCanvas(r raster.Raster, colorize bool) string {
	var b strings.Builder
	for y := 0; y < r.Height; y++ {
		for x := 0; x < r.Width; x++ {
			value, err := r.At(x, y)
			if err != nil {
				value = raster.DefaultColor
			}
			c, err := encoder.ParseColour(value)
			if err != nil {
				c, _ = encoder.ParseColour(raster.DefaultColor)
			}
			if colorize {
				if c.A == 0 {
					c.R, c.G, c.B = 0xff, 0xff, 0xff
				}
				fmt.Fprintf(&b, "\x1b[48;2;%d;%d;%dm  ", c.R, c.G, c.B)
				continue
			}
			if c.A == 0 || (c.R == 0xff && c.G == 0xff && c.B == 0xff) {
				b.WriteByte('.')
			} else {
				b.WriteByte('#')
			}
		}
		if colorize {
			b.WriteString(ansiReset)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func phaseLabel(p publish.Phase) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(string(p), "_", " "))
}
