package encoder

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ParseColour converts a CSS colour string into a non-premultiplied colour.
// The empty string and "transparent" parse as fully transparent black.
func ParseColour(value string) (color.NRGBA, error) {
	s := strings.ToLower(strings.TrimSpace(value))
	switch {
	case s == "" || s == "transparent":
		return color.NRGBA{}, nil
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		return parseFunctional(s[len("rgba(") : len(s)-1])
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		return parseFunctional(s[len("rgb(") : len(s)-1])
	}
	if named, ok := colornames.Map[s]; ok {
		return color.NRGBA{R: named.R, G: named.G, B: named.B, A: named.A}, nil
	}
	return color.NRGBA{}, fmt.Errorf("unrecognised colour %q", value)
}

func parseHex(hex string) (color.NRGBA, error) {
	switch len(hex) {
	case 3, 4:
		expanded := make([]byte, 0, len(hex)*2)
		for i := 0; i < len(hex); i++ {
			expanded = append(expanded, hex[i], hex[i])
		}
		hex = string(expanded)
	case 6, 8:
	default:
		return color.NRGBA{}, fmt.Errorf("hex colour #%s has invalid length", hex)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("hex colour #%s: %w", hex, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func parseFunctional(body string) (color.NRGBA, error) {
	parts := strings.Split(body, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.NRGBA{}, fmt.Errorf("colour function expects 3 or 4 components, got %d", len(parts))
	}
	var channels [3]uint8
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || n < 0 || n > 255 {
			return color.NRGBA{}, fmt.Errorf("colour component %q must be 0-255", strings.TrimSpace(parts[i]))
		}
		channels[i] = uint8(n)
	}
	alpha := uint8(255)
	if len(parts) == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || a < 0 || a > 1 {
			return color.NRGBA{}, fmt.Errorf("colour alpha %q must be between 0 and 1", strings.TrimSpace(parts[3]))
		}
		alpha = uint8(a*255 + 0.5)
	}
	return color.NRGBA{R: channels[0], G: channels[1], B: channels[2], A: alpha}, nil
}
