// Package color provides ANSI color support for terminal output, and decodes CSS color
// literals into the RGB values used for swatches.
package color

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RGB represents an RGB color value
type RGB struct {
	R, G, B uint8
}

// Predefined colors
var (
	Amber    = RGB{255, 176, 0}   // Labels (#ffb000)
	TeaGreen = RGB{211, 249, 181} // Values (#d3f9b5)
	Rose     = RGB{255, 92, 122}  // Failures (#ff5c7a)
)

// Sprint returns the text with ANSI color codes applied
func (c RGB) Sprint(text string) string {
	return fmt.Sprintf("\033[38;2;%d;%d;%dm%s\033[0m", c.R, c.G, c.B, text)
}

// Swatch returns two cells painted with c as background.
func (c RGB) Swatch() string {
	return fmt.Sprintf("\033[48;2;%d;%d;%dm  \033[0m", c.R, c.G, c.B)
}

// Hex returns c as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Parse decodes a hex, rgb()/rgba() or hsl()/hsla() literal. Alpha is ignored.
func Parse(literal string) (RGB, bool) {
	s := strings.TrimSpace(literal)
	if strings.HasPrefix(s, "#") {
		return parseHex(s[1:])
	}

	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return RGB{}, false
	}
	name := strings.ToLower(s[:open])
	args := splitArgs(s[open+1 : len(s)-1])
	if len(args) < 3 || len(args) > 4 {
		return RGB{}, false
	}

	switch name {
	case "rgb", "rgba":
		var ch [3]uint8
		for i := range ch {
			v, ok := channel(args[i])
			if !ok {
				return RGB{}, false
			}
			ch[i] = v
		}
		return RGB{ch[0], ch[1], ch[2]}, true
	case "hsl", "hsla":
		h, ok := hue(args[0])
		if !ok {
			return RGB{}, false
		}
		sat, ok1 := percent(args[1])
		light, ok2 := percent(args[2])
		if !ok1 || !ok2 {
			return RGB{}, false
		}
		return fromHSL(h, sat, light), true
	default:
		return RGB{}, false
	}
}

func parseHex(digits string) (RGB, bool) {
	switch len(digits) {
	case 3, 4:
		var expanded strings.Builder
		for _, d := range digits[:3] {
			expanded.WriteRune(d)
			expanded.WriteRune(d)
		}
		digits = expanded.String()
	case 6, 8:
		digits = digits[:6]
	default:
		return RGB{}, false
	}
	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return RGB{}, false
	}
	return RGB{uint8(v >> 16), uint8(v >> 8), uint8(v)}, true
}

// splitArgs splits function arguments on commas, slashes and whitespace.
func splitArgs(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '/' || r == ' ' || r == '\t'
	})
}

// channel decodes an rgb() component: 0-255 or a percentage.
func channel(s string) (uint8, bool) {
	if strings.HasSuffix(s, "%") {
		p, ok := percent(s)
		if !ok {
			return 0, false
		}
		return clamp(p * 255), true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return clamp(v), true
}

// percent decodes a percentage into [0,1].
func percent(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, false
	}
	return math.Min(math.Max(v/100, 0), 1), true
}

// hue decodes an hsl() hue into degrees.
func hue(s string) (float64, bool) {
	units := []struct {
		suffix string
		scale  float64
	}{
		{"deg", 1},
		{"grad", 0.9},
		{"rad", 180 / math.Pi},
		{"turn", 360},
		{"", 1},
	}
	for _, u := range units {
		if !strings.HasSuffix(s, u.suffix) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, u.suffix), 64)
		if err != nil {
			return 0, false
		}
		return v * u.scale, true
	}
	return 0, false
}

func fromHSL(h, s, l float64) RGB {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return RGB{clamp((r + m) * 255), clamp((g + m) * 255), clamp((b + m) * 255)}
}

func clamp(v float64) uint8 {
	return uint8(math.Round(math.Min(math.Max(v, 0), 255)))
}
