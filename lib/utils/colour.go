package utils

import (
	"fmt"
	"image/color"
	"regexp"
)

func ColourValidate(c string) bool {
	match, err := regexp.Match(`#[0-9A-Fa-f]{8}`, []byte(c))
	if err != nil {
		panic(err)
	}
	return match
}

func ColourParse(s string) (c color.RGBA) {
	fmt.Sscanf(s, "#%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A)
	return
}

// ColourVec4 parses an RGBA hex colour into normalized components.
func ColourVec4(s string) [4]float32 {
	c := ColourParse(s)
	return [4]float32{
		float32(c.R) / 255,
		float32(c.G) / 255,
		float32(c.B) / 255,
		float32(c.A) / 255,
	}
}

// Colour is a normalized RGBA colour, ready for gl.ClearColor.
type Colour struct {
	R, G, B, A float32
}

func ColourFromHex(s string) Colour {
	v := ColourVec4(s)
	return Colour{R: v[0], G: v[1], B: v[2], A: v[3]}
}
