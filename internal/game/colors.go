package game

import "strconv"

// Color is one of the eight button colors. Each active player holds a
// distinct color for the duration of a game.
type Color string

const (
	ColorRed       Color = "red"
	ColorOrange    Color = "orange"
	ColorDarkBlue  Color = "darkblue"
	ColorLightBlue Color = "lightblue"
	ColorYellow    Color = "yellow"
	ColorGreen     Color = "green"
	ColorPurple    Color = "purple"
	ColorLime      Color = "lime"
)

// ColorOrder is the palette in seat-assignment order.
var ColorOrder = []Color{
	ColorRed, ColorOrange, ColorDarkBlue, ColorLightBlue,
	ColorYellow, ColorGreen, ColorPurple, ColorLime,
}

var colorHex = map[Color]string{
	ColorRed:       "#e90600",
	ColorOrange:    "#F27622",
	ColorDarkBlue:  "#131541",
	ColorLightBlue: "#46A1D9",
	ColorYellow:    "#FBE348",
	ColorGreen:     "#1A626A",
	ColorPurple:    "#8e24aa",
	ColorLime:      "#7cb342",
}

// Valid reports whether c is part of the palette.
func (c Color) Valid() bool {
	_, ok := colorHex[c]
	return ok
}

// Hex returns the display color, or black for unknown values.
func (c Color) Hex() string {
	if hex, ok := colorHex[c]; ok {
		return hex
	}
	return "#000000"
}

// IdealTextColor returns black or white depending on the luminance of the
// given background color, so button labels stay readable.
func IdealTextColor(bgHex string) string {
	if len(bgHex) != 7 || bgHex[0] != '#' {
		return "#ffffff"
	}
	r, err1 := strconv.ParseInt(bgHex[1:3], 16, 32)
	g, err2 := strconv.ParseInt(bgHex[3:5], 16, 32)
	b, err3 := strconv.ParseInt(bgHex[5:7], 16, 32)
	if err1 != nil || err2 != nil || err3 != nil {
		return "#ffffff"
	}
	yiq := (r*299 + g*587 + b*114) / 1000
	if yiq >= 160 {
		return "#202124"
	}
	return "#ffffff"
}
