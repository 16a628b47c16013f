package graph

import "image/color"

// DefaultColors is the palette series colors are drawn from, in order of first
// appearance.
var DefaultColors = []color.NRGBA{
	{R: 0x29, G: 0x79, B: 0xff, A: 0xff}, // #2979ff
	{R: 0xdd, G: 0x2c, B: 0x00, A: 0xff}, // #dd2c00
	{R: 0x4c, G: 0xaf, B: 0x50, A: 0xff}, // #4caf50
	{R: 0x7c, G: 0x4d, B: 0xff, A: 0xff}, // #7c4dff
	{R: 0xff, G: 0xa0, B: 0x00, A: 0xff}, // #ffa000
}
