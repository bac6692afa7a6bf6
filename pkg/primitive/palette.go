package primitive

import (
	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/scene"
)

// Fixed structural colors.
const (
	FrameColor   scene.Color = 0x3a3f47
	TickColor    scene.Color = 0x9aa0a6
	LabelColor   scene.Color = 0xf1f3f4
	FloorColor   scene.Color = 0xc8ccd0
	NeutralColor scene.Color = 0x8c939b
)

var categoryColors = map[facility.Category]scene.Color{
	facility.CategoryServer:    0x4a90d9,
	facility.CategoryGPUServer: 0x7b4fd6,
	facility.CategoryStorage:   0xe0a030,
	facility.CategorySwitch:    0x2bb3a3,
	facility.CategoryNetwork:   0x1f8a70,
	facility.CategoryPDU:       0xd9534f,
	facility.CategoryUPS:       0xb5651d,
	facility.CategoryBlade:     0x5c6bc0,
	facility.CategoryRack:      0x3a3f47,
}

// CategoryColor returns the palette color for c, or NeutralColor for
// categories without one.
func CategoryColor(c facility.Category) scene.Color {
	if col, ok := categoryColors[c]; ok {
		return col
	}
	return NeutralColor
}
