package scene

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is a packed 0xRRGGBB value.
type Color uint32

// Black is also the "no emission" value.
const Black Color = 0x000000

// RGB returns the channels scaled to [0,1].
func (c Color) RGB() (r, g, b float64) {
	return float64(c>>16&0xff) / 255, float64(c>>8&0xff) / 255, float64(c&0xff) / 255
}

// Hex formats the color as "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%06x", uint32(c)&0xffffff)
}

func (c Color) String() string { return c.Hex() }

// MarshalText renders the color as "#rrggbb".
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText accepts "#rrggbb", "rrggbb" or "0xrrggbb".
func (c *Color) UnmarshalText(b []byte) error {
	s := strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(string(b)), "#"), "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil || len(s) != 6 {
		return fmt.Errorf("invalid color %q", string(b))
	}
	*c = Color(v)
	return nil
}
