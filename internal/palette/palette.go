// Package palette derives lesson block colors.
package palette

import (
	"fmt"
	"strconv"
	"strings"
)

// Darken subtracts amount from each RGB channel of a "#RRGGBB" or "RRGGBB"
// color, clamping at zero. The leading '#' is kept when present. Input that
// is not a hex color is returned unchanged.
func Darken(color string, amount int) string {
	hex, pound := strings.CutPrefix(color, "#")
	if len(hex) == 0 || len(hex) > 6 {
		return color
	}
	num, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color
	}

	r := clamp(int(num>>16) - amount)
	g := clamp(int(num>>8&0xff) - amount)
	b := clamp(int(num&0xff) - amount)

	out := fmt.Sprintf("%06x", r<<16|g<<8|b)
	if pound {
		return "#" + out
	}
	return out
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 0xff {
		return 0xff
	}
	return v
}

var fallback = [...]string{
	"#3b82f6", // blue
	"#22c55e", // green
	"#eab308", // yellow
	"#ef4444", // red
	"#6366f1", // indigo
	"#a855f7", // purple
	"#ec4899", // pink
	"#14b8a6", // teal
	"#06b6d4", // cyan
	"#f97316", // orange
}

// ForString picks a stable fallback color for lessons without one.
func ForString(s string) string {
	var hash int32
	for _, c := range s {
		hash = int32(c) + (hash << 5) - hash
	}
	idx := int(hash % int32(len(fallback)))
	if idx < 0 {
		idx = -idx
	}
	return fallback[idx]
}
