package segment

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
)

const (
	ColorHeader    = "#a0a2de"
	ColorPalette   = "#bb9999"
	ColorExtension = "#aacccc"
	ColorData      = "#8fbf8f"
	ColorScan      = "#999999"
	ColorUnknown   = "#777777"
	ColorTerminal  = "#ffffff"
)

// Palette hands out segment colours. It is seeded per decode so the same
// input always yields the same colours. Not safe for concurrent use.
type Palette struct {
	rng    *rand.Rand
	cycles map[string]int
}

func NewPalette(seed uint64) *Palette {
	return &Palette{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		cycles: make(map[string]int),
	}
}

// Random returns a light colour so dark text stays readable on it.
func (p *Palette) Random() string {
	r := 0x80 + p.rng.IntN(0x80)
	g := 0x80 + p.rng.IntN(0x80)
	b := 0x80 + p.rng.IntN(0x80)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// Cycle returns successive shades of base, so runs of same-typed records
// stay distinguishable. The shade sequence restarts every four calls.
func (p *Palette) Cycle(base string) string {
	n := p.cycles[base]
	p.cycles[base] = n + 1
	rgb, err := strconv.ParseUint(strings.TrimPrefix(base, "#"), 16, 32)
	if err != nil {
		return base
	}
	shift := uint64(n%4) * 0x14
	var out uint64
	for i := 2; i >= 0; i-- {
		c := rgb >> (8 * uint(i)) & 0xFF
		c = c - min(c, shift)
		out = out<<8 | c
	}
	return fmt.Sprintf("#%06x", out)
}
