package emu

import (
	"image/color"
	"strings"

	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/cart"
)

// classicSets are the four-shade palettes a machine can start with, lightest first.
var classicSets = [...][4]color.RGBA{
	{{0xE0, 0xF8, 0xD0, 0xFF}, {0x88, 0xC0, 0x70, 0xFF}, {0x34, 0x68, 0x56, 0xFF}, {0x08, 0x18, 0x20, 0xFF}}, // Green
	{{0xF8, 0xE8, 0xC8, 0xFF}, {0xD0, 0xA8, 0x70, 0xFF}, {0x80, 0x58, 0x30, 0xFF}, {0x30, 0x18, 0x08, 0xFF}}, // Sepia
	{{0xE8, 0xF0, 0xF8, 0xFF}, {0x88, 0xA8, 0xE0, 0xFF}, {0x38, 0x50, 0x98, 0xFF}, {0x08, 0x10, 0x30, 0xFF}}, // Blue
	{{0xF8, 0xE0, 0xD8, 0xFF}, {0xE0, 0x80, 0x70, 0xFF}, {0x98, 0x30, 0x28, 0xFF}, {0x30, 0x08, 0x08, 0xFF}}, // Red
	{{0xF8, 0xF0, 0xF8, 0xFF}, {0xD8, 0xC0, 0xE8, 0xFF}, {0x90, 0x80, 0xB0, 0xFF}, {0x40, 0x38, 0x50, 0xFF}}, // Pastel
	{{0xFF, 0xFF, 0xFF, 0xFF}, {0xAA, 0xAA, 0xAA, 0xFF}, {0x55, 0x55, 0x55, 0xFF}, {0x00, 0x00, 0x00, 0xFF}}, // Gray
}

var classicNames = [...]string{"Green", "Sepia", "Blue", "Red", "Pastel", "Gray"}

// ClassicSets is the number of built-in four-shade palettes.
const ClassicSets = len(classicSets)

// ClassicSet returns built-in palette id and its name.
func ClassicSet(id int) ([4]color.RGBA, string, bool) {
	if id < 0 || id >= len(classicSets) {
		return [4]color.RGBA{}, "", false
	}
	return classicSets[id], classicNames[id], true
}

// compatTitleExact maps exact, normalized titles to a preferred palette ID.
// Note: IDs index into classicSets.
var compatTitleExact = map[string]int{
	"TETRIS":              2, // Blue
	"TETRIS DX":           2,
	"SUPER MARIO LAND":    3, // Red
	"SUPER MARIO LAND 2":  3,
	"DR. MARIO":           4, // Pastel
	"DONKEY KONG":         1, // Sepia
	"THE LEGEND OF ZELDA": 0, // Green
	"ZELDA":               0,
	"METROID II":          3, // Red accent
	"KIRBY'S DREAM LAND":  4, // Pastel/soft
	"MEGA MAN":            2, // Blue
	"MEGAMAN":             2,
	"WARIO LAND":          1, // Sepia
	"POKEMON YELLOW":      4, // Pastel
	"POKEMON RED":         4,
	"POKEMON BLUE":        4,
	"POCKET MONSTERS":     4,
}

type containsRule struct {
	substr string
	id     int
}

// compatTitleContains applies broader substring heuristics for families.
var compatTitleContains = []containsRule{
	{"TETRIS", 2},
	{"MARIO", 3},
	{"ZELDA", 0},
	{"KIRBY", 4},
	{"DONKEY KONG", 1},
	{"METROID", 3},
	{"MEGA MAN", 2},
	{"MEGAMAN", 2},
	{"WARIO", 1},
	{"POKEMON", 4},
	{"POCKET MONSTERS", 4},
}

// defaultPalette picks the classic palette a freshly loaded ROM starts with.
func defaultPalette(h *cart.Header) [4]color.RGBA {
	id, ok := autoCompatPaletteFromHeader(h)
	if !ok || id < 0 || id >= len(classicSets) {
		id = 0
	}
	return classicSets[id]
}

// autoCompatPaletteFromHeader tries to pick a good default palette using a small title table
// and then a stable fallback based on licensee/checksum. Returns (id, true) on success.
func autoCompatPaletteFromHeader(h *cart.Header) (int, bool) {
	if h == nil {
		return 0, false
	}
	title := strings.TrimSpace(strings.TrimRight(h.Title, "\x00"))
	t := strings.ToUpper(title)
	if id, ok := compatTitleExact[t]; ok {
		return id, true
	}
	for _, r := range compatTitleContains {
		if strings.Contains(t, r.substr) {
			return r.id, true
		}
	}
	// Fallback: for Nintendo-published titles, vary palette by header checksum; others use default.
	nintendo := false
	if h.OldLicensee == 0x33 {
		nintendo = (strings.ToUpper(h.NewLicensee) == "01")
	} else {
		nintendo = (h.OldLicensee == 0x01)
	}
	if nintendo {
		// Use header checksum to pick a stable palette across sessions.
		return int(h.HeaderChecksum) % len(classicSets), true
	}
	return 0, true
}
