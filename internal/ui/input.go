package ui

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/core"
	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/ext"
)

// Keyboard → Game Boy buttons. Button keys never reach the guest as strokes.
var (
	keyA      = ebiten.KeyZ
	keyB      = ebiten.KeyX
	keyStart  = ebiten.KeySpace
	keySelect = ebiten.KeyShiftRight

	buttonKeys = []ebiten.Key{
		ebiten.KeyRight, ebiten.KeyLeft, ebiten.KeyUp, ebiten.KeyDown,
		keyA, keyB, keyStart, keySelect,
	}
	// characters typed by the button keys
	buttonChars = map[rune]bool{'z': true, 'Z': true, 'x': true, 'X': true, ' ': true}
)

// strokeFor maps a typed character to the byte sent to the guest.
func strokeFor(r rune) (byte, bool) {
	if r <= 0 || r >= 0x80 || buttonChars[r] {
		return 0, false
	}
	return byte(r), true
}

// ebitenInput samples keyboard, mouse and touch state.
type ebitenInput struct{}

func (ebitenInput) Sample(in *ext.Input) {
	in.Buttons = core.Buttons{
		Right:  ebiten.IsKeyPressed(ebiten.KeyRight),
		Left:   ebiten.IsKeyPressed(ebiten.KeyLeft),
		Up:     ebiten.IsKeyPressed(ebiten.KeyUp),
		Down:   ebiten.IsKeyPressed(ebiten.KeyDown),
		A:      ebiten.IsKeyPressed(keyA),
		B:      ebiten.IsKeyPressed(keyB),
		Start:  ebiten.IsKeyPressed(keyStart),
		Select: ebiten.IsKeyPressed(keySelect),
	}

	in.HasPointer = false
	if ids := ebiten.AppendTouchIDs(nil); len(ids) > 0 {
		x, y := ebiten.TouchPosition(ids[0])
		in.Pointer = ext.Pointer{X: x, Y: y, Buttons: 0x01}
		in.HasPointer = onScreen(x, y)
		return
	}
	x, y := ebiten.CursorPosition()
	var b byte
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		b |= 0x01
	}
	if ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight) {
		b |= 0x02
	}
	in.Pointer = ext.Pointer{X: x, Y: y, Buttons: b}
	in.HasPointer = onScreen(x, y)
}

func onScreen(x, y int) bool {
	return x >= 0 && y >= 0 && x < core.ScreenWidth && y < core.ScreenHeight
}

func modifiers() byte {
	var m byte
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		m |= ext.ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		m |= ext.ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) {
		m |= ext.ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) {
		m |= ext.ModMeta
	}
	return m
}
