package bus

import (
	"io"

	"github.com/FabianRolfMatthiasNoll/gbbridge/internal/cart"
)

// Joypad state bits passed to SetJoypadState. The low nibble is the
// D-Pad group, the high nibble the button group, in JOYP bit order.
const (
	JoypRight byte = 1 << iota
	JoypLeft
	JoypUp
	JoypDown
	JoypA
	JoypB
	JoypSelect
	JoypStart
)

// Interrupt flag bits (IF/IE).
const (
	IntVBlank byte = 1 << 0
	IntSerial byte = 1 << 3
	IntJoypad byte = 1 << 4
)

// Bus is the memory map of the reference core: cartridge, VRAM, WRAM (with
// echo), OAM, a small IO block and HRAM. PPU and APU timing live elsewhere.
type Bus struct {
	cart cart.Cartridge
	vram [0x2000]byte
	wram [0x2000]byte
	oam  [0xA0]byte
	hram [0x7F]byte
	io   [0x80]byte // plain storage for IO registers without behaviour

	ie    byte
	ifReg byte

	joypSelect byte // bits 4-5 of JOYP as written
	joypState  byte // pressed buttons, Joyp* bits

	divInternal uint16

	sb, sc byte
	serial io.Writer
}

func New(rom []byte) *Bus {
	return &Bus{cart: cart.NewCartridge(rom), joypSelect: 0x30}
}

// Cart exposes the cartridge for battery and clock access.
func (b *Bus) Cart() cart.Cartridge { return b.cart }

// SetSerialWriter connects an io.Writer to receive bytes written to the serial port (FF01/FF02).
func (b *Bus) SetSerialWriter(w io.Writer) { b.serial = w }

// SetJoypadState sets the pressed buttons; newly pressed buttons request the joypad interrupt.
func (b *Bus) SetJoypadState(state byte) {
	if state&^b.joypState != 0 {
		b.ifReg |= IntJoypad
	}
	b.joypState = state
}

// RequestInterrupt raises bits in IF.
func (b *Bus) RequestInterrupt(mask byte) { b.ifReg |= mask & 0x1F }

// Tick advances the divider by the given number of cycles.
func (b *Bus) Tick(cycles int) { b.divInternal += uint16(cycles) }

func (b *Bus) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		return b.cart.Read(addr)
	case addr < 0xA000:
		return b.vram[addr-0x8000]
	case addr < 0xC000:
		return b.cart.Read(addr)
	case addr < 0xE000:
		return b.wram[addr-0xC000]
	case addr < 0xFE00: // echo of C000-DDFF
		return b.wram[addr-0xE000]
	case addr < 0xFEA0:
		return b.oam[addr-0xFE00]
	case addr < 0xFF00:
		return 0xFF // unusable
	case addr < 0xFF80:
		return b.readIO(addr)
	case addr < 0xFFFF:
		return b.hram[addr-0xFF80]
	default:
		return b.ie
	}
}

func (b *Bus) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000:
		b.cart.Write(addr, value)
	case addr < 0xA000:
		b.vram[addr-0x8000] = value
	case addr < 0xC000:
		b.cart.Write(addr, value)
	case addr < 0xE000:
		b.wram[addr-0xC000] = value
	case addr < 0xFE00:
		b.wram[addr-0xE000] = value
	case addr < 0xFEA0:
		b.oam[addr-0xFE00] = value
	case addr < 0xFF00:
	case addr < 0xFF80:
		b.writeIO(addr, value)
	case addr < 0xFFFF:
		b.hram[addr-0xFF80] = value
	default:
		b.ie = value
	}
}

func (b *Bus) readIO(addr uint16) byte {
	switch addr {
	case 0xFF00:
		low := byte(0x0F)
		if b.joypSelect&0x10 == 0 {
			low &^= b.joypState & 0x0F
		}
		if b.joypSelect&0x20 == 0 {
			low &^= b.joypState >> 4
		}
		return 0xC0 | b.joypSelect | low
	case 0xFF01:
		return b.sb
	case 0xFF02:
		return b.sc | 0x7E
	case 0xFF04:
		return byte(b.divInternal >> 8)
	case 0xFF0F:
		return 0xE0 | b.ifReg
	default:
		return b.io[addr-0xFF00]
	}
}

func (b *Bus) writeIO(addr uint16, value byte) {
	switch addr {
	case 0xFF00:
		b.joypSelect = value & 0x30
	case 0xFF01:
		b.sb = value
	case 0xFF02:
		b.sc = value
		// Transfers complete immediately; there is no link partner.
		if value&0x80 != 0 {
			if b.serial != nil {
				_, _ = b.serial.Write([]byte{b.sb})
			}
			b.sc &^= 0x80
			b.ifReg |= IntSerial
		}
	case 0xFF04:
		b.divInternal = 0
	case 0xFF0F:
		b.ifReg = value & 0x1F
	default:
		b.io[addr-0xFF00] = value
	}
}
