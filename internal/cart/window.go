package cart

const (
	romBankSize = 0x4000
	ramBankSize = 0x2000
)

// romByte reads addr (either ROM window) from bank. Banks past the end of
// the image wrap, as the unused high bank lines do on hardware.
func romByte(rom []byte, bank int, addr uint16) byte {
	if n := len(rom) / romBankSize; n > 0 {
		bank %= n
	}
	off := bank*romBankSize + int(addr&(romBankSize-1))
	if off < len(rom) {
		return rom[off]
	}
	return 0xFF
}

// extRAM is the A000-BFFF window shared by the banking controllers.
type extRAM struct {
	data    []byte
	enabled bool
}

func newExtRAM(size int) extRAM {
	if size <= 0 {
		return extRAM{}
	}
	return extRAM{data: make([]byte, size)}
}

// enable handles a write to 0000-1FFF: 0x0A in the low nibble opens the window.
func (r *extRAM) enable(value byte) { r.enabled = value&0x0F == 0x0A }

func (r *extRAM) offset(bank int, addr uint16) int {
	if !r.enabled || len(r.data) == 0 {
		return -1
	}
	off := bank*ramBankSize + int(addr-0xA000)
	if off >= len(r.data) {
		return -1
	}
	return off
}

func (r *extRAM) read(bank int, addr uint16) byte {
	if off := r.offset(bank, addr); off >= 0 {
		return r.data[off]
	}
	return 0xFF
}

func (r *extRAM) write(bank int, addr uint16, value byte) {
	if off := r.offset(bank, addr); off >= 0 {
		r.data[off] = value
	}
}

func (r *extRAM) snapshot() []byte {
	if len(r.data) == 0 {
		return nil
	}
	return append([]byte(nil), r.data...)
}

func (r *extRAM) restore(data []byte) { copy(r.data, data) }

// ROMOnly is a 32KB cartridge without a controller. Writes are ignored.
type ROMOnly struct {
	rom []byte
}

func NewROMOnly(rom []byte) *ROMOnly { return &ROMOnly{rom: rom} }

func (c *ROMOnly) Read(addr uint16) byte {
	if addr < 0x8000 && int(addr) < len(c.rom) {
		return c.rom[addr]
	}
	return 0xFF
}

func (c *ROMOnly) Write(uint16, byte) {}
