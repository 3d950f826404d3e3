package cart

// MBC5 banks up to 8MB of ROM (9-bit bank, bank 0 is selectable) and
// 128KB of RAM.
type MBC5 struct {
	rom     []byte
	ram     extRAM
	battery bool

	romBank uint16
	ramBank byte
}

func NewMBC5(rom []byte, ramSize int) *MBC5 {
	return &MBC5{rom: rom, ram: newExtRAM(ramSize), romBank: 1}
}

func (m *MBC5) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		return romByte(m.rom, 0, addr)
	case addr < 0x8000:
		return romByte(m.rom, int(m.romBank), addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return m.ram.read(int(m.ramBank), addr)
	}
	return 0xFF
}

func (m *MBC5) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ram.enable(value)
	case addr < 0x3000:
		m.romBank = m.romBank&0x100 | uint16(value)
	case addr < 0x4000:
		m.romBank = m.romBank&0xFF | uint16(value&0x01)<<8
	case addr < 0x6000:
		m.ramBank = value & 0x0F
	case addr >= 0xA000 && addr <= 0xBFFF:
		m.ram.write(int(m.ramBank), addr, value)
	}
}

// SaveRAM returns nil unless the cartridge has a battery.
func (m *MBC5) SaveRAM() []byte {
	if !m.battery {
		return nil
	}
	return m.ram.snapshot()
}

func (m *MBC5) LoadRAM(data []byte) {
	if m.battery {
		m.ram.restore(data)
	}
}
