package cart

// MBC1 banks up to 2MB of ROM and 32KB of RAM. The two-bit secondary
// register extends the ROM bank number; in mode 1 it also selects the RAM
// bank and the bank mapped at 0000-3FFF.
type MBC1 struct {
	rom     []byte
	ram     extRAM
	battery bool

	bankLow  byte // 5 bits, 0 selects 1
	bankHigh byte // 2 bits
	mode     byte
}

func NewMBC1(rom []byte, ramSize int) *MBC1 {
	return &MBC1{rom: rom, ram: newExtRAM(ramSize), bankLow: 1}
}

func (m *MBC1) ramBank() int {
	if m.mode == 1 {
		return int(m.bankHigh)
	}
	return 0
}

func (m *MBC1) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		bank := 0
		if m.mode == 1 {
			bank = int(m.bankHigh) << 5
		}
		return romByte(m.rom, bank, addr)
	case addr < 0x8000:
		return romByte(m.rom, int(m.bankHigh)<<5|int(m.bankLow), addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return m.ram.read(m.ramBank(), addr)
	}
	return 0xFF
}

func (m *MBC1) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ram.enable(value)
	case addr < 0x4000:
		m.bankLow = value & 0x1F
		if m.bankLow == 0 {
			m.bankLow = 1
		}
	case addr < 0x6000:
		m.bankHigh = value & 0x03
	case addr < 0x8000:
		m.mode = value & 0x01
	case addr >= 0xA000 && addr <= 0xBFFF:
		m.ram.write(m.ramBank(), addr, value)
	}
}

// SaveRAM returns nil unless the cartridge has a battery.
func (m *MBC1) SaveRAM() []byte {
	if !m.battery {
		return nil
	}
	return m.ram.snapshot()
}

func (m *MBC1) LoadRAM(data []byte) {
	if m.battery {
		m.ram.restore(data)
	}
}
