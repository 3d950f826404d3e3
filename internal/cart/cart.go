package cart

// Cartridge defines the minimal interface the Bus needs for ROM/RAM banking.
// Implementations can be ROM-only or MBC variants. Addresses are CPU addresses.
type Cartridge interface {
	// Read returns a byte for ROM (0x0000–0x7FFF) and external RAM (0xA000–0xBFFF).
	Read(addr uint16) byte
	// Write handles MBC control writes (0x0000–0x7FFF) and external RAM writes (0xA000–0xBFFF).
	Write(addr uint16, value byte)
}

// BatteryBacked is implemented by controllers that can hold battery RAM.
// SaveRAM returns a copy of the image, or nil when the cartridge has no
// battery; LoadRAM ignores data in that case.
type BatteryBacked interface {
	SaveRAM() []byte
	LoadRAM(data []byte)
}

// Clocked is implemented by cartridges with an RTC. The clock returns
// seconds and drives the running counters.
type Clocked interface {
	SetClock(now func() int64)
}

// NewCartridge picks an implementation based on the ROM header.
func NewCartridge(rom []byte) Cartridge {
	h, err := ParseHeader(rom)
	if err != nil {
		return NewROMOnly(rom)
	}
	battery := h.HasBattery()
	switch h.CartType {
	case 0x01, 0x02, 0x03:
		m := NewMBC1(rom, h.RAMSizeBytes)
		m.battery = battery
		return m
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		m := NewMBC3(rom, h.RAMSizeBytes)
		m.hasRTC = h.HasRTC()
		m.battery = battery
		return m
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		m := NewMBC5(rom, h.RAMSizeBytes)
		m.battery = battery
		return m
	default:
		// Unknown controllers run as ROM-only so simple homebrew still boots.
		return NewROMOnly(rom)
	}
}
