package cart

import "testing"

// bankedROM builds an image of n 16KB banks, each starting with its bank number.
func bankedROM(n int) []byte {
	rom := make([]byte, n*romBankSize)
	for bank := 0; bank < n; bank++ {
		rom[bank*romBankSize] = byte(bank)
	}
	return rom
}

func TestMBC1_ROMBanking(t *testing.T) {
	m := NewMBC1(bankedROM(8), 0)

	if got := m.Read(0x0000); got != 0x00 {
		t.Fatalf("bank0 read got %02X want 00", got)
	}
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("default bank got %02X want 01", got)
	}
	m.Write(0x2000, 0x03)
	if got := m.Read(0x4000); got != 0x03 {
		t.Fatalf("bank3 read got %02X want 03", got)
	}
	m.Write(0x2000, 0x00)
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("bank0->1 remap failed: got %02X", got)
	}
	// Bank 9 wraps to 1 on an 8-bank image.
	m.Write(0x2000, 0x09)
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("wrapped bank got %02X want 01", got)
	}
}

func TestMBC1_Mode1MapsHighBitsAtZero(t *testing.T) {
	m := NewMBC1(bankedROM(64), 0)
	m.Write(0x4000, 0x01)
	if got := m.Read(0x0000); got != 0x00 {
		t.Fatalf("mode 0 bank0 got %02X want 00", got)
	}
	m.Write(0x6000, 0x01)
	if got := m.Read(0x0000); got != 0x20 {
		t.Fatalf("mode 1 bank0 got %02X want 20", got)
	}
	if got := m.Read(0x4000); got != 0x21 {
		t.Fatalf("mode 1 switchable got %02X want 21", got)
	}
}

func TestMBC1_RAMBanking_Mode1(t *testing.T) {
	m := NewMBC1(bankedROM(8), 32*1024)

	m.Write(0xA000, 0x11)
	if got := m.Read(0xA000); got != 0xFF {
		t.Fatalf("disabled RAM read got %02X want FF", got)
	}
	m.Write(0x0000, 0x0A)
	m.Write(0x6000, 0x01)
	m.Write(0x4000, 0x02)
	m.Write(0xA000, 0x77)
	if got := m.Read(0xA000); got != 0x77 {
		t.Fatalf("RAM bank2 RW failed: got %02X", got)
	}
	m.Write(0x4000, 0x00)
	if got := m.Read(0xA000); got != 0x00 {
		t.Fatalf("RAM bank0 got %02X want 00", got)
	}
}

func TestMBC5_NineBitBankAndBankZero(t *testing.T) {
	m := NewMBC5(bankedROM(512), 0)
	m.Write(0x2000, 0x05)
	m.Write(0x3000, 0x01)
	if got := m.Read(0x4000); got != 0x05 {
		// bank 0x105 carries its low byte
		t.Fatalf("bank 0x105 got %02X want 05", got)
	}
	m.Write(0x3000, 0x00)
	m.Write(0x2000, 0x00)
	if got := m.Read(0x4000); got != 0x00 {
		t.Fatalf("MBC5 bank 0 got %02X want 00", got)
	}
}

func TestBattery_OnlyPersistedWhenPresent(t *testing.T) {
	for _, tc := range []struct {
		cartType byte
		battery  bool
	}{
		{0x02, false}, // MBC1+RAM
		{0x03, true},  // MBC1+RAM+BATTERY
		{0x1A, false}, // MBC5+RAM
		{0x1B, true},  // MBC5+RAM+BATTERY
	} {
		c := NewCartridge(buildROM("BAT", tc.cartType, 0x00, 0x02, 32*1024))
		c.Write(0x0000, 0x0A)
		c.Write(0xA001, 0x42)
		bb, ok := c.(BatteryBacked)
		if !ok {
			t.Fatalf("type %02X: %T is not battery capable", tc.cartType, c)
		}
		img := bb.SaveRAM()
		if got := img != nil; got != tc.battery {
			t.Fatalf("type %02X: saved=%v want %v", tc.cartType, got, tc.battery)
		}
		if tc.battery && img[1] != 0x42 {
			t.Fatalf("type %02X: image byte got %02X want 42", tc.cartType, img[1])
		}
	}
}

func TestROMOnly_IgnoresWrites(t *testing.T) {
	rom := bankedROM(2)
	c := NewROMOnly(rom)
	c.Write(0x2000, 0x01)
	c.Write(0xA000, 0x01)
	if got := c.Read(0x4000); got != 0x01 {
		t.Fatalf("0x4000 got %02X want 01", got)
	}
	if got := c.Read(0xA000); got != 0xFF {
		t.Fatalf("external RAM got %02X want FF", got)
	}
}
