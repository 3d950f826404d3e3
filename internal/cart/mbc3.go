package cart

import (
	"encoding/binary"
	"time"
)

// MBC3 implements ROM/RAM banking and the MBC3 real-time clock.
// Banking behavior:
// - 0000-1FFF: RAM/RTC enable (0x0A in low nibble)
// - 2000-3FFF: ROM bank low 7 bits (0 maps to 1)
// - 4000-5FFF: RAM bank (0-3) or RTC register select (08-0C)
// - 6000-7FFF: Latch clock (0 then 1 copies the running counters into the readable registers)
// - A000-BFFF: External RAM, or the selected RTC register
// ROM: bank 0 fixed at 0000-3FFF; switchable 4000-7FFF uses bank (1..127)

// RTC register select values.
const (
	RTCSeconds byte = 0x08
	RTCMinutes byte = 0x09
	RTCHours   byte = 0x0A
	RTCDayLow  byte = 0x0B
	RTCDayHigh byte = 0x0C
)

// Bits of the RTC day-high register.
const (
	RTCDayBit8 byte = 0x01
	RTCHalt    byte = 0x40
	RTCCarry   byte = 0x80
)

// rtcFooterSize is the size of the clock block appended to saved RAM:
// five live and five latched registers as 32-bit LE words, then a 64-bit timestamp.
const rtcFooterSize = 48

// nowUnix is the wall clock used by cartridges without an explicit clock.
var nowUnix = func() int64 { return time.Now().Unix() }

type MBC3 struct {
	rom     []byte
	ram     extRAM
	battery bool

	romBank byte // 7 bits (1..127)
	ramBank byte // 0..3, or an RTC select value

	hasRTC bool
	now    func() int64

	// running counters
	rtcSec, rtcMin, rtcHour byte
	rtcDay                  uint16 // 9 bits
	rtcHalt, rtcCarry       bool
	lastRTCWallSec          int64

	// latched copies, indexed by select value - RTCSeconds
	latched   [5]byte
	latchPrev byte
}

func NewMBC3(rom []byte, ramSize int) *MBC3 {
	m := &MBC3{rom: rom, ram: newExtRAM(ramSize), battery: true, hasRTC: true, romBank: 1}
	m.lastRTCWallSec = m.clock()
	return m
}

// SetClock replaces the time source driving the RTC counters.
func (m *MBC3) SetClock(now func() int64) {
	m.advance()
	m.now = now
	m.lastRTCWallSec = m.clock()
}

func (m *MBC3) clock() int64 {
	if m.now != nil {
		return m.now()
	}
	return nowUnix()
}

func (m *MBC3) rtcSelected() bool {
	return m.hasRTC && m.ramBank >= RTCSeconds && m.ramBank <= RTCDayHigh
}

func (m *MBC3) Read(addr uint16) byte {
	m.advance()
	switch {
	case addr < 0x4000:
		return romByte(m.rom, 0, addr)
	case addr < 0x8000:
		return romByte(m.rom, int(m.romBank), addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.rtcSelected() {
			if !m.ram.enabled {
				return 0xFF
			}
			return m.latched[m.ramBank-RTCSeconds]
		}
		if m.ramBank > 0x03 {
			return 0xFF
		}
		return m.ram.read(int(m.ramBank), addr)
	}
	return 0xFF
}

func (m *MBC3) Write(addr uint16, value byte) {
	m.advance()
	switch {
	case addr < 0x2000:
		m.ram.enable(value)
	case addr < 0x4000:
		v := value & 0x7F
		if v == 0 {
			v = 1
		}
		m.romBank = v
	case addr < 0x6000:
		m.ramBank = value & 0x0F
	case addr < 0x8000:
		if m.latchPrev == 0x00 && value == 0x01 {
			m.latch()
		}
		m.latchPrev = value
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.rtcSelected() {
			if m.ram.enabled {
				m.writeRTC(m.ramBank, value)
			}
			return
		}
		if m.ramBank <= 0x03 {
			m.ram.write(int(m.ramBank), addr, value)
		}
	}
}

// Writes land on the running counters; they become readable after the next latch.
func (m *MBC3) writeRTC(reg, value byte) {
	switch reg {
	case RTCSeconds:
		m.rtcSec = value & 0x3F
	case RTCMinutes:
		m.rtcMin = value & 0x3F
	case RTCHours:
		m.rtcHour = value & 0x1F
	case RTCDayLow:
		m.rtcDay = m.rtcDay&0x100 | uint16(value)
	case RTCDayHigh:
		m.rtcDay = m.rtcDay&0xFF | uint16(value&RTCDayBit8)<<8
		m.rtcHalt = value&RTCHalt != 0
		m.rtcCarry = value&RTCCarry != 0
	}
}

func (m *MBC3) dayHigh() byte {
	v := byte(m.rtcDay>>8) & RTCDayBit8
	if m.rtcHalt {
		v |= RTCHalt
	}
	if m.rtcCarry {
		v |= RTCCarry
	}
	return v
}

func (m *MBC3) latch() {
	m.latched = [5]byte{m.rtcSec, m.rtcMin, m.rtcHour, byte(m.rtcDay), m.dayHigh()}
}

// advance moves the running counters forward by the time elapsed since the last call.
func (m *MBC3) advance() {
	if !m.hasRTC {
		return
	}
	now := m.clock()
	elapsed := now - m.lastRTCWallSec
	m.lastRTCWallSec = now
	if m.rtcHalt || elapsed <= 0 {
		return
	}
	s := int64(m.rtcSec) + elapsed
	mi := int64(m.rtcMin) + s/60
	h := int64(m.rtcHour) + mi/60
	d := int64(m.rtcDay) + h/24
	m.rtcSec, m.rtcMin, m.rtcHour = byte(s%60), byte(mi%60), byte(h%24)
	if d > 0x1FF {
		m.rtcCarry = true
		d &= 0x1FF
	}
	m.rtcDay = uint16(d)
}

// BatteryBacked implementation. RTC carts append a clock footer after RAM.
func (m *MBC3) SaveRAM() []byte {
	if !m.battery {
		return nil
	}
	out := m.ram.snapshot()
	if !m.hasRTC {
		return out
	}
	m.advance()
	var footer [rtcFooterSize]byte
	live := [5]byte{m.rtcSec, m.rtcMin, m.rtcHour, byte(m.rtcDay), m.dayHigh()}
	for i, v := range live {
		binary.LittleEndian.PutUint32(footer[i*4:], uint32(v))
	}
	for i, v := range m.latched {
		binary.LittleEndian.PutUint32(footer[20+i*4:], uint32(v))
	}
	binary.LittleEndian.PutUint64(footer[40:], uint64(m.lastRTCWallSec))
	return append(out, footer[:]...)
}

func (m *MBC3) LoadRAM(data []byte) {
	if len(data) == 0 {
		return
	}
	m.ram.restore(data)
	size := len(m.ram.data)
	if !m.hasRTC || len(data) < size+rtcFooterSize {
		return
	}
	footer := data[size : size+rtcFooterSize]
	var live [5]byte
	for i := range live {
		live[i] = byte(binary.LittleEndian.Uint32(footer[i*4:]))
	}
	for i := range m.latched {
		m.latched[i] = byte(binary.LittleEndian.Uint32(footer[20+i*4:]))
	}
	m.rtcSec, m.rtcMin, m.rtcHour = live[0], live[1], live[2]
	m.rtcDay = uint16(live[3]) | uint16(live[4]&RTCDayBit8)<<8
	m.rtcHalt = live[4]&RTCHalt != 0
	m.rtcCarry = live[4]&RTCCarry != 0
	// Catch up on the time that passed while the image was stored. A stamp
	// from a different time base (ahead of the current clock) is discarded.
	saved := int64(binary.LittleEndian.Uint64(footer[40:]))
	if now := m.clock(); saved > now {
		saved = now
	}
	m.lastRTCWallSec = saved
	m.advance()
}
