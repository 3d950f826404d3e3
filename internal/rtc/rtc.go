// Package rtc drives a cartridge real-time clock through the save-RAM bank
// window: the clock registers are banked in place of RAM, selected by a bank
// number and made readable by a latch pulse.
package rtc

import (
	"math"
	"time"
)

// Part names an RTC sub-register. Day is the 9-bit day counter spread over
// DayLow and bit 0 of DayHigh.
type Part int

const (
	Seconds Part = iota
	Minutes
	Hours
	DayLow
	DayHigh
	Day
)

// Guest addresses of the bank window.
const (
	AddrEnable = 0x0000
	AddrSelect = 0x4000
	AddrLatch  = 0x6000
	AddrData   = 0xA000
)

const (
	enableValue = 0x0A
	selectBase  = 0x08
	selectMask  = 0x0F

	// FlagDayBit8 holds bit 8 of the day counter, FlagHalt stops the timer,
	// FlagCarry reports a day counter overflow.
	FlagDayBit8 = 0x01
	FlagHalt    = 0x40
	FlagCarry   = 0x80
)

// LatchInterval is the emulated time between automatic latch pulses.
const LatchInterval = 0.5

// Memory is the guest bus the clock is reached through.
type Memory interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
}

// Clock drives the peripheral. It holds no time of its own beyond the
// accumulator for the automatic latch.
type Clock struct {
	mem      Memory
	selected Part
	elapsed  float64
}

func New(mem Memory) *Clock {
	return &Clock{mem: mem, selected: -1}
}

// Open enables the peripheral, starts it, latches once and seeds the
// counters from now.
func (c *Clock) Open(now time.Time) {
	c.mem.Write(AddrEnable, enableValue)
	c.Start(true)
	c.Latch()
	c.Seed(now)
}

// Seed writes the current day, hour, minute and second. The day counter
// holds the day of the year; there is no notion of a calendar date.
func (c *Clock) Seed(now time.Time) {
	c.Set(Seconds, now.Second())
	c.Set(Minutes, now.Minute())
	c.Set(Hours, now.Hour())
	c.Set(Day, now.YearDay())
}

// Selected returns the sub-register chosen by the last Select, or -1.
func (c *Clock) Selected() Part { return c.selected }

// Select banks part into the data window.
func (c *Clock) Select(p Part) {
	if p == Day {
		p = DayLow
	}
	c.mem.Write(AddrSelect, (selectBase+byte(p))&selectMask)
	c.selected = p
}

// Start clears (enable) or sets the halt flag, keeping the other flag bits.
func (c *Clock) Start(enable bool) {
	flags := c.runningFlags()
	if enable {
		flags &^= FlagHalt
	} else {
		flags |= FlagHalt
	}
	c.mem.Write(AddrData, flags)
}

// Latch pulses the latch register, copying the running counters into the
// readable registers.
func (c *Clock) Latch() {
	c.mem.Write(AddrLatch, 0x00)
	c.mem.Write(AddrLatch, 0x01)
}

// Get reads a latched sub-register.
func (c *Clock) Get(p Part) int {
	if p == Day {
		low := c.Get(DayLow)
		high := c.Get(DayHigh)
		return low | (high&FlagDayBit8)<<8
	}
	c.Select(p)
	return int(c.mem.Read(AddrData))
}

// Set writes a running sub-register. The value becomes readable after the
// next latch.
func (c *Clock) Set(p Part, v int) {
	if p == Day {
		flags := c.runningFlags()&^FlagDayBit8 | byte(v>>8)&FlagDayBit8
		c.Set(DayLow, v&0xFF)
		c.Select(DayHigh)
		c.mem.Write(AddrData, flags)
		return
	}
	c.Select(p)
	c.mem.Write(AddrData, byte(v))
}

// runningFlags returns the live flags byte and leaves DayHigh selected.
// The data window shows latched values, so the counters are latched first.
func (c *Clock) runningFlags() byte {
	c.Latch()
	c.Select(DayHigh)
	return c.mem.Read(AddrData)
}

// Advance accumulates emulated seconds and issues a latch pulse whenever
// LatchInterval has passed. It reports whether it latched.
func (c *Clock) Advance(seconds float64) bool {
	c.elapsed += seconds
	if c.elapsed < LatchInterval {
		return false
	}
	c.elapsed = math.Mod(c.elapsed, LatchInterval)
	c.Latch()
	return true
}
