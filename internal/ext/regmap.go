package ext

// Register map of the extension channels. Guest code targets these
// addresses directly, so they must not move.
const (
	RegPlatform     uint16 = 0xDF00 // OS family (bits 0-3) and editor-host flag (bit 7)
	RegLocale       uint16 = 0xDF01
	RegJoypad       uint16 = 0xDF02
	RegTouchX       uint16 = 0xDF03
	RegTouchY       uint16 = 0xDF04
	RegTouchButtons uint16 = 0xDF05
	RegKey          uint16 = 0xDF06
	RegModifiers    uint16 = 0xDF07
	RegStreamStatus uint16 = 0xDF08
	RegStreamData   uint16 = 0xDF09
	RegShellStatus  uint16 = 0xDF0A
	RegShellBuffer  uint16 = 0xDF10

	ShellSize = 128
)

// Sentinels written when there is nothing to report.
const (
	TouchNone byte = 0xFF
	KeyNone   byte = 0x00
)

// Joypad packet bits.
const (
	PadRight byte = 1 << iota
	PadLeft
	PadUp
	PadDown
	PadA
	PadB
	PadSelect
	PadStart
)

// Keyboard modifier bits.
const (
	ModShift byte = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// Status is the state of a channel's status register.
type Status byte

const (
	StatusReady  Status = 0x00 // host waits for the guest
	StatusBusy   Status = 0x01 // guest is still writing
	StatusFilled Status = 0x02 // guest has a byte or command for the host
	StatusEOS    Status = 0x03 // end of stream
)

// statusOf folds a raw register value into a Status. Values outside the
// enumeration mean the guest moved the register off READY/BUSY, which the
// channels treat as FILLED.
func statusOf(v byte) Status {
	switch s := Status(v); s {
	case StatusReady, StatusBusy, StatusEOS:
		return s
	}
	return StatusFilled
}

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusBusy:
		return "busy"
	case StatusFilled:
		return "filled"
	case StatusEOS:
		return "eos"
	}
	return "unknown"
}
