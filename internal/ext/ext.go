// Package ext implements the extension channels: byte-oriented host
// services multiplexed over a handful of memory-mapped registers in guest
// WRAM and serviced by one poll per tick.
package ext

import (
	"log/slog"
	"runtime"
)

// Memory is the guest bus the registers live on.
type Memory interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
}

// DebugListener receives guest notifications.
type DebugListener interface {
	Streamed(data []byte)
	Sync(name string)
	Debug(text string)
	Cursor(mode Cursor)
	Paused()
	Stopped()
}

// Host provides the OS services reachable from the shell channel.
type Host interface {
	OpenURL(url string) error
	RevealPath(path string) error
	Execute(command string) error
}

// OSFamily identifies the host operating system in the platform register.
type OSFamily byte

const (
	OSOther   OSFamily = 0
	OSWindows OSFamily = 1
	OSDarwin  OSFamily = 2
	OSLinux   OSFamily = 3
)

// CurrentOS maps runtime.GOOS to an OSFamily.
func CurrentOS() OSFamily {
	switch runtime.GOOS {
	case "windows":
		return OSWindows
	case "darwin", "ios":
		return OSDarwin
	case "linux", "android":
		return OSLinux
	}
	return OSOther
}

const platformEditor = 0x80

// Platform is written to the platform and locale registers once at open.
type Platform struct {
	OS     OSFamily
	Editor bool
	Locale byte
}

func (p Platform) register() byte {
	v := byte(p.OS) & 0x0F
	if p.Editor {
		v |= platformEditor
	}
	return v
}

// Multiplexer services the extension channels.
type Multiplexer struct {
	mem      Memory
	listener DebugListener
	host     Host
	log      *slog.Logger

	stream []byte // nil until the first byte of a stream arrives
	shell  [ShellSize]byte
	key    mailbox
}

func New(mem Memory, listener DebugListener, host Host, log *slog.Logger) *Multiplexer {
	if log == nil {
		log = slog.Default()
	}
	return &Multiplexer{mem: mem, listener: listener, host: host, log: log}
}

// Open writes the platform registers and puts every channel in its idle state.
func (x *Multiplexer) Open(p Platform) {
	x.mem.Write(RegPlatform, p.register())
	x.mem.Write(RegLocale, p.Locale)
	x.mem.Write(RegStreamStatus, byte(StatusReady))
	x.mem.Write(RegStreamData, 0)
	x.mem.Write(RegShellStatus, byte(StatusReady))
	for i := uint16(0); i < ShellSize; i++ {
		x.mem.Write(RegShellBuffer+i, 0)
	}
	x.mem.Write(RegKey, KeyNone)
	x.resetTouch()
	x.stream = nil
	x.key = mailbox{}
}

// Pending returns the bytes accumulated on the streaming channel.
func (x *Multiplexer) Pending() []byte { return x.stream }

// Poll services every channel once.
func (x *Multiplexer) Poll(in *Input) {
	x.pollStream()
	x.pollShell()
	x.pollInput(in)
}

// pollStream moves one byte per tick: the guest moves status off READY to
// hand over a byte and the host moves it back once consumed.
func (x *Multiplexer) pollStream() {
	switch statusOf(x.mem.Read(RegStreamStatus)) {
	case StatusReady, StatusBusy:
		return
	case StatusEOS:
		data := x.stream
		x.stream = nil
		x.mem.Write(RegStreamStatus, byte(StatusReady))
		if x.listener != nil {
			x.listener.Streamed(data)
		}
	default:
		if x.stream == nil {
			x.stream = make([]byte, 0, 64)
		}
		x.stream = append(x.stream, x.mem.Read(RegStreamData))
		x.mem.Write(RegStreamData, 0)
		x.mem.Write(RegStreamStatus, byte(StatusReady))
	}
}

// pollShell takes at most one command. A command the guest writes over an
// unpolled one replaces it.
func (x *Multiplexer) pollShell() {
	switch statusOf(x.mem.Read(RegShellStatus)) {
	case StatusReady, StatusBusy:
		return
	}
	for i := range x.shell {
		addr := RegShellBuffer + uint16(i)
		x.shell[i] = x.mem.Read(addr)
		x.mem.Write(addr, 0)
	}
	x.mem.Write(RegShellStatus, byte(StatusReady))
	x.dispatch(ParseCommand(zeroPadded(x.shell[:])))
}

func (x *Multiplexer) dispatch(cmd Command) {
	var err error
	switch cmd.Kind {
	case CommandEmpty:
		return
	case CommandURL, CommandReveal, CommandExec:
		if x.host == nil {
			x.log.Debug("no host for shell command", "kind", cmd.Kind, "arg", cmd.Arg)
			return
		}
	}
	switch cmd.Kind {
	case CommandURL:
		err = x.host.OpenURL(cmd.Arg)
	case CommandReveal:
		err = x.host.RevealPath(cmd.Arg)
	case CommandExec:
		err = x.host.Execute(cmd.Arg)
	default:
		x.notify(cmd)
		return
	}
	if err != nil {
		x.log.Warn("shell command failed", "kind", cmd.Kind, "arg", cmd.Arg, "err", err)
	}
}

func (x *Multiplexer) notify(cmd Command) {
	if x.listener == nil {
		return
	}
	switch cmd.Kind {
	case CommandSync:
		x.listener.Sync(cmd.Arg)
	case CommandDebug:
		x.listener.Debug(cmd.Arg)
	case CommandCursor:
		x.listener.Cursor(ParseCursor(cmd.Arg))
	case CommandPause:
		x.listener.Paused()
	case CommandStop:
		x.listener.Stopped()
	}
}

func (x *Multiplexer) pollInput(in *Input) {
	if in == nil || !in.Enabled {
		x.mem.Write(RegModifiers, 0)
		return
	}
	x.mem.Write(RegJoypad, in.joypad())
	if in.HasPointer {
		x.mem.Write(RegTouchX, clampByte(in.Pointer.X, 159))
		x.mem.Write(RegTouchY, clampByte(in.Pointer.Y, 143))
		x.mem.Write(RegTouchButtons, in.Pointer.Buttons&0x03)
	} else {
		x.resetTouch()
	}

	// The register reads back KeyNone once the guest consumed the last key.
	if x.key.full && x.mem.Read(RegKey) == KeyNone {
		x.key.take()
	}
	if !x.key.full {
		if k, ok := in.Keys.Pop(); ok {
			x.key.put(k)
			x.mem.Write(RegKey, k)
		}
	}
	x.mem.Write(RegModifiers, in.Modifiers)
}

func (x *Multiplexer) resetTouch() {
	x.mem.Write(RegTouchX, TouchNone)
	x.mem.Write(RegTouchY, TouchNone)
	x.mem.Write(RegTouchButtons, TouchNone)
}
