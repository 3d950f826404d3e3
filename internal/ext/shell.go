package ext

import "strings"

// Cursor is a host cursor shape requested by the guest.
type Cursor int

const (
	CursorNone Cursor = iota
	CursorPointer
	CursorHand
	CursorBusy
)

// ParseCursor resolves a cursor name; unknown or empty names give CursorPointer.
func ParseCursor(name string) Cursor {
	switch name {
	case "none":
		return CursorNone
	case "hand":
		return CursorHand
	case "busy":
		return CursorBusy
	}
	return CursorPointer
}

func (c Cursor) String() string {
	switch c {
	case CursorNone:
		return "none"
	case CursorHand:
		return "hand"
	case CursorBusy:
		return "busy"
	}
	return "pointer"
}

// CommandKind classifies a shell-channel command by its prefix.
type CommandKind int

const (
	CommandEmpty CommandKind = iota
	CommandURL
	CommandReveal
	CommandSync
	CommandDebug
	CommandCursor
	CommandPause
	CommandStop
	CommandExec
)

var commandNames = [...]string{"empty", "url", "reveal", "sync", "debug", "cursor", "pause", "stop", "exec"}

func (k CommandKind) String() string {
	if int(k) < len(commandNames) {
		return commandNames[k]
	}
	return "unknown"
}

// Command is a parsed shell-channel command.
type Command struct {
	Kind CommandKind
	Arg  string // URL, path, sync name, debug text, cursor name or shell line
}

// ParseCommand splits a raw command into its kind and argument.
func ParseCommand(s string) Command {
	switch {
	case s == "":
		return Command{Kind: CommandEmpty}
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		return Command{Kind: CommandURL, Arg: s}
	case strings.HasPrefix(s, "file://"):
		return Command{Kind: CommandReveal, Arg: strings.TrimPrefix(s, "file://")}
	case strings.HasPrefix(s, "@"):
		return Command{Kind: CommandSync, Arg: s[1:]}
	case strings.HasPrefix(s, ">"):
		return Command{Kind: CommandDebug, Arg: s[1:]}
	case strings.HasPrefix(s, "^"):
		return Command{Kind: CommandCursor, Arg: s[1:]}
	case strings.HasPrefix(s, "||"):
		return Command{Kind: CommandPause}
	case strings.HasPrefix(s, "[]"):
		return Command{Kind: CommandStop}
	}
	return Command{Kind: CommandExec, Arg: s}
}

// zeroPadded returns the bytes of b up to the first zero.
func zeroPadded(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
