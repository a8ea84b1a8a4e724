package protocol

import (
	"bytes"
	"strings"
)

// Heartbeat is the no-op line the daemon emits on the interface socket.
const Heartbeat = "nop"

// Effect is the kind of client-side effect the daemon asks for after an action.
type Effect int

const (
	EffectUnknown Effect = iota
	EffectClipboardCopy
	EffectLaunchURL
	EffectShellTouch
)

var effectCommands = map[string]Effect{
	"copy_to_clipboard": EffectClipboardCopy,
	"launch_url":        EffectLaunchURL,
	"shell_touch":       EffectShellTouch,
}

// Command returns the interface-socket command name for e.
func (e Effect) Command() string {
	for name, effect := range effectCommands {
		if effect == e {
			return name
		}
	}
	return ""
}

func (e Effect) String() string {
	switch e {
	case EffectClipboardCopy:
		return "clipboard_copy"
	case EffectLaunchURL:
		return "launch_url"
	case EffectShellTouch:
		return "shell_touch"
	default:
		return "unknown"
	}
}

// MarshalText renders the effect by name in JSON output.
func (e Effect) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// ParseEffect maps an interface-socket line to its effect kind.
func ParseEffect(line string) (Effect, bool) {
	effect, ok := effectCommands[line]
	return effect, ok
}

// Confirmation is an effect command together with its payload line.
type Confirmation struct {
	Effect  Effect `json:"effect"`
	Payload string `json:"payload"`
}

// Value is the payload with any leading "key<TAB>" label removed.
func (c Confirmation) Value() string {
	if _, rest, ok := strings.Cut(c.Payload, fieldSeparator); ok {
		return rest
	}
	return c.Payload
}

// Scan is the result of scanning buffered interface-socket bytes.
type Scan struct {
	Confirmation *Confirmation
	// Rest is the unconsumed tail: a partial line, or an effect command whose
	// payload line has not arrived yet.
	Rest []byte
	// Heartbeats counts discarded nop/done lines.
	Heartbeats int
	// Discarded counts other lines that were skipped.
	Discarded int
}

// ScanNotifications walks the complete lines of buf looking for the first
// effect command with its payload. Incomplete input is never an error; it is
// handed back in Rest for the next read.
func ScanNotifications(buf []byte) Scan {
	var scan Scan
	end := bytes.LastIndexByte(buf, '\n')
	if end < 0 {
		scan.Rest = buf
		return scan
	}
	lines := strings.Split(string(buf[:end]), "\n")
	offset := 0
	for i, line := range lines {
		if effect, ok := ParseEffect(line); ok {
			if i+1 >= len(lines) {
				break
			}
			scan.Confirmation = &Confirmation{Effect: effect, Payload: lines[i+1]}
			offset += len(line) + len(lines[i+1]) + 2
			scan.Rest = buf[offset:]
			return scan
		}
		switch line {
		case Heartbeat, Terminator, "":
			scan.Heartbeats++
		default:
			scan.Discarded++
		}
		offset += len(line) + 1
	}
	scan.Rest = buf[offset:]
	return scan
}
