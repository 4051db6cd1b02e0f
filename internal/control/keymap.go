package control

import "strings"

// namedKeys maps the symbolic key names accepted by the sendKeys
// command to the byte sequences a terminal application expects to see on
// its input stream (arrow keys and navigation keys use the common
// ANSI/VT220 CSI sequences; function keys use xterm's conventional
// encoding).
var namedKeys = map[string][]byte{
	"Enter":     {'\r'},
	"Tab":       {'\t'},
	"Escape":    {0x1b},
	"Backspace": {0x7f},
	"Space":     {' '},
	"Up":        []byte("\x1b[A"),
	"Down":      []byte("\x1b[B"),
	"Right":     []byte("\x1b[C"),
	"Left":      []byte("\x1b[D"),
	"Home":      []byte("\x1b[H"),
	"End":       []byte("\x1b[F"),
	"PageUp":    []byte("\x1b[5~"),
	"PageDown":  []byte("\x1b[6~"),
	"Insert":    []byte("\x1b[2~"),
	"Delete":    []byte("\x1b[3~"),
	"F1":        []byte("\x1bOP"),
	"F2":        []byte("\x1bOQ"),
	"F3":        []byte("\x1bOR"),
	"F4":        []byte("\x1bOS"),
	"F5":        []byte("\x1b[15~"),
	"F6":        []byte("\x1b[17~"),
	"F7":        []byte("\x1b[18~"),
	"F8":        []byte("\x1b[19~"),
	"F9":        []byte("\x1b[20~"),
	"F10":       []byte("\x1b[21~"),
	"F11":       []byte("\x1b[23~"),
	"F12":       []byte("\x1b[24~"),
}

// ResolveKeys concatenates the byte sequences for a sendKeys command's
// key list. Each element is resolved independently; an element that
// resolves to nothing recognizable is passed through as literal text,
// unresolved strings are passed through verbatim.
func ResolveKeys(keys []string) []byte {
	var out []byte
	for _, k := range keys {
		out = append(out, resolveKey(k)...)
	}
	return out
}

func resolveKey(tok string) []byte {
	switch {
	case strings.HasPrefix(tok, "^") && len(tok) == 2:
		return []byte{ctrlByte(tok[1])}
	case strings.HasPrefix(tok, "C-"):
		return resolveCtrl(tok[2:])
	case strings.HasPrefix(tok, "A-"):
		return append([]byte{0x1b}, resolveKey(tok[2:])...)
	case strings.HasPrefix(tok, "S-"):
		return resolveShift(tok[2:])
	}
	if b, ok := namedKeys[tok]; ok {
		return b
	}
	return []byte(tok)
}

func resolveCtrl(rest string) []byte {
	if len(rest) == 1 {
		return []byte{ctrlByte(rest[0])}
	}
	if b, ok := namedKeys[rest]; ok {
		return b
	}
	return []byte(rest)
}

func resolveShift(rest string) []byte {
	if b, ok := namedKeys[rest]; ok {
		return b
	}
	return []byte(strings.ToUpper(rest))
}

// ctrlByte computes the control-character byte for an ASCII letter, e.g.
// 'c' -> 0x03 (Ctrl-C).
func ctrlByte(b byte) byte {
	return b & 0x1f
}
