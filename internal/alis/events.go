package alis

// Magic is the five-byte preamble sent once at the start of every ALiS
// stream: "ALiS" followed by the version byte 0x01.
var Magic = []byte{'A', 'L', 'i', 'S', 0x01}

// Event type bytes.
const (
	TypeInit   byte = 0x01
	TypeEOT    byte = 0x04
	TypeInput  byte = 0x69 // 'i'
	TypeMarker byte = 0x6D // 'm'
	TypeOutput byte = 0x6F // 'o'
	TypeResize byte = 0x72 // 'r'
	TypeExit   byte = 0x78 // 'x'
)

// EncodeInit encodes an Init event: lastID, relTime (microseconds),
// cols, rows, theme, then the init-data string (a VT dump used by a
// late-joining consumer to reproduce the current screen in one message).
func EncodeInit(lastID, relTimeMicros uint64, cols, rows uint16, theme *Theme, initData string) ([]byte, error) {
	themeBytes, err := EncodeTheme(theme)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 16+len(themeBytes)+len(initData))
	buf = append(buf, TypeInit)
	buf = append(buf, EncodeLEB128(lastID)...)
	buf = append(buf, EncodeLEB128(relTimeMicros)...)
	buf = append(buf, EncodeLEB128(uint64(cols))...)
	buf = append(buf, EncodeLEB128(uint64(rows))...)
	buf = append(buf, themeBytes...)
	buf = append(buf, EncodeString(initData)...)
	return buf, nil
}

// EncodeOutput encodes an Output event.
func EncodeOutput(id, relTimeMicros uint64, data string) []byte {
	buf := make([]byte, 0, 16+len(data))
	buf = append(buf, TypeOutput)
	buf = append(buf, EncodeLEB128(id)...)
	buf = append(buf, EncodeLEB128(relTimeMicros)...)
	buf = append(buf, EncodeString(data)...)
	return buf
}

// EncodeInput encodes an Input event.
func EncodeInput(id, relTimeMicros uint64, data string) []byte {
	buf := make([]byte, 0, 16+len(data))
	buf = append(buf, TypeInput)
	buf = append(buf, EncodeLEB128(id)...)
	buf = append(buf, EncodeLEB128(relTimeMicros)...)
	buf = append(buf, EncodeString(data)...)
	return buf
}

// EncodeResize encodes a Resize event.
func EncodeResize(id, relTimeMicros uint64, cols, rows uint16) []byte {
	buf := make([]byte, 0, 20)
	buf = append(buf, TypeResize)
	buf = append(buf, EncodeLEB128(id)...)
	buf = append(buf, EncodeLEB128(relTimeMicros)...)
	buf = append(buf, EncodeLEB128(uint64(cols))...)
	buf = append(buf, EncodeLEB128(uint64(rows))...)
	return buf
}

// EncodeMarker encodes a Marker event.
func EncodeMarker(id, relTimeMicros uint64, label string) []byte {
	buf := make([]byte, 0, 16+len(label))
	buf = append(buf, TypeMarker)
	buf = append(buf, EncodeLEB128(id)...)
	buf = append(buf, EncodeLEB128(relTimeMicros)...)
	buf = append(buf, EncodeString(label)...)
	return buf
}

// EncodeExit encodes an Exit event. status is a signed process exit
// status encoded via unsigned LEB128 (asciicast v3 keeps the exit field
// as a signed JSON number instead; the two representations are never
// shared through one code path).
func EncodeExit(id, relTimeMicros uint64, status int32) []byte {
	buf := make([]byte, 0, 16)
	buf = append(buf, TypeExit)
	buf = append(buf, EncodeLEB128(id)...)
	buf = append(buf, EncodeLEB128(relTimeMicros)...)
	buf = append(buf, EncodeLEB128(uint64(int64(status)))...)
	return buf
}

// EncodeEOT encodes an End-of-Transmission event: it carries no payload
// beyond id and relTime, and signals the end of a logical stream without
// closing the underlying transport.
func EncodeEOT(id, relTimeMicros uint64) []byte {
	buf := make([]byte, 0, 8)
	buf = append(buf, TypeEOT)
	buf = append(buf, EncodeLEB128(id)...)
	buf = append(buf, EncodeLEB128(relTimeMicros)...)
	return buf
}
