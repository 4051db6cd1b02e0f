package alis

import "testing"

func TestMagicBytes(t *testing.T) {
	if len(Magic) != 5 {
		t.Fatalf("expected 5-byte magic, got %d", len(Magic))
	}
	if string(Magic[:4]) != "ALiS" || Magic[4] != 0x01 {
		t.Fatalf("expected ALiS\\x01, got % X", Magic)
	}
}

// TestInitEncodingGoldenBytes covers cols=80, rows=24, no theme, init
// data "Hello!", fresh stream (last_id=0, time=0).
func TestInitEncodingGoldenBytes(t *testing.T) {
	got, err := EncodeInit(0, 0, 80, 24, nil, "Hello!")
	if err != nil {
		t.Fatalf("EncodeInit: %v", err)
	}
	want := []byte{0x01, 0x00, 0x00, 0x50, 0x18, 0x00, 0x06, 0x48, 0x65, 0x6C, 0x6C, 0x6F, 0x21}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got % X want % X", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d mismatch: got % X want % X", i, got, want)
		}
	}
}

func TestOutputEventEncoding(t *testing.T) {
	got := EncodeOutput(1, 1000, "hello")
	if got[0] != TypeOutput {
		t.Fatalf("expected type byte %X, got %X", TypeOutput, got[0])
	}
	if got[1] != 0x01 {
		t.Fatalf("expected id byte 0x01, got %X", got[1])
	}
	if got[2] != 0xE8 || got[3] != 0x07 {
		t.Fatalf("expected rel_time 1000 as [0xE8,0x07], got [%X,%X]", got[2], got[3])
	}
	if got[4] != 0x05 {
		t.Fatalf("expected string length 5, got %X", got[4])
	}
	if string(got[5:]) != "hello" {
		t.Fatalf("expected data %q, got %q", "hello", got[5:])
	}
}

func TestResizeEventEncoding(t *testing.T) {
	got := EncodeResize(2, 500, 80, 24)
	want := []byte{TypeResize, 0x02, 0xF4, 0x03, 0x50, 0x18}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got % X want % X", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d mismatch: got % X want % X", i, got, want)
		}
	}
}

func TestMarkerEventEncoding(t *testing.T) {
	got := EncodeMarker(3, 100, "chapter 1")
	if got[0] != TypeMarker || got[1] != 0x03 || got[2] != 0x64 || got[3] != 0x09 {
		t.Fatalf("unexpected header bytes: % X", got[:4])
	}
	if string(got[4:]) != "chapter 1" {
		t.Fatalf("unexpected label: %q", got[4:])
	}
}

func TestExitEventEncodingZero(t *testing.T) {
	got := EncodeExit(4, 200, 0)
	want := []byte{TypeExit, 0x04, 0xC8, 0x01, 0x00}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got % X want % X", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d mismatch: got % X want % X", i, got, want)
		}
	}
}

func TestExitEventEncodingNegativeStatus(t *testing.T) {
	got := EncodeExit(1, 0, -1)
	if got[0] != TypeExit {
		t.Fatalf("expected exit type byte")
	}
	value, n := DecodeLEB128(got[3:])
	if n == 0 {
		t.Fatal("failed to decode status")
	}
	if int64(value) != -1 {
		t.Fatalf("expected sign-extended status -1, got %d", int64(value))
	}
}

func TestEOTEventEncoding(t *testing.T) {
	got := EncodeEOT(5, 300)
	want := []byte{TypeEOT, 0x05, 0xAC, 0x02}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got % X want % X", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d mismatch: got % X want % X", i, got, want)
		}
	}
	if len(got) != 4 {
		t.Fatalf("expected exactly 4 bytes (no payload), got %d", len(got))
	}
}

func TestEventTypeBytesAreInSpecSet(t *testing.T) {
	allowed := map[byte]bool{
		TypeInit: true, TypeEOT: true, TypeInput: true,
		TypeMarker: true, TypeOutput: true, TypeResize: true, TypeExit: true,
	}
	for name, b := range map[string]byte{
		"init": TypeInit, "eot": TypeEOT, "input": TypeInput,
		"marker": TypeMarker, "output": TypeOutput, "resize": TypeResize, "exit": TypeExit,
	} {
		if !allowed[b] {
			t.Errorf("%s byte %X not in spec set", name, b)
		}
	}
}

func TestThemeEncodingNone(t *testing.T) {
	got, err := EncodeTheme(nil)
	if err != nil {
		t.Fatalf("EncodeTheme(nil): %v", err)
	}
	if len(got) != 1 || got[0] != themeFormatNone {
		t.Fatalf("expected single 0x00 byte, got % X", got)
	}
}

func TestThemeEncoding8Palette(t *testing.T) {
	theme := &Theme{
		Fg:      "#ffffff",
		Bg:      "#000000",
		Palette: []string{"#000000", "#ff0000", "#00ff00", "#0000ff", "#ffff00", "#ff00ff", "#00ffff", "#ffffff"},
	}
	got, err := EncodeTheme(theme)
	if err != nil {
		t.Fatalf("EncodeTheme: %v", err)
	}
	if len(got) != 31 {
		t.Fatalf("expected 31 bytes (format byte + 30) for 8-entry palette theme, got %d", len(got))
	}
	if got[0] != themeFormatPalette8 {
		t.Fatalf("expected format byte 0x08, got %X", got[0])
	}
}

func TestThemeEncoding16Palette(t *testing.T) {
	palette := make([]string, 16)
	for i := range palette {
		palette[i] = "#112233"
	}
	theme := &Theme{Fg: "#ffffff", Bg: "#000000", Palette: palette}
	got, err := EncodeTheme(theme)
	if err != nil {
		t.Fatalf("EncodeTheme: %v", err)
	}
	if len(got) != 55 {
		t.Fatalf("expected 55 bytes (format byte + 54) for 16-entry palette theme, got %d", len(got))
	}
	if got[0] != themeFormatPalette16 {
		t.Fatalf("expected format byte 0x10, got %X", got[0])
	}
}
