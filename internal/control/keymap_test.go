package control

import (
	"bytes"
	"testing"
)

func TestResolveKeysNamed(t *testing.T) {
	cases := []struct {
		in   string
		want []byte
	}{
		{"Enter", []byte("\r")},
		{"Tab", []byte("\t")},
		{"Escape", []byte("\x1b")},
		{"Up", []byte("\x1b[A")},
		{"F1", []byte("\x1bOP")},
	}
	for _, c := range cases {
		got := ResolveKeys([]string{c.in})
		if !bytes.Equal(got, c.want) {
			t.Errorf("ResolveKeys(%q) = % X, want % X", c.in, got, c.want)
		}
	}
}

func TestResolveKeysCtrlShorthand(t *testing.T) {
	got := ResolveKeys([]string{"^c"})
	if !bytes.Equal(got, []byte{0x03}) {
		t.Errorf("ResolveKeys(^c) = % X, want 03", got)
	}
}

func TestResolveKeysCtrlPrefix(t *testing.T) {
	got := ResolveKeys([]string{"C-a"})
	if !bytes.Equal(got, []byte{0x01}) {
		t.Errorf("ResolveKeys(C-a) = % X, want 01", got)
	}
}

func TestResolveKeysAltPrefix(t *testing.T) {
	got := ResolveKeys([]string{"A-x"})
	want := append([]byte{0x1b}, 'x')
	if !bytes.Equal(got, want) {
		t.Errorf("ResolveKeys(A-x) = % X, want % X", got, want)
	}
}

func TestResolveKeysLiteralPassthrough(t *testing.T) {
	got := ResolveKeys([]string{"hello"})
	if string(got) != "hello" {
		t.Errorf("ResolveKeys(hello) = %q, want %q", got, "hello")
	}
}

func TestResolveKeysConcatenatesSequence(t *testing.T) {
	got := ResolveKeys([]string{"hello", "Enter"})
	want := append([]byte("hello"), '\r')
	if !bytes.Equal(got, want) {
		t.Errorf("ResolveKeys sequence = % X, want % X", got, want)
	}
}
