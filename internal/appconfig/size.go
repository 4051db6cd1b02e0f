package appconfig

import (
	"fmt"
	"strconv"
	"strings"
)

// Size is the parsed form of --size COLSxROWS.
type Size struct {
	Cols int
	Rows int
}

// DefaultSize is the default terminal size when --size is not given.
var DefaultSize = Size{Cols: 120, Rows: 40}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Cols, s.Rows)
}

// ParseSize parses a "COLSxROWS" string into a Size.
func ParseSize(s string) (Size, error) {
	cols, rows, ok := strings.Cut(s, "x")
	if !ok {
		return Size{}, fmt.Errorf("appconfig: invalid size %q: expected COLSxROWS", s)
	}
	c, err := strconv.Atoi(cols)
	if err != nil || c < 1 || c > 65535 {
		return Size{}, fmt.Errorf("appconfig: invalid size %q: cols out of range", s)
	}
	r, err := strconv.Atoi(rows)
	if err != nil || r < 1 || r > 65535 {
		return Size{}, fmt.Errorf("appconfig: invalid size %q: rows out of range", s)
	}
	return Size{Cols: c, Rows: r}, nil
}

// sizeValue adapts Size to pflag.Value so cobra can parse --size directly
// into a Size field instead of a string that is parsed a second time.
type sizeValue struct{ target *Size }

func (v *sizeValue) String() string {
	if v.target == nil {
		return DefaultSize.String()
	}
	return v.target.String()
}

func (v *sizeValue) Set(s string) error {
	parsed, err := ParseSize(s)
	if err != nil {
		return err
	}
	*v.target = parsed
	return nil
}

func (v *sizeValue) Type() string { return "COLSxROWS" }
