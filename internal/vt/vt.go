// Package vt is the facade over the VT100/ANSI terminal model. How the
// screen buffer is mutated by a particular escape sequence is out of
// scope for this repository; this package only defines the narrow
// surface the rest of the tree needs (Feed, Resize, Dump, TextView) and
// adapts it onto a real third-party emulator instead of hand-rolling
// one.
package vt

// Model is the VT collaborator contract used by internal/session. A
// concrete Model consumes raw PTY output bytes and can reproduce its
// current visible state either as a self-contained escape sequence
// (Dump) or as plain multi-line text (TextView).
type Model interface {
	// Feed advances the terminal state by interpreting data as a
	// continuation of the output stream.
	Feed(data []byte)

	// Resize changes the logical screen size. Implementations must
	// accept being resized to the dimensions they already have.
	Resize(cols, rows int)

	// Cols and Rows report the current screen dimensions.
	Cols() int
	Rows() int

	// Dump returns an escape-sequence string that reproduces the
	// current visible state on a blank terminal of the same
	// dimensions.
	Dump() string

	// TextView returns the current screen contents as plain
	// multi-line text, with no escape sequences.
	TextView() string
}

// New constructs the default Model implementation, sized to cols x rows.
func New(cols, rows int) Model {
	return newPurfectermModel(cols, rows)
}
