package vt

import (
	"fmt"
	"strings"
	"sync"

	"github.com/phroun/purfecterm"
)

// purfectermModel adapts github.com/phroun/purfecterm's Buffer/Parser pair
// (the package's VT100/ANSI interpreter) to the Model interface.
//
// Only this file touches the purfecterm package directly; every call into
// it is behind the narrow surface below so a future purfecterm API change
// only ever requires editing this adapter.
type purfectermModel struct {
	mu     sync.Mutex
	buf    *purfecterm.Buffer
	parser *purfecterm.Parser
}

func newPurfectermModel(cols, rows int) *purfectermModel {
	buf := purfecterm.NewBuffer(cols, rows)
	return &purfectermModel{
		buf:    buf,
		parser: purfecterm.NewParser(buf),
	}
}

func (m *purfectermModel) Feed(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, _ = m.parser.Write(data)
}

func (m *purfectermModel) Resize(cols, rows int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buf.Resize(cols, rows)
}

func (m *purfectermModel) Cols() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.Cols()
}

func (m *purfectermModel) Rows() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.Rows()
}

// Dump serializes the buffer's current visible state into a
// self-contained escape sequence: a clear-and-home, then every row's cells
// with an SGR reset plus the new attributes emitted only where a cell's
// attributes differ from the previous cell's, then a final SGR reset and
// cursor positioning move. This does not
// reimplement VT100 interpretation (that remains purfecterm's job); it
// only serializes already-interpreted state back into escape codes so a
// late joiner's blank terminal can reproduce it.
func (m *purfectermModel) Dump() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	cols, rows := m.buf.Cols(), m.buf.Rows()
	var sb strings.Builder
	sb.WriteString("\x1b[2J\x1b[H")

	var lastAttrs string
	for y := 0; y < rows; y++ {
		if y > 0 {
			sb.WriteString("\r\n")
		}
		for x := 0; x < cols; x++ {
			cell := m.buf.Cell(x, y)
			attrs := sgrFor(cell)
			if attrs != lastAttrs {
				sb.WriteString("\x1b[0m")
				if attrs != "" {
					sb.WriteString(attrs)
				}
				lastAttrs = attrs
			}
			if cell.Rune == 0 {
				sb.WriteRune(' ')
			} else {
				sb.WriteRune(cell.Rune)
			}
		}
	}
	sb.WriteString("\x1b[0m")

	cx, cy := m.buf.CursorPosition()
	fmt.Fprintf(&sb, "\x1b[%d;%dH", cy+1, cx+1)

	return sb.String()
}

// TextView renders the buffer's visible cells as plain multi-line text,
// with no escape sequences.
func (m *purfectermModel) TextView() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	cols, rows := m.buf.Cols(), m.buf.Rows()
	lines := make([]string, rows)
	for y := 0; y < rows; y++ {
		var sb strings.Builder
		for x := 0; x < cols; x++ {
			cell := m.buf.Cell(x, y)
			if cell.Rune == 0 {
				sb.WriteRune(' ')
			} else {
				sb.WriteRune(cell.Rune)
			}
		}
		lines[y] = strings.TrimRight(sb.String(), " ")
	}
	return strings.Join(lines, "\n")
}

func sgrFor(cell purfecterm.Cell) string {
	var codes []string
	if cell.Bold {
		codes = append(codes, "1")
	}
	if cell.Italic {
		codes = append(codes, "3")
	}
	if cell.Underline {
		codes = append(codes, "4")
	}
	if cell.Reverse {
		codes = append(codes, "7")
	}
	if !cell.Fg.Default {
		codes = append(codes, fmt.Sprintf("38;2;%d;%d;%d", cell.Fg.R, cell.Fg.G, cell.Fg.B))
	}
	if !cell.Bg.Default {
		codes = append(codes, fmt.Sprintf("48;2;%d;%d;%d", cell.Bg.R, cell.Bg.G, cell.Bg.B))
	}
	if len(codes) == 0 {
		return ""
	}
	return "\x1b[" + strings.Join(codes, ";") + "m"
}
