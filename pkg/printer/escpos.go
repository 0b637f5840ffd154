package printer

import (
	"bytes"
	"strings"
)

// ESC/POS control bytes
const (
	ESC = 0x1B
	GS  = 0x1D
	LF  = 0x0A
)

// Alignment
const (
	AlignLeft   = 0
	AlignCenter = 1
	AlignRight  = 2
)

// Character size
const (
	FontNormal = 0x00
	FontDouble = 0x11
)

// Paper widths in characters
const (
	Width58mm = 32
	Width80mm = 48
)

// Document builds an ESC/POS byte stream. Lines longer than the paper width
// are wrapped on word boundaries. A plain-text copy of the printable lines is
// kept alongside for on-screen previews.
type Document struct {
	buf   bytes.Buffer
	text  strings.Builder
	width int
	align int
}

// NewDocument starts a document for a printer charWidth characters wide
func NewDocument(charWidth int) *Document {
	if charWidth <= 0 {
		charWidth = Width58mm
	}
	d := &Document{width: charWidth}
	d.buf.Write([]byte{ESC, '@'})
	return d
}

// Width is the paper width in characters
func (d *Document) Width() int {
	return d.width
}

func (d *Document) Feed(n int) *Document {
	for i := 0; i < n; i++ {
		d.buf.WriteByte(LF)
		d.text.WriteByte('\n')
	}
	return d
}

func (d *Document) Align(align int) *Document {
	d.align = align
	d.buf.Write([]byte{ESC, 'a', byte(align)})
	return d
}

// line writes one printable line to both outputs
func (d *Document) line(s string) {
	d.buf.WriteString(s)
	d.buf.WriteByte(LF)

	if spaces := d.width - len(s); spaces > 0 {
		switch d.align {
		case AlignCenter:
			s = strings.Repeat(" ", spaces/2) + s
		case AlignRight:
			s = strings.Repeat(" ", spaces) + s
		}
	}
	d.text.WriteString(s)
	d.text.WriteByte('\n')
}

func (d *Document) Bold(on bool) *Document {
	b := byte(0)
	if on {
		b = 1
	}
	d.buf.Write([]byte{ESC, 'E', b})
	return d
}

func (d *Document) Size(size byte) *Document {
	d.buf.Write([]byte{GS, '!', size})
	return d
}

// Text writes s, wrapped to the paper width
func (d *Document) Text(s string) *Document {
	for _, line := range Wrap(s, d.width) {
		d.line(line)
	}
	return d
}

// Rule prints a full-width line of char
func (d *Document) Rule(char byte) *Document {
	d.line(strings.Repeat(string(char), d.width))
	return d
}

// Pair prints key on the left and value flush right
func (d *Document) Pair(key, value string) *Document {
	d.line(pad(key, value, d.width))
	return d
}

// Item prints a line item. The name wraps onto as many lines as it needs and
// the amount sits at the end of the last one.
func (d *Document) Item(name, amount string) *Document {
	lines := Wrap(name, d.width-len(amount)-1)
	for _, line := range lines[:len(lines)-1] {
		d.line(line)
	}
	d.line(pad(lines[len(lines)-1], amount, d.width))
	return d
}

// Cut feeds and partially cuts the paper
func (d *Document) Cut() *Document {
	d.buf.Write([]byte{GS, 'V', 0x01})
	return d
}

// Bytes returns the accumulated byte stream
func (d *Document) Bytes() []byte {
	return d.buf.Bytes()
}

// PlainText returns the printable lines without control codes
func (d *Document) PlainText() string {
	return d.text.String()
}

func pad(left, right string, width int) string {
	spaces := width - len(left) - len(right)
	if spaces < 1 {
		spaces = 1
	}
	return left + strings.Repeat(" ", spaces) + right
}

// Wrap splits s into lines of at most width characters, breaking words that
// are longer than a line. It always returns at least one line.
func Wrap(s string, width int) []string {
	if width < 1 {
		width = 1
	}
	var lines []string
	current := ""
	for _, word := range strings.Fields(s) {
		for len(word) > width {
			if current != "" {
				lines = append(lines, current)
				current = ""
			}
			lines = append(lines, word[:width])
			word = word[width:]
		}
		switch {
		case current == "":
			current = word
		case len(current)+1+len(word) <= width:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" || len(lines) == 0 {
		lines = append(lines, current)
	}
	return lines
}
