// Package webui holds the state and rendering of the browser calculator.
// It has no dependency on syscall/js; cmd/bigcalc-web feeds it DOM events.
package webui

import (
	"unicode/utf16"

	"github.com/bigcalc/bigcalc/internal/session"
)

// Msg is a user interaction forwarded from the DOM.
type Msg interface {
	isMsg()
}

// Click on the page; focuses the hidden input.
type Click struct{}

type Focus struct{}

type Blur struct{}

// InputChanged carries the input element value and its selection, in the
// UTF-16 code units the DOM reports.
type InputChanged struct {
	Value    string
	SelStart int
	SelEnd   int
}

type KeyDown struct {
	Key       string
	Composing bool
}

type SelectionChanged struct {
	SelStart int
	SelEnd   int
}

func (Click) isMsg()            {}
func (Focus) isMsg()            {}
func (Blur) isMsg()             {}
func (InputChanged) isMsg()     {}
func (KeyDown) isMsg()          {}
func (SelectionChanged) isMsg() {}

// Effect tells the DOM binding what to do after an update.
type Effect struct {
	// Render is set when the visible state changed.
	Render bool
	// FocusInput asks for the hidden input to be focused.
	FocusInput bool
	// ClearInput asks for the hidden input value to be emptied.
	ClearInput bool
	// RefreshSelection asks for a SelectionChanged once the key press has
	// moved the caret.
	RefreshSelection bool
}

// Model is the calculator page.
type Model struct {
	session *session.Session
	input   string
	// caret is a byte range into input, always on rune boundaries.
	caretStart, caretEnd int
	focused              bool
}

func New() *Model {
	return &Model{session: session.New()}
}

func (m *Model) Input() string { return m.input }

func (m *Model) Focused() bool { return m.focused }

// Caret returns the selection as byte offsets into Input.
func (m *Model) Caret() (start, end int) { return m.caretStart, m.caretEnd }

func (m *Model) Transcript() []string { return m.session.Transcript() }

func (m *Model) Update(msg Msg) Effect {
	switch msg := msg.(type) {
	case Click:
		return Effect{FocusInput: true}
	case Focus:
		m.focused = true
		return Effect{Render: true}
	case Blur:
		m.focused = false
		return Effect{Render: true}
	case InputChanged:
		m.input = msg.Value
		m.setCaret(msg.SelStart, msg.SelEnd)
		return Effect{Render: true}
	case KeyDown:
		if msg.Key == "Enter" && !msg.Composing {
			m.submit()
			return Effect{Render: true, ClearInput: true}
		}
		return Effect{RefreshSelection: true}
	case SelectionChanged:
		m.setCaret(msg.SelStart, msg.SelEnd)
		return Effect{Render: true}
	}
	return Effect{}
}

func (m *Model) submit() {
	m.session.Submit(m.input)
	m.input = ""
	m.caretStart, m.caretEnd = 0, 0
}

// setCaret converts DOM offsets to byte offsets. A negative offset means the
// DOM reported none: start falls back to 0 and end to the input length.
func (m *Model) setCaret(start, end int) {
	if start < 0 {
		m.caretStart = 0
	} else {
		m.caretStart = utf16ToByteOffset(m.input, start)
	}
	if end < 0 {
		m.caretEnd = len(m.input)
	} else {
		m.caretEnd = utf16ToByteOffset(m.input, end)
	}
	if m.caretStart > m.caretEnd {
		m.caretStart = m.caretEnd
	}
}

// utf16ToByteOffset maps a UTF-16 code unit offset into s to a byte offset,
// clamped to len(s). An offset inside a surrogate pair rounds down.
func utf16ToByteOffset(s string, units int) int {
	n := 0
	for i, r := range s {
		w := utf16.RuneLen(r)
		if w < 0 {
			w = 1
		}
		if n+w > units {
			return i
		}
		n += w
	}
	return len(s)
}

// split returns the input left and right of the caret end, which is where
// the caret glyph is drawn.
func (m *Model) split() (left, right string) {
	end := min(m.caretEnd, len(m.input))
	return m.input[:end], m.input[end:]
}
