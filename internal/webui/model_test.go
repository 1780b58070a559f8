package webui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func typeText(m *Model, text string) {
	units := len([]rune(text))
	m.Update(InputChanged{Value: text, SelStart: units, SelEnd: units})
}

func TestSubmitOnEnter(t *testing.T) {
	m := New()

	typeText(m, "x = 2 ** 10")
	eff := m.Update(KeyDown{Key: "Enter"})
	assert.Equal(t, Effect{Render: true, ClearInput: true}, eff)

	typeText(m, "x / 0")
	m.Update(KeyDown{Key: "Enter"})

	assert.Equal(t, []string{"> x = 2 ** 10", "1024", "> x / 0", "error: divide by zero"}, m.Transcript())
	assert.Empty(t, m.Input())
	start, end := m.Caret()
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, end)
}

func TestEnterWhileComposingDoesNotSubmit(t *testing.T) {
	m := New()
	typeText(m, "1 + 1")

	eff := m.Update(KeyDown{Key: "Enter", Composing: true})
	assert.Equal(t, Effect{RefreshSelection: true}, eff)
	assert.Empty(t, m.Transcript())
	assert.Equal(t, "1 + 1", m.Input())
}

func TestOtherKeysRefreshSelection(t *testing.T) {
	m := New()
	assert.Equal(t, Effect{RefreshSelection: true}, m.Update(KeyDown{Key: "ArrowLeft"}))
}

func TestFocusAndClick(t *testing.T) {
	m := New()

	assert.Equal(t, Effect{FocusInput: true}, m.Update(Click{}))
	assert.False(t, m.Focused())

	m.Update(Focus{})
	assert.True(t, m.Focused())
	m.Update(Blur{})
	assert.False(t, m.Focused())
}

func TestCaretIsClamped(t *testing.T) {
	m := New()

	m.Update(InputChanged{Value: "12", SelStart: 5, SelEnd: 9})
	start, end := m.Caret()
	assert.Equal(t, 2, start)
	assert.Equal(t, 2, end)

	m.Update(SelectionChanged{SelStart: -1, SelEnd: -1})
	start, end = m.Caret()
	assert.Equal(t, 0, start)
	assert.Equal(t, 2, end)

	m.Update(SelectionChanged{SelStart: 2, SelEnd: 1})
	start, end = m.Caret()
	assert.Equal(t, 1, start)
	assert.Equal(t, 1, end)
}

func TestCaretConvertsUTF16Offsets(t *testing.T) {
	m := New()

	// "π" is one UTF-16 unit and two bytes, "𝑥" is two units and four bytes.
	m.Update(InputChanged{Value: "π𝑥1", SelStart: 1, SelEnd: 3})
	start, end := m.Caret()
	assert.Equal(t, 2, start)
	assert.Equal(t, 6, end)

	m.Update(SelectionChanged{SelStart: 2, SelEnd: 2})
	start, _ = m.Caret()
	assert.Equal(t, 2, start, "offset inside a surrogate pair rounds down")
}
