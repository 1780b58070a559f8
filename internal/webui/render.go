package webui

import (
	"html"
	"strings"

	"github.com/bigcalc/bigcalc/internal/session"
)

const HiddenInputID = "hidden-input"

// RenderLines renders one <pre class="line"> per transcript line.
func (m *Model) RenderLines() string {
	var sb strings.Builder
	for _, line := range m.session.Transcript() {
		sb.WriteString(`<pre class="line">`)
		sb.WriteString(html.EscapeString(line))
		sb.WriteString("</pre>")
	}
	return sb.String()
}

// RenderInputCover renders the visible copy of the input with the caret.
func (m *Model) RenderInputCover() string {
	left, right := m.split()

	caretClass := "caret"
	if m.focused {
		caretClass += " is-focused"
	}

	var sb strings.Builder
	sb.WriteString(`<pre class="input-cover">`)
	sb.WriteString(html.EscapeString(session.PromptPrefix))
	sb.WriteString(html.EscapeString(left))
	sb.WriteString(`<span class="` + caretClass + `"></span>`)
	sb.WriteString(html.EscapeString(right))
	sb.WriteString("</pre>")
	return sb.String()
}

// Render returns the whole page body. The DOM binding renders the parts
// separately so the input element survives re-renders.
func (m *Model) Render() string {
	var sb strings.Builder
	sb.WriteString(`<div class="lines">`)
	sb.WriteString(m.RenderLines())
	sb.WriteString(`</div><div class="input-area"><div class="input-cover-slot">`)
	sb.WriteString(m.RenderInputCover())
	sb.WriteString(`</div><input type="text" id="` + HiddenInputID + `" autocomplete="off" autocapitalize="off" spellcheck="false"></div>`)
	return sb.String()
}
