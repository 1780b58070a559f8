//go:build js && wasm

// Command bigcalc-web is the browser calculator. Build it with
// `bigcalc site build`, or by hand with GOOS=js GOARCH=wasm.
package main

import (
	"syscall/js"
	"time"

	"github.com/bigcalc/bigcalc/internal/webui"
)

// selectionDelay lets a key press move the caret before it is read back.
const selectionDelay = time.Millisecond

type app struct {
	model *webui.Model
	lines js.Value
	cover js.Value
	input js.Value
}

func main() {
	doc := js.Global().Get("document")
	root := doc.Call("querySelector", "main")
	if root.IsNull() {
		root = doc.Get("body")
	}

	model := webui.New()
	root.Set("innerHTML", model.Render())

	a := &app{
		model: model,
		lines: root.Call("querySelector", ".lines"),
		cover: root.Call("querySelector", ".input-cover-slot"),
		input: doc.Call("getElementById", webui.HiddenInputID),
	}
	a.bind(root)

	// Keep the Go runtime alive for event callbacks.
	select {}
}

func (a *app) bind(root js.Value) {
	on := func(target js.Value, event string, toMsg func(e js.Value) webui.Msg) {
		target.Call("addEventListener", event, js.FuncOf(func(this js.Value, args []js.Value) any {
			a.dispatch(toMsg(args[0]))
			return nil
		}))
	}

	on(root, "click", func(js.Value) webui.Msg { return webui.Click{} })
	on(a.input, "focus", func(js.Value) webui.Msg { return webui.Focus{} })
	on(a.input, "blur", func(js.Value) webui.Msg { return webui.Blur{} })
	on(a.input, "input", func(js.Value) webui.Msg {
		start, end := a.selection()
		return webui.InputChanged{Value: a.input.Get("value").String(), SelStart: start, SelEnd: end}
	})
	on(a.input, "keydown", func(e js.Value) webui.Msg {
		return webui.KeyDown{Key: e.Get("key").String(), Composing: e.Get("isComposing").Truthy()}
	})
	on(a.input, "selectionchange", func(js.Value) webui.Msg { return a.selectionChanged() })
}

func (a *app) dispatch(msg webui.Msg) {
	eff := a.model.Update(msg)
	if eff.FocusInput {
		a.input.Call("focus")
	}
	if eff.ClearInput {
		a.input.Set("value", "")
	}
	if eff.RefreshSelection {
		time.AfterFunc(selectionDelay, func() { a.dispatch(a.selectionChanged()) })
	}
	if eff.Render {
		a.render()
	}
}

func (a *app) selectionChanged() webui.Msg {
	start, end := a.selection()
	return webui.SelectionChanged{SelStart: start, SelEnd: end}
}

// selection reads the caret; -1 stands for an unavailable offset.
func (a *app) selection() (start, end int) {
	start, end = -1, -1
	if v := a.input.Get("selectionStart"); v.Type() == js.TypeNumber {
		start = v.Int()
	}
	if v := a.input.Get("selectionEnd"); v.Type() == js.TypeNumber {
		end = v.Int()
	}
	return start, end
}

func (a *app) render() {
	a.lines.Set("innerHTML", a.model.RenderLines())
	a.cover.Set("innerHTML", a.model.RenderInputCover())
	js.Global().Get("window").Call("scrollTo", 0, js.Global().Get("document").Get("body").Get("scrollHeight"))
}
