package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Printer writes styled lines to Out. The package level helpers use a
// Printer on stdout.
type Printer struct {
	Out io.Writer
}

var std = &Printer{Out: os.Stdout}

// SetOutput redirects the package level helpers, returning the previous writer.
func SetOutput(w io.Writer) io.Writer {
	prev := std.Out
	std.Out = w
	return prev
}

func (p *Printer) line(s string) {
	fmt.Fprintln(p.Out, s)
}

func (p *Printer) Title(text string)   { p.line(TitleStyle.Render(text)) }
func (p *Printer) Success(text string) { p.line(SuccessStyle.Render("✓ " + text)) }
func (p *Printer) Error(text string)   { p.line(ErrorStyle.Render("✗ " + text)) }
func (p *Printer) Warning(text string) { p.line(WarningStyle.Render("! " + text)) }
func (p *Printer) Dim(text string)     { p.line(DimStyle.Render("  " + text)) }
func (p *Printer) Step(text string)    { p.line(StepStyle.Render(text)) }
func (p *Printer) Box(text string)     { p.line(BoxStyle.Render(text)) }
func (p *Printer) Code(text string)    { p.line(CodeStyle.Render(text)) }
func (p *Printer) URL(text string)     { p.line(URLStyle.Render(text)) }
func (p *Printer) Print(text string)   { p.line(text) }
func (p *Printer) Line()               { p.line("") }

func Title(text string)   { std.Title(text) }
func Success(text string) { std.Success(text) }
func Error(text string)   { std.Error(text) }
func Warning(text string) { std.Warning(text) }
func Dim(text string)     { std.Dim(text) }
func Step(text string)    { std.Step(text) }
func Box(text string)     { std.Box(text) }
func Code(text string)    { std.Code(text) }
func URL(text string)     { std.URL(text) }
func Print(text string)   { std.Print(text) }
func Line()               { std.Line() }

// Indent returns text with two spaces per level.
func Indent(text string, level int) string {
	return strings.Repeat("  ", level) + text
}

func RenderSuccess(text string) string { return SuccessStyle.Render(text) }
func RenderError(text string) string   { return ErrorStyle.Render(text) }
func RenderWarning(text string) string { return WarningStyle.Render(text) }
func RenderDim(text string) string     { return DimStyle.Render(text) }
func RenderBold(text string) string    { return BoldStyle.Render(text) }
func RenderCode(text string) string    { return CodeStyle.Render(text) }
func RenderURL(text string) string     { return URLStyle.Render(text) }
