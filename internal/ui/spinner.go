package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorIndigo500))

// Spinner shows a message with an animated glyph on terminals and a plain
// line elsewhere.
type Spinner struct {
	mu      sync.Mutex
	out     io.Writer
	isTTY   bool
	program *tea.Program
	done    chan struct{}
}

type spinnerModel struct {
	spinner spinner.Model
	message string
	done    bool
}

type msgUpdate string
type msgQuit struct{}

func newSpinnerModel(message string) spinnerModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	return spinnerModel{spinner: s, message: message}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case msgUpdate:
		m.message = string(msg)
		return m, nil
	case msgQuit:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s", m.spinner.View(), DimStyle.Render(m.message))
}

// NewSpinner writes to stderr.
func NewSpinner() *Spinner {
	return NewSpinnerTo(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())))
}

func NewSpinnerTo(out io.Writer, isTTY bool) *Spinner {
	return &Spinner{out: out, isTTY: isTTY}
}

// Start shows message, replacing the message of a running spinner.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.program != nil {
		s.program.Send(msgUpdate(message))
		return
	}
	if !s.isTTY {
		fmt.Fprintln(s.out, DimStyle.Render(message))
		return
	}

	s.done = make(chan struct{})
	s.program = tea.NewProgram(newSpinnerModel(message), tea.WithOutput(s.out), tea.WithInput(nil))
	go func(p *tea.Program, done chan struct{}) {
		_, _ = p.Run()
		close(done)
	}(s.program, s.done)
}

// Stop ends the animation and waits for the terminal to be restored.
func (s *Spinner) Stop() {
	s.mu.Lock()
	p, done := s.program, s.done
	s.program = nil
	s.mu.Unlock()

	if p != nil {
		p.Send(msgQuit{})
		<-done
	}
}

// Run executes fn while showing message.
func (s *Spinner) Run(message string, fn func() error) error {
	s.Start(message)
	defer s.Stop()
	return fn()
}
