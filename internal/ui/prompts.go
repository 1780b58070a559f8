package ui

import (
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// ConfirmOption configures a Confirm prompt.
type ConfirmOption func(*confirmConfig)

type confirmConfig struct {
	affirmative string
	negative    string
	description string
}

// WithLabels sets custom affirmative/negative button labels for Confirm.
func WithLabels(affirmative, negative string) ConfirmOption {
	return func(c *confirmConfig) {
		c.affirmative = affirmative
		c.negative = negative
	}
}

// WithDescription sets the description text for a prompt.
func WithDescription(desc string) ConfirmOption {
	return func(c *confirmConfig) {
		c.description = desc
	}
}

// IsInteractive reports whether both stdin and stdout are terminals.
func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Confirm displays a yes/no confirmation prompt and returns the user's choice.
func Confirm(title string, opts ...ConfirmOption) (bool, error) {
	cfg := confirmConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	var result bool
	confirm := huh.NewConfirm().
		Title(title).
		Value(&result)

	if cfg.affirmative != "" {
		confirm = confirm.Affirmative(cfg.affirmative)
	}
	if cfg.negative != "" {
		confirm = confirm.Negative(cfg.negative)
	}
	if cfg.description != "" {
		confirm = confirm.Description(cfg.description)
	}

	form := huh.NewForm(
		huh.NewGroup(confirm),
	).WithTheme(Theme())

	if err := form.Run(); err != nil {
		return false, err
	}
	return result, nil
}
