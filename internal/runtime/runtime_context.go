package runtime

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/bigcalc/bigcalc/internal/settings"
)

// Context is shared by every command of one invocation.
type Context struct {
	Logger   *zerolog.Logger
	Viper    *viper.Viper
	Settings *settings.Settings

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func NewContext(logger *zerolog.Logger, viper *viper.Viper) *Context {
	return &Context{
		Logger: logger,
		Viper:  viper,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

func (ctx *Context) AttachSettings() error {
	var err error

	ctx.Settings, err = settings.New(ctx.Logger, ctx.Viper)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	return nil
}
