package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidator(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)
	assert.NotNil(t, v.validate)
	assert.NotNil(t, v.trans)
}

type serveInputs struct {
	Addr       string `validate:"required,hostname_port" cli:"--addr"`
	ReleaseDir string `validate:"omitempty,dir" cli:"--dir"`
	Line       string `validate:"required"`
	Target     string `validate:"omitempty,oneof=branch s3 dir" cli:"--target"`
}

func TestValidatorTranslations(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing")

	tests := []struct {
		name    string
		input   serveInputs
		wantErr map[string]string
	}{
		{
			name:  "valid",
			input: serveInputs{Addr: "localhost:8080", ReleaseDir: t.TempDir(), Line: "1 + 1"},
		},
		{
			name:  "cli tag names the field",
			input: serveInputs{Addr: "localhost", Line: "1"},
			wantErr: map[string]string{
				"serveInputs.Addr": "--addr must be a host:port address: localhost",
			},
		},
		{
			name:  "missing release dir",
			input: serveInputs{Addr: "localhost:8080", ReleaseDir: missing, Line: "1"},
			wantErr: map[string]string{
				"serveInputs.ReleaseDir": "--dir must be a valid existing directory: " + missing,
			},
		},
		{
			name:  "value outside oneof",
			input: serveInputs{Addr: "localhost:8080", Line: "1", Target: "ftp"},
			wantErr: map[string]string{
				"serveInputs.Target": "--target is ftp, must be one of [branch s3 dir]",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewValidator()
			require.NoError(t, err)

			err = v.Struct(&tt.input)
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			var verrs validator.ValidationErrors
			assert.True(t, errors.As(err, &verrs))
			assert.Len(t, v.ParseValidationErrors(err), len(tt.wantErr))
			for key, detail := range tt.wantErr {
				AssertErrors(t, err, key, detail, v)
			}
		})
	}
}

func TestCustomTranslationsRender(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	for tag := range customTranslations {
		t.Run(tag, func(t *testing.T) {
			var msg string
			require.NotPanics(t, func() {
				msg, err = v.trans.T(tag, "field", "value", "param")
			})
			require.NoError(t, err)
			assert.Contains(t, msg, "field")
			assert.NotContains(t, msg, "{")
		})
	}
}

func TestParseValidationErrorsString(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	err = v.Struct(&serveInputs{Addr: "nope", Line: "x"})
	require.Error(t, err)

	assert.Equal(t, "validation error\n--addr must be a host:port address: nope\n", fmt.Sprintf("%v", v.ParseValidationErrors(err)))
	assert.Empty(t, v.ParseValidationErrors(errors.New("plain")))
}
