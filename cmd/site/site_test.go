package site

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigcalc/bigcalc/internal/runtime"
	"github.com/bigcalc/bigcalc/internal/settings"
	"github.com/bigcalc/bigcalc/internal/site"
	"github.com/bigcalc/bigcalc/internal/testutil"
	"github.com/bigcalc/bigcalc/internal/ui"
)

type fakeBuilder struct {
	got site.Options
	err error
}

func (f *fakeBuilder) Build(_ context.Context, opts site.Options) (*site.Result, error) {
	f.got = opts
	if f.err != nil {
		return nil, f.err
	}
	return &site.Result{
		ReleaseDir: opts.ReleaseDir,
		Manifest:   &site.Manifest{Files: []site.FileEntry{{Path: "index.html", Size: 2048}}},
	}, nil
}

func newTestHandler(t *testing.T, b builder, noCompress bool) (*handler, *bytes.Buffer, Inputs) {
	t.Helper()
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{"web/main.go": "package main\n"})

	v := viper.New()
	v.Set(noCompressFlag, noCompress)
	ctx := runtime.NewContext(testutil.NewNopLogger(), v)
	var out bytes.Buffer
	ctx.Stdout = &out

	h := newHandler(ctx, b)
	h.spinner = ui.NewSpinnerTo(&bytes.Buffer{}, false)

	s := &settings.Settings{
		ProjectRoot: root,
		Site:        settings.SiteSettings{Project: "web", ReleaseDir: "dist"},
	}
	inputs, err := h.ResolveInputs(v, s)
	require.NoError(t, err)
	return h, &out, inputs
}

func TestBuildCommand(t *testing.T) {
	b := &fakeBuilder{}
	h, out, inputs := newTestHandler(t, b, true)
	h.inputs = inputs

	require.NoError(t, h.ValidateInputs())
	require.NoError(t, h.Execute(context.Background()))

	assert.Equal(t, filepath.Join(inputs.ProjectDir, "dist"), b.got.ReleaseDir)
	assert.True(t, b.got.NoCompress)
	assert.Contains(t, out.String(), "Built 1 files (2.0 KB)")
}

func TestBuildCommandErrors(t *testing.T) {
	t.Run("not validated", func(t *testing.T) {
		h, _, inputs := newTestHandler(t, &fakeBuilder{}, false)
		h.inputs = inputs
		assert.ErrorContains(t, h.Execute(context.Background()), "not validated")
	})

	t.Run("missing project directory", func(t *testing.T) {
		h, _, inputs := newTestHandler(t, &fakeBuilder{}, false)
		inputs.ProjectDir = filepath.Join(inputs.ProjectDir, "missing")
		h.inputs = inputs
		assert.Error(t, h.ValidateInputs())
	})

	t.Run("builder failure", func(t *testing.T) {
		h, _, inputs := newTestHandler(t, &fakeBuilder{err: errors.New("boom")}, false)
		h.inputs = inputs
		require.NoError(t, h.ValidateInputs())
		assert.ErrorContains(t, h.Execute(context.Background()), "site build failed: boom")
	})

	t.Run("settings not loaded", func(t *testing.T) {
		h, _, _ := newTestHandler(t, &fakeBuilder{}, false)
		_, err := h.ResolveInputs(viper.New(), nil)
		assert.Error(t, err)
	})
}
