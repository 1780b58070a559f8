package site

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigcalc/bigcalc/internal/testutil"
)

var fakeWasm = []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00, 'b', 'i', 'g'}

type call struct {
	dir  string
	env  []string
	args []string
}

// fakeRunner stands in for the go toolchain.
type fakeRunner struct {
	goroot   string
	wasm     []byte
	buildErr error
	calls    []call
}

func (f *fakeRunner) Run(_ context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, call{dir: dir, env: env, args: append([]string{name}, args...)})
	switch {
	case len(args) >= 1 && args[0] == "build":
		if f.buildErr != nil {
			return []byte("compile error"), f.buildErr
		}
		for i, a := range args {
			if a == "-o" {
				return nil, os.WriteFile(args[i+1], f.wasm, 0o644)
			}
		}
		return nil, errors.New("no -o flag")
	case len(args) == 2 && args[0] == "env" && args[1] == "GOROOT":
		return []byte(f.goroot + "\n"), nil
	}
	return nil, errors.New("unexpected command")
}

func newFakeGoroot(t *testing.T, dir string) string {
	t.Helper()
	root := t.TempDir()
	testutil.WriteTree(t, root, map[string]string{
		dir + "/wasm/wasm_exec.js": "// go wasm support",
	})
	return root
}

func newProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"main.go": "package main\n"})
	testutil.WriteTree(t, dir, files)
	return dir
}

func TestBuild(t *testing.T) {
	project := newProject(t, map[string]string{
		"site.toml":         "title = \"Big <Calc>\"\npublic_url = \"/calc\"\nassets = [\"favicon.ico\", \"static\"]\n",
		"favicon.ico":       "icon",
		"static/robots.txt": "User-agent: *",
	})
	runner := &fakeRunner{goroot: newFakeGoroot(t, "lib"), wasm: fakeWasm}
	b := NewBuilder(testutil.NewNopLogger(), runner)

	res, err := b.Build(context.Background(), Options{ProjectDir: project, Version: "v1.2.3"})
	require.NoError(t, err)

	release := filepath.Join(project, "dist")
	assert.Equal(t, release, res.ReleaseDir)

	tree := testutil.ReadTree(t, release)
	assert.Equal(t, string(fakeWasm), tree[WasmName])
	assert.Equal(t, "// go wasm support", tree[WasmExecName])
	assert.Equal(t, "icon", tree["favicon.ico"])
	assert.Equal(t, "User-agent: *", tree["static/robots.txt"])
	assert.Contains(t, tree, StyleName)
	assert.Contains(t, tree, ManifestName)

	index := tree[IndexName]
	assert.Contains(t, index, "<title>Big &lt;Calc&gt;</title>")
	assert.Contains(t, index, `<base href="/calc/">`)
	assert.Contains(t, index, `<script src="wasm_exec.js"></script>`)
	assert.Contains(t, index, `fetch("bigcalc.wasm")`)

	decompressed, err := readBrotli(filepath.Join(release, WasmName+".br"))
	require.NoError(t, err)
	assert.Equal(t, fakeWasm, decompressed)

	require.Len(t, runner.calls, 2)
	buildCall := runner.calls[0]
	assert.Equal(t, project, buildCall.dir)
	assert.Equal(t, []string{"GOOS=js", "GOARCH=wasm", "CGO_ENABLED=0"}, buildCall.env)
	assert.Equal(t, []string{"go", "build", "-trimpath", "-ldflags=-s -w", "-o", filepath.Join(release, WasmName), "."}, buildCall.args)

	manifest, err := ReadManifest(release)
	require.NoError(t, err)
	assert.Equal(t, "v1.2.3", manifest.Version)
	paths := make([]string, len(manifest.Files))
	for i, f := range manifest.Files {
		paths[i] = f.Path
	}
	assert.Equal(t, []string{
		"bigcalc.wasm", "bigcalc.wasm.br", "favicon.ico", "index.html",
		"static/robots.txt", "style.css", "wasm_exec.js",
	}, paths)
}

func TestBuildRecreatesReleaseDir(t *testing.T) {
	project := newProject(t, map[string]string{"dist/stale.txt": "old"})
	runner := &fakeRunner{goroot: newFakeGoroot(t, "misc"), wasm: fakeWasm}

	res, err := NewBuilder(testutil.NewNopLogger(), runner).Build(context.Background(), Options{
		ProjectDir: project,
		NoCompress: true,
	})
	require.NoError(t, err)

	tree := testutil.ReadTree(t, res.ReleaseDir)
	assert.NotContains(t, tree, "stale.txt")
	assert.NotContains(t, tree, WasmName+".br")
	assert.Contains(t, tree, WasmExecName, "misc/wasm is used for older toolchains")
}

func TestBuildFailures(t *testing.T) {
	t.Run("compile error", func(t *testing.T) {
		project := newProject(t, nil)
		runner := &fakeRunner{goroot: newFakeGoroot(t, "lib"), buildErr: errors.New("exit status 1")}

		_, err := NewBuilder(testutil.NewNopLogger(), runner).Build(context.Background(), Options{ProjectDir: project})
		assert.ErrorContains(t, err, "failed to compile web project")
	})

	t.Run("not a wasm binary", func(t *testing.T) {
		project := newProject(t, nil)
		runner := &fakeRunner{goroot: newFakeGoroot(t, "lib"), wasm: []byte("#!/bin/sh")}

		_, err := NewBuilder(testutil.NewNopLogger(), runner).Build(context.Background(), Options{ProjectDir: project})
		assert.ErrorContains(t, err, "invalid binary")
	})

	t.Run("missing wasm_exec.js", func(t *testing.T) {
		project := newProject(t, nil)
		runner := &fakeRunner{goroot: t.TempDir(), wasm: fakeWasm}

		_, err := NewBuilder(testutil.NewNopLogger(), runner).Build(context.Background(), Options{ProjectDir: project})
		assert.ErrorContains(t, err, "wasm_exec.js not found")
	})

	t.Run("release dir containing the project", func(t *testing.T) {
		project := newProject(t, nil)

		_, err := NewBuilder(testutil.NewNopLogger(), &fakeRunner{}).Build(context.Background(), Options{
			ProjectDir: project,
			ReleaseDir: filepath.Dir(project),
		})
		assert.ErrorIs(t, err, ErrUnsafeReleaseDir)
	})

	t.Run("missing project", func(t *testing.T) {
		_, err := NewBuilder(testutil.NewNopLogger(), &fakeRunner{}).Build(context.Background(), Options{
			ProjectDir: filepath.Join(t.TempDir(), "nope"),
		})
		assert.ErrorContains(t, err, "web project not found")
	})
}

func readBrotli(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	_, err = out.ReadFrom(brotli.NewReader(bytes.NewReader(data)))
	return out.Bytes(), err
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults without file", func(t *testing.T) {
		cfg, err := LoadConfig(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
		assert.True(t, cfg.CompressEnabled())
	})

	t.Run("compression can be disabled", func(t *testing.T) {
		dir := newProject(t, map[string]string{"site.toml": "compress = false\n"})
		cfg, err := LoadConfig(dir)
		require.NoError(t, err)
		assert.False(t, cfg.CompressEnabled())
	})

	t.Run("unknown keys are rejected", func(t *testing.T) {
		dir := newProject(t, map[string]string{"site.toml": "titel = \"typo\"\n"})
		_, err := LoadConfig(dir)
		assert.ErrorContains(t, err, "unknown keys: titel")
	})

	t.Run("assets must stay inside the project", func(t *testing.T) {
		dir := newProject(t, map[string]string{"site.toml": "assets = [\"../secret\"]\n"})
		_, err := LoadConfig(dir)
		assert.ErrorContains(t, err, "must stay inside the project")
	})

	t.Run("invalid toml", func(t *testing.T) {
		dir := newProject(t, map[string]string{"site.toml": "title = \n"})
		_, err := LoadConfig(dir)
		assert.ErrorContains(t, err, "failed to parse")
	})
}
