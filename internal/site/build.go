package site

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog"

	"github.com/bigcalc/bigcalc/internal/constants"
	"github.com/bigcalc/bigcalc/internal/validation/files"
)

const (
	WasmName     = constants.WasmFileName
	WasmExecName = constants.WasmExecFileName
	IndexName    = constants.IndexFileName
	StyleName    = constants.StyleFileName
	ManifestName = constants.ManifestFileName
)

//go:embed assets/index.html.tmpl assets/style.css
var assets embed.FS

var indexTemplate = template.Must(template.ParseFS(assets, "assets/index.html.tmpl"))

// wasmExecLocations are tried in order below GOROOT; Go 1.24 moved the file.
var wasmExecLocations = []string{
	filepath.Join("lib", "wasm", WasmExecName),
	filepath.Join("misc", "wasm", WasmExecName),
}

var ErrUnsafeReleaseDir = errors.New("release directory must not contain the project directory")

type Options struct {
	// ProjectDir is the web sub-project, a main package for js/wasm.
	ProjectDir string
	// ReleaseDir is recreated on every build.
	ReleaseDir string
	// GoBin defaults to "go".
	GoBin string
	// Version is recorded in the manifest.
	Version string
	// NoCompress skips the brotli sidecar regardless of site.toml.
	NoCompress bool
}

type Result struct {
	ReleaseDir string
	Config     Config
	Manifest   *Manifest
	Duration   time.Duration
}

// Builder turns the web sub-project into a static release directory.
type Builder struct {
	log    *zerolog.Logger
	runner Runner
}

func NewBuilder(log *zerolog.Logger, runner Runner) *Builder {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Builder{log: log, runner: runner}
}

func (b *Builder) Build(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	if opts.GoBin == "" {
		opts.GoBin = "go"
	}

	projectDir, releaseDir, err := resolveDirs(opts.ProjectDir, opts.ReleaseDir)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(projectDir)
	if err != nil {
		return nil, err
	}

	b.log.Debug().Str("dir", releaseDir).Msg("Recreating release directory")
	if err := os.RemoveAll(releaseDir); err != nil {
		return nil, fmt.Errorf("failed to clean release directory: %w", err)
	}
	if err := os.MkdirAll(releaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create release directory: %w", err)
	}

	if err := b.compile(ctx, opts.GoBin, projectDir, releaseDir); err != nil {
		return nil, err
	}
	if err := b.copyWasmExec(ctx, opts.GoBin, projectDir, releaseDir); err != nil {
		return nil, err
	}
	if err := writeIndex(releaseDir, cfg); err != nil {
		return nil, err
	}
	if err := copyEmbedded("assets/"+StyleName, filepath.Join(releaseDir, StyleName)); err != nil {
		return nil, err
	}
	for _, asset := range cfg.Assets {
		if err := copyAsset(filepath.Join(projectDir, asset), filepath.Join(releaseDir, asset)); err != nil {
			return nil, fmt.Errorf("failed to copy asset %s: %w", asset, err)
		}
	}

	if cfg.CompressEnabled() && !opts.NoCompress {
		wasmPath := filepath.Join(releaseDir, WasmName)
		if err := compressFile(wasmPath, wasmPath+constants.BrotliSuffix); err != nil {
			return nil, fmt.Errorf("failed to compress %s: %w", WasmName, err)
		}
		b.log.Debug().Msg("WASM binary compressed")
	}

	manifest, err := BuildManifest(releaseDir, opts.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to hash release directory: %w", err)
	}
	if err := manifest.Write(releaseDir); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	res := &Result{
		ReleaseDir: releaseDir,
		Config:     cfg,
		Manifest:   manifest,
		Duration:   time.Since(start),
	}
	b.log.Info().
		Str("dir", releaseDir).
		Int("files", len(manifest.Files)).
		Int64("bytes", manifest.TotalSize()).
		Dur("took", res.Duration).
		Msg("Site built")
	return res, nil
}

func resolveDirs(project, release string) (string, string, error) {
	projectDir, err := filepath.Abs(project)
	if err != nil {
		return "", "", err
	}
	info, err := os.Stat(projectDir)
	if err != nil {
		return "", "", fmt.Errorf("web project not found: %w", err)
	}
	if !info.IsDir() {
		return "", "", fmt.Errorf("web project %s is not a directory", projectDir)
	}

	if release == "" {
		release = filepath.Join(projectDir, constants.DefaultReleaseDir)
	}
	releaseDir, err := filepath.Abs(release)
	if err != nil {
		return "", "", err
	}
	if within(projectDir, releaseDir) {
		return "", "", fmt.Errorf("%w: %s", ErrUnsafeReleaseDir, releaseDir)
	}
	return projectDir, releaseDir, nil
}

// compile builds the sub-project the same way for every release so the
// binary only depends on the sources.
// -trimpath removes file system paths from the binary.
// -ldflags=-s -w drops the symbol table and DWARF data.
func (b *Builder) compile(ctx context.Context, goBin, projectDir, releaseDir string) error {
	wasmPath := filepath.Join(releaseDir, WasmName)
	args := []string{"build", "-trimpath", "-ldflags=-s -w", "-o", wasmPath, "."}
	env := []string{"GOOS=js", "GOARCH=wasm", "CGO_ENABLED=0"}

	b.log.Debug().
		Str("dir", projectDir).
		Strs("args", args).
		Msg("Executing go build command")

	out, err := b.runner.Run(ctx, projectDir, env, goBin, args...)
	if err != nil {
		return fmt.Errorf("failed to compile web project: %w", err)
	}
	if len(out) > 0 {
		b.log.Debug().Msgf("Build output: %s", out)
	}
	if err := files.CheckWASM(wasmPath); err != nil {
		return fmt.Errorf("build produced an invalid binary: %w", err)
	}
	return nil
}

func (b *Builder) copyWasmExec(ctx context.Context, goBin, projectDir, releaseDir string) error {
	out, err := b.runner.Run(ctx, projectDir, nil, goBin, "env", "GOROOT")
	if err != nil {
		return fmt.Errorf("failed to locate GOROOT: %w", err)
	}
	goroot := strings.TrimSpace(string(out))

	for _, loc := range wasmExecLocations {
		src := filepath.Join(goroot, loc)
		ok, err := exists(src)
		if err != nil {
			return err
		}
		if ok {
			return copyFile(src, filepath.Join(releaseDir, WasmExecName))
		}
	}
	return fmt.Errorf("%s not found below GOROOT %s", WasmExecName, goroot)
}

type indexData struct {
	Title     string
	PublicURL string
	Script    string
	Binary    string
	Style     string
}

func writeIndex(releaseDir string, cfg Config) error {
	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, indexData{
		Title:     cfg.Title,
		PublicURL: cfg.PublicURL,
		Script:    WasmExecName,
		Binary:    WasmName,
		Style:     StyleName,
	})
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", IndexName, err)
	}
	return os.WriteFile(filepath.Join(releaseDir, IndexName), buf.Bytes(), 0o644)
}

func copyEmbedded(name, dst string) error {
	data, err := assets.ReadFile(name)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func copyAsset(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(src, dst)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.CopyFS(dst, os.DirFS(src))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func compressFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	var buffer bytes.Buffer
	writer := brotli.NewWriterLevel(&buffer, brotli.BestCompression)
	if _, err := writer.Write(data); err != nil {
		return err
	}
	// must close to flush the remaining output into the buffer
	if err := writer.Close(); err != nil {
		return err
	}
	return os.WriteFile(dst, buffer.Bytes(), 0o644)
}
