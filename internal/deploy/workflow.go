package deploy

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/bigcalc/bigcalc/internal/publish"
	"github.com/bigcalc/bigcalc/internal/site"
	"github.com/bigcalc/bigcalc/internal/ui"
)

const (
	StepCheckout  = "checkout"
	StepToolchain = "toolchain"
	StepBuildTool = "build-tool"
	StepBuild     = "build"
	StepCopy      = "copy"
	StepPublish   = "publish"

	wasmTarget = "js/wasm"
)

// State is shared by the steps of one run.
type State struct {
	Event     Event
	Toolchain string
	Build     *site.Result
	Copied    int
	Published *publish.Published
}

// SiteBuilder is satisfied by *site.Builder.
type SiteBuilder interface {
	Build(ctx context.Context, opts site.Options) (*site.Result, error)
}

// Workflow wires the deployment steps to the site builder and a publisher.
type Workflow struct {
	Log       *zerolog.Logger
	Runner    site.Runner
	Builder   SiteBuilder
	Publisher publish.Publisher

	ProjectRoot      string
	SiteDir          string
	ReleaseDir       string
	PublishDir       string
	ProductionBranch string
	GoBin            string
	Version          string
}

func (w *Workflow) goBin() string {
	if w.GoBin == "" {
		return "go"
	}
	return w.GoBin
}

// Steps returns the deployment steps in declaration order.
func (w *Workflow) Steps() []Step {
	return []Step{
		{Name: StepCheckout, Run: w.checkout},
		{Name: StepToolchain, DependsOn: []string{StepCheckout}, Run: w.toolchain},
		{Name: StepBuildTool, DependsOn: []string{StepCheckout}, Run: w.buildTool},
		{Name: StepBuild, DependsOn: []string{StepToolchain, StepBuildTool}, Run: w.build},
		{Name: StepCopy, DependsOn: []string{StepBuild}, Run: w.copy},
		{
			Name:      StepPublish,
			DependsOn: []string{StepCopy},
			Gate: func(s *State) (bool, string) {
				return s.Event.ShouldPublish(w.ProductionBranch)
			},
			Run: w.publish,
		},
	}
}

// Run executes the whole workflow for event.
func (w *Workflow) Run(ctx context.Context, event Event, hooks Hooks) (*Report, error) {
	p, err := NewPipeline(w.Log, w.Steps()...)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, &State{Event: event}, hooks)
}

func (w *Workflow) checkout(_ context.Context, s *State) (string, error) {
	for _, dir := range []string{w.ProjectRoot, w.SiteDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return "", fmt.Errorf("workspace is incomplete: %w", err)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("workspace is incomplete: %s is not a directory", dir)
		}
	}
	if s.Event.SHA == "" {
		return "", errors.New("unable to resolve the revision: pass --sha or run inside a git checkout")
	}
	return fmt.Sprintf("%s at %s", s.Event.Ref, shortSHA(s.Event.SHA)), nil
}

func (w *Workflow) toolchain(ctx context.Context, s *State) (string, error) {
	out, err := w.Runner.Run(ctx, w.ProjectRoot, nil, w.goBin(), "version")
	if err != nil {
		return "", fmt.Errorf("go toolchain not available: %w", err)
	}
	s.Toolchain = strings.TrimSpace(string(out))

	targets, err := w.Runner.Run(ctx, w.ProjectRoot, nil, w.goBin(), "tool", "dist", "list")
	if err != nil {
		return "", fmt.Errorf("failed to list compilation targets: %w", err)
	}
	if !hasLine(targets, wasmTarget) {
		return "", fmt.Errorf("compilation target %s is not installed", wasmTarget)
	}
	return s.Toolchain, nil
}

func (w *Workflow) buildTool(context.Context, *State) (string, error) {
	if w.Builder == nil {
		return "", errors.New("site builder is not configured")
	}
	return "site builder " + w.Version, nil
}

func (w *Workflow) build(ctx context.Context, s *State) (string, error) {
	res, err := w.Builder.Build(ctx, site.Options{
		ProjectDir: w.SiteDir,
		ReleaseDir: w.ReleaseDir,
		GoBin:      w.GoBin,
		Version:    w.Version,
	})
	if err != nil {
		return "", err
	}
	s.Build = res
	return fmt.Sprintf("%d files (%s)", len(res.Manifest.Files), ui.FormatBytes(res.Manifest.TotalSize())), nil
}

func (w *Workflow) copy(_ context.Context, s *State) (string, error) {
	files, err := site.Mirror(w.ReleaseDir, w.PublishDir)
	if err != nil {
		return "", err
	}
	s.Copied = len(files)
	return fmt.Sprintf("%d files verified", len(files)), nil
}

func (w *Workflow) publish(ctx context.Context, s *State) (string, error) {
	if w.Publisher == nil {
		return "", errors.New("no publisher configured")
	}
	res, err := w.Publisher.Publish(ctx, w.PublishDir, publish.Commit{SHA: s.Event.SHA})
	if err != nil {
		return "", err
	}
	s.Published = res
	return res.Location, nil
}

func hasLine(out []byte, want string) bool {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == want {
			return true
		}
	}
	return false
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
