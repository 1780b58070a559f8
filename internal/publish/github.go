package publish

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bigcalc/bigcalc/internal/constants"
	"github.com/bigcalc/bigcalc/internal/logger"
	"github.com/bigcalc/bigcalc/internal/validation"
)

const (
	defaultBlobConcurrency = 4
	defaultRetryDelay      = 500 * time.Millisecond
	fileMode               = "100644"
)

// APIError is a non-2xx answer of the GitHub API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: %s %s: %d %s: %s",
		e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// Retryable reports whether repeating the request may succeed.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

type BranchConfig struct {
	// Repository is owner/name.
	Repository string
	Branch     string
	Token      logger.Secret
	// APIURL defaults to https://api.github.com.
	APIURL      string
	HTTPClient  *http.Client
	Concurrency int
	RetryDelay  time.Duration
	Progress    Progress
}

// BranchPublisher replaces the content of a hosting branch with the content of
// the publish directory through the Git Data API. Every publish is a single
// commit on top of the current branch head.
type BranchPublisher struct {
	cfg    BranchConfig
	client *http.Client
	log    *zerolog.Logger
}

func NewBranchPublisher(cfg BranchConfig, log *zerolog.Logger) (*BranchPublisher, error) {
	if err := validation.IsValidRepository(cfg.Repository); err != nil {
		return nil, fmt.Errorf("deploy.repository: %w", err)
	}
	if err := validation.IsValidBranch(cfg.Branch); err != nil {
		return nil, fmt.Errorf("deploy.branch: %w", err)
	}
	if cfg.Token == "" {
		return nil, errors.New("a GitHub token is required to publish to a branch")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = constants.DefaultGitHubAPIURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultBlobConcurrency
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: time.Minute}
	}
	return &BranchPublisher{cfg: cfg, client: client, log: log}, nil
}

type treeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
}

type shaResponse struct {
	SHA string `json:"sha"`
}

type refResponse struct {
	Object shaResponse `json:"object"`
}

func (p *BranchPublisher) Publish(ctx context.Context, dir string, commit Commit) (*Published, error) {
	files, err := listFiles(dir)
	if err != nil {
		return nil, err
	}

	head, err := p.branchHead(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", p.cfg.Branch, err)
	}
	p.log.Debug().Str("branch", p.cfg.Branch).Str("head", head).Object("token", p.cfg.Token).Msg("Resolved hosting branch")

	entries, err := p.createBlobs(ctx, files)
	if err != nil {
		return nil, err
	}

	var tree shaResponse
	if err := p.call(ctx, http.MethodPost, p.repoPath("git/trees"), map[string]any{"tree": entries}, &tree); err != nil {
		return nil, fmt.Errorf("failed to create tree: %w", err)
	}

	parents := []string{}
	if head != "" {
		parents = append(parents, head)
	}
	message := commit.Message
	if message == "" {
		message = "Deploy " + commit.SHA
	}
	var created shaResponse
	err = p.call(ctx, http.MethodPost, p.repoPath("git/commits"), map[string]any{
		"message": message,
		"tree":    tree.SHA,
		"parents": parents,
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("failed to create commit: %w", err)
	}

	if head == "" {
		err = p.call(ctx, http.MethodPost, p.repoPath("git/refs"), map[string]any{
			"ref": "refs/heads/" + p.cfg.Branch,
			"sha": created.SHA,
		}, nil)
	} else {
		err = p.call(ctx, http.MethodPatch, p.repoPath("git/refs/heads/"+p.cfg.Branch), map[string]any{
			"sha":   created.SHA,
			"force": true,
		}, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", p.cfg.Branch, err)
	}

	p.log.Info().
		Str("repository", p.cfg.Repository).
		Str("branch", p.cfg.Branch).
		Str("commit", created.SHA).
		Int("files", len(entries)).
		Msg("Published")

	return &Published{
		Target:   "branch",
		Location: fmt.Sprintf("%s@%s", p.cfg.Repository, p.cfg.Branch),
		Files:    len(entries),
		Bytes:    totalSize(files),
		Revision: created.SHA,
	}, nil
}

// branchHead returns the commit the branch points at, or "" when the branch
// does not exist yet.
func (p *BranchPublisher) branchHead(ctx context.Context) (string, error) {
	var ref refResponse
	err := p.call(ctx, http.MethodGet, p.repoPath("git/ref/heads/"+p.cfg.Branch), nil, &ref)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return ref.Object.SHA, nil
}

// createBlobs uploads every file, plus an empty .nojekyll when the directory
// has none, and returns the matching tree entries in path order.
func (p *BranchPublisher) createBlobs(ctx context.Context, files []file) ([]treeEntry, error) {
	entries := make([]treeEntry, len(files))
	hasNoJekyll := false

	progress := newProgressCounter(len(files), p.cfg.Progress)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, f := range files {
		if f.rel == constants.NoJekyllFileName {
			hasNoJekyll = true
		}
		g.Go(func() error {
			content, err := os.ReadFile(f.path)
			if err != nil {
				return err
			}
			sha, err := p.createBlob(gctx, content)
			if err != nil {
				return fmt.Errorf("failed to upload %s: %w", f.rel, err)
			}
			p.log.Debug().Str("file", f.rel).Str("sha", sha).Msg("Blob created")
			entries[i] = treeEntry{Path: f.rel, Mode: fileMode, Type: "blob", SHA: sha}
			progress.inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !hasNoJekyll {
		sha, err := p.createBlob(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", constants.NoJekyllFileName, err)
		}
		entries = append([]treeEntry{{Path: constants.NoJekyllFileName, Mode: fileMode, Type: "blob", SHA: sha}}, entries...)
	}
	return entries, nil
}

func (p *BranchPublisher) createBlob(ctx context.Context, content []byte) (string, error) {
	var blob shaResponse
	err := p.call(ctx, http.MethodPost, p.repoPath("git/blobs"), map[string]string{
		// always base64 so binaries survive JSON
		"content":  base64.StdEncoding.EncodeToString(content),
		"encoding": "base64",
	}, &blob)
	return blob.SHA, err
}

func (p *BranchPublisher) repoPath(suffix string) string {
	return "/repos/" + p.cfg.Repository + "/" + suffix
}

// call performs one API request with retries on transport errors and 5xx
// answers. out may be nil.
func (p *BranchPublisher) call(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	return retry.Do(
		func() error {
			return p.do(ctx, method, path, body, out)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(p.cfg.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Retryable()
			}
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
		retry.OnRetry(func(n uint, err error) {
			p.log.Debug().Uint("attempt", n+1).Err(err).Str("path", path).Msg("Retrying GitHub request")
		}),
	)
}

func (p *BranchPublisher) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.cfg.APIURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.cfg.Token.Reveal())
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Message:    apiMessage(respBody),
		}
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response from %s: %w", path, err)
	}
	return nil
}

// apiMessage extracts the message field GitHub puts in error bodies.
func apiMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return strings.TrimSpace(string(body))
}
