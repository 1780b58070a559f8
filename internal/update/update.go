package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"

	"github.com/bigcalc/bigcalc/internal/constants"
	"github.com/bigcalc/bigcalc/internal/ui"
)

// DisableEnvVar turns the check off when set to any non-empty value.
const DisableEnvVar = "BIGCALC_NO_UPDATE_CHECK"

const (
	Repository    = "bigcalc/bigcalc"
	timeout       = 2 * time.Second
	cacheDuration = 24 * time.Hour
	cacheFileName = "update.json"
	cacheDirName  = ".bigcalc"
)

type githubRelease struct {
	TagName string `json:"tag_name"`
}

type cacheState struct {
	LatestVersion string    `json:"latest_version"`
	LastCheck     time.Time `json:"last_check"`
}

// Checker compares the running version with the latest GitHub release. The
// answer is cached for a day.
type Checker struct {
	APIURL     string
	Repository string
	HTTPClient *http.Client
	// CacheFile defaults to ~/.bigcalc/update.json.
	CacheFile string
	Now       func() time.Time
	Out       io.Writer

	log *zerolog.Logger
}

func NewChecker(log *zerolog.Logger) *Checker {
	return &Checker{
		APIURL:     constants.DefaultGitHubAPIURL,
		Repository: Repository,
		HTTPClient: &http.Client{Timeout: timeout},
		Now:        time.Now,
		Out:        os.Stderr,
		log:        log,
	}
}

// Disabled reports whether the check is turned off in the environment, or
// the build is not a release.
func Disabled(currentVersion string) bool {
	return os.Getenv(DisableEnvVar) != "" || currentVersion == "" || currentVersion == "development"
}

// Latest returns the latest release version, from the cache when it is fresh.
func (c *Checker) Latest(ctx context.Context) (*semver.Version, error) {
	path, err := c.cachePath()
	if err != nil {
		return nil, err
	}

	state := c.loadCache(path)
	now := c.Now()
	tag := state.LatestVersion
	if tag == "" || now.Sub(state.LastCheck) > cacheDuration {
		fetched, err := c.fetchLatest(ctx)
		if err != nil {
			if tag == "" {
				return nil, err
			}
			c.log.Debug().Err(err).Msg("Update check failed, using cached release")
		} else {
			tag = fetched
			if err := saveCache(path, cacheState{LatestVersion: tag, LastCheck: now}); err != nil {
				c.log.Debug().Err(err).Msg("Failed to save update cache")
			}
		}
	}

	v, err := semver.NewVersion(tag)
	if err != nil {
		return nil, fmt.Errorf("failed to parse release tag %q: %w", tag, err)
	}
	return v, nil
}

// Check prints a notice when a release newer than currentVersion exists and
// reports whether it did. Failures are logged at debug level only.
func (c *Checker) Check(ctx context.Context, currentVersion string) bool {
	current, err := semver.NewVersion(strings.TrimSpace(currentVersion))
	if err != nil {
		c.log.Debug().Err(err).Str("version", currentVersion).Msg("Skipping update check")
		return false
	}

	latest, err := c.Latest(ctx)
	if err != nil {
		c.log.Debug().Err(err).Msg("Update check failed")
		return false
	}
	if !latest.GreaterThan(current) {
		c.log.Debug().Str("version", current.String()).Msg("bigcalc is up to date")
		return false
	}

	fmt.Fprintf(c.Out, "\n%s\n%s\n\n",
		ui.RenderWarning(fmt.Sprintf("Update available: you are running %s, the latest release is %s.", current, latest)),
		ui.RenderDim(fmt.Sprintf("See https://github.com/%s/releases", c.Repository)))
	return true
}

func (c *Checker) cachePath() (string, error) {
	if c.CacheFile != "" {
		return c.CacheFile, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate the home directory: %w", err)
	}
	return filepath.Join(home, cacheDirName, cacheFileName), nil
}

func (c *Checker) loadCache(path string) cacheState {
	var state cacheState
	data, err := os.ReadFile(path)
	if err != nil {
		return state
	}
	if err := json.Unmarshal(data, &state); err != nil {
		// corrupted, overwritten by the next fetch
		c.log.Debug().Err(err).Msg("Ignoring update cache")
		return cacheState{}
	}
	return state
}

func saveCache(path string, state cacheState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o640)
}

func (c *Checker) fetchLatest(ctx context.Context) (string, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", strings.TrimRight(c.APIURL, "/"), c.Repository)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "bigcalc-update-check")
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch latest release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github API returned non-200 status: %s", resp.Status)
	}

	var release githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("failed to decode GitHub API response: %w", err)
	}
	if release.TagName == "" {
		return "", errors.New("github API response contained no tag_name")
	}
	return release.TagName, nil
}
