package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/bigcalc/bigcalc/internal/constants"
	"github.com/bigcalc/bigcalc/internal/logger"
)

var ErrNothingToPublish = errors.New("nothing to publish")

// Commit describes the source revision being published.
type Commit struct {
	SHA     string
	Message string
}

// Published summarizes a finished publish.
type Published struct {
	Target   string `json:"target"`
	Location string `json:"location"`
	Files    int    `json:"files"`
	Bytes    int64  `json:"bytes"`
	Revision string `json:"revision,omitempty"`
}

// Publisher pushes the content of a directory to a hosting target.
type Publisher interface {
	Publish(ctx context.Context, dir string, commit Commit) (*Published, error)
}

// Progress is told how many files are uploaded after each one finishes.
// Calls never overlap.
type Progress func(done, total int)

type progressCounter struct {
	mu     sync.Mutex
	done   int
	total  int
	report Progress
}

func newProgressCounter(total int, report Progress) *progressCounter {
	return &progressCounter{total: total, report: report}
}

func (c *progressCounter) inc() {
	if c.report == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done++
	c.report(c.done, c.total)
}

type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey logger.Secret
}

type Config struct {
	Target     string
	Repository string
	Branch     string
	Token      logger.Secret
	APIURL     string
	HTTPClient *http.Client
	Dir        string
	S3         S3Config
	Progress   Progress
}

// New returns the publisher for cfg.Target.
func New(ctx context.Context, cfg Config, log *zerolog.Logger) (Publisher, error) {
	var (
		p   Publisher
		err error
	)
	switch cfg.Target {
	case constants.DeployTargetBranch, "":
		p, err = NewBranchPublisher(BranchConfig{
			Repository: cfg.Repository,
			Branch:     cfg.Branch,
			Token:      cfg.Token,
			APIURL:     cfg.APIURL,
			HTTPClient: cfg.HTTPClient,
			Progress:   cfg.Progress,
		}, log)
	case constants.DeployTargetS3:
		var s3p *S3Publisher
		s3p, err = NewS3Publisher(ctx, cfg.S3, log)
		if err == nil {
			s3p.progress = cfg.Progress
			p = s3p
		}
	case constants.DeployTargetDir:
		p, err = NewDirPublisher(cfg.Dir, log)
	default:
		return nil, fmt.Errorf("unknown deploy target %q", cfg.Target)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

type file struct {
	rel  string
	path string
	size int64
}

// listFiles returns every regular file below dir sorted by relative path.
func listFiles(dir string) ([]file, error) {
	var files []file
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return fmt.Errorf("%s: not a regular file", path)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, file{rel: filepath.ToSlash(rel), path: path, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrNothingToPublish, dir)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].rel < files[j].rel })
	return files, nil
}

func totalSize(files []file) int64 {
	var n int64
	for _, f := range files {
		n += f.size
	}
	return n
}

// DryRun logs what would be published.
type DryRun struct {
	log *zerolog.Logger
}

func NewDryRun(log *zerolog.Logger) *DryRun {
	return &DryRun{log: log}
}

func (d *DryRun) Publish(_ context.Context, dir string, commit Commit) (*Published, error) {
	files, err := listFiles(dir)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		d.log.Debug().Str("file", f.rel).Int64("bytes", f.size).Msg("Would publish")
	}
	d.log.Info().Int("files", len(files)).Str("revision", commit.SHA).Msg("Dry run, nothing published")
	return &Published{
		Target:   "dry-run",
		Location: dir,
		Files:    len(files),
		Bytes:    totalSize(files),
		Revision: commit.SHA,
	}, nil
}
