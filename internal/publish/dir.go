package publish

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/bigcalc/bigcalc/internal/site"
)

// DirPublisher mirrors the publish directory into a local directory.
type DirPublisher struct {
	dest string
	log  *zerolog.Logger
}

func NewDirPublisher(dest string, log *zerolog.Logger) (*DirPublisher, error) {
	if dest == "" {
		return nil, fmt.Errorf("deploy.dir must be set for the dir target")
	}
	abs, err := filepath.Abs(dest)
	if err != nil {
		return nil, err
	}
	return &DirPublisher{dest: abs, log: log}, nil
}

func (p *DirPublisher) Publish(ctx context.Context, dir string, commit Commit) (*Published, error) {
	files, err := listFiles(dir)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := site.Mirror(dir, p.dest); err != nil {
		return nil, err
	}
	p.log.Debug().Str("dest", p.dest).Int("files", len(files)).Msg("Mirrored publish directory")

	return &Published{
		Target:   "dir",
		Location: p.dest,
		Files:    len(files),
		Bytes:    totalSize(files),
		Revision: commit.SHA,
	}, nil
}
