package publish

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigcalc/bigcalc/internal/constants"
	"github.com/bigcalc/bigcalc/internal/testutil"
)

func TestDirPublisher(t *testing.T) {
	src := t.TempDir()
	files := map[string]string{"index.html": "<main></main>", "js/app.js": "x"}
	testutil.WriteTree(t, src, files)
	dest := filepath.Join(t.TempDir(), "site")

	p, err := New(context.Background(), Config{Target: constants.DeployTargetDir, Dir: dest}, testutil.NewNopLogger())
	require.NoError(t, err)

	published, err := p.Publish(context.Background(), src, Commit{SHA: "abc"})
	require.NoError(t, err)
	assert.Equal(t, &Published{Target: "dir", Location: dest, Files: 2, Bytes: 14, Revision: "abc"}, published)
	assert.Equal(t, files, testutil.ReadTree(t, dest))
}

func TestDirPublisherHonorsCancel(t *testing.T) {
	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{"index.html": "x"})
	p, err := NewDirPublisher(filepath.Join(t.TempDir(), "site"), testutil.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Publish(ctx, src, Commit{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDryRun(t *testing.T) {
	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{"index.html": "x", "a/b.txt": "yy"})

	log, buf := testutil.NewBufferedLogger()
	published, err := NewDryRun(log).Publish(context.Background(), src, Commit{SHA: "abc"})
	require.NoError(t, err)
	assert.Equal(t, 2, published.Files)
	assert.Equal(t, int64(3), published.Bytes)
	assert.Contains(t, buf.String(), "Dry run")
}

func TestNewRejectsUnknownTarget(t *testing.T) {
	_, err := New(context.Background(), Config{Target: "ftp"}, testutil.NewNopLogger())
	assert.ErrorContains(t, err, `unknown deploy target "ftp"`)

	_, err = New(context.Background(), Config{Target: constants.DeployTargetDir}, testutil.NewNopLogger())
	assert.ErrorContains(t, err, "deploy.dir")
}
