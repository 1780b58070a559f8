package site

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrOverlappingDirs = errors.New("source and destination directories overlap")

// Mirror replaces dst with a verbatim copy of src and verifies that both
// trees hold the same files with the same content.
func Mirror(src, dst string) (map[string]FileEntry, error) {
	src, err := filepath.Abs(src)
	if err != nil {
		return nil, err
	}
	dst, err = filepath.Abs(dst)
	if err != nil {
		return nil, err
	}
	if within(src, dst) || within(dst, src) {
		return nil, fmt.Errorf("%w: %s and %s", ErrOverlappingDirs, src, dst)
	}

	want, err := HashTree(src)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", src, err)
	}

	if err := os.RemoveAll(dst); err != nil {
		return nil, fmt.Errorf("failed to clean %s: %w", dst, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, err
	}
	if err := os.CopyFS(dst, os.DirFS(src)); err != nil {
		return nil, fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	got, err := HashTree(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", dst, err)
	}
	if mm := CompareTrees(want, got); !mm.Empty() {
		return nil, fmt.Errorf("copy of %s differs: %w", src, mm)
	}
	return got, nil
}

// within reports whether path is dir or below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
