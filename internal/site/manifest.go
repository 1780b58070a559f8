package site

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

type FileEntry struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Manifest lists every file of a release directory except itself.
type Manifest struct {
	Version string      `json:"version,omitempty"`
	Files   []FileEntry `json:"files"`
}

func (m *Manifest) TotalSize() int64 {
	var n int64
	for _, f := range m.Files {
		n += f.Size
	}
	return n
}

// HashTree hashes every regular file below root. Keys are slash separated
// paths relative to root.
func HashTree(root string) (map[string]FileEntry, error) {
	entries := map[string]FileEntry{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return fmt.Errorf("%s: not a regular file", path)
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		sum, size, err := hashFile(path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		entries[rel] = FileEntry{Path: rel, Size: size, SHA256: sum}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// BuildManifest hashes dir, skipping an existing manifest.
func BuildManifest(dir, version string) (*Manifest, error) {
	entries, err := HashTree(dir)
	if err != nil {
		return nil, err
	}
	delete(entries, ManifestName)

	m := &Manifest{Version: version, Files: make([]FileEntry, 0, len(entries))}
	for _, e := range entries {
		m.Files = append(m.Files, e)
	}
	sort.Slice(m.Files, func(i, j int) bool { return m.Files[i].Path < m.Files[j].Path })
	return m, nil
}

func (m *Manifest) Write(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestName), append(data, '\n'), 0o644)
}

func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ManifestName, err)
	}
	return &m, nil
}

// Mismatch describes how two trees differ.
type Mismatch struct {
	Missing   []string
	Extra     []string
	Different []string
}

func (m Mismatch) Empty() bool {
	return len(m.Missing) == 0 && len(m.Extra) == 0 && len(m.Different) == 0
}

func (m Mismatch) Error() string {
	return fmt.Sprintf("missing %v, unexpected %v, content differs %v", m.Missing, m.Extra, m.Different)
}

// CompareTrees reports the differences of got against want.
func CompareTrees(want, got map[string]FileEntry) Mismatch {
	var mm Mismatch
	for path, w := range want {
		g, ok := got[path]
		switch {
		case !ok:
			mm.Missing = append(mm.Missing, path)
		case g.SHA256 != w.SHA256 || g.Size != w.Size:
			mm.Different = append(mm.Different, path)
		}
	}
	for path := range got {
		if _, ok := want[path]; !ok {
			mm.Extra = append(mm.Extra, path)
		}
	}
	sort.Strings(mm.Missing)
	sort.Strings(mm.Extra)
	sort.Strings(mm.Different)
	return mm
}
