// Package fileset is the shared output machinery for the emitters: a file
// map planned in deterministic order and written atomically, with dry-run and
// force semantics. Go sources are run through goimports before writing.
package fileset

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/tools/imports"
)

// PlannedFile describes a file an emitter intends to write.
type PlannedFile struct {
	RelPath string
	Size    int
	Mode    os.FileMode
}

// Set accumulates emitted files keyed by slash-separated relative path.
type Set struct {
	files map[string][]byte
}

// New returns an empty Set.
func New() *Set {
	return &Set{files: map[string][]byte{}}
}

// Add stores content under rel. Later adds for the same path overwrite.
func (s *Set) Add(rel string, content []byte) {
	s.files[filepath.ToSlash(rel)] = content
}

// AddGo stores a Go source file, formatting it with goimports first. Content
// that does not parse is kept verbatim so the problem is visible in the
// output rather than silently dropped.
func (s *Set) AddGo(rel string, content []byte) error {
	formatted, err := imports.Process(rel, content, nil)
	if err != nil {
		s.Add(rel, content)
		return errors.Wrapf(err, "format %s", rel)
	}
	s.Add(rel, formatted)
	return nil
}

// Plan returns the planned files sorted by relative path.
func (s *Set) Plan() []PlannedFile {
	rels := make([]string, 0, len(s.files))
	for p := range s.files {
		rels = append(rels, p)
	}
	sort.Strings(rels)

	planned := make([]PlannedFile, 0, len(rels))
	for _, rel := range rels {
		planned = append(planned, PlannedFile{RelPath: rel, Size: len(s.files[rel]), Mode: 0o644})
	}
	return planned
}

// Write writes every file under outDir, creating directories as needed. Each
// file goes through a temp file and rename. When force is false and outDir
// already contains entries, Write refuses to touch it.
func (s *Set) Write(outDir string, force bool) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return errors.Wrap(err, "resolve out dir")
	}
	if st, err := os.Stat(abs); err == nil && st.IsDir() && !force {
		entries, rerr := os.ReadDir(abs)
		if rerr == nil && len(entries) > 0 {
			return errors.Newf("output directory %q is not empty (use --force to overwrite)", abs)
		}
	}
	for rel, content := range s.files {
		p := filepath.Join(abs, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return errors.Wrap(err, "mkdir")
		}
		tmp := p + ".tmp-" + time.Now().Format("20060102150405")
		if err := os.WriteFile(tmp, content, 0o644); err != nil {
			return errors.Wrapf(err, "write temp %s", rel)
		}
		if err := os.Rename(tmp, p); err != nil {
			_ = os.Remove(tmp)
			return errors.Wrapf(err, "rename %s", rel)
		}
	}
	return nil
}

// Get returns the content stored under rel, for tests.
func (s *Set) Get(rel string) ([]byte, bool) {
	b, ok := s.files[filepath.ToSlash(rel)]
	return b, ok
}

// SanitizeName lowercases a name and strips everything but [a-z0-9-_],
// collapsing spaces and slashes to dashes.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = strings.ReplaceAll(name, " ", "-")
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ToLower(name)
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}
