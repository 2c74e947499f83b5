// Package workspace is the filesystem collaborator that persists generated
// artifacts under a project root.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/xkilldash9x/codesmith-cli/api/schemas"
)

// ErrUnsafePath is returned for paths that would escape the project root.
var ErrUnsafePath = errors.New("path escapes project root")

// Workspace is a project root on an afero filesystem.
type Workspace struct {
	fs   afero.Fs
	root string
}

var _ schemas.ArtifactWriter = (*Workspace)(nil)

// New returns a workspace rooted at root on fsys.
func New(fsys afero.Fs, root string) *Workspace {
	return &Workspace{fs: fsys, root: filepath.Clean(root)}
}

// NewOS returns a workspace on the host filesystem.
func NewOS(root string) *Workspace {
	return New(afero.NewOsFs(), root)
}

// Root returns the project root.
func (w *Workspace) Root() string { return w.root }

// Fs exposes the underlying filesystem.
func (w *Workspace) Fs() afero.Fs { return w.fs }

// Resolve maps a project-relative path to a filesystem path. A leading slash is
// read as the project root, as manifests write it; any ".." segment is rejected.
func (w *Workspace) Resolve(rel string) (string, error) {
	clean := schemas.NormalizePath(rel)
	if clean == "" {
		return w.root, nil
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrUnsafePath, rel)
		}
	}
	return filepath.Join(w.root, filepath.FromSlash(path.Clean(clean))), nil
}

// MkdirAll creates a directory and its parents under the root.
func (w *Workspace) MkdirAll(rel string) error {
	p, err := w.Resolve(rel)
	if err != nil {
		return err
	}
	return w.fs.MkdirAll(p, 0o755)
}

// WriteFile writes content, creating parent directories as needed.
func (w *Workspace) WriteFile(rel string, content []byte) error {
	p, err := w.Resolve(rel)
	if err != nil {
		return err
	}
	if err := w.fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create parent of %s: %w", rel, err)
	}
	if err := afero.WriteFile(w.fs, p, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	return nil
}

// Touch creates an empty file unless one already exists.
func (w *Workspace) Touch(rel string) (bool, error) {
	if w.Exists(rel) {
		return false, nil
	}
	return true, w.WriteFile(rel, nil)
}

// ReadFile reads a project-relative file.
func (w *Workspace) ReadFile(rel string) ([]byte, error) {
	p, err := w.Resolve(rel)
	if err != nil {
		return nil, err
	}
	return afero.ReadFile(w.fs, p)
}

// Exists reports whether the path exists.
func (w *Workspace) Exists(rel string) bool {
	p, err := w.Resolve(rel)
	if err != nil {
		return false
	}
	ok, err := afero.Exists(w.fs, p)
	return err == nil && ok
}

// Files lists every regular file under the root as sorted slash paths.
func (w *Workspace) Files() ([]string, error) {
	var out []string
	err := afero.Walk(w.fs, w.root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(w.root, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	sort.Strings(out)
	return out, err
}

// ReadAbsolute reads a file outside the project root, such as an input document.
func (w *Workspace) ReadAbsolute(p string) ([]byte, error) {
	return afero.ReadFile(w.fs, p)
}
