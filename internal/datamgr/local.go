package datamgr

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/geneflow-org/geneflow/internal/geneuri"
)

// Local implements Handler for the "local" scheme using the filesystem
// directly. Glob matching uses doublestar for "**" recursive patterns.
type Local struct{}

// NewLocal returns a Handler backed by the local filesystem.
func NewLocal() *Local { return &Local{} }

func (l *Local) List(_ context.Context, u geneuri.URI, glob string, recursive bool) ([]string, error) {
	root := u.ChoppedPath
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		matched, err := doublestar.Match(glob, u.Name)
		if err != nil {
			return nil, err
		}
		if matched {
			return []string{u.Name}, nil
		}
		return nil, nil
	}

	var names []string
	if recursive {
		pattern := "**/" + glob
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == root {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			matched, matchErr := doublestar.Match(pattern, rel)
			if matchErr != nil {
				return matchErr
			}
			base := filepath.Base(rel)
			matchedBase, matchErr := doublestar.Match(glob, base)
			if matchErr != nil {
				return matchErr
			}
			if matched || matchedBase {
				names = append(names, rel)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return names, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		matched, err := doublestar.Match(glob, e.Name())
		if err != nil {
			return nil, err
		}
		if matched {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (l *Local) Mkdir(_ context.Context, u geneuri.URI, recursive bool) error {
	if recursive {
		return os.MkdirAll(u.ChoppedPath, 0o755)
	}
	return os.Mkdir(u.ChoppedPath, 0o755)
}

func (l *Local) Delete(_ context.Context, u geneuri.URI) (bool, error) {
	if _, err := os.Stat(u.ChoppedPath); os.IsNotExist(err) {
		return false, nil
	}
	if err := os.RemoveAll(u.ChoppedPath); err != nil {
		return false, err
	}
	return true, nil
}

func (l *Local) Exists(_ context.Context, u geneuri.URI) (bool, error) {
	_, err := os.Stat(u.ChoppedPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (l *Local) Download(_ context.Context, u geneuri.URI, localPath string) error {
	return copyPath(u.ChoppedPath, localPath)
}

func (l *Local) Upload(_ context.Context, localPath string, u geneuri.URI) error {
	return copyPath(localPath, u.ChoppedPath)
}

func copyPath(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return copyDir(src, dest)
	}
	return copyFile(src, dest)
}

func copyDir(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// IsNested reports whether a list result name denotes a nested entry
// (recursive listings include path separators).
// Callers re-parse such names to keep folder/name splits consistent.
func IsNested(name string) bool {
	return strings.Contains(name, "/")
}
