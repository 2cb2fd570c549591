package project

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SnapshotConflictError means a snapshot of the project already exists. It
// is never overwritten.
type SnapshotConflictError struct {
	Root     string
	Snapshot string
}

func (e *SnapshotConflictError) Error() string {
	return fmt.Sprintf("%s: snapshot %s already exists, not overwriting it", e.Root, e.Snapshot)
}

// Snapshot copies the tree at root to <backupRoot>/<project name> and
// returns the snapshot directory. The backup root is created when missing.
func Snapshot(root, backupRoot string) (string, error) {
	name, err := Name(root)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(backupRoot, 0o755); err != nil {
		return "", fmt.Errorf("create backup root: %w", err)
	}

	dest := filepath.Join(backupRoot, name)
	info, err := os.Stat(root)
	if err != nil {
		return "", err
	}
	if err := os.Mkdir(dest, info.Mode().Perm()|0o700); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return dest, &SnapshotConflictError{Root: root, Snapshot: dest}
		}
		return "", fmt.Errorf("create snapshot: %w", err)
	}

	if err := copyTree(root, dest, backupRoot); err != nil {
		return dest, fmt.Errorf("snapshot %s: %w", root, err)
	}
	return dest, nil
}

// copyTree copies the contents of src into the existing directory dst,
// skipping skip when the backup root lives inside the project.
func copyTree(src, dst, skip string) error {
	skipAbs, _ := filepath.Abs(skip)

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		target := filepath.Join(dst, rel)

		switch {
		case d.IsDir():
			if abs, _ := filepath.Abs(path); abs == skipAbs {
				return filepath.SkipDir
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			return os.Mkdir(target, info.Mode().Perm()|0o700)
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		case d.Type().IsRegular():
			return copyFile(path, target)
		default:
			return nil
		}
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// within reports whether path is root or below it.
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
