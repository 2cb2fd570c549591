package rewrite

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// BackupSuffix is appended to a rewritten file's path to name the copy of
// its previous contents.
const BackupSuffix = ".old"

// BackupConflictError means a backup from an earlier run is still present.
// The file is not touched.
type BackupConflictError struct {
	Path   string
	Backup string
}

func (e *BackupConflictError) Error() string {
	return fmt.Sprintf("%s: backup %s already exists, not rewriting", e.Path, e.Backup)
}

// WriteFailedError means the original was moved to Backup but the new
// contents could not be written. Backup must be restored by hand.
type WriteFailedError struct {
	Path   string
	Backup string
	Err    error
}

func (e *WriteFailedError) Error() string {
	return fmt.Sprintf("%s: write failed, original kept at %s: %v", e.Path, e.Backup, e.Err)
}

func (e *WriteFailedError) Unwrap() error {
	return e.Err
}

// swap stores the current contents of path at path+BackupSuffix and then
// replaces path with data. The backup is created with a hard link so an
// existing backup is never overwritten; on filesystems without hard links
// it falls back to a rename after checking for the backup.
func swap(path string, data []byte) error {
	backup := path + BackupSuffix
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if err := os.Link(path, backup); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return &BackupConflictError{Path: path, Backup: backup}
		}
		if _, statErr := os.Lstat(backup); statErr == nil {
			return &BackupConflictError{Path: path, Backup: backup}
		} else if !errors.Is(statErr, fs.ErrNotExist) {
			return fmt.Errorf("check backup %s: %w", backup, statErr)
		}
		if err := os.Rename(path, backup); err != nil {
			return fmt.Errorf("back up %s: %w", path, err)
		}
	}

	if err := replaceFile(path, data, info.Mode().Perm()); err != nil {
		return &WriteFailedError{Path: path, Backup: backup, Err: err}
	}
	return nil
}

// checkBackup returns a *BackupConflictError when path already has a backup.
func checkBackup(path string) error {
	backup := path + BackupSuffix
	_, err := os.Lstat(backup)
	switch {
	case err == nil:
		return &BackupConflictError{Path: path, Backup: backup}
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("check backup %s: %w", backup, err)
	}
}

// replaceFile is swapped out in tests to fail after the backup exists.
var replaceFile = writeReplace

// writeReplace writes data to a temporary file next to path and renames it
// over path, so readers see either the old or the new contents.
func writeReplace(path string, data []byte, perm fs.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".rapidc-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	cleanup := func(err error) error {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}
