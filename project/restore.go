package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhamidi/rapidc/rewrite"
)

// Restore renames every <f>.old below path back to <f>, undoing earlier
// runs. path may also name a single source file or its backup. It returns
// the restored source paths; failures do not stop the walk and are joined
// into the returned error.
func (d *Driver) Restore(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && strings.HasSuffix(path, d.extension) {
			// The source may have been lost after a failed write.
			if _, berr := os.Stat(path + rewrite.BackupSuffix); berr == nil {
				return d.restoreFiles([]string{path + rewrite.BackupSuffix})
			}
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrPathMissing)
		}
		return nil, err
	}

	if !info.IsDir() {
		backup := path
		if !strings.HasSuffix(path, rewrite.BackupSuffix) {
			backup = path + rewrite.BackupSuffix
		}
		if _, err := os.Stat(backup); err != nil {
			return nil, fmt.Errorf("%s: no backup to restore: %w", path, err)
		}
		return d.restoreFiles([]string{backup})
	}

	backups, err := SourceFiles(path, d.extension+rewrite.BackupSuffix)
	if err != nil {
		return nil, err
	}
	return d.restoreFiles(backups)
}

func (d *Driver) restoreFiles(backups []string) ([]string, error) {
	var restored []string
	var errs []error
	for _, backup := range backups {
		original := strings.TrimSuffix(backup, rewrite.BackupSuffix)
		if err := os.Rename(backup, original); err != nil {
			d.log.Errorf("%s: restore failed: %s", original, err)
			errs = append(errs, fmt.Errorf("restore %s: %w", original, err))
			continue
		}
		d.log.Infof("restored %s", filepath.Clean(original))
		restored = append(restored, original)
	}
	return restored, errors.Join(errs...)
}
