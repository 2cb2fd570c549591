// Package project drives a rewrite over a single source file or a whole
// project tree, snapshots the tree beforehand and can undo a run.
package project

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtension is the suffix of the files the driver rewrites.
const DefaultExtension = ".java"

// DefaultBackupDir is the name of the per-user snapshot directory, created
// in the home directory.
const DefaultBackupDir = ".rapid-compiler-backups"

// DefaultBackupRoot returns <home>/.rapid-compiler-backups.
func DefaultBackupRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, DefaultBackupDir), nil
}

// SourceFiles returns every file below root ending in ext, in lexical order.
// Hidden directories are not descended into.
func SourceFiles(root, ext string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !strings.HasSuffix(path, ext) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan source files in %s: %w", root, err)
	}

	return files, nil
}

// Name returns the project name used for the snapshot directory: the base
// name of the absolute project path.
func Name(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	name := filepath.Base(abs)
	if name == string(filepath.Separator) || name == "." {
		return "", fmt.Errorf("cannot derive a project name from %s", root)
	}
	return name, nil
}
