package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/rapidc/offload"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("rapidc", pflag.ContinueOnError)
	fs.String("runtime-handle", "", "")
	fs.String("backup-root", "", "")
	fs.String("application", "", "")
	fs.Bool("xml-verbatim", false, "")
	fs.CountP("verbose", "v", "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", "", nil)
	require.NoError(t, err)
	assert.Equal(t, offload.DefaultRuntime(), cfg.OffloadRuntime())
	assert.Equal(t, ".java", cfg.Extension)
	assert.Equal(t, "TODO", cfg.Application)
	assert.Empty(t, cfg.BackupRoot)
	assert.Empty(t, cfg.File)
	assert.False(t, cfg.XML.Verbatim)
	assert.Zero(t, cfg.Verbose)
}

func TestLoadPrecedence(t *testing.T) {
	t.Chdir(t.TempDir())
	project := t.TempDir()
	path := writeConfig(t, project, `
runtime:
  handle: org.acme.Offloader
  failure: org.acme.OffloadFailed
application: shop
backup_root: /tmp/from-file
xml:
  verbatim: true
`)

	cfg, err := Load("", project, nil)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "org.acme.Offloader", cfg.Runtime.Handle)
	assert.Equal(t, "org.acme.OffloadFailed", cfg.Runtime.Failure)
	assert.Equal(t, offload.DefaultAccessor, cfg.Runtime.Accessor)
	assert.Equal(t, "shop", cfg.Application)
	assert.True(t, cfg.XML.Verbatim)

	t.Setenv("RAPIDC_RUNTIME_HANDLE", "org.env.Handle")
	t.Setenv("RAPIDC_BACKUP_ROOT", "/tmp/from-env")
	cfg, err = Load("", project, nil)
	require.NoError(t, err)
	assert.Equal(t, "org.env.Handle", cfg.Runtime.Handle)
	assert.Equal(t, "/tmp/from-env", cfg.BackupRoot)
	assert.Equal(t, "shop", cfg.Application)

	flags := newFlags(t, "--runtime-handle", "org.flag.Handle", "-vv")
	cfg, err = Load("", project, flags)
	require.NoError(t, err)
	assert.Equal(t, "org.flag.Handle", cfg.Runtime.Handle)
	assert.Equal(t, "/tmp/from-env", cfg.BackupRoot)
	assert.Equal(t, 2, cfg.Verbose)
}

func TestLoadUnsetFlagsKeepLowerLayers(t *testing.T) {
	t.Chdir(t.TempDir())
	project := t.TempDir()
	writeConfig(t, project, "application: shop\n")

	cfg, err := Load("", project, newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "shop", cfg.Application)
	assert.Equal(t, offload.DefaultHandleType, cfg.Runtime.Handle)
}

func TestLoadWorkingDirectoryFirst(t *testing.T) {
	cwd := t.TempDir()
	t.Chdir(cwd)
	writeConfig(t, cwd, "application: cwd\n")
	project := t.TempDir()
	writeConfig(t, project, "application: project\n")

	cfg, err := Load("", filepath.Join(project, "Main.java"), nil)
	require.NoError(t, err)
	assert.Equal(t, FileName, cfg.File)
	assert.Equal(t, "cwd", cfg.Application)
}

func TestLoadErrors(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()

	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"bad yaml", "runtime: [", "error reading config file"},
		{"bad handle", "runtime:\n  handle: org.acme.1Bad\n", "invalid runtime configuration"},
		{"empty prefix", "local_prefix: \"\"\n", "local prefix is empty"},
		{"bad extension", "extension: java\n", "must start with a dot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, dir, tt.content)
			_, err := Load(path, "", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.yaml"), "", nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSectionKey(t *testing.T) {
	assert.Equal(t, "runtime.handle", sectionKey("runtime_handle"))
	assert.Equal(t, "xml.verbatim", sectionKey("xml_verbatim"))
	assert.Equal(t, "backup_root", sectionKey("backup_root"))
	assert.Equal(t, "local_prefix", sectionKey("local_prefix"))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "backups"), expandHome("~/backups"))
	assert.Equal(t, "/abs/backups", expandHome("/abs/backups"))
}
