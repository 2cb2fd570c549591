package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/rapidc/project"
)

const mainJava = `package app;

public class Main {
    @Remote
    public static void foo() {
        System.out.println("x");
    }
}
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func setup(t *testing.T) (root, backups string) {
	t.Helper()
	base := t.TempDir()
	t.Chdir(base)
	root = filepath.Join(base, "shop")
	backups = filepath.Join(base, "backups")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "Main.java"), []byte(mainJava), 0o644))
	return root, backups
}

func TestRunCommand(t *testing.T) {
	root, backups := setup(t)

	stdout, stderr, err := execute(t, "--backup-root", backups, "--application", "shop", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, "<name>shop</name>")
	assert.Contains(t, stdout, "<name>app.Main</name>")
	assert.Contains(t, stdout, "<name>foo</name>")
	assert.Contains(t, stderr, "rewrote 1 methods in 1 files")

	data, err := os.ReadFile(filepath.Join(root, "app", "Main.java"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "localLocal_foo")
	assert.FileExists(t, filepath.Join(root, "app", "Main.java.old"))
	assert.DirExists(t, filepath.Join(backups, "shop"))

	stdout, _, err = execute(t, "restore", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, filepath.Join(root, "app", "Main.java"))
	data, err = os.ReadFile(filepath.Join(root, "app", "Main.java"))
	require.NoError(t, err)
	assert.Equal(t, mainJava, string(data))
}

func TestArgumentErrors(t *testing.T) {
	setup(t)

	_, _, err := execute(t)
	assert.ErrorIs(t, err, errUsage)

	_, _, err = execute(t, "a", "b")
	assert.ErrorIs(t, err, errUsage)

	_, _, err = execute(t, "does-not-exist")
	assert.ErrorIs(t, err, project.ErrPathMissing)
	assert.NotErrorIs(t, err, errUsage)
}

func TestCheckCommand(t *testing.T) {
	root, backups := setup(t)
	path := filepath.Join(root, "app", "Main.java")

	stdout, _, err := execute(t, "check", "--backup-root", backups, root)
	require.NoError(t, err)
	assert.Contains(t, stdout, "<name>foo</name>")

	stdout, _, err = execute(t, "check", "--format", "table", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, path)
	assert.Contains(t, stdout, "rewrite")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, mainJava, string(data))
	assert.NoFileExists(t, path+".old")
	assert.NoDirExists(t, backups)

	_, _, err = execute(t, "check", "--format", "json", root)
	assert.ErrorIs(t, err, errUsage)
}

func TestCheckReportsBlockedFiles(t *testing.T) {
	root, _ := setup(t)
	path := filepath.Join(root, "app", "Main.java")
	require.NoError(t, os.WriteFile(path+".old", []byte("older"), 0o644))

	stdout, _, err := execute(t, "check", "--format", "table", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, "blocked by Main.java.old")

	stdout, _, err = execute(t, "check", root)
	require.NoError(t, err)
	assert.NotContains(t, stdout, "<name>foo</name>")
	assert.NotContains(t, stdout, "<name>app.Main</name>")
}

func TestConfigFileIsUsed(t *testing.T) {
	root, backups := setup(t)
	cfg := "application: from-file\nbackup_root: " + backups + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "rapidc.yaml"), []byte(cfg), 0o644))

	stdout, _, err := execute(t, "check", root)
	require.NoError(t, err)
	assert.Contains(t, stdout, "<name>from-file</name>")
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, version)
}
