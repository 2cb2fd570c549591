package project

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/rapidc/rewrite"
)

const (
	mainJava = `package app;

public class Main {
    @Remote
    public static void foo() {
        System.out.println("x");
    }
}
`
	helperJava = `package app.util;

class Helper {
    @Remote(name="svc")
    @QoS(terms={"latency"}, operators={"<"}, thresholds={"100"})
    int twice(int a) {
        return a * 2;
    }

    int plain() { return 1; }
}
`
	brokenJava = "class Broken {\n    @Remote void f() {\n"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func newProject(t *testing.T) (root, backups string) {
	t.Helper()
	base := t.TempDir()
	root = filepath.Join(base, "shop")
	backups = filepath.Join(base, "backups")
	writeTree(t, root, map[string]string{
		"src/app/Main.java":        mainJava,
		"src/app/util/Helper.java": helperJava,
		"src/app/Broken.java":      brokenJava,
		"README.md":                "readme",
		".git/config":              "[core]",
		".git/Hidden.java":         mainJava,
	})
	return root, backups
}

func TestRunDirectory(t *testing.T) {
	root, backups := newProject(t)
	d := NewDriver(WithBackupRoot(backups))

	report, err := d.Run(root)
	require.NoError(t, err)

	var paths []string
	for _, f := range report.Files {
		rel, err := filepath.Rel(root, f.Path)
		require.NoError(t, err)
		paths = append(paths, filepath.ToSlash(rel))
	}
	assert.Equal(t, []string{"src/app/Broken.java", "src/app/Main.java", "src/app/util/Helper.java"}, paths)
	assert.Equal(t, 1, report.Failed())
	assert.Equal(t, 2, report.Rewritten())

	assert.Equal(t, brokenJava, readFile(t, filepath.Join(root, "src/app/Broken.java")))
	assert.Equal(t, mainJava, readFile(t, filepath.Join(root, "src/app/Main.java.old")))
	assert.Contains(t, readFile(t, filepath.Join(root, "src/app/Main.java")), "localLocal_foo")
	assert.Equal(t, mainJava, readFile(t, filepath.Join(root, ".git/Hidden.java")))

	assert.Equal(t, filepath.Join(backups, "shop"), report.Snapshot)
	require.NoError(t, report.SnapshotErr)
	assert.Equal(t, mainJava, readFile(t, filepath.Join(backups, "shop/src/app/Main.java")))
	assert.Equal(t, "readme", readFile(t, filepath.Join(backups, "shop/README.md")))
	assert.NoFileExists(t, filepath.Join(backups, "shop/src/app/Main.java.old"))

	var out bytes.Buffer
	require.NoError(t, d.Emit(&out))
	want := strings.Join([]string{
		"<application>",
		"\t<name>TODO</name>",
		"\t<class>",
		"\t\t<name>app.Main</name>",
		"\t\t<method>",
		"\t\t\t<name>foo</name>",
		"\t\t\t<Remote></Remote>",
		"\t\t\t<QoS></QoS>",
		"\t\t</method>",
		"\t</class>",
		"\t<class>",
		"\t\t<name>app.util.Helper</name>",
		"\t\t<method>",
		"\t\t\t<name>twice</name>",
		"\t\t\t<Remote>",
		"\t\t\t\t<name>\"svc\"</name>",
		"\t\t\t</Remote>",
		"\t\t\t<QoS>",
		"\t\t\t\t<term>\"latency\"</term>",
		"\t\t\t\t<operator>\"&lt;\"</operator>",
		"\t\t\t\t<threshold>\"100\"</threshold>",
		"\t\t\t</QoS>",
		"\t\t</method>",
		"\t</class>",
		"</application>",
		"",
	}, "\n")
	assert.Equal(t, want, out.String())
}

func TestRunTwice(t *testing.T) {
	root, backups := newProject(t)

	first := NewDriver(WithBackupRoot(backups))
	_, err := first.Run(root)
	require.NoError(t, err)
	var firstXML bytes.Buffer
	require.NoError(t, first.Emit(&firstXML))
	rewritten := readFile(t, filepath.Join(root, "src/app/util/Helper.java"))

	second := NewDriver(WithBackupRoot(backups))
	report, err := second.Run(root)
	require.NoError(t, err)

	var conflict *SnapshotConflictError
	assert.True(t, errors.As(report.SnapshotErr, &conflict))
	assert.Equal(t, 0, report.Rewritten())
	assert.Equal(t, rewritten, readFile(t, filepath.Join(root, "src/app/util/Helper.java")))
	assert.Equal(t, helperJava, readFile(t, filepath.Join(backups, "shop/src/app/util/Helper.java")))

	var secondXML bytes.Buffer
	require.NoError(t, second.Emit(&secondXML))
	assert.Equal(t, firstXML.String(), secondXML.String())
}

func TestRunBackupConflict(t *testing.T) {
	root, backups := newProject(t)
	writeTree(t, root, map[string]string{"src/app/Main.java.old": "older"})

	d := NewDriver(WithBackupRoot(backups))
	report, err := d.Run(root)
	require.NoError(t, err)

	var conflict *rewrite.BackupConflictError
	for _, f := range report.Files {
		if strings.HasSuffix(f.Path, "Main.java") {
			assert.True(t, errors.As(f.Err, &conflict))
		}
	}
	require.NotNil(t, conflict)
	assert.Equal(t, mainJava, readFile(t, filepath.Join(root, "src/app/Main.java")))
	assert.Equal(t, []string{"app.util.Helper"}, d.Catalog().Classes())
}

func TestRunSingleFile(t *testing.T) {
	root, backups := newProject(t)
	path := filepath.Join(root, "src/app/Main.java")

	d := NewDriver(WithBackupRoot(backups))
	report, err := d.Run(path)
	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	assert.Empty(t, report.Snapshot)
	assert.NoDirExists(t, backups)
	assert.Equal(t, []string{"app.Main"}, d.Catalog().Classes())
}

func TestRunNotASourceFile(t *testing.T) {
	root, backups := newProject(t)
	path := filepath.Join(root, "README.md")

	d := NewDriver(WithBackupRoot(backups))
	report, err := d.Run(path)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, report.Skipped)
	assert.Empty(t, report.Files)
	assert.Zero(t, d.Catalog().Len())
}

func TestRunMissingPath(t *testing.T) {
	d := NewDriver(WithBackupRoot(t.TempDir()))
	_, err := d.Run(filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrPathMissing)
}

func TestRunDryRun(t *testing.T) {
	root, backups := newProject(t)

	d := NewDriver(WithBackupRoot(backups), WithDryRun(true))
	report, err := d.Run(root)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Rewritten())
	assert.Equal(t, mainJava, readFile(t, filepath.Join(root, "src/app/Main.java")))
	assert.NoFileExists(t, filepath.Join(root, "src/app/Main.java.old"))
	assert.NoDirExists(t, backups)
	assert.Equal(t, 2, d.Catalog().Len())
}

func TestRunBackupRootInsideProject(t *testing.T) {
	root, _ := newProject(t)
	backups := filepath.Join(root, "snapshots")

	d := NewDriver(WithBackupRoot(backups))
	report, err := d.Run(root)
	require.NoError(t, err)
	require.NoError(t, report.SnapshotErr)
	assert.Len(t, report.Files, 3)
	assert.NoDirExists(t, filepath.Join(backups, "shop", "snapshots"))

	again := NewDriver(WithBackupRoot(backups))
	report, err = again.Run(root)
	require.NoError(t, err)
	assert.Len(t, report.Files, 3)
}

func TestRestore(t *testing.T) {
	root, backups := newProject(t)
	d := NewDriver(WithBackupRoot(backups))
	_, err := d.Run(root)
	require.NoError(t, err)

	restored, err := d.Restore(root)
	require.NoError(t, err)
	assert.Len(t, restored, 2)
	assert.Equal(t, mainJava, readFile(t, filepath.Join(root, "src/app/Main.java")))
	assert.Equal(t, helperJava, readFile(t, filepath.Join(root, "src/app/util/Helper.java")))
	assert.NoFileExists(t, filepath.Join(root, "src/app/Main.java.old"))

	_, err = d.Restore(filepath.Join(root, "src/app/Main.java"))
	assert.Error(t, err)
}

func TestRestoreSingleFile(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"A.java": "new", "A.java.old": "old"})
	d := NewDriver()

	restored, err := d.Restore(filepath.Join(dir, "A.java"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "A.java")}, restored)
	assert.Equal(t, "old", readFile(t, filepath.Join(dir, "A.java")))

	writeTree(t, dir, map[string]string{"B.java.old": "old b"})
	restored, err = d.Restore(filepath.Join(dir, "B.java"))
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "B.java")}, restored)
	assert.Equal(t, "old b", readFile(t, filepath.Join(dir, "B.java")))
}

func TestSnapshotConflict(t *testing.T) {
	root, backups := newProject(t)
	require.NoError(t, os.MkdirAll(filepath.Join(backups, "shop"), 0o755))

	dir, err := Snapshot(root, backups)
	var conflict *SnapshotConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, filepath.Join(backups, "shop"), dir)
	assert.NoFileExists(t, filepath.Join(backups, "shop", "README.md"))
}

func TestSourceFiles(t *testing.T) {
	root, _ := newProject(t)
	files, err := SourceFiles(root, ".java")
	require.NoError(t, err)
	require.Len(t, files, 3)
	for _, f := range files {
		assert.True(t, strings.HasSuffix(f, ".java"))
		assert.NotContains(t, f, ".git")
	}
}
