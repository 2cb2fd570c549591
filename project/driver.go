package project

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/rapidc/catalog"
	"github.com/dhamidi/rapidc/offload"
	"github.com/dhamidi/rapidc/rewrite"
)

// ErrPathMissing is returned by Run when the given path does not exist.
var ErrPathMissing = errors.New("file or folder does not exist")

// FileReport is the outcome for one source file. Result is nil when the file
// could not be read or parsed.
type FileReport struct {
	Path   string
	Result *rewrite.Result
	Err    error
}

// Report summarizes a run.
type Report struct {
	Root     string
	Snapshot string
	// SnapshotErr is set when the snapshot could not be taken; the run
	// continues regardless.
	SnapshotErr error
	Files       []FileReport
	// Skipped lists paths that were given explicitly but are not source
	// files.
	Skipped []string
}

// Failed counts files that were not rewritten because of an error.
func (r *Report) Failed() int {
	n := 0
	for _, f := range r.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// Rewritten counts methods rewritten during the run.
func (r *Report) Rewritten() int {
	n := 0
	for _, f := range r.Files {
		if f.Err == nil && f.Result != nil {
			n += f.Result.Rewritten
		}
	}
	return n
}

type Option func(*Driver)

func WithRuntime(rt offload.Runtime) Option {
	return func(d *Driver) {
		d.runtime = rt
	}
}

// WithDryRun parses and recognizes every file without writing anything and
// without taking a snapshot.
func WithDryRun(dryRun bool) Option {
	return func(d *Driver) {
		d.dryRun = dryRun
	}
}

func WithBackupRoot(dir string) Option {
	return func(d *Driver) {
		d.backupRoot = dir
	}
}

func WithExtension(ext string) Option {
	return func(d *Driver) {
		d.extension = ext
	}
}

func WithEncoderOptions(opts ...catalog.EncoderOption) Option {
	return func(d *Driver) {
		d.encoderOpts = append(d.encoderOpts, opts...)
	}
}

// Driver walks a path, rewrites every source file in it and collects the
// descriptors of all offloaded methods in one catalog.
type Driver struct {
	runtime     offload.Runtime
	dryRun      bool
	backupRoot  string
	extension   string
	encoderOpts []catalog.EncoderOption

	catalog  *catalog.Catalog
	rewriter *rewrite.Rewriter
	log      commonlog.Logger
}

func NewDriver(opts ...Option) *Driver {
	d := &Driver{
		runtime:   offload.DefaultRuntime(),
		extension: DefaultExtension,
		catalog:   catalog.New(),
		log:       commonlog.GetLogger("rapidc.project"),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.rewriter = rewrite.New(d.catalog, rewrite.WithRuntime(d.runtime), rewrite.WithDryRun(d.dryRun))
	return d
}

func (d *Driver) Catalog() *catalog.Catalog {
	return d.catalog
}

// Run processes path: a single source file, or every source file below a
// directory in lexical order. In directory mode the tree is snapshotted
// under the backup root before the first file is touched. Per-file failures
// are logged and recorded in the report; only a missing path or an
// unreadable tree fails the run.
func (d *Driver) Run(path string) (*Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrPathMissing)
		}
		return nil, err
	}

	report := &Report{Root: path}
	switch {
	case info.Mode().IsRegular():
		if !strings.HasSuffix(path, d.extension) {
			d.log.Errorf("%s: given file is not a %s file", path, strings.TrimPrefix(d.extension, "."))
			report.Skipped = append(report.Skipped, path)
			return report, nil
		}
		d.rewriteFile(report, path)
	case info.IsDir():
		files, err := d.collect(path)
		if err != nil {
			return nil, err
		}
		if !d.dryRun {
			d.snapshot(report, path)
		}
		for _, f := range files {
			d.rewriteFile(report, f)
		}
	default:
		d.log.Errorf("%s: not a regular file or directory", path)
		report.Skipped = append(report.Skipped, path)
		return report, nil
	}

	d.log.Noticef("%s: %d methods rewritten in %d files, %d files failed", path, report.Rewritten(), len(report.Files), report.Failed())
	return report, nil
}

// Emit freezes the catalog and writes the XML descriptor to w.
func (d *Driver) Emit(w io.Writer) error {
	return catalog.NewEncoder(w, d.encoderOpts...).Encode(d.catalog)
}

func (d *Driver) collect(root string) ([]string, error) {
	files, err := SourceFiles(root, d.extension)
	if err != nil {
		return nil, err
	}
	if d.backupRoot == "" {
		return files, nil
	}
	// A backup root inside the project must not have its copies rewritten.
	backup, err := filepath.Abs(d.backupRoot)
	if err != nil {
		return files, nil
	}
	kept := files[:0]
	for _, f := range files {
		if abs, err := filepath.Abs(f); err == nil && within(backup, abs) {
			continue
		}
		kept = append(kept, f)
	}
	return kept, nil
}

func (d *Driver) snapshot(report *Report, root string) {
	backupRoot := d.backupRoot
	if backupRoot == "" {
		var err error
		if backupRoot, err = DefaultBackupRoot(); err != nil {
			report.SnapshotErr = err
			d.log.Errorf("%s: no snapshot taken: %s", root, err)
			return
		}
	}
	dir, err := Snapshot(root, backupRoot)
	report.Snapshot = dir
	if err != nil {
		report.SnapshotErr = err
		d.log.Errorf("%s", err)
		return
	}
	d.log.Infof("%s: snapshot written to %s", root, dir)
}

func (d *Driver) rewriteFile(report *Report, path string) {
	res, err := d.rewriter.Rewrite(path)
	if err != nil {
		d.log.Errorf("%s", err)
	}
	report.Files = append(report.Files, FileReport{Path: path, Result: res, Err: err})
}
