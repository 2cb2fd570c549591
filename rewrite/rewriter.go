// Package rewrite turns one Java source file into its offloaded form and
// writes it back using the backup-and-swap protocol.
package rewrite

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/tliron/commonlog"

	"github.com/dhamidi/rapidc/catalog"
	"github.com/dhamidi/rapidc/java/parser"
	"github.com/dhamidi/rapidc/offload"
)

// Result describes what rewriting one file produced. Source holds the new
// contents only when Changed is set.
type Result struct {
	Path        string
	Source      []byte
	Changed     bool
	Descriptors []catalog.MethodDescriptor
	Diagnostics []offload.Diagnostic
	Imports     []string
	// Rewritten counts methods replaced in this pass; Offloaded counts
	// methods that were already in wrapper form.
	Rewritten int
	Offloaded int
}

// Warnings and Errors count diagnostics by severity.
func (r *Result) Warnings() int { return r.count(offload.SeverityWarning) }
func (r *Result) Errors() int   { return r.count(offload.SeverityError) }

func (r *Result) count(sev offload.Severity) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

type Option func(*Rewriter)

func WithRuntime(rt offload.Runtime) Option {
	return func(r *Rewriter) {
		r.runtime = rt
	}
}

// WithDryRun runs the whole pipeline, including catalog updates, without
// writing any file.
func WithDryRun(dryRun bool) Option {
	return func(r *Rewriter) {
		r.dryRun = dryRun
	}
}

type Rewriter struct {
	runtime offload.Runtime
	synth   *offload.Synthesizer
	catalog *catalog.Catalog
	dryRun  bool
	log     commonlog.Logger
}

// New returns a Rewriter that records the descriptors of every successfully
// rewritten file in cat.
func New(cat *catalog.Catalog, opts ...Option) *Rewriter {
	r := &Rewriter{
		runtime: offload.DefaultRuntime(),
		catalog: cat,
		log:     commonlog.GetLogger("rapidc.rewrite"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.synth = offload.NewSynthesizer(r.runtime)
	return r
}

func (r *Rewriter) Runtime() offload.Runtime {
	return r.runtime
}

// Rewrite processes the file at path. Parse errors return a
// *parser.ParseError and leave the file untouched; a *BackupConflictError or
// *WriteFailedError means the file's descriptors were not cataloged. A dry
// run reports the *BackupConflictError a real run would hit.
func (r *Rewriter) Rewrite(path string) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	res, err := r.rewrite(path, src, func() ([]byte, error) {
		return os.ReadFile(path + BackupSuffix)
	})
	if err != nil {
		return nil, err
	}
	for _, d := range res.Diagnostics {
		if d.Severity == offload.SeverityError {
			r.log.Errorf("%s", d)
		} else {
			r.log.Warningf("%s", d)
		}
	}

	if res.Changed {
		if r.dryRun {
			if err := checkBackup(path); err != nil {
				return res, err
			}
		} else {
			if err := swap(path, res.Source); err != nil {
				return res, err
			}
			r.log.Infof("rewrote %s (%d methods)", path, res.Rewritten)
		}
	}

	for _, d := range res.Descriptors {
		if err := r.catalog.Add(d); err != nil {
			r.log.Errorf("%s: %s", path, err)
		}
	}
	return res, nil
}

// RewriteSource runs the pipeline on src without touching the filesystem or
// the catalog. Methods already in wrapper form contribute no descriptors.
func (r *Rewriter) RewriteSource(path string, src []byte) (*Result, error) {
	return r.rewrite(path, src, nil)
}

func (r *Rewriter) rewrite(path string, src []byte, backup func() ([]byte, error)) (*Result, error) {
	cu, err := parser.Parse(src, parser.WithFile(path))
	if err != nil {
		return nil, err
	}
	res := &Result{Path: path}
	previous := &previousUnit{load: backup, log: r.log, path: path}

	var targets []offload.Target
	cu.Walk(func(td *parser.TypeDecl) {
		res.Diagnostics = append(res.Diagnostics, offload.RecognizeType(td)...)
		for _, m := range td.Methods {
			rec := offload.Recognize(m, td)
			res.Diagnostics = append(res.Diagnostics, rec.Diagnostics...)
			if !rec.Eligible {
				if r.runtime.IsDispatchWrapper(cu, td, m) {
					res.Offloaded++
					if d, ok := previous.descriptor(m); ok {
						res.Descriptors = append(res.Descriptors, d)
					}
				}
				continue
			}
			if err := r.synth.Conflict(td, m); err != nil {
				res.Diagnostics = append(res.Diagnostics, offload.Diagnostic{
					Severity: offload.SeverityError,
					Pos:      m.NameSpan.Start,
					End:      m.NameSpan.End,
					Class:    td.BinaryName,
					Method:   m.Name,
					Message:  err.Error(),
				})
				continue
			}
			targets = append(targets, offload.Target{Type: td, Method: m})
			res.Descriptors = append(res.Descriptors, rec.Descriptor(m))
		}
	})

	if len(targets) == 0 {
		return res, nil
	}
	plan := r.synth.Plan(cu, targets)
	out, err := offload.ApplyEdits(cu.Source, plan.Edits)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	res.Source = out
	res.Changed = true
	res.Rewritten = len(targets)
	res.Imports = plan.Imports
	return res, nil
}

// previousUnit lazily parses the backup of a file whose methods were
// offloaded by an earlier run, so their descriptors can be cataloged again.
type previousUnit struct {
	load   func() ([]byte, error)
	log    commonlog.Logger
	path   string
	loaded bool
	cu     *parser.CompilationUnit
}

func (p *previousUnit) descriptor(m *parser.MethodDecl) (catalog.MethodDescriptor, bool) {
	if !p.loaded {
		p.loaded = true
		p.cu = p.parse()
	}
	if p.cu == nil {
		return catalog.MethodDescriptor{}, false
	}
	td := p.cu.TypeByBinaryName(m.Enclosing)
	if td == nil {
		return catalog.MethodDescriptor{}, false
	}
	want := m.ParameterTypes()
	for _, old := range td.Methods {
		if old.Name != m.Name || !slices.Equal(old.ParameterTypes(), want) {
			continue
		}
		if rec := offload.Recognize(old, td); rec.Eligible {
			return rec.Descriptor(old), true
		}
	}
	return catalog.MethodDescriptor{}, false
}

func (p *previousUnit) parse() *parser.CompilationUnit {
	if p.load == nil {
		return nil
	}
	data, err := p.load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.log.Warningf("%s: already offloaded but %s is missing, its methods are not cataloged", p.path, p.path+BackupSuffix)
		} else {
			p.log.Warningf("%s: reading backup: %s", p.path, err)
		}
		return nil
	}
	cu, err := parser.Parse(data, parser.WithFile(p.path+BackupSuffix))
	if err != nil {
		p.log.Warningf("%s: cannot parse backup: %s", p.path, err)
		return nil
	}
	return cu
}
