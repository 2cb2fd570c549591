package offload

import (
	"bytes"
	"sort"
	"strings"

	"github.com/dhamidi/rapidc/java/parser"
)

// importSet decides how generated code refers to a type from inside one
// compilation unit, recording the imports that reference requires.
type importSet struct {
	cu    *parser.CompilationUnit
	refs  map[string]string
	added map[string]string // simple name -> qualified name
}

func newImportSet(cu *parser.CompilationUnit) *importSet {
	return &importSet{
		cu:    cu,
		refs:  make(map[string]string),
		added: make(map[string]string),
	}
}

// ref returns the name generated code should use for the qualified type
// name. A simple name is used when the type is already visible or can be
// imported without clashing; otherwise the qualified name is used.
func (s *importSet) ref(qualified string) string {
	if r, ok := s.refs[qualified]; ok {
		return r
	}
	r := s.resolve(qualified)
	s.refs[qualified] = r
	return r
}

func (s *importSet) resolve(qualified string) string {
	pkg, simple := splitQualified(qualified)
	if pkg == "" {
		return simple
	}
	if s.cu.DeclaresType(simple) {
		return qualified
	}
	for _, imp := range s.cu.Imports {
		if imp.Static {
			continue
		}
		if imp.OnDemand {
			if imp.Name == pkg {
				return simple
			}
			continue
		}
		if imp.Name == qualified {
			return simple
		}
		if _, other := splitQualified(imp.Name); other == simple {
			return qualified
		}
	}
	if pkg == "java.lang" || pkg == s.cu.Package {
		return simple
	}
	if prev, ok := s.added[simple]; ok && prev != qualified {
		return qualified
	}
	s.added[simple] = qualified
	return simple
}

// imports returns the import declarations to add, sorted.
func (s *importSet) imports() []string {
	var names []string
	for _, q := range s.added {
		names = append(names, q)
	}
	sort.Strings(names)
	return names
}

// importEdit inserts names as import declarations after the last import,
// after the package declaration, or before the first type, whichever
// exists first.
func importEdit(cu *parser.CompilationUnit, names []string) (Edit, bool) {
	if len(names) == 0 {
		return Edit{}, false
	}
	var lines []string
	for _, n := range names {
		lines = append(lines, "import "+n+";")
	}
	block := strings.Join(lines, "\n")

	if n := len(cu.Imports); n > 0 {
		at := cu.Imports[n-1].Span.End.Offset
		return Edit{Start: at, End: at, Text: "\n" + block}, true
	}
	if span := cu.PackageSpan(); !span.IsZero() {
		at := span.End.Offset
		text := "\n\n" + block
		if !bytes.HasPrefix(cu.Source[at:], []byte("\n\n")) && !bytes.HasPrefix(cu.Source[at:], []byte("\r\n\r\n")) {
			text += "\n"
		}
		return Edit{Start: at, End: at, Text: text}, true
	}
	at := 0
	if len(cu.Types) > 0 {
		at = cu.Types[0].Span.Start.Offset
		if doc, ok := cu.JavadocBefore(at); ok {
			at = doc.Span.Start.Offset
		}
	}
	return Edit{Start: at, End: at, Text: block + "\n\n"}, true
}

func splitQualified(name string) (pkg, simple string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
