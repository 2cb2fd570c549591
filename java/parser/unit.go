package parser

import "strings"

type TypeKind string

const (
	TypeKindClass      TypeKind = "class"
	TypeKindInterface  TypeKind = "interface"
	TypeKindEnum       TypeKind = "enum"
	TypeKindRecord     TypeKind = "record"
	TypeKindAnnotation TypeKind = "annotation"
)

// CompilationUnit is the declaration-level view of one source file. It is
// never mutated after Parse returns; rewrites are expressed as edits against
// Source.
type CompilationUnit struct {
	File     string
	Source   []byte
	Package  string
	Imports  []Import
	Types    []*TypeDecl
	Comments []Token

	packageSpan Span
}

type Import struct {
	Name     string // dotted name without the trailing .*
	Static   bool
	OnDemand bool
	Span     Span
}

// TypeDecl is a class, interface, enum, record or annotation type. Nested
// types refer to their parent by binary name only.
type TypeDecl struct {
	Name           string
	BinaryName     string
	Enclosing      string
	Kind           TypeKind
	Modifiers      []string
	Annotations    []Annotation
	TypeParameters []TypeParameter
	Methods        []*MethodDecl
	// Constructors keep only ParametersText of the parameter list.
	Constructors []*MethodDecl
	Types        []*TypeDecl
	Span         Span
	Body         Span
}

type TypeParameter struct {
	Name   string
	Bounds []string
}

type MethodDecl struct {
	Name           string
	Enclosing      string
	Modifiers      []string
	Annotations    []Annotation
	TypeParameters []TypeParameter
	// TypeParametersText is the verbatim <...> clause, empty when absent.
	TypeParametersText string
	ReturnType         string
	Parameters         []Parameter
	// ParametersText is the verbatim parenthesized parameter list.
	ParametersText string
	// TrailingDims counts the [] pairs written after the parameter list.
	TrailingDims int
	Throws       []string
	Javadoc      string
	NameSpan     Span
	Span         Span
	// Body covers the braces of the method block. HasBody is false for
	// abstract, native and interface methods.
	Body    Span
	HasBody bool
}

type Parameter struct {
	Type     string
	Name     string
	Varargs  bool
	Receiver bool
}

// Annotation keeps element values as source lexemes, so string values retain
// their quotes.
type Annotation struct {
	Name     string
	Elements []ElementValue
	Span     Span
}

type ElementValue struct {
	Name  string
	Value string
	// Items holds the element lexemes when Value is an array initializer.
	Items   []string
	IsArray bool
}

func (a Annotation) SimpleName() string {
	if i := strings.LastIndexByte(a.Name, '.'); i >= 0 {
		return a.Name[i+1:]
	}
	return a.Name
}

func (a Annotation) IsMarker() bool {
	return len(a.Elements) == 0
}

// Element returns the value named name, if present.
func (a Annotation) Element(name string) (ElementValue, bool) {
	for _, e := range a.Elements {
		if e.Name == name {
			return e, true
		}
	}
	return ElementValue{}, false
}

// Values returns the element lexemes, treating a single value as an array of
// one.
func (v ElementValue) Values() []string {
	if v.IsArray {
		return v.Items
	}
	return []string{v.Value}
}

func hasModifier(mods []string, mod string) bool {
	for _, m := range mods {
		if m == mod {
			return true
		}
	}
	return false
}

func (t *TypeDecl) HasModifier(mod string) bool {
	return hasModifier(t.Modifiers, mod)
}

func (m *MethodDecl) HasModifier(mod string) bool {
	return hasModifier(m.Modifiers, mod)
}

func (m *MethodDecl) IsStatic() bool {
	return m.HasModifier("static")
}

// ParameterTypes returns the type lexemes of the declared parameters,
// skipping an explicit receiver parameter.
func (m *MethodDecl) ParameterTypes() []string {
	var types []string
	for _, p := range m.Parameters {
		if p.Receiver {
			continue
		}
		t := p.Type
		if p.Varargs {
			t += "..."
		}
		types = append(types, t)
	}
	return types
}

// Method returns the first method in t with the given name.
func (t *TypeDecl) Method(name string) *MethodDecl {
	for _, m := range t.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func (cu *CompilationUnit) Text(s Span) string {
	return string(cu.Source[s.Start.Offset:s.End.Offset])
}

// Walk visits every type declaration in source order, parents before their
// nested types.
func (cu *CompilationUnit) Walk(fn func(*TypeDecl)) {
	var walk func([]*TypeDecl)
	walk = func(types []*TypeDecl) {
		for _, t := range types {
			fn(t)
			walk(t.Types)
		}
	}
	walk(cu.Types)
}

func (cu *CompilationUnit) TypeByBinaryName(name string) *TypeDecl {
	var found *TypeDecl
	cu.Walk(func(t *TypeDecl) {
		if found == nil && t.BinaryName == name {
			found = t
		}
	})
	return found
}

// DeclaresType reports whether any type in the unit has the simple name.
func (cu *CompilationUnit) DeclaresType(simpleName string) bool {
	found := false
	cu.Walk(func(t *TypeDecl) {
		if t.Name == simpleName {
			found = true
		}
	})
	return found
}

// PackageSpan covers the package declaration, or is zero when there is none.
func (cu *CompilationUnit) PackageSpan() Span {
	return cu.packageSpan
}

// JavadocBefore returns the /** */ comment separated from offset by
// whitespace only.
func (cu *CompilationUnit) JavadocBefore(offset int) (Token, bool) {
	return javadocBefore(cu.Source, cu.Comments, offset)
}
