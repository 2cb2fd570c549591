package offload

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dhamidi/rapidc/java/parser"
)

var wrapperTypes = map[string]string{
	"boolean": "Boolean",
	"byte":    "Byte",
	"char":    "Character",
	"short":   "Short",
	"int":     "Integer",
	"long":    "Long",
	"float":   "Float",
	"double":  "Double",
}

// Target is an eligible method together with the type declaring it.
type Target struct {
	Type   *parser.TypeDecl
	Method *parser.MethodDecl
}

// Plan is the set of edits that turns a compilation unit into its offloaded
// form, plus the imports those edits add.
type Plan struct {
	Edits   []Edit
	Imports []string
}

type TwinConflictError struct {
	Class  string
	Method string
	Twin   string
}

func (e *TwinConflictError) Error() string {
	return fmt.Sprintf("%s.%s: cannot add %s, a method with that name and parameters already exists", e.Class, e.Method, e.Twin)
}

type Synthesizer struct {
	Runtime Runtime
}

func NewSynthesizer(rt Runtime) *Synthesizer {
	return &Synthesizer{Runtime: rt}
}

// Conflict returns a *TwinConflictError when td already declares a method
// with the twin's name and m's parameter types.
func (s *Synthesizer) Conflict(td *parser.TypeDecl, m *parser.MethodDecl) error {
	if s.Runtime.findTwin(td, m) == nil {
		return nil
	}
	return &TwinConflictError{Class: td.BinaryName, Method: m.Name, Twin: s.Runtime.TwinName(m.Name)}
}

// Plan produces one edit per target replacing the method with its wrapper
// and local twin, and one edit adding any imports they need.
func (s *Synthesizer) Plan(cu *parser.CompilationUnit, targets []Target) *Plan {
	plan := &Plan{}
	if len(targets) == 0 {
		return plan
	}
	imports := newImportSet(cu)
	refs := runtimeRefs{
		handle:  imports.ref(s.Runtime.HandleType),
		failure: imports.ref(s.Runtime.FailureType),
	}
	for _, t := range targets {
		m := t.Method
		plan.Edits = append(plan.Edits, Edit{
			Start: m.Span.Start.Offset,
			End:   m.Span.End.Offset,
			Text:  s.replacement(cu, t, refs),
		})
	}
	plan.Imports = imports.imports()
	if e, ok := importEdit(cu, plan.Imports); ok {
		plan.Edits = append(plan.Edits, e)
	}
	return plan
}

type runtimeRefs struct {
	handle  string
	failure string
}

func (s *Synthesizer) replacement(cu *parser.CompilationUnit, t Target, refs runtimeRefs) string {
	indent := lineIndent(cu.Source, t.Method.Span.Start.Offset)
	step := "    "
	if strings.Contains(indent, "\t") {
		step = "\t"
	}
	return s.wrapper(cu, t, refs, indent, step) + "\n\n" + indent + s.twin(cu, t.Method)
}

func (s *Synthesizer) wrapper(cu *parser.CompilationUnit, t Target, refs runtimeRefs, indent, step string) string {
	rt := s.Runtime
	m := t.Method
	vars := typeVariables(cu, t.Type, m)
	params := forwarded(m)

	taken := make(map[string]bool)
	var names, tokens, boxed []string
	for _, p := range params {
		taken[p.Name] = true
		names = append(names, p.Name)
		tokens = append(tokens, classLiteral(p.Type, p.Varargs, vars))
		boxed = append(boxed, box(p))
	}
	handleVar := freshName("runtime", taken)
	failureVar := freshName("remoteFailure", taken)

	receiver, target := "this", "this"
	if m.IsStatic() {
		receiver = sourceName(cu, t.Type)
		target = receiver + ".class"
	}
	twin := rt.TwinName(m.Name)
	void := strings.TrimSpace(m.ReturnType) == "void"

	in1 := indent + step
	in2 := in1 + step
	in3 := in2 + step

	var b strings.Builder
	if !void && uncheckedReturn(m.ReturnType, vars) && !hasAnnotation(m, "SuppressWarnings") {
		b.WriteString("@SuppressWarnings(\"unchecked\")\n" + indent)
	}
	b.WriteString(wrapperHeader(cu, m, unionThrows(m.Throws, rt.FailureType, refs.failure)))
	b.WriteString(" {\n")
	fmt.Fprintf(&b, "%s%s %s = %s.%s();\n", in1, refs.handle, handleVar, refs.handle, rt.Accessor)
	fmt.Fprintf(&b, "%sif (%s.%s()) {\n", in1, handleVar, rt.AvailableMethod)
	fmt.Fprintf(&b, "%stry {\n", in2)
	call := fmt.Sprintf("%s.%s(%s, \"%s\", new Class<?>[] {%s}, new Object[] {%s})",
		handleVar, rt.ExecuteMethod, target, twin, strings.Join(tokens, ", "), strings.Join(boxed, ", "))
	if void {
		fmt.Fprintf(&b, "%s%s;\n", in3, call)
		fmt.Fprintf(&b, "%sreturn;\n", in3)
	} else {
		fmt.Fprintf(&b, "%sreturn %s;\n", in3, convertResult(m.ReturnType, call))
	}
	fmt.Fprintf(&b, "%s} catch (%s %s) {\n", in2, refs.failure, failureVar)
	fmt.Fprintf(&b, "%s// fall back to local execution\n", in3)
	fmt.Fprintf(&b, "%s}\n", in2)
	fmt.Fprintf(&b, "%s}\n", in1)
	local := fmt.Sprintf("%s.%s(%s)", receiver, twin, strings.Join(names, ", "))
	if void {
		fmt.Fprintf(&b, "%s%s;\n", in1, local)
	} else {
		fmt.Fprintf(&b, "%sreturn %s;\n", in1, local)
	}
	b.WriteString(indent + "}")
	return b.String()
}

// twin renders the original method as a private method under the twin name,
// keeping its body byte for byte.
func (s *Synthesizer) twin(cu *parser.CompilationUnit, m *parser.MethodDecl) string {
	mods := []string{"private"}
	for _, mod := range m.Modifiers {
		switch mod {
		case "static", "final", "synchronized", "strictfp":
			mods = append(mods, mod)
		}
	}
	return header(mods, m, s.Runtime.TwinName(m.Name), m.Throws) + " " + cu.Text(m.Body)
}

// wrapperHeader keeps the source of m's declaration up to its name, minus
// the offload annotations, so other annotations and comments survive.
func wrapperHeader(cu *parser.CompilationUnit, m *parser.MethodDecl, throws []string) string {
	src := cu.Source
	end := m.NameSpan.Start.Offset
	at := m.Span.Start.Offset

	var b strings.Builder
	for _, a := range m.Annotations {
		switch a.SimpleName() {
		case RemoteAnnotation, QoSAnnotation:
		default:
			continue
		}
		b.Write(src[at:a.Span.Start.Offset])
		at = a.Span.End.Offset
		for at < end && isSpace(src[at]) {
			at++
		}
	}
	b.Write(src[at:end])
	b.WriteString(m.Name + m.ParametersText + strings.Repeat("[]", m.TrailingDims))
	if len(throws) > 0 {
		b.WriteString(" throws " + strings.Join(throws, ", "))
	}
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func hasAnnotation(m *parser.MethodDecl, simple string) bool {
	for _, a := range m.Annotations {
		if a.SimpleName() == simple {
			return true
		}
	}
	return false
}

func header(mods []string, m *parser.MethodDecl, name string, throws []string) string {
	parts := append([]string(nil), mods...)
	if m.TypeParametersText != "" {
		parts = append(parts, m.TypeParametersText)
	}
	parts = append(parts, m.ReturnType, name+m.ParametersText)
	h := strings.Join(parts, " ")
	if len(throws) > 0 {
		h += " throws " + strings.Join(throws, ", ")
	}
	return h
}

// unionThrows appends the failure type unless the clause already names it.
func unionThrows(throws []string, qualified, ref string) []string {
	_, simple := splitQualified(qualified)
	for _, t := range throws {
		t = strings.Join(strings.Fields(t), "")
		if t == qualified || t == simple || t == ref {
			return throws
		}
	}
	return append(append([]string(nil), throws...), ref)
}

func forwarded(m *parser.MethodDecl) []parser.Parameter {
	var params []parser.Parameter
	for _, p := range m.Parameters {
		if !p.Receiver {
			params = append(params, p)
		}
	}
	return params
}

func box(p parser.Parameter) string {
	if p.Varargs {
		return p.Name
	}
	if w, ok := wrapperTypes[plainType(p.Type)]; ok {
		return w + ".valueOf(" + p.Name + ")"
	}
	return p.Name
}

// convertResult casts the untyped result of the execute call back to the
// declared return type, unboxing primitives.
func convertResult(returnType, call string) string {
	t := plainType(returnType)
	if w, ok := wrapperTypes[t]; ok {
		return "((" + w + ") " + call + ")." + t + "Value()"
	}
	return "(" + strings.TrimSpace(stripAnnotations(returnType)) + ") " + call
}

// uncheckedReturn reports whether casting to the return type is an
// unchecked conversion.
func uncheckedReturn(returnType string, vars map[string]string) bool {
	t := stripAnnotations(returnType)
	if strings.Contains(t, "<") {
		return true
	}
	t = strings.TrimRight(strings.Join(strings.Fields(t), ""), "[]")
	_, ok := vars[t]
	return ok
}

// classLiteral renders the erased class literal of a parameter type.
func classLiteral(lexeme string, varargs bool, vars map[string]string) string {
	base, dims := erase(lexeme)
	seen := make(map[string]bool)
	for {
		bound, ok := vars[base]
		if !ok || seen[base] {
			break
		}
		seen[base] = true
		if bound == "" {
			base = "Object"
			break
		}
		base, _ = erase(bound)
	}
	if varargs {
		dims++
	}
	return base + strings.Repeat("[]", dims) + ".class"
}

// erase drops annotations, type arguments and whitespace from a type
// lexeme and splits off its array dimensions.
func erase(lexeme string) (string, int) {
	t := stripTypeArguments(stripAnnotations(lexeme))
	t = strings.Join(strings.Fields(t), "")
	dims := 0
	for strings.HasSuffix(t, "[]") {
		dims++
		t = t[:len(t)-2]
	}
	return t, dims
}

func plainType(lexeme string) string {
	return strings.Join(strings.Fields(stripAnnotations(lexeme)), "")
}

// typeVariables maps every type variable in scope at m to its first bound,
// or to "" when unbounded. Method type parameters shadow those of enclosing
// types, and inner types shadow outer ones.
func typeVariables(cu *parser.CompilationUnit, td *parser.TypeDecl, m *parser.MethodDecl) map[string]string {
	vars := make(map[string]string)
	add := func(tps []parser.TypeParameter) {
		for _, tp := range tps {
			if _, ok := vars[tp.Name]; ok {
				continue
			}
			bound := ""
			if len(tp.Bounds) > 0 {
				bound = tp.Bounds[0]
			}
			vars[tp.Name] = bound
		}
	}
	add(m.TypeParameters)
	for t := td; t != nil; t = cu.TypeByBinaryName(t.Enclosing) {
		add(t.TypeParameters)
	}
	return vars
}

// sourceName is the name of td as written in source, with enclosing type
// names joined by dots.
func sourceName(cu *parser.CompilationUnit, td *parser.TypeDecl) string {
	names := []string{td.Name}
	for t := cu.TypeByBinaryName(td.Enclosing); t != nil; t = cu.TypeByBinaryName(t.Enclosing) {
		names = append([]string{t.Name}, names...)
	}
	return strings.Join(names, ".")
}

func lineIndent(src []byte, offset int) string {
	start := offset
	for start > 0 && src[start-1] != '\n' {
		start--
	}
	end := start
	for end < len(src) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return string(src[start:end])
}

func freshName(base string, taken map[string]bool) string {
	if !taken[base] {
		return base
	}
	for i := 1; ; i++ {
		name := base + strconv.Itoa(i)
		if !taken[name] {
			return name
		}
	}
}

// stripAnnotations removes type annotations such as @NonNull or
// @Size(max = 3) from a type lexeme.
func stripAnnotations(s string) string {
	if !strings.Contains(s, "@") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); {
		if s[i] != '@' {
			b.WriteByte(s[i])
			i++
			continue
		}
		i++
		for i < len(s) && (isNameByte(s[i]) || s[i] == '.') {
			i++
		}
		for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
			i++
		}
		if i < len(s) && s[i] == '(' {
			i = skipParens(s, i)
			for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
				i++
			}
		}
	}
	return b.String()
}

func skipParens(s string, i int) int {
	depth := 0
	var quote byte
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return i
}

func stripTypeArguments(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	var b strings.Builder
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth--
		default:
			if depth == 0 {
				b.WriteByte(s[i])
			}
		}
	}
	return b.String()
}

func isNameByte(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c >= 0x80
}
