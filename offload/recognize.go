// Package offload decides which Java methods are offloadable and generates
// the dispatch wrappers and local twins that replace them.
package offload

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dhamidi/rapidc/catalog"
	"github.com/dhamidi/rapidc/java/parser"
)

const (
	RemoteAnnotation = "Remote"
	QoSAnnotation    = "QoS"
)

type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is a recognition or synthesis problem tied to a source
// position. Errors skip the method; warnings are informational.
type Diagnostic struct {
	Severity Severity
	Pos      parser.Position
	End      parser.Position
	Class    string
	Method   string
	Message  string
}

func (d Diagnostic) String() string {
	where := d.Class
	if d.Method != "" {
		where += "." + d.Method
	}
	return fmt.Sprintf("%s: %s: %s: %s", d.Pos, d.Severity, where, d.Message)
}

type Recognition struct {
	Eligible    bool
	Remote      []catalog.RemotePair
	QoS         []catalog.QoSTriple
	Diagnostics []Diagnostic
}

// Descriptor returns the catalog entry for an eligible method.
func (r Recognition) Descriptor(m *parser.MethodDecl) catalog.MethodDescriptor {
	return catalog.MethodDescriptor{
		Class:          m.Enclosing,
		Method:         m.Name,
		ParameterTypes: m.ParameterTypes(),
		Remote:         r.Remote,
		QoS:            r.QoS,
	}
}

// Recognize inspects the annotations of m, declared in enclosing, and
// decides whether it should be offloaded.
func Recognize(m *parser.MethodDecl, enclosing *parser.TypeDecl) Recognition {
	var rec Recognition
	diag := func(sev Severity, span parser.Span, format string, args ...any) {
		rec.Diagnostics = append(rec.Diagnostics, Diagnostic{
			Severity: sev,
			Pos:      span.Start,
			End:      span.End,
			Class:    m.Enclosing,
			Method:   m.Name,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	var remote, qos *parser.Annotation
	for i := range m.Annotations {
		a := &m.Annotations[i]
		switch a.SimpleName() {
		case RemoteAnnotation:
			if remote != nil {
				diag(SeverityWarning, a.Span, "duplicate @%s annotation ignored", RemoteAnnotation)
				continue
			}
			remote = a
		case QoSAnnotation:
			if qos != nil {
				diag(SeverityWarning, a.Span, "duplicate @%s annotation ignored", QoSAnnotation)
				continue
			}
			qos = a
		}
	}

	if remote == nil {
		if qos != nil {
			diag(SeverityWarning, qos.Span, "@%s without @%s has no effect", QoSAnnotation, RemoteAnnotation)
		}
		return rec
	}

	switch {
	case m.HasModifier("abstract"):
		diag(SeverityWarning, remote.Span, "@%s on abstract method is ignored", RemoteAnnotation)
		return rec
	case m.HasModifier("native"):
		diag(SeverityWarning, remote.Span, "@%s on native method is ignored", RemoteAnnotation)
		return rec
	case !m.HasBody:
		diag(SeverityWarning, remote.Span, "@%s on method without a body is ignored", RemoteAnnotation)
		return rec
	case enclosing != nil && enclosing.Kind == parser.TypeKindAnnotation:
		diag(SeverityWarning, remote.Span, "@%s on annotation element is ignored", RemoteAnnotation)
		return rec
	}

	for _, e := range remote.Elements {
		rec.Remote = append(rec.Remote, catalog.RemotePair{Element: e.Name, Value: e.Value})
	}

	if qos != nil {
		triples, err := qosTriples(*qos, func(format string, args ...any) {
			diag(SeverityWarning, qos.Span, format, args...)
		})
		if err != "" {
			diag(SeverityError, qos.Span, "%s", err)
			rec.Remote = nil
			return rec
		}
		rec.QoS = triples
	}

	rec.Eligible = true
	return rec
}

// qosTriples zips the terms, operators and thresholds arrays. A non-empty
// problem means the arrays could not be aligned.
func qosTriples(a parser.Annotation, warn func(string, ...any)) ([]catalog.QoSTriple, string) {
	var terms, operators, thresholds []string
	for _, e := range a.Elements {
		switch e.Name {
		case "terms":
			terms = e.Values()
		case "operators":
			operators = e.Values()
		case "thresholds":
			thresholds = e.Values()
		default:
			warn("unknown @%s element %q ignored", QoSAnnotation, e.Name)
		}
	}
	if len(terms) != len(operators) || len(terms) != len(thresholds) {
		return nil, fmt.Sprintf("@%s arrays differ in length: terms=%d operators=%d thresholds=%d",
			QoSAnnotation, len(terms), len(operators), len(thresholds))
	}
	var triples []catalog.QoSTriple
	for i := range terms {
		triples = append(triples, catalog.QoSTriple{Term: terms[i], Operator: operators[i], Threshold: thresholds[i]})
	}
	return triples, ""
}

// RecognizeType reports offload annotations placed on a type declaration or
// on its constructors, where they have no effect.
func RecognizeType(td *parser.TypeDecl) []Diagnostic {
	var diags []Diagnostic
	for _, a := range td.Annotations {
		name := a.SimpleName()
		if name != RemoteAnnotation && name != QoSAnnotation {
			continue
		}
		diags = append(diags, Diagnostic{
			Severity: SeverityWarning,
			Pos:      a.Span.Start,
			End:      a.Span.End,
			Class:    td.BinaryName,
			Message:  fmt.Sprintf("@%s on %s %s is ignored; annotate its methods instead", name, td.Kind, td.Name),
		})
	}
	for _, c := range td.Constructors {
		for _, a := range c.Annotations {
			name := a.SimpleName()
			if name != RemoteAnnotation && name != QoSAnnotation {
				continue
			}
			diags = append(diags, Diagnostic{
				Severity: SeverityWarning,
				Pos:      a.Span.Start,
				End:      a.Span.End,
				Class:    td.BinaryName,
				Method:   c.Name,
				Message:  fmt.Sprintf("@%s on constructor is ignored", name),
			})
		}
	}
	return diags
}

// IsDispatchWrapper reports whether m already has the shape of a generated
// wrapper: its body checks availability, calls the execute method, and its
// local twin exists in td.
func (r Runtime) IsDispatchWrapper(cu *parser.CompilationUnit, td *parser.TypeDecl, m *parser.MethodDecl) bool {
	if !m.HasBody || strings.HasPrefix(m.Name, r.LocalPrefix) {
		return false
	}
	body := cu.Text(m.Body)
	if !strings.Contains(body, "."+r.AvailableMethod+"()") || !strings.Contains(body, "."+r.ExecuteMethod+"(") {
		return false
	}
	return r.findTwin(td, m) != nil
}

// findTwin returns the method in td named like m's twin with the same
// parameter types.
func (r Runtime) findTwin(td *parser.TypeDecl, m *parser.MethodDecl) *parser.MethodDecl {
	name := r.TwinName(m.Name)
	want := normalizeTypes(m.ParameterTypes())
	for _, other := range td.Methods {
		if other.Name == name && slices.Equal(normalizeTypes(other.ParameterTypes()), want) {
			return other
		}
	}
	return nil
}

func normalizeTypes(types []string) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = strings.Join(strings.Fields(t), "")
	}
	return out
}
