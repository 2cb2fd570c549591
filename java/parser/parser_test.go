package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *CompilationUnit {
	t.Helper()
	cu, err := Parse([]byte(src), WithFile("Test.java"))
	require.NoError(t, err)
	return cu
}

func TestParsePackageAndImports(t *testing.T) {
	cu := parse(t, `package com.example.app;

import java.util.List;
import java.util.concurrent.*;
import static java.lang.Math.max;

class A {}
`)
	assert.Equal(t, "com.example.app", cu.Package)
	require.Len(t, cu.Imports, 3)
	assert.Equal(t, Import{Name: "java.util.List", Span: cu.Imports[0].Span}, cu.Imports[0])
	assert.True(t, cu.Imports[1].OnDemand)
	assert.Equal(t, "java.util.concurrent", cu.Imports[1].Name)
	assert.True(t, cu.Imports[2].Static)
	assert.Equal(t, "import java.util.List;", cu.Text(cu.Imports[0].Span))
	assert.Equal(t, "package com.example.app;", cu.Text(cu.PackageSpan()))
}

func TestParseDefaultPackage(t *testing.T) {
	cu := parse(t, "class A { void f() {} }")
	assert.Empty(t, cu.Package)
	assert.True(t, cu.PackageSpan().IsZero())
	require.Len(t, cu.Types, 1)
	assert.Equal(t, "A", cu.Types[0].BinaryName)
}

func TestParseNestedBinaryNames(t *testing.T) {
	cu := parse(t, `package p;
public class Outer {
	static class Inner {
		interface Deep { void run(); }
	}
	enum Color { RED, GREEN { void x() {} }; int rgb() { return 0; } }
	record Point(int x, int y) { Point { } int sum() { return x + y; } }
}
`)
	var names []string
	cu.Walk(func(td *TypeDecl) { names = append(names, td.BinaryName) })
	assert.Equal(t, []string{
		"p.Outer",
		"p.Outer$Inner",
		"p.Outer$Inner$Deep",
		"p.Outer$Color",
		"p.Outer$Point",
	}, names)

	deep := cu.TypeByBinaryName("p.Outer$Inner$Deep")
	require.NotNil(t, deep)
	assert.Equal(t, TypeKindInterface, deep.Kind)
	assert.Equal(t, "p.Outer$Inner", deep.Enclosing)
	run := deep.Method("run")
	require.NotNil(t, run)
	assert.False(t, run.HasBody)

	color := cu.TypeByBinaryName("p.Outer$Color")
	require.NotNil(t, color)
	require.NotNil(t, color.Method("rgb"))
	assert.Nil(t, color.Method("x"), "constant bodies are not members of the enum")

	point := cu.TypeByBinaryName("p.Outer$Point")
	require.NotNil(t, point)
	assert.Equal(t, TypeKindRecord, point.Kind)
	require.NotNil(t, point.Method("sum"))

	assert.True(t, cu.DeclaresType("Inner"))
	assert.False(t, cu.DeclaresType("Missing"))
}

func TestParseMethodSpans(t *testing.T) {
	src := `class A {
    /** Adds. */
    @Deprecated
    public int add(int a, int b) {
        String s = "}{";
        char c = '}';
        // }
        /* { */
        return a + b;
    }

    abstract void g();
}
`
	cu := parse(t, src)
	a := cu.Types[0]
	require.Len(t, a.Methods, 2)

	add := a.Methods[0]
	assert.Equal(t, "add", add.Name)
	assert.Equal(t, "A", add.Enclosing)
	assert.Equal(t, []string{"public"}, add.Modifiers)
	assert.Equal(t, "int", add.ReturnType)
	assert.Equal(t, "(int a, int b)", add.ParametersText)
	assert.Equal(t, "/** Adds. */", add.Javadoc)
	assert.True(t, add.HasBody)
	assert.True(t, strings.HasPrefix(cu.Text(add.Span), "@Deprecated"))
	assert.True(t, strings.HasSuffix(cu.Text(add.Span), "return a + b;\n    }"))
	assert.True(t, strings.HasPrefix(cu.Text(add.Body), "{\n        String s"))
	assert.Equal(t, "add", cu.Text(add.NameSpan))

	doc, ok := cu.JavadocBefore(add.Span.Start.Offset)
	require.True(t, ok)
	assert.Equal(t, "/** Adds. */", doc.Literal)

	g := a.Methods[1]
	assert.False(t, g.HasBody)
	assert.True(t, g.HasModifier("abstract"))
	assert.Empty(t, g.Javadoc)
}

func TestParseSignatures(t *testing.T) {
	cu := parse(t, `class A<T extends Comparable<T>> {
	public static <K, V extends Number & Comparable<V>> java.util.Map<K, java.util.List<V>> group(final K key, @Nullable V... values) throws java.io.IOException, InterruptedException {
		return null;
	}
	int legacy(String[] args)[] { return null; }
	void receiver(A<T> this, int x) {}
	private native long raw(byte b);
	synchronized void sync() {}
	A(int x) { this.x = x; }
	int x = compute(1, 2), y;
	{ init(); }
	static { boot(); }
}
`)
	a := cu.Types[0]
	require.Len(t, a.TypeParameters, 1)
	assert.Equal(t, TypeParameter{Name: "T", Bounds: []string{"Comparable<T>"}}, a.TypeParameters[0])

	group := a.Method("group")
	require.NotNil(t, group)
	assert.True(t, group.IsStatic())
	assert.Equal(t, "<K, V extends Number & Comparable<V>>", group.TypeParametersText)
	require.Len(t, group.TypeParameters, 2)
	assert.Equal(t, []string{"Number", "Comparable<V>"}, group.TypeParameters[1].Bounds)
	assert.Equal(t, "java.util.Map<K, java.util.List<V>>", group.ReturnType)
	assert.Equal(t, []string{"K", "V..."}, group.ParameterTypes())
	assert.Equal(t, []string{"java.io.IOException", "InterruptedException"}, group.Throws)
	assert.Equal(t, "(final K key, @Nullable V... values)", group.ParametersText)

	legacy := a.Method("legacy")
	require.NotNil(t, legacy)
	assert.Equal(t, "int[]", legacy.ReturnType)
	assert.Equal(t, []string{"String[]"}, legacy.ParameterTypes())

	recv := a.Method("receiver")
	require.NotNil(t, recv)
	assert.Equal(t, []string{"int"}, recv.ParameterTypes())
	assert.True(t, recv.Parameters[0].Receiver)

	raw := a.Method("raw")
	require.NotNil(t, raw)
	assert.False(t, raw.HasBody)
	assert.True(t, raw.HasModifier("native"))

	assert.NotNil(t, a.Method("sync"))
	assert.Len(t, a.Methods, 5, "constructors, fields and initializers are not methods")
}

func TestParseAnnotations(t *testing.T) {
	cu := parse(t, `class A {
	@Remote
	@QoS(terms = {"cpu", "ram"}, operators = {"<", ">="}, thresholds = {10, 2 * 1024})
	@SuppressWarnings("unused")
	@eu.example.Tag(value = @Inner(1), name = "a" + "b")
	void f() {}
}
`)
	f := cu.Types[0].Method("f")
	require.NotNil(t, f)
	require.Len(t, f.Annotations, 4)

	remote := f.Annotations[0]
	assert.Equal(t, "Remote", remote.SimpleName())
	assert.True(t, remote.IsMarker())

	qos := f.Annotations[1]
	terms, ok := qos.Element("terms")
	require.True(t, ok)
	assert.True(t, terms.IsArray)
	assert.Equal(t, []string{`"cpu"`, `"ram"`}, terms.Values())
	ops, _ := qos.Element("operators")
	assert.Equal(t, []string{`"<"`, `">="`}, ops.Values())
	thresholds, _ := qos.Element("thresholds")
	assert.Equal(t, []string{"10", "2 * 1024"}, thresholds.Values())
	assert.Equal(t, `{10, 2 * 1024}`, thresholds.Value)

	sw := f.Annotations[2]
	value, ok := sw.Element("value")
	require.True(t, ok)
	assert.False(t, value.IsArray)
	assert.Equal(t, []string{`"unused"`}, value.Values())

	tag := f.Annotations[3]
	assert.Equal(t, "eu.example.Tag", tag.Name)
	assert.Equal(t, "Tag", tag.SimpleName())
	inner, _ := tag.Element("value")
	assert.Equal(t, "@Inner(1)", inner.Value)
	name, _ := tag.Element("name")
	assert.Equal(t, `"a" + "b"`, name.Value)
	_, ok = tag.Element("missing")
	assert.False(t, ok)
}

func TestParseAnnotationTypeDefaults(t *testing.T) {
	cu := parse(t, `@interface Remote {
	String name() default "x";
	int[] ids() default {1, 2};
}
`)
	require.Len(t, cu.Types, 1)
	assert.Equal(t, TypeKindAnnotation, cu.Types[0].Kind)
	assert.Len(t, cu.Types[0].Methods, 2)
}

func TestParseReader(t *testing.T) {
	p := ParseCompilationUnit(strings.NewReader("package a; class B {}"), WithFile("B.java"))
	cu, err := p.Finish()
	require.NoError(t, err)
	assert.Equal(t, "B.java", cu.File)
	assert.Equal(t, "a.B", cu.Types[0].BinaryName)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
		line    int
	}{
		{"unclosed class", "class A {\n void f() {}\n", "never closed", 1},
		{"unclosed method", "class A {\n void f() {\n", "unbalanced braces", 2},
		{"stray close", "class A {}\n}", "unexpected '}'", 2},
		{"unterminated string", "class A {\n String s = \"abc;\n}", "unterminated string literal", 2},
		{"unterminated comment", "class A {} /* x", "unterminated comment", 1},
		{"missing body", "class A {\n void f() int\n}", "expected method body", 2},
		{"import after type", "class A {}\nimport b.C;", "after type declarations", 2},
		{"stray character", "class A { # }", "unexpected character", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), WithFile("A.java"))
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
			assert.Contains(t, pe.Message, tt.message)
			assert.Equal(t, tt.line, pe.Pos.Line)
			assert.Equal(t, "A.java", pe.File)
			assert.Contains(t, pe.Error(), "A.java:")
		})
	}
}
