// Package parser reads the declaration skeleton of Java source files.
//
// # Overview
//
// The parser recognizes what a source rewriter needs to locate and replace
// methods: the package declaration, imports, type declarations (including
// nested ones), method signatures, annotations with their element values, and
// the exact byte spans of each of those. Method bodies, field initializers and
// initializer blocks are skipped as balanced brace runs.
//
//	┌─────────────┐     ┌─────────────┐     ┌──────────────────┐
//	│   Input     │────▶│   Lexer     │────▶│      Parser      │
//	│  (bytes)    │     │  (tokens)   │     │ (CompilationUnit)│
//	└─────────────┘     └─────────────┘     └──────────────────┘
//
// # Usage
//
//	cu, err := parser.Parse(src, parser.WithFile("Foo.java"))
//	if err != nil {
//	    var pe *parser.ParseError
//	    if errors.As(err, &pe) {
//	        fmt.Println(pe.Pos.Line, pe.Message)
//	    }
//	}
//	cu.Walk(func(td *parser.TypeDecl) {
//	    for _, m := range td.Methods {
//	        fmt.Println(td.BinaryName, m.Name, cu.Text(m.Span))
//	    }
//	})
//
// # Spans
//
// Every span is a half-open byte range into CompilationUnit.Source together
// with 1-based line and column positions. A method's Span starts at its first
// annotation or modifier and ends after the closing brace of its body (or the
// terminating semicolon). The Javadoc comment preceding a method is not part
// of its span.
//
// # Lexing
//
// String, character and text block literals and comments are lexed as single
// tokens, so braces inside them never affect nesting. Angle brackets are always
// single-character tokens, so nested type arguments close without splitting
// shift operators.
//
// # Errors
//
// Parsing stops at the first problem and returns a *ParseError carrying the
// file, position and a message. Unterminated comments and literals, unbalanced
// braces and declarations the parser cannot recognize are all reported this
// way.
package parser
