package parser

import (
	"fmt"
	"io"
	"strings"
)

type Option func(*Parser)

func WithFile(path string) Option {
	return func(p *Parser) {
		p.file = path
	}
}

// Parser reads the declaration skeleton of a Java compilation unit: package,
// imports, types, method signatures and annotations. Method bodies and field
// initializers are skipped as balanced token runs without interpretation.
type Parser struct {
	file     string
	reader   io.Reader
	input    []byte
	tokens   []Token
	comments []Token
	pos      int
}

func ParseCompilationUnit(r io.Reader, opts ...Option) *Parser {
	p := &Parser{reader: r}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse is a convenience wrapper around ParseCompilationUnit and Finish.
func Parse(src []byte, opts ...Option) (*CompilationUnit, error) {
	p := &Parser{input: src}
	for _, opt := range opts {
		opt(p)
	}
	return p.Finish()
}

func (p *Parser) Finish() (*CompilationUnit, error) {
	if p.input == nil && p.reader != nil {
		data, err := io.ReadAll(p.reader)
		if err != nil {
			return nil, err
		}
		p.input = data
	}
	p.tokens = nil
	p.comments = nil
	p.pos = 0
	if err := p.tokenize(); err != nil {
		return nil, err
	}
	return p.parseCompilationUnit()
}

func (p *Parser) tokenize() error {
	lexer := NewLexer(p.input, p.file)
	for {
		tok := lexer.NextToken()
		switch tok.Kind {
		case TokenWhitespace:
			continue
		case TokenComment, TokenLineComment:
			p.comments = append(p.comments, tok)
			continue
		case TokenError:
			if err := lexer.Err(); err != nil {
				return err
			}
			return p.errorAt(tok, "unexpected character %q", tok.Literal)
		}
		p.tokens = append(p.tokens, tok)
		if tok.Kind == TokenEOF {
			return nil
		}
	}
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekN(n int) Token {
	if p.pos+n >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

// last returns the most recently consumed token.
func (p *Parser) last() Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *Parser) check(kind TokenKind) bool {
	return p.peek().Kind == kind
}

func (p *Parser) expect(kind TokenKind, context string) (Token, error) {
	tok := p.peek()
	if tok.Kind != kind {
		return tok, p.errorAt(tok, "expected '%s' %s, found %s", kind, context, describe(tok))
	}
	p.advance()
	return tok, nil
}

func (p *Parser) expectIdent(context string) (Token, error) {
	tok := p.peek()
	if tok.Kind != TokenIdent {
		return tok, p.errorAt(tok, "expected %s, found %s", context, describe(tok))
	}
	p.advance()
	return tok, nil
}

func (p *Parser) errorAt(tok Token, format string, args ...any) *ParseError {
	return &ParseError{
		File:    p.file,
		Pos:     tok.Span.Start,
		Message: fmt.Sprintf(format, args...),
	}
}

func (p *Parser) text(start, end Position) string {
	return string(p.input[start.Offset:end.Offset])
}

func describe(tok Token) string {
	if tok.Kind == TokenEOF {
		return "end of file"
	}
	return "'" + tok.Literal + "'"
}

func (p *Parser) parseCompilationUnit() (*CompilationUnit, error) {
	cu := &CompilationUnit{
		File:     p.file,
		Source:   p.input,
		Comments: p.comments,
	}

	start := p.peek()
	if p.check(TokenAt) {
		save := p.pos
		if _, _, err := p.parseModifiers(); err != nil {
			return nil, err
		}
		if !p.check(TokenPackage) {
			p.pos = save
		}
	}

	if p.check(TokenPackage) {
		if start.Kind != TokenAt {
			start = p.peek()
		}
		p.advance()
		name, err := p.parseQualifiedName("package name")
		if err != nil {
			return nil, err
		}
		semi, err := p.expect(TokenSemicolon, "after package name")
		if err != nil {
			return nil, err
		}
		cu.Package = name
		cu.packageSpan = Span{Start: start.Span.Start, End: semi.Span.End}
	}

	for {
		if p.check(TokenSemicolon) {
			p.advance()
			continue
		}
		if !p.check(TokenImport) {
			break
		}
		imp, err := p.parseImport()
		if err != nil {
			return nil, err
		}
		cu.Imports = append(cu.Imports, imp)
	}

	if p.isModuleDecl() {
		if err := p.skipModuleDecl(); err != nil {
			return nil, err
		}
	}

	for !p.check(TokenEOF) {
		tok := p.peek()
		switch tok.Kind {
		case TokenSemicolon:
			p.advance()
			continue
		case TokenPackage, TokenImport:
			return nil, p.errorAt(tok, "unexpected '%s' after type declarations", tok.Literal)
		case TokenRBrace:
			return nil, p.errorAt(tok, "unbalanced braces: unexpected '}'")
		}
		td, err := p.parseTypeDecl(cu.Package, nil)
		if err != nil {
			return nil, err
		}
		cu.Types = append(cu.Types, td)
	}

	return cu, nil
}

func (p *Parser) parseQualifiedName(context string) (string, error) {
	first, err := p.expectIdent(context)
	if err != nil {
		return "", err
	}
	parts := []string{first.Literal}
	for p.check(TokenDot) && p.peekN(1).Kind == TokenIdent {
		p.advance()
		parts = append(parts, p.advance().Literal)
	}
	return strings.Join(parts, "."), nil
}

func (p *Parser) parseImport() (Import, error) {
	start := p.advance()
	imp := Import{}
	if p.check(TokenStatic) {
		p.advance()
		imp.Static = true
	}
	name, err := p.parseQualifiedName("imported name")
	if err != nil {
		return imp, err
	}
	imp.Name = name
	if p.check(TokenDot) && p.peekN(1).Literal == "*" {
		p.advanceN(2)
		imp.OnDemand = true
	}
	semi, err := p.expect(TokenSemicolon, "after import")
	if err != nil {
		return imp, err
	}
	imp.Span = Span{Start: start.Span.Start, End: semi.Span.End}
	return imp, nil
}

func (p *Parser) advanceN(n int) {
	for i := 0; i < n; i++ {
		p.advance()
	}
}

func (p *Parser) isModuleDecl() bool {
	tok := p.peek()
	if tok.Kind == TokenIdent && tok.Literal == "open" {
		tok = p.peekN(1)
		return tok.Kind == TokenIdent && tok.Literal == "module"
	}
	return tok.Kind == TokenIdent && tok.Literal == "module" && p.peekN(1).Kind == TokenIdent
}

func (p *Parser) skipModuleDecl() error {
	for !p.check(TokenLBrace) {
		if p.check(TokenEOF) {
			return p.errorAt(p.peek(), "unexpected end of file in module declaration")
		}
		p.advance()
	}
	_, err := p.skipBlock()
	return err
}

// parseModifiers consumes annotations and modifier keywords in any order.
func (p *Parser) parseModifiers() ([]string, []Annotation, error) {
	var mods []string
	var anns []Annotation
	for {
		tok := p.peek()
		switch {
		case tok.Kind == TokenAt && p.peekN(1).Kind != TokenInterface:
			ann, err := p.parseAnnotation()
			if err != nil {
				return nil, nil, err
			}
			anns = append(anns, ann)
		case tok.Kind.IsModifier():
			p.advance()
			mods = append(mods, tok.Literal)
		case tok.Kind == TokenIdent && tok.Literal == "sealed" && p.isSealedModifier():
			p.advance()
			mods = append(mods, tok.Literal)
		default:
			return mods, anns, nil
		}
	}
}

func (p *Parser) isSealedModifier() bool {
	next := p.peekN(1)
	switch {
	case next.Kind == TokenClass, next.Kind == TokenInterface, next.Kind == TokenAt:
		return true
	case next.Kind.IsModifier():
		return true
	}
	return false
}

func (p *Parser) isTypeDeclStart() bool {
	tok := p.peek()
	switch tok.Kind {
	case TokenClass, TokenInterface, TokenEnum:
		return true
	case TokenAt:
		return p.peekN(1).Kind == TokenInterface
	case TokenIdent:
		if tok.Literal != "record" || p.peekN(1).Kind != TokenIdent {
			return false
		}
		next := p.peekN(2).Kind
		return next == TokenLParen || next == TokenLT
	}
	return false
}

func (p *Parser) parseTypeDecl(pkg string, outer *TypeDecl) (*TypeDecl, error) {
	start := p.peek()
	mods, anns, err := p.parseModifiers()
	if err != nil {
		return nil, err
	}
	return p.parseTypeDeclRest(start, mods, anns, pkg, outer)
}

func (p *Parser) parseTypeDeclRest(start Token, mods []string, anns []Annotation, pkg string, outer *TypeDecl) (*TypeDecl, error) {
	td := &TypeDecl{Modifiers: mods, Annotations: anns}

	tok := p.peek()
	switch {
	case tok.Kind == TokenClass:
		td.Kind = TypeKindClass
		p.advance()
	case tok.Kind == TokenInterface:
		td.Kind = TypeKindInterface
		p.advance()
	case tok.Kind == TokenEnum:
		td.Kind = TypeKindEnum
		p.advance()
	case tok.Kind == TokenAt && p.peekN(1).Kind == TokenInterface:
		td.Kind = TypeKindAnnotation
		p.advanceN(2)
	case tok.Kind == TokenIdent && tok.Literal == "record":
		td.Kind = TypeKindRecord
		p.advance()
	default:
		return nil, p.errorAt(tok, "expected class, interface, enum or record declaration, found %s", describe(tok))
	}

	name, err := p.expectIdent("type name")
	if err != nil {
		return nil, err
	}
	td.Name = name.Literal
	switch {
	case outer != nil:
		td.Enclosing = outer.BinaryName
		td.BinaryName = outer.BinaryName + "$" + td.Name
	case pkg != "":
		td.BinaryName = pkg + "." + td.Name
	default:
		td.BinaryName = td.Name
	}

	if p.check(TokenLT) {
		tps, _, err := p.parseTypeParameters()
		if err != nil {
			return nil, err
		}
		td.TypeParameters = tps
	}

	if err := p.skipTypeHeader(td); err != nil {
		return nil, err
	}
	if err := p.parseTypeBody(td, pkg); err != nil {
		return nil, err
	}
	td.Span = Span{Start: start.Span.Start, End: p.last().Span.End}
	return td, nil
}

// skipTypeHeader skips record components and the extends, implements and
// permits clauses up to the opening brace of the body.
func (p *Parser) skipTypeHeader(td *TypeDecl) error {
	depth := 0
	for {
		tok := p.peek()
		switch tok.Kind {
		case TokenEOF:
			return p.errorAt(tok, "unexpected end of file in declaration of %s", td.Name)
		case TokenLParen:
			depth++
		case TokenRParen:
			depth--
		case TokenLBrace:
			if depth == 0 {
				return nil
			}
		case TokenSemicolon, TokenRBrace, TokenClass, TokenInterface, TokenEnum, TokenPackage, TokenImport:
			if depth == 0 {
				return p.errorAt(tok, "expected '{' to open the body of %s, found %s", td.Name, describe(tok))
			}
		}
		p.advance()
	}
}

func (p *Parser) parseTypeBody(td *TypeDecl, pkg string) error {
	open, err := p.expect(TokenLBrace, "to open type body")
	if err != nil {
		return err
	}
	if td.Kind == TypeKindEnum {
		if err := p.skipEnumConstants(open); err != nil {
			return err
		}
	}

	for {
		tok := p.peek()
		switch tok.Kind {
		case TokenEOF:
			return p.errorAt(open, "unbalanced braces: body of %s is never closed", td.Name)
		case TokenRBrace:
			p.advance()
			td.Body = Span{Start: open.Span.Start, End: tok.Span.End}
			return nil
		case TokenSemicolon:
			p.advance()
			continue
		case TokenLBrace:
			if _, err := p.skipBlock(); err != nil {
				return err
			}
			continue
		case TokenStatic:
			if p.peekN(1).Kind == TokenLBrace {
				p.advance()
				if _, err := p.skipBlock(); err != nil {
					return err
				}
				continue
			}
		case TokenPackage, TokenImport:
			return p.errorAt(tok, "unexpected '%s' inside %s", tok.Literal, td.Name)
		}
		if err := p.parseMember(td, pkg); err != nil {
			return err
		}
	}
}

func (p *Parser) skipEnumConstants(open Token) error {
	for {
		tok := p.peek()
		switch tok.Kind {
		case TokenSemicolon:
			p.advance()
			return nil
		case TokenRBrace:
			return nil
		case TokenEOF:
			return p.errorAt(open, "unbalanced braces: enum body is never closed")
		case TokenLParen:
			if err := p.skipBalanced(TokenLParen, TokenRParen); err != nil {
				return err
			}
		case TokenLBrace:
			if _, err := p.skipBlock(); err != nil {
				return err
			}
		case TokenAt:
			if _, err := p.parseAnnotation(); err != nil {
				return err
			}
		default:
			p.advance()
		}
	}
}

func (p *Parser) parseMember(td *TypeDecl, pkg string) error {
	start := p.peek()
	mods, anns, err := p.parseModifiers()
	if err != nil {
		return err
	}

	if p.isTypeDeclStart() {
		nested, err := p.parseTypeDeclRest(start, mods, anns, pkg, td)
		if err != nil {
			return err
		}
		td.Types = append(td.Types, nested)
		return nil
	}

	var typeParams []TypeParameter
	var typeParamsText string
	if p.check(TokenLT) {
		tps, span, err := p.parseTypeParameters()
		if err != nil {
			return err
		}
		typeParams = tps
		typeParamsText = p.text(span.Start, span.End)
	}

	if p.check(TokenIdent) && p.peekN(1).Kind == TokenLParen {
		return p.parseConstructor(td, start, mods, anns)
	}
	if td.Kind == TypeKindRecord && p.peek().Literal == td.Name && p.peekN(1).Kind == TokenLBrace {
		nameTok := p.advance()
		body, err := p.skipBlock()
		if err != nil {
			return err
		}
		td.Constructors = append(td.Constructors, &MethodDecl{
			Name:        nameTok.Literal,
			Enclosing:   td.BinaryName,
			Modifiers:   mods,
			Annotations: anns,
			NameSpan:    nameTok.Span,
			Span:        Span{Start: start.Span.Start, End: body.End},
			Body:        body,
			HasBody:     true,
		})
		return nil
	}

	returnType, err := p.parseType()
	if err != nil {
		return err
	}
	nameTok := p.peek()
	if nameTok.Kind != TokenIdent {
		return p.errorAt(nameTok, "expected member name after %s, found %s", returnType, describe(nameTok))
	}
	p.advance()

	if !p.check(TokenLParen) {
		return p.skipField()
	}

	md := &MethodDecl{
		Name:               nameTok.Literal,
		Enclosing:          td.BinaryName,
		Modifiers:          mods,
		Annotations:        anns,
		TypeParameters:     typeParams,
		TypeParametersText: typeParamsText,
		ReturnType:         returnType,
		NameSpan:           nameTok.Span,
	}
	if err := p.parseMethodRest(md); err != nil {
		return err
	}
	md.Span = Span{Start: start.Span.Start, End: p.last().Span.End}
	if doc, ok := javadocBefore(p.input, p.comments, start.Span.Start.Offset); ok {
		md.Javadoc = doc.Literal
	}
	td.Methods = append(td.Methods, md)
	return nil
}

func (p *Parser) parseMethodRest(md *MethodDecl) error {
	lparen := p.peek()
	params, err := p.parseParameters()
	if err != nil {
		return err
	}
	md.Parameters = params
	md.ParametersText = p.text(lparen.Span.Start, p.last().Span.End)

	for p.check(TokenLBracket) && p.peekN(1).Kind == TokenRBracket {
		p.advanceN(2)
		md.ReturnType += "[]"
		md.TrailingDims++
	}

	if p.check(TokenThrows) {
		p.advance()
		for {
			t, err := p.parseType()
			if err != nil {
				return err
			}
			md.Throws = append(md.Throws, t)
			if !p.check(TokenComma) {
				break
			}
			p.advance()
		}
	}

	if p.check(TokenDefault) {
		p.advance()
		return p.skipField()
	}

	tok := p.peek()
	switch tok.Kind {
	case TokenLBrace:
		body, err := p.skipBlock()
		if err != nil {
			return err
		}
		md.Body = body
		md.HasBody = true
	case TokenSemicolon:
		p.advance()
	default:
		return p.errorAt(tok, "expected method body or ';' after %s%s, found %s", md.Name, md.ParametersText, describe(tok))
	}
	return nil
}

func (p *Parser) parseParameters() ([]Parameter, error) {
	if _, err := p.expect(TokenLParen, "to open parameter list"); err != nil {
		return nil, err
	}
	if p.check(TokenRParen) {
		p.advance()
		return nil, nil
	}

	var params []Parameter
	for {
		for p.check(TokenFinal) || p.check(TokenAt) {
			if p.check(TokenFinal) {
				p.advance()
				continue
			}
			if _, err := p.parseAnnotation(); err != nil {
				return nil, err
			}
		}

		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		param := Parameter{Type: typ}

		for p.check(TokenAt) {
			if _, err := p.parseAnnotation(); err != nil {
				return nil, err
			}
		}
		if p.check(TokenEllipsis) {
			p.advance()
			param.Varargs = true
		}

		tok := p.peek()
		switch {
		case tok.Kind == TokenThis:
			p.advance()
			param.Name = "this"
			param.Receiver = true
		case tok.Kind == TokenIdent && p.peekN(1).Kind == TokenDot && p.peekN(2).Kind == TokenThis:
			p.advanceN(3)
			param.Name = tok.Literal + ".this"
			param.Receiver = true
		case tok.Kind == TokenIdent:
			p.advance()
			param.Name = tok.Literal
		default:
			return nil, p.errorAt(tok, "expected parameter name after %s, found %s", typ, describe(tok))
		}

		for p.check(TokenLBracket) && p.peekN(1).Kind == TokenRBracket {
			p.advanceN(2)
			param.Type += "[]"
		}
		params = append(params, param)

		tok = p.peek()
		switch tok.Kind {
		case TokenComma:
			p.advance()
		case TokenRParen:
			p.advance()
			return params, nil
		default:
			return nil, p.errorAt(tok, "expected ',' or ')' in parameter list, found %s", describe(tok))
		}
	}
}

// parseType consumes a type and returns its source lexeme.
func (p *Parser) parseType() (string, error) {
	start := p.peek()
	for p.check(TokenAt) && p.peekN(1).Kind != TokenInterface {
		if _, err := p.parseAnnotation(); err != nil {
			return "", err
		}
	}

	tok := p.peek()
	switch {
	case tok.Kind.IsPrimitive() || tok.Kind == TokenVoid:
		p.advance()
	case tok.Kind == TokenIdent:
		p.advance()
		for {
			if p.check(TokenLT) {
				if err := p.skipTypeArguments(); err != nil {
					return "", err
				}
				continue
			}
			if p.check(TokenDot) && (p.peekN(1).Kind == TokenIdent || p.peekN(1).Kind == TokenAt) {
				p.advance()
				for p.check(TokenAt) {
					if _, err := p.parseAnnotation(); err != nil {
						return "", err
					}
				}
				if _, err := p.expectIdent("type name"); err != nil {
					return "", err
				}
				continue
			}
			break
		}
	default:
		return "", p.errorAt(tok, "expected type, found %s", describe(tok))
	}

	for {
		if p.check(TokenLBracket) && p.peekN(1).Kind == TokenRBracket {
			p.advanceN(2)
			continue
		}
		if p.check(TokenAt) {
			save := p.pos
			for p.check(TokenAt) {
				if _, err := p.parseAnnotation(); err != nil {
					return "", err
				}
			}
			if p.check(TokenLBracket) {
				continue
			}
			p.pos = save
		}
		break
	}
	return p.text(start.Span.Start, p.last().Span.End), nil
}

func (p *Parser) skipTypeArguments() error {
	open := p.advance()
	depth := 1
	for depth > 0 {
		tok := p.peek()
		switch tok.Kind {
		case TokenLT:
			depth++
		case TokenGT:
			depth--
		case TokenEOF, TokenSemicolon, TokenLBrace, TokenRBrace:
			return p.errorAt(open, "unterminated type arguments")
		}
		p.advance()
	}
	return nil
}

func (p *Parser) parseTypeParameters() ([]TypeParameter, Span, error) {
	lt := p.advance()
	var params []TypeParameter
	for {
		for p.check(TokenAt) {
			if _, err := p.parseAnnotation(); err != nil {
				return nil, Span{}, err
			}
		}
		name, err := p.expectIdent("type parameter name")
		if err != nil {
			return nil, Span{}, err
		}
		tp := TypeParameter{Name: name.Literal}
		if p.check(TokenExtends) {
			p.advance()
			for {
				bound, err := p.parseType()
				if err != nil {
					return nil, Span{}, err
				}
				tp.Bounds = append(tp.Bounds, bound)
				if !p.check(TokenAmp) {
					break
				}
				p.advance()
			}
		}
		params = append(params, tp)

		tok := p.peek()
		switch tok.Kind {
		case TokenComma:
			p.advance()
		case TokenGT:
			p.advance()
			return params, Span{Start: lt.Span.Start, End: tok.Span.End}, nil
		default:
			return nil, Span{}, p.errorAt(tok, "expected ',' or '>' in type parameters, found %s", describe(tok))
		}
	}
}

func (p *Parser) parseAnnotation() (Annotation, error) {
	at, err := p.expect(TokenAt, "to start annotation")
	if err != nil {
		return Annotation{}, err
	}
	name, err := p.parseQualifiedName("annotation name")
	if err != nil {
		return Annotation{}, err
	}
	ann := Annotation{Name: name}

	if p.check(TokenLParen) {
		p.advance()
		switch {
		case p.check(TokenRParen):
			p.advance()
		case p.check(TokenIdent) && p.peekN(1).Kind == TokenAssign:
			for {
				elem, err := p.expectIdent("annotation element name")
				if err != nil {
					return ann, err
				}
				if _, err := p.expect(TokenAssign, "after annotation element name"); err != nil {
					return ann, err
				}
				ev, err := p.parseElementValue()
				if err != nil {
					return ann, err
				}
				ev.Name = elem.Literal
				ann.Elements = append(ann.Elements, ev)
				if p.check(TokenComma) {
					p.advance()
					continue
				}
				if _, err := p.expect(TokenRParen, "to close annotation @"+name); err != nil {
					return ann, err
				}
				break
			}
		default:
			ev, err := p.parseElementValue()
			if err != nil {
				return ann, err
			}
			ev.Name = "value"
			ann.Elements = append(ann.Elements, ev)
			if _, err := p.expect(TokenRParen, "to close annotation @"+name); err != nil {
				return ann, err
			}
		}
	}
	ann.Span = Span{Start: at.Span.Start, End: p.last().Span.End}
	return ann, nil
}

func (p *Parser) parseElementValue() (ElementValue, error) {
	start := p.peek()
	switch start.Kind {
	case TokenLBrace:
		p.advance()
		ev := ElementValue{IsArray: true}
		for !p.check(TokenRBrace) {
			if p.check(TokenEOF) {
				return ev, p.errorAt(start, "unterminated array value")
			}
			item, err := p.parseElementValue()
			if err != nil {
				return ev, err
			}
			ev.Items = append(ev.Items, item.Value)
			if p.check(TokenComma) {
				p.advance()
				continue
			}
			if !p.check(TokenRBrace) {
				return ev, p.errorAt(p.peek(), "expected ',' or '}' in array value, found %s", describe(p.peek()))
			}
		}
		end := p.advance()
		ev.Value = p.text(start.Span.Start, end.Span.End)
		return ev, nil
	case TokenAt:
		ann, err := p.parseAnnotation()
		if err != nil {
			return ElementValue{}, err
		}
		return ElementValue{Value: p.text(ann.Span.Start, ann.Span.End)}, nil
	}

	depth := 0
	consumed := 0
	for {
		tok := p.peek()
		if tok.Kind == TokenEOF {
			return ElementValue{}, p.errorAt(start, "unterminated annotation element value")
		}
		if depth == 0 && (tok.Kind == TokenComma || tok.Kind == TokenRParen || tok.Kind == TokenRBrace) {
			break
		}
		switch tok.Kind {
		case TokenLParen, TokenLBracket, TokenLBrace:
			depth++
		case TokenRParen, TokenRBracket, TokenRBrace:
			depth--
		}
		p.advance()
		consumed++
	}
	if consumed == 0 {
		return ElementValue{}, p.errorAt(start, "expected annotation element value, found %s", describe(start))
	}
	return ElementValue{Value: p.text(start.Span.Start, p.last().Span.End)}, nil
}

// parseConstructor records the constructor's annotations and spans. Its
// parameters and body are skipped.
func (p *Parser) parseConstructor(td *TypeDecl, start Token, mods []string, anns []Annotation) error {
	nameTok := p.advance()
	lparen := p.peek()
	if err := p.skipBalanced(TokenLParen, TokenRParen); err != nil {
		return err
	}
	params := p.text(lparen.Span.Start, p.last().Span.End)
	for !p.check(TokenLBrace) {
		tok := p.peek()
		if tok.Kind == TokenEOF || tok.Kind == TokenSemicolon || tok.Kind == TokenRBrace {
			return p.errorAt(tok, "expected constructor body, found %s", describe(tok))
		}
		p.advance()
	}
	body, err := p.skipBlock()
	if err != nil {
		return err
	}
	td.Constructors = append(td.Constructors, &MethodDecl{
		Name:           nameTok.Literal,
		Enclosing:      td.BinaryName,
		Modifiers:      mods,
		Annotations:    anns,
		ParametersText: params,
		NameSpan:       nameTok.Span,
		Span:           Span{Start: start.Span.Start, End: body.End},
		Body:           body,
		HasBody:        true,
	})
	return nil
}

// skipField skips a field declaration or annotation default value through
// its terminating semicolon.
func (p *Parser) skipField() error {
	for {
		tok := p.peek()
		switch tok.Kind {
		case TokenSemicolon:
			p.advance()
			return nil
		case TokenLBrace:
			if _, err := p.skipBlock(); err != nil {
				return err
			}
			continue
		case TokenLParen:
			if err := p.skipBalanced(TokenLParen, TokenRParen); err != nil {
				return err
			}
			continue
		case TokenEOF:
			return p.errorAt(tok, "unexpected end of file, expected ';'")
		case TokenRBrace:
			return p.errorAt(tok, "expected ';', found '}'")
		}
		p.advance()
	}
}

// skipBlock consumes a brace-delimited block and returns its span. Braces in
// literals and comments never reach the token stream, so counting tokens is
// sufficient.
func (p *Parser) skipBlock() (Span, error) {
	open := p.peek()
	depth := 0
	for {
		tok := p.peek()
		switch tok.Kind {
		case TokenLBrace:
			depth++
		case TokenRBrace:
			depth--
			if depth == 0 {
				p.advance()
				return Span{Start: open.Span.Start, End: tok.Span.End}, nil
			}
		case TokenEOF:
			return Span{}, p.errorAt(open, "unbalanced braces: '{' is never closed")
		}
		p.advance()
	}
}

func (p *Parser) skipBalanced(open, close TokenKind) error {
	first := p.peek()
	depth := 0
	for {
		tok := p.peek()
		switch tok.Kind {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				p.advance()
				return nil
			}
		case TokenEOF:
			return p.errorAt(first, "unbalanced '%s': never closed", open)
		}
		p.advance()
	}
}

func javadocBefore(src []byte, comments []Token, offset int) (Token, bool) {
	for i := len(comments) - 1; i >= 0; i-- {
		c := comments[i]
		if c.Span.End.Offset > offset {
			continue
		}
		if strings.TrimSpace(string(src[c.Span.End.Offset:offset])) != "" {
			return Token{}, false
		}
		if c.Kind == TokenComment && strings.HasPrefix(c.Literal, "/**") && c.Literal != "/**/" {
			return c, true
		}
		return Token{}, false
	}
	return Token{}, false
}
