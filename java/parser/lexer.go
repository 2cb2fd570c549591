package parser

import (
	"unicode"
	"unicode/utf8"
)

type Lexer struct {
	input  []byte
	file   string
	pos    int
	line   int
	column int
	err    *ParseError
}

func NewLexer(input []byte, file string) *Lexer {
	return &Lexer{
		input:  input,
		file:   file,
		pos:    0,
		line:   1,
		column: 1,
	}
}

func (l *Lexer) Position() Position {
	return Position{
		File:   l.file,
		Offset: l.pos,
		Line:   l.line,
		Column: l.column,
	}
}

// Err returns the first lexical error encountered, if any.
func (l *Lexer) Err() *ParseError {
	return l.err
}

func (l *Lexer) fail(at Position, msg string) {
	if l.err == nil {
		l.err = &ParseError{File: l.file, Pos: at, Message: msg}
	}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekN(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) advance() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	ch := l.input[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return ch
}

func (l *Lexer) advanceN(n int) {
	for i := 0; i < n; i++ {
		l.advance()
	}
}

func (l *Lexer) NextToken() Token {
	startPos := l.Position()

	if l.atEOF() {
		return Token{Kind: TokenEOF, Span: Span{Start: startPos, End: startPos}}
	}

	ch := l.peek()

	if ch == '/' && l.peekN(1) == '/' {
		return l.scanLineComment(startPos)
	}
	if ch == '/' && l.peekN(1) == '*' {
		return l.scanBlockComment(startPos)
	}

	if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == '\f' {
		return l.scanWhitespace(startPos)
	}

	if r, size := l.rune(); isJavaLetter(r) {
		return l.scanIdentOrKeyword(startPos, size)
	}

	if isDigit(ch) || (ch == '.' && isDigit(l.peekN(1))) {
		return l.scanNumber(startPos)
	}

	if ch == '\'' {
		return l.scanCharLiteral(startPos)
	}

	if ch == '"' {
		if l.peekN(1) == '"' && l.peekN(2) == '"' {
			return l.scanTextBlock(startPos)
		}
		return l.scanStringLiteral(startPos)
	}

	return l.scanOperator(startPos)
}

func (l *Lexer) rune() (rune, int) {
	ch := l.peek()
	if ch < utf8.RuneSelf {
		return rune(ch), 1
	}
	return utf8.DecodeRune(l.input[l.pos:])
}

func (l *Lexer) scanWhitespace(start Position) Token {
	for {
		ch := l.peek()
		if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == '\f' {
			l.advance()
		} else {
			break
		}
	}
	return l.token(TokenWhitespace, start)
}

func (l *Lexer) scanLineComment(start Position) Token {
	l.advanceN(2)
	for !l.atEOF() && l.peek() != '\n' {
		l.advance()
	}
	return l.token(TokenLineComment, start)
}

func (l *Lexer) scanBlockComment(start Position) Token {
	l.advanceN(2)
	for {
		if l.atEOF() {
			l.fail(start, "unterminated comment")
			return l.token(TokenError, start)
		}
		if l.peek() == '*' && l.peekN(1) == '/' {
			l.advanceN(2)
			break
		}
		l.advance()
	}
	return l.token(TokenComment, start)
}

func (l *Lexer) scanIdentOrKeyword(start Position, size int) Token {
	l.advanceN(size)
	for !l.atEOF() {
		r, n := l.rune()
		if !isJavaLetterOrDigit(r) {
			break
		}
		l.advanceN(n)
	}
	end := l.Position()
	literal := string(l.input[start.Offset:end.Offset])

	if literal == "non" && l.peek() == '-' {
		remaining := l.input[l.pos:]
		if len(remaining) >= 7 && string(remaining[:7]) == "-sealed" {
			if len(remaining) == 7 || !isJavaLetterOrDigit(rune(remaining[7])) {
				l.advanceN(7)
				return l.token(TokenNonSealed, start)
			}
		}
	}

	return Token{
		Kind:    LookupKeyword(literal),
		Span:    Span{Start: start, End: end},
		Literal: literal,
	}
}

func (l *Lexer) scanNumber(start Position) Token {
	isFloat := false
	if l.peek() == '0' && (l.peekN(1) == 'x' || l.peekN(1) == 'X' || l.peekN(1) == 'b' || l.peekN(1) == 'B') {
		l.advanceN(2)
		for isHexDigit(l.peek()) || l.peek() == '_' {
			l.advance()
		}
	} else {
		for isDigit(l.peek()) || l.peek() == '_' {
			l.advance()
		}
		if l.peek() == '.' && isDigit(l.peekN(1)) {
			isFloat = true
			l.advance()
			for isDigit(l.peek()) || l.peek() == '_' {
				l.advance()
			}
		}
		if l.peek() == 'e' || l.peek() == 'E' {
			isFloat = true
			l.advance()
			if l.peek() == '+' || l.peek() == '-' {
				l.advance()
			}
			for isDigit(l.peek()) || l.peek() == '_' {
				l.advance()
			}
		}
	}

	switch l.peek() {
	case 'f', 'F', 'd', 'D':
		isFloat = true
		l.advance()
	case 'l', 'L':
		l.advance()
	}

	if isFloat {
		return l.token(TokenFloatLiteral, start)
	}
	return l.token(TokenIntLiteral, start)
}

func (l *Lexer) scanCharLiteral(start Position) Token {
	l.advance()
	for !l.atEOF() && l.peek() != '\'' && l.peek() != '\n' {
		if l.peek() == '\\' {
			l.advance()
		}
		l.advance()
	}
	if l.peek() != '\'' {
		l.fail(start, "unterminated character literal")
		return l.token(TokenError, start)
	}
	l.advance()
	return l.token(TokenCharLiteral, start)
}

func (l *Lexer) scanStringLiteral(start Position) Token {
	l.advance()
	for !l.atEOF() && l.peek() != '"' && l.peek() != '\n' {
		if l.peek() == '\\' {
			l.advance()
			if l.peek() == '\n' {
				break
			}
		}
		l.advance()
	}
	if l.peek() != '"' {
		l.fail(start, "unterminated string literal")
		return l.token(TokenError, start)
	}
	l.advance()
	return l.token(TokenStringLiteral, start)
}

func (l *Lexer) scanTextBlock(start Position) Token {
	l.advanceN(3)
	for {
		if l.atEOF() {
			l.fail(start, "unterminated text block")
			return l.token(TokenError, start)
		}
		if l.peek() == '"' && l.peekN(1) == '"' && l.peekN(2) == '"' {
			l.advanceN(3)
			break
		}
		if l.peek() == '\\' {
			l.advance()
		}
		l.advance()
	}
	return l.token(TokenTextBlock, start)
}

// scanOperator emits angle brackets one character at a time so that nested
// type arguments such as Map<K, List<V>> close without splitting >> tokens.
// Other operators are only needed as opaque tokens.
func (l *Lexer) scanOperator(start Position) Token {
	ch := l.peek()

	switch ch {
	case '(':
		l.advance()
		return l.token(TokenLParen, start)
	case ')':
		l.advance()
		return l.token(TokenRParen, start)
	case '{':
		l.advance()
		return l.token(TokenLBrace, start)
	case '}':
		l.advance()
		return l.token(TokenRBrace, start)
	case '[':
		l.advance()
		return l.token(TokenLBracket, start)
	case ']':
		l.advance()
		return l.token(TokenRBracket, start)
	case ';':
		l.advance()
		return l.token(TokenSemicolon, start)
	case ',':
		l.advance()
		return l.token(TokenComma, start)
	case '@':
		l.advance()
		return l.token(TokenAt, start)
	case '?':
		l.advance()
		return l.token(TokenQuestion, start)
	case '<':
		l.advance()
		return l.token(TokenLT, start)
	case '>':
		l.advance()
		return l.token(TokenGT, start)
	case '.':
		if l.peekN(1) == '.' && l.peekN(2) == '.' {
			l.advanceN(3)
			return l.token(TokenEllipsis, start)
		}
		l.advance()
		return l.token(TokenDot, start)
	case '=':
		if l.peekN(1) == '=' {
			l.advanceN(2)
			return l.token(TokenOperator, start)
		}
		l.advance()
		return l.token(TokenAssign, start)
	case '&':
		if l.peekN(1) == '&' || l.peekN(1) == '=' {
			l.advanceN(2)
			return l.token(TokenOperator, start)
		}
		l.advance()
		return l.token(TokenAmp, start)
	case ':':
		if l.peekN(1) == ':' {
			l.advanceN(2)
			return l.token(TokenOperator, start)
		}
		l.advance()
		return l.token(TokenOperator, start)
	case '-':
		if l.peekN(1) == '>' || l.peekN(1) == '-' || l.peekN(1) == '=' {
			l.advanceN(2)
			return l.token(TokenOperator, start)
		}
		l.advance()
		return l.token(TokenOperator, start)
	case '+', '|':
		if l.peekN(1) == ch || l.peekN(1) == '=' {
			l.advanceN(2)
			return l.token(TokenOperator, start)
		}
		l.advance()
		return l.token(TokenOperator, start)
	case '!', '*', '/', '%', '^':
		if l.peekN(1) == '=' {
			l.advanceN(2)
			return l.token(TokenOperator, start)
		}
		l.advance()
		return l.token(TokenOperator, start)
	case '~':
		l.advance()
		return l.token(TokenOperator, start)
	}

	_, size := l.rune()
	l.advanceN(size)
	return l.token(TokenError, start)
}

func (l *Lexer) token(kind TokenKind, start Position) Token {
	end := l.Position()
	return Token{
		Kind:    kind,
		Span:    Span{Start: start, End: end},
		Literal: string(l.input[start.Offset:end.Offset]),
	}
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isJavaLetter(r rune) bool {
	if r >= utf8.RuneSelf {
		return unicode.IsLetter(r)
	}
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_' || r == '$'
}

func isJavaLetterOrDigit(r rune) bool {
	if r >= utf8.RuneSelf {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}
	return isJavaLetter(r) || (r >= '0' && r <= '9')
}
