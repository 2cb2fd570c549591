package parser

import "fmt"

type Position struct {
	File   string
	Offset int
	Line   int
	Column int
}

func (p Position) String() string {
	if p.File != "" {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
	}
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

type Span struct {
	Start Position
	End   Position
}

// IsZero reports whether the span covers no source at all.
func (s Span) IsZero() bool {
	return s.Start.Offset == 0 && s.End.Offset == 0 && s.Start.Line == 0
}

func (s Span) Len() int {
	return s.End.Offset - s.Start.Offset
}

type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenError
	TokenWhitespace
	TokenComment
	TokenLineComment

	// Literals
	TokenIdent
	TokenIntLiteral
	TokenFloatLiteral
	TokenCharLiteral
	TokenStringLiteral
	TokenTextBlock
	TokenTrue
	TokenFalse
	TokenNull

	// Keywords
	TokenAbstract
	TokenBoolean
	TokenByte
	TokenChar
	TokenClass
	TokenDefault
	TokenDouble
	TokenEnum
	TokenExtends
	TokenFinal
	TokenFloat
	TokenImplements
	TokenImport
	TokenInt
	TokenInterface
	TokenLong
	TokenNative
	TokenNew
	TokenPackage
	TokenPrivate
	TokenProtected
	TokenPublic
	TokenShort
	TokenStatic
	TokenStrictfp
	TokenSuper
	TokenSynchronized
	TokenThis
	TokenThrows
	TokenTransient
	TokenVoid
	TokenVolatile
	TokenNonSealed
	TokenKeyword

	// Punctuation the declaration parser cares about
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
	TokenSemicolon
	TokenComma
	TokenDot
	TokenEllipsis
	TokenAt
	TokenLT
	TokenGT
	TokenQuestion
	TokenAssign
	TokenAmp
	TokenOperator
)

var tokenKindNames = map[TokenKind]string{
	TokenEOF:           "EOF",
	TokenError:         "Error",
	TokenWhitespace:    "Whitespace",
	TokenComment:       "Comment",
	TokenLineComment:   "LineComment",
	TokenIdent:         "Identifier",
	TokenIntLiteral:    "IntLiteral",
	TokenFloatLiteral:  "FloatLiteral",
	TokenCharLiteral:   "CharLiteral",
	TokenStringLiteral: "StringLiteral",
	TokenTextBlock:     "TextBlock",
	TokenTrue:          "true",
	TokenFalse:         "false",
	TokenNull:          "null",
	TokenAbstract:      "abstract",
	TokenBoolean:       "boolean",
	TokenByte:          "byte",
	TokenChar:          "char",
	TokenClass:         "class",
	TokenDefault:       "default",
	TokenDouble:        "double",
	TokenEnum:          "enum",
	TokenExtends:       "extends",
	TokenFinal:         "final",
	TokenFloat:         "float",
	TokenImplements:    "implements",
	TokenImport:        "import",
	TokenInt:           "int",
	TokenInterface:     "interface",
	TokenLong:          "long",
	TokenNative:        "native",
	TokenNew:           "new",
	TokenPackage:       "package",
	TokenPrivate:       "private",
	TokenProtected:     "protected",
	TokenPublic:        "public",
	TokenShort:         "short",
	TokenStatic:        "static",
	TokenStrictfp:      "strictfp",
	TokenSuper:         "super",
	TokenSynchronized:  "synchronized",
	TokenThis:          "this",
	TokenThrows:        "throws",
	TokenTransient:     "transient",
	TokenVoid:          "void",
	TokenVolatile:      "volatile",
	TokenNonSealed:     "non-sealed",
	TokenKeyword:       "Keyword",
	TokenLParen:        "(",
	TokenRParen:        ")",
	TokenLBrace:        "{",
	TokenRBrace:        "}",
	TokenLBracket:      "[",
	TokenRBracket:      "]",
	TokenSemicolon:     ";",
	TokenComma:         ",",
	TokenDot:           ".",
	TokenEllipsis:      "...",
	TokenAt:            "@",
	TokenLT:            "<",
	TokenGT:            ">",
	TokenQuestion:      "?",
	TokenAssign:        "=",
	TokenAmp:           "&",
	TokenOperator:      "Operator",
}

func (k TokenKind) String() string {
	if name, ok := tokenKindNames[k]; ok {
		return name
	}
	return "Unknown"
}

type Token struct {
	Kind    TokenKind
	Span    Span
	Literal string
}

// keywords maps reserved words to their token kind. Statement keywords the
// declaration parser never inspects share TokenKeyword.
var keywords = map[string]TokenKind{
	"abstract":     TokenAbstract,
	"assert":       TokenKeyword,
	"boolean":      TokenBoolean,
	"break":        TokenKeyword,
	"byte":         TokenByte,
	"case":         TokenKeyword,
	"catch":        TokenKeyword,
	"char":         TokenChar,
	"class":        TokenClass,
	"const":        TokenKeyword,
	"continue":     TokenKeyword,
	"default":      TokenDefault,
	"do":           TokenKeyword,
	"double":       TokenDouble,
	"else":         TokenKeyword,
	"enum":         TokenEnum,
	"extends":      TokenExtends,
	"final":        TokenFinal,
	"finally":      TokenKeyword,
	"float":        TokenFloat,
	"for":          TokenKeyword,
	"goto":         TokenKeyword,
	"if":           TokenKeyword,
	"implements":   TokenImplements,
	"import":       TokenImport,
	"instanceof":   TokenKeyword,
	"int":          TokenInt,
	"interface":    TokenInterface,
	"long":         TokenLong,
	"native":       TokenNative,
	"new":          TokenNew,
	"package":      TokenPackage,
	"private":      TokenPrivate,
	"protected":    TokenProtected,
	"public":       TokenPublic,
	"return":       TokenKeyword,
	"short":        TokenShort,
	"static":       TokenStatic,
	"strictfp":     TokenStrictfp,
	"super":        TokenSuper,
	"switch":       TokenKeyword,
	"synchronized": TokenSynchronized,
	"this":         TokenThis,
	"throw":        TokenKeyword,
	"throws":       TokenThrows,
	"transient":    TokenTransient,
	"try":          TokenKeyword,
	"void":         TokenVoid,
	"volatile":     TokenVolatile,
	"while":        TokenKeyword,
	"true":         TokenTrue,
	"false":        TokenFalse,
	"null":         TokenNull,
}

func LookupKeyword(ident string) TokenKind {
	if kind, ok := keywords[ident]; ok {
		return kind
	}
	return TokenIdent
}

// IsPrimitive reports whether the token names one of the eight primitive types.
func (k TokenKind) IsPrimitive() bool {
	switch k {
	case TokenBoolean, TokenByte, TokenChar, TokenShort,
		TokenInt, TokenLong, TokenFloat, TokenDouble:
		return true
	}
	return false
}

// IsModifier reports whether the token is a declaration modifier keyword.
func (k TokenKind) IsModifier() bool {
	switch k {
	case TokenPublic, TokenProtected, TokenPrivate,
		TokenAbstract, TokenStatic, TokenFinal,
		TokenStrictfp, TokenNative, TokenSynchronized,
		TokenTransient, TokenVolatile, TokenDefault,
		TokenNonSealed:
		return true
	}
	return false
}
