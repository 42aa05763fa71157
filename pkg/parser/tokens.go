package parser

import (
	"fmt"

	"github.com/sandrolain/gorei/pkg/types"
)

// TokenType represents the type of a lexical token.
type TokenType uint8

const (
	// Special tokens
	TokenEOF TokenType = iota

	// Literals
	TokenNumber   // 42, -3.5, 1e-3
	TokenString   // "hello"
	TokenIdent    // name
	TokenExtended // 0oo, πx, e₁
	TokenOrigin   // 0₀
	TokenPoint    // ・
	TokenTop      // ⊤ true
	TokenBottom   // ⊥ false
	TokenTopPi    // ⊤π
	TokenBottomPi // ⊥π

	// Composite literal openers
	TokenAggregateOpen // 𝕄
	TokenUnifiedOpen   // 𝕌
	TokenTriangle      // △
	TokenSquare        // □
	TokenCircle        // ○
	TokenDiamond       // ◇

	// Grouping symbols
	TokenParenOpen    // (
	TokenParenClose   // )
	TokenBracketOpen  // [
	TokenBracketClose // ]
	TokenBraceOpen    // {
	TokenBraceClose   // }

	// Basic symbols
	TokenComma     // ,
	TokenSemicolon // ;
	TokenColon     // :
	TokenDot       // .
	TokenAt        // @
	TokenAssign    // =

	// Arithmetic operators
	TokenPlus  // +
	TokenMinus // -
	TokenMult  // *
	TokenDiv   // /

	// Structural operators
	TokenOplus  // ⊕
	TokenOtimes // ⊗
	TokenCdot   // ·

	// Quad logic
	TokenAnd // ∧
	TokenOr  // ∨
	TokenNot // ¬

	// Comparison operators
	TokenApproxEqual // =κ
	TokenGreaterK    // >κ
	TokenLessK       // <κ
	TokenGreater     // >
	TokenLess        // <

	// Special operators
	TokenPipe       // |>
	TokenExtend     // >>
	TokenReduce     // <<
	TokenArrow      // ->
	TokenSpiralUp   // ⤊
	TokenSpiralDown // ⤋
	TokenMirror     // ◁

	// Keywords
	TokenLet
	TokenMut
	TokenCompress
	TokenIf
	TokenElse
	TokenMatch
	TokenWitnessed
	TokenBy

	// TokenCommandKeyword is produced for keywords registered through
	// WithKeywords. `kw x` applies the command named kw to x.
	TokenCommandKeyword
)

var tokenNames = map[TokenType]string{
	TokenEOF:            "(eof)",
	TokenNumber:         "(number)",
	TokenString:         "(string)",
	TokenIdent:          "(identifier)",
	TokenExtended:       "(extended)",
	TokenOrigin:         "0₀",
	TokenPoint:          "・",
	TokenTop:            "⊤",
	TokenBottom:         "⊥",
	TokenTopPi:          "⊤π",
	TokenBottomPi:       "⊥π",
	TokenAggregateOpen:  "𝕄",
	TokenUnifiedOpen:    "𝕌",
	TokenTriangle:       "△",
	TokenSquare:         "□",
	TokenCircle:         "○",
	TokenDiamond:        "◇",
	TokenParenOpen:      "(",
	TokenParenClose:     ")",
	TokenBracketOpen:    "[",
	TokenBracketClose:   "]",
	TokenBraceOpen:      "{",
	TokenBraceClose:     "}",
	TokenComma:          ",",
	TokenSemicolon:      ";",
	TokenColon:          ":",
	TokenDot:            ".",
	TokenAt:             "@",
	TokenAssign:         "=",
	TokenPlus:           "+",
	TokenMinus:          "-",
	TokenMult:           "*",
	TokenDiv:            "/",
	TokenOplus:          "⊕",
	TokenOtimes:         "⊗",
	TokenCdot:           "·",
	TokenAnd:            "∧",
	TokenOr:             "∨",
	TokenNot:            "¬",
	TokenApproxEqual:    "=κ",
	TokenGreaterK:       ">κ",
	TokenLessK:          "<κ",
	TokenGreater:        ">",
	TokenLess:           "<",
	TokenPipe:           "|>",
	TokenExtend:         ">>",
	TokenReduce:         "<<",
	TokenArrow:          "->",
	TokenSpiralUp:       "⤊",
	TokenSpiralDown:     "⤋",
	TokenMirror:         "◁",
	TokenLet:            "let",
	TokenMut:            "mut",
	TokenCompress:       "compress",
	TokenIf:             "if",
	TokenElse:           "else",
	TokenMatch:          "match",
	TokenWitnessed:      "witnessed",
	TokenBy:             "by",
	TokenCommandKeyword: "(command)",
}

// String returns a string representation of the token type.
func (tt TokenType) String() string {
	if s, ok := tokenNames[tt]; ok {
		return s
	}
	return "(unknown)"
}

// Token represents a lexical token in a Rei program.
type Token struct {
	Type   TokenType // Type of the token
	Value  string    // Literal text (unescaped for strings)
	Offset int       // Byte offset in the input string
	Line   int       // 1-based line
	Column int       // 1-based column, in runes
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q @%d:%d", t.Type, t.Value, t.Line, t.Column)
}

// isBinaryOperator reports whether tt is an infix operator. It drives the
// negative-literal rule in the lexer.
func isBinaryOperator(tt TokenType) bool {
	switch tt {
	case TokenPlus, TokenMinus, TokenMult, TokenDiv,
		TokenOplus, TokenOtimes, TokenCdot,
		TokenAnd, TokenOr,
		TokenApproxEqual, TokenGreaterK, TokenLessK, TokenGreater, TokenLess,
		TokenPipe, TokenExtend, TokenReduce, TokenArrow:
		return true
	default:
		return false
	}
}

// glyphs maps single runes directly to token types. Two-glyph truth values
// (⊤π, ⊥π) are matched before this table.
var glyphs = map[rune]TokenType{
	'𝕄': TokenAggregateOpen,
	'𝕌': TokenUnifiedOpen,
	'△': TokenTriangle,
	'□': TokenSquare,
	'○': TokenCircle,
	'◇': TokenDiamond,
	'⊕': TokenOplus,
	'⊗': TokenOtimes,
	'·': TokenCdot,
	'∧': TokenAnd,
	'∨': TokenOr,
	'¬': TokenNot,
	'⤊': TokenSpiralUp,
	'⤋': TokenSpiralDown,
	'◁': TokenMirror,
	'・': TokenPoint,
	'⊤': TokenTop,
	'⊥': TokenBottom,
}

// symbols1 maps single-character ASCII symbols to token types.
var symbols1 = map[rune]TokenType{
	'(': TokenParenOpen,
	')': TokenParenClose,
	'[': TokenBracketOpen,
	']': TokenBracketClose,
	'{': TokenBraceOpen,
	'}': TokenBraceClose,
	',': TokenComma,
	';': TokenSemicolon,
	':': TokenColon,
	'.': TokenDot,
	'@': TokenAt,
	'=': TokenAssign,
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenMult,
	'/': TokenDiv,
	'>': TokenGreater,
	'<': TokenLess,
}

// runeTokenType pairs a rune with its corresponding token type.
type runeTokenType struct {
	r  rune
	tt TokenType
}

// symbols2 maps two-character symbol sequences to token types, keyed by the
// first character. They are tried before symbols1.
var symbols2 = map[rune][]runeTokenType{
	'|': {{'>', TokenPipe}},
	'>': {{'>', TokenExtend}, {'κ', TokenGreaterK}},
	'<': {{'<', TokenReduce}, {'κ', TokenLessK}},
	'-': {{'>', TokenArrow}},
	'=': {{'κ', TokenApproxEqual}},
	'⊤': {{'π', TokenTopPi}},
	'⊥': {{'π', TokenBottomPi}},
}

// keywords maps reserved words to token types.
var keywords = map[string]TokenType{
	"let":       TokenLet,
	"mut":       TokenMut,
	"compress":  TokenCompress,
	"if":        TokenIf,
	"else":      TokenElse,
	"match":     TokenMatch,
	"witnessed": TokenWitnessed,
	"by":        TokenBy,
	"true":      TokenTop,
	"false":     TokenBottom,
}

// extendedBases are the runes that may start an extended literal.
var extendedBases = map[rune]bool{'0': true, 'π': true, 'e': true, 'φ': true, 'i': true}

// IsSubscript reports whether r belongs to the subscript character set.
func IsSubscript(r rune) bool {
	return types.IsSubscript(r)
}
