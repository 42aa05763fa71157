package parser

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const eof = -1

// Lexer converts Rei source text into a sequence of tokens.
// The implementation is based on Rob Pike's "Lexical Scanning in Go" technique.
//
// The lexer never fails. Characters it does not recognise are skipped.
type Lexer struct {
	input      string // Input string being scanned
	length     int    // Length of input string
	start      int    // Start position of current token
	current    int    // Current position in input
	width      int    // Width of last rune read
	prev       TokenType
	hasPrev    bool
	lineStarts []int
	commands   map[string]bool
}

// NewLexer creates a new lexer from the provided input string.
// The input is tokenized by successive calls to the Next method.
func NewLexer(input string) *Lexer {
	starts := []int{0}
	for i := 0; i < len(input); i++ {
		if input[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Lexer{
		input:      input,
		length:     len(input),
		lineStarts: starts,
	}
}

// WithCommandKeywords registers extra keywords. Each one lexes as a
// TokenCommandKeyword instead of an identifier.
func (l *Lexer) WithCommandKeywords(names ...string) *Lexer {
	if len(names) == 0 {
		return l
	}
	if l.commands == nil {
		l.commands = make(map[string]bool, len(names))
	}
	for _, n := range names {
		l.commands[n] = true
	}
	return l
}

// Tokenize scans the whole input. The result always ends with a TokenEOF.
func (l *Lexer) Tokenize() []Token {
	var tokens []Token
	for {
		t := l.Next()
		tokens = append(tokens, t)
		if t.Type == TokenEOF {
			return tokens
		}
	}
}

// Next returns the next token from the input.
// When the end of the input is reached, Next returns TokenEOF for all subsequent calls.
//
// Ambiguous lexemes are resolved with bounded lookahead, in this order:
//
//	0₀                         origin token
//	base + subscripts          extended literal (base in 0 π e φ i)
//	e|i + subscripts + letter  identifier (the whole run)
//	two-character operators    |> >> << -> =κ >κ <κ ⊤π ⊥π
//	-digit                     negative number, only after ( [ { , ; = or a binary operator
//	single symbols and glyphs
func (l *Lexer) Next() Token {
	for {
		l.skipWhitespace()

		ch := l.nextRune()
		if ch == eof {
			return l.eof()
		}

		if ch == '0' && l.peek() == '₀' {
			l.nextRune()
			return l.newToken(TokenOrigin)
		}

		if extendedBases[ch] && IsSubscript(l.peek()) {
			return l.scanExtended(ch)
		}

		if rts, ok := symbols2[ch]; ok {
			for _, rt := range rts {
				if l.acceptRune(rt.r) {
					return l.newToken(rt.tt)
				}
			}
		}

		if ch == '-' && isDigit(l.peek()) && l.negativeAllowed() {
			return l.scanNumber()
		}

		if tt, ok := symbols1[ch]; ok {
			return l.newToken(tt)
		}

		if tt, ok := glyphs[ch]; ok {
			return l.newToken(tt)
		}

		if ch == '"' {
			return l.scanString()
		}

		if isDigit(ch) {
			l.backup()
			return l.scanNumber()
		}

		if isIdentStart(ch) {
			l.backup()
			return l.scanIdent()
		}

		// Unrecognised character: skip it and keep scanning.
		l.ignore()
	}
}

// negativeAllowed reports whether a '-' directly before a digit belongs to
// the number literal.
func (l *Lexer) negativeAllowed() bool {
	if !l.hasPrev {
		return true
	}
	switch l.prev {
	case TokenParenOpen, TokenBracketOpen, TokenBraceOpen,
		TokenComma, TokenSemicolon, TokenAssign:
		return true
	}
	return isBinaryOperator(l.prev)
}

// scanExtended reads an extended literal whose base has been consumed and
// whose next rune is a subscript. For bases e and i the run turns into an
// identifier when an identifier character follows the subscripts.
func (l *Lexer) scanExtended(base rune) Token {
	l.acceptAll(IsSubscript)
	if (base == 'e' || base == 'i') && isIdentPart(l.peek()) {
		l.acceptAll(isIdentPart)
		return l.identToken()
	}
	return l.newToken(TokenExtended)
}

// scanNumber reads a number literal. A leading '-' may already be consumed.
// Format: -?[0-9]+(\.[0-9]+)?([eE][+-]?[0-9]+)?
func (l *Lexer) scanNumber() Token {
	l.acceptAll(isDigit)

	if l.peek() == '.' {
		mark := l.current
		l.nextRune()
		if !l.acceptAll(isDigit) {
			l.current = mark
		}
	}

	if r := l.peek(); r == 'e' || r == 'E' {
		mark := l.current
		l.nextRune()
		l.acceptRunes2('+', '-')
		if !l.acceptAll(isDigit) {
			l.current = mark
		}
	}

	return l.newToken(TokenNumber)
}

// scanString reads a string literal. The opening quote has been consumed.
// \n and \t are translated, \\ and \" unescape, any other escape is kept
// verbatim. An unterminated string runs to the end of the input.
func (l *Lexer) scanString() Token {
	var sb strings.Builder
Loop:
	for {
		switch r := l.nextRune(); r {
		case '"', eof:
			break Loop
		case '\\':
			switch e := l.nextRune(); e {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '\\', '"':
				sb.WriteRune(e)
			case eof:
				sb.WriteByte('\\')
				break Loop
			default:
				sb.WriteByte('\\')
				sb.WriteRune(e)
			}
		default:
			sb.WriteRune(r)
		}
	}
	t := l.newToken(TokenString)
	t.Value = sb.String()
	return t
}

// scanIdent reads an identifier or keyword.
func (l *Lexer) scanIdent() Token {
	l.nextRune()
	l.acceptAll(isIdentPart)
	return l.identToken()
}

func (l *Lexer) identToken() Token {
	t := l.newToken(TokenIdent)
	if tt, ok := keywords[t.Value]; ok {
		t.Type = tt
	} else if l.commands[t.Value] {
		t.Type = TokenCommandKeyword
	}
	l.prev = t.Type
	return t
}

// Helper methods

func (l *Lexer) eof() Token {
	l.start = l.current
	t := l.newToken(TokenEOF)
	t.Value = ""
	return t
}

func (l *Lexer) newToken(tt TokenType) Token {
	line := sort.Search(len(l.lineStarts), func(i int) bool {
		return l.lineStarts[i] > l.start
	})
	lineStart := l.lineStarts[line-1]
	t := Token{
		Type:   tt,
		Value:  l.input[l.start:l.current],
		Offset: l.start,
		Line:   line,
		Column: utf8.RuneCountInString(l.input[lineStart:l.start]) + 1,
	}
	l.width = 0
	l.start = l.current
	l.prev = tt
	l.hasPrev = true
	return t
}

func (l *Lexer) nextRune() rune {
	if l.current >= l.length {
		l.width = 0
		return eof
	}

	r, w := utf8.DecodeRuneInString(l.input[l.current:])
	l.width = w
	l.current += w
	return r
}

func (l *Lexer) peek() rune {
	if l.current >= l.length {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.current:])
	return r
}

func (l *Lexer) backup() {
	l.current -= l.width
}

func (l *Lexer) ignore() {
	l.start = l.current
}

func (l *Lexer) acceptRune(r rune) bool {
	return l.accept(func(c rune) bool {
		return c == r
	})
}

func (l *Lexer) acceptRunes2(r1, r2 rune) bool {
	return l.accept(func(c rune) bool {
		return c == r1 || c == r2
	})
}

func (l *Lexer) accept(isValid func(rune) bool) bool {
	if isValid(l.nextRune()) {
		return true
	}
	l.backup()
	return false
}

func (l *Lexer) acceptAll(isValid func(rune) bool) bool {
	var matched bool
	for l.accept(isValid) {
		matched = true
	}
	return matched
}

// skipWhitespace skips whitespace and // line comments.
func (l *Lexer) skipWhitespace() {
	for {
		l.acceptAll(isWhitespace)
		l.ignore()

		if strings.HasPrefix(l.input[l.current:], "//") {
			for r := l.nextRune(); r != '\n' && r != eof; r = l.nextRune() {
			}
			l.ignore()
			continue
		}
		return
	}
}

// Character classification functions

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	default:
		return false
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	if r == '_' || (r >= '₀' && r <= '₉') {
		return true
	}
	if _, glyph := glyphs[r]; glyph {
		return false
	}
	return unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r != eof && (isIdentStart(r) || isDigit(r))
}
