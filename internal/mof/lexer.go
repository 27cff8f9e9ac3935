package mof

import (
	"iter"
	"strings"
	"unicode/utf8"
)

// ErrorHandler receives every malformed token. The token has Kind
// TokenError and carries the offending text and position.
type ErrorHandler func(Token)

// LexerOption configures a Lexer.
type LexerOption func(*Lexer)

// WithErrorHandler installs h as the lexical error hook.
func WithErrorHandler(h ErrorHandler) LexerOption {
	return func(l *Lexer) { l.onError = h }
}

// Lexer splits MOF source into tokens. Malformed input is reported through
// the error handler and skipped; scanning then continues.
type Lexer struct {
	src     string
	pos     int
	line    int
	onError ErrorHandler
	errs    []Token
}

// NewLexer returns a lexer positioned at the start of src.
func NewLexer(src string, opts ...LexerOption) *Lexer {
	l := &Lexer{src: src, line: 1}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Errors returns the error tokens reported so far.
func (l *Lexer) Errors() []Token {
	return l.errs
}

// Tokenize returns the tokens of src, excluding the final EOF.
func Tokenize(src string, onError ErrorHandler) iter.Seq[Token] {
	return NewLexer(src, WithErrorHandler(onError)).Tokens()
}

// Tokens iterates over the remaining tokens, excluding the final EOF.
func (l *Lexer) Tokens() iter.Seq[Token] {
	return func(yield func(Token) bool) {
		for {
			tok := l.Next()
			if tok.Kind == TokenEOF || !yield(tok) {
				return
			}
		}
	}
}

// Next returns the next token. At the end of input it returns a TokenEOF
// positioned after the last character.
func (l *Lexer) Next() Token {
	for {
		l.skipSpaceAndComments()
		if l.pos >= len(l.src) {
			return Token{Kind: TokenEOF, Line: l.line, Offset: l.pos}
		}
		if tok, ok := l.scan(); ok {
			return tok
		}
	}
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
			l.pos++
		case strings.HasPrefix(l.src[l.pos:], "//"):
			end := strings.IndexByte(l.src[l.pos:], '\n')
			if end < 0 {
				l.pos = len(l.src)
				return
			}
			l.pos += end
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				l.errorAt(l.pos, len(l.src), l.line)
				l.line += strings.Count(l.src[l.pos:], "\n")
				l.pos = len(l.src)
				return
			}
			stop := l.pos + 2 + end + 2
			l.line += strings.Count(l.src[l.pos:stop], "\n")
			l.pos = stop
		default:
			return
		}
	}
}

// scan reads one token at l.pos. It returns false when the input at l.pos
// was malformed and has been reported.
func (l *Lexer) scan() (Token, bool) {
	start := l.pos
	c := l.src[l.pos]

	if kind, ok := punctuation[c]; ok {
		l.pos++
		return l.token(kind, start), true
	}

	switch {
	case c == '"':
		return l.scanString(start)
	case c == '\'':
		return l.scanChar(start)
	case c == '$':
		l.pos++
		if l.pos < len(l.src) && isIdentStart(l.src[l.pos]) {
			l.scanIdentTail()
			return l.token(TokenAlias, start), true
		}
		l.errorAt(start, l.pos, l.line)
		return Token{}, false
	case isIdentStart(c):
		l.scanIdentTail()
		tok := l.token(TokenIdentifier, start)
		if IsKeyword(tok.Value) {
			tok.Kind = TokenKeyword
		}
		return tok, true
	case isDigit(c), c == '.' && l.digitAt(l.pos+1):
		return l.scanNumber(start)
	case (c == '+' || c == '-') && (l.digitAt(l.pos+1) || l.peekByte(l.pos+1) == '.' && l.digitAt(l.pos+2)):
		l.pos++
		return l.scanNumber(start)
	}

	l.pos++
	l.errorAt(start, l.pos, l.line)
	return Token{}, false
}

var punctuation = map[byte]TokenKind{
	'{': TokenLBrace,
	'}': TokenRBrace,
	'(': TokenLParen,
	')': TokenRParen,
	'[': TokenLBracket,
	']': TokenRBracket,
	';': TokenSemicolon,
	',': TokenComma,
	':': TokenColon,
	'=': TokenEquals,
	'#': TokenHash,
}

// scanNumber classifies a numeric literal by its shape. l.pos is past any
// sign; start points at the sign or first character.
func (l *Lexer) scanNumber(start int) (Token, bool) {
	if l.hasPrefixFold("0x") {
		l.pos += 2
		digits := l.pos
		for l.pos < len(l.src) && isHexDigit(l.src[l.pos]) {
			l.pos++
		}
		if l.pos == digits {
			l.errorAt(start, l.pos, l.line)
			return Token{}, false
		}
		return l.token(TokenHex, start), true
	}

	digits := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	intPart := l.src[digits:l.pos]

	if l.peekByte(l.pos) == '.' && l.digitAt(l.pos+1) {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
		l.scanExponent()
		return l.token(TokenReal, start), true
	}

	if b := l.peekByte(l.pos); (b == 'b' || b == 'B') && !isIdentPart(l.peekByte(l.pos+1)) {
		l.pos++
		if strings.Trim(intPart, "01") != "" {
			l.errorAt(start, l.pos, l.line)
			return Token{}, false
		}
		return l.token(TokenBinary, start), true
	}

	switch {
	case len(intPart) > 1 && intPart[0] == '0':
		if strings.Trim(intPart, "01234567") != "" {
			l.errorAt(start, l.pos, l.line)
			return Token{}, false
		}
		return l.token(TokenOctal, start), true
	default:
		return l.token(TokenDecimal, start), true
	}
}

func (l *Lexer) scanExponent() {
	if b := l.peekByte(l.pos); b != 'e' && b != 'E' {
		return
	}
	i := l.pos + 1
	if b := l.peekByte(i); b == '+' || b == '-' {
		i++
	}
	if !l.digitAt(i) {
		return
	}
	for i < len(l.src) && isDigit(l.src[i]) {
		i++
	}
	l.pos = i
}

func (l *Lexer) scanString(start int) (Token, bool) {
	line := l.line
	l.pos++
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case '\\':
			// an escape never consumes the newline that ends the line
			l.pos++
			if l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
			continue
		case '"':
			l.pos++
			tok := l.token(TokenString, start)
			tok.Line = line
			return tok, true
		case '\n':
			// MOF strings do not span lines
			l.errorAt(start, l.pos, line)
			return Token{}, false
		}
		l.pos++
	}
	l.pos = len(l.src)
	l.errorAt(start, l.pos, line)
	return Token{}, false
}

func (l *Lexer) scanChar(start int) (Token, bool) {
	i := start + 1
	switch c := l.peekByte(i); {
	case c == '\\' && (l.peekByte(i+1) == 'x' || l.peekByte(i+1) == 'X'):
		i += 2
		for isHexDigit(l.peekByte(i)) {
			i++
		}
	case c == '\\':
		i += 2
	case i < len(l.src) && c != '\'' && c != '\n':
		_, size := utf8.DecodeRuneInString(l.src[i:])
		i += size
	}
	if l.peekByte(i) != '\'' {
		l.pos = min(i, len(l.src))
		l.errorAt(start, l.pos, l.line)
		return Token{}, false
	}
	l.pos = i + 1
	return l.token(TokenChar, start), true
}

func (l *Lexer) scanIdentTail() {
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
}

func (l *Lexer) token(kind TokenKind, start int) Token {
	return Token{Kind: kind, Value: l.src[start:l.pos], Line: l.line, Offset: start}
}

func (l *Lexer) errorAt(start, end, line int) {
	tok := Token{Kind: TokenError, Value: l.src[start:end], Line: line, Offset: start}
	l.errs = append(l.errs, tok)
	if l.onError != nil {
		l.onError(tok)
	}
}

func (l *Lexer) peekByte(i int) byte {
	if i < 0 || i >= len(l.src) {
		return 0
	}
	return l.src[i]
}

func (l *Lexer) digitAt(i int) bool {
	return isDigit(l.peekByte(i))
}

func (l *Lexer) hasPrefixFold(prefix string) bool {
	rest := l.src[l.pos:]
	return len(rest) >= len(prefix) && strings.EqualFold(rest[:len(prefix)], prefix)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func isIdentStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
