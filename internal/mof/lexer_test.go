package mof

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
)

func lexAll(input string) ([]Token, []Token) {
	var reported []Token
	l := NewLexer(input, WithErrorHandler(func(t Token) {
		reported = append(reported, t)
	}))
	return slices.Collect(l.Tokens()), reported
}

func tok(kind TokenKind, value string, line, offset int) Token {
	return Token{Kind: kind, Value: value, Line: line, Offset: offset}
}

func TestLexerNumbers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		kind  TokenKind
	}{
		{"0", TokenDecimal},
		{"+0", TokenDecimal},
		{"-0", TokenDecimal},
		{"9", TokenDecimal},
		{"+7", TokenDecimal},
		{"-2", TokenDecimal},
		{"12345678901234567890", TokenDecimal},

		{"0b", TokenBinary},
		{"0B", TokenBinary},
		{"101b", TokenBinary},
		{"+1b", TokenBinary},
		{"-1b", TokenBinary},
		{"1011001010100110B", TokenBinary},
		{"01b", TokenBinary},
		{"00101b", TokenBinary},

		{"00", TokenOctal},
		{"01", TokenOctal},
		{"0357", TokenOctal},
		{"+07", TokenOctal},
		{"-07", TokenOctal},
		{"01234567", TokenOctal},
		{"000357", TokenOctal},

		{"0x0", TokenHex},
		{"0X0", TokenHex},
		{"0x1", TokenHex},
		{"0x01", TokenHex},
		{"0xA", TokenHex},
		{"+0x1f", TokenHex},
		{"-0xF", TokenHex},
		{"0x0123456789abcdefABCDEF", TokenHex},
		{"0x000a", TokenHex},

		{".0", TokenReal},
		{"0.0", TokenReal},
		{"+0.0", TokenReal},
		{"-0.0", TokenReal},
		{"1.5", TokenReal},
		{"-.5", TokenReal},
		{"123456789.123456789", TokenReal},
		{"1.0e10", TokenReal},
		{"2.5E-3", TokenReal},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			tokens, errs := lexAll(tt.input)
			assert.Empty(t, errs)
			assert.Equal(t, []Token{tok(tt.kind, tt.input, 1, 0)}, tokens)
		})
	}
}

func TestLexerMalformedNumbers(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"09", "008", "2b", "02B"} {
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			tokens, errs := lexAll(input)
			assert.Empty(t, tokens)
			assert.Equal(t, []Token{tok(TokenError, input, 1, 0)}, errs)
		})
	}
}

func TestLexerTrailingDot(t *testing.T) {
	t.Parallel()

	tokens, errs := lexAll("0.")
	assert.Equal(t, []Token{tok(TokenDecimal, "0", 1, 0)}, tokens)
	assert.Equal(t, []Token{tok(TokenError, ".", 1, 1)}, errs)
}

func TestLexerStringsAndChars(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		kind  TokenKind
	}{
		{"empty string", `""`, TokenString},
		{"one char string", `"a"`, TokenString},
		{"long string", `"abcdefghijklmnopqrstuvwxyz 0123456789_.,:;?=()[]{}/&%$!"`, TokenString},
		{"single quote in string", `"'"`, TokenString},
		{"two single quotes", `"''"`, TokenString},
		{"quoted char in string", `"'a'"`, TokenString},
		{"escaped double quote", `"\""`, TokenString},
		{"two escaped double quotes", `"\"a\""`, TokenString},
		{"char", `'a'`, TokenChar},
		{"space char", `' '`, TokenChar},
		{"double quote char", `'"'`, TokenChar},
		{"escaped single quote", `'\''`, TokenChar},
		{"hex escape char", `'\x41'`, TokenChar},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tokens, errs := lexAll(tt.input)
			assert.Empty(t, errs)
			assert.Equal(t, []Token{tok(tt.kind, tt.input, 1, 0)}, tokens)
		})
	}
}

func TestLexerSimple(t *testing.T) {
	t.Parallel()

	tokens, errs := lexAll("a 42")
	assert.Empty(t, errs)
	assert.Equal(t, []Token{
		tok(TokenIdentifier, "a", 1, 0),
		tok(TokenDecimal, "42", 1, 2),
	}, tokens)

	tokens, errs = lexAll("")
	assert.Empty(t, errs)
	assert.Empty(t, tokens)
}

func TestLexerDeclaration(t *testing.T) {
	t.Parallel()

	input := "// header\n[Key] Class CIM_Foo : CIM_Bar {\n  /* multi\n line */ uint32 Size[4] = $a;\n};"
	tokens, errs := lexAll(input)
	assert.Empty(t, errs)

	assert.Equal(t, []Token{
		tok(TokenLBracket, "[", 2, 10),
		tok(TokenIdentifier, "Key", 2, 11),
		tok(TokenRBracket, "]", 2, 14),
		tok(TokenKeyword, "Class", 2, 16),
		tok(TokenIdentifier, "CIM_Foo", 2, 22),
		tok(TokenColon, ":", 2, 30),
		tok(TokenIdentifier, "CIM_Bar", 2, 32),
		tok(TokenLBrace, "{", 2, 40),
		tok(TokenKeyword, "uint32", 4, 62),
		tok(TokenIdentifier, "Size", 4, 69),
		tok(TokenLBracket, "[", 4, 73),
		tok(TokenDecimal, "4", 4, 74),
		tok(TokenRBracket, "]", 4, 75),
		tok(TokenEquals, "=", 4, 77),
		tok(TokenAlias, "$a", 4, 79),
		tok(TokenSemicolon, ";", 4, 81),
		tok(TokenRBrace, "}", 5, 83),
		tok(TokenSemicolon, ";", 5, 84),
	}, tokens)
}

func TestLexerContinuesAfterError(t *testing.T) {
	t.Parallel()

	tokens, errs := lexAll("a ? b\n@ 09 c")
	assert.Equal(t, []Token{
		tok(TokenIdentifier, "a", 1, 0),
		tok(TokenIdentifier, "b", 1, 4),
		tok(TokenIdentifier, "c", 2, 11),
	}, tokens)
	assert.Equal(t, []Token{
		tok(TokenError, "?", 1, 2),
		tok(TokenError, "@", 2, 6),
		tok(TokenError, "09", 2, 8),
	}, errs)
}

func TestLexerEscapedNewlineEndsString(t *testing.T) {
	t.Parallel()

	tokens, errs := lexAll("a \"x\\\nb")
	assert.Equal(t, []Token{
		tok(TokenIdentifier, "a", 1, 0),
		tok(TokenIdentifier, "b", 2, 6),
	}, tokens)
	assert.Equal(t, []Token{tok(TokenError, `"x\`, 1, 2)}, errs)
}

func TestLexerRecordsErrorsWithoutHandler(t *testing.T) {
	t.Parallel()

	l := NewLexer(`"unterminated`)
	assert.Equal(t, TokenEOF, l.Next().Kind)
	assert.Equal(t, []Token{tok(TokenError, `"unterminated`, 1, 0)}, l.Errors())
}

func TestKeywordsAreCaseInsensitive(t *testing.T) {
	t.Parallel()

	for _, word := range []string{"class", "CLASS", "Class", "REF", "ToSubclass", "Uint32"} {
		assert.True(t, IsKeyword(word), word)
	}
	assert.False(t, IsKeyword("CIM_ManagedElement"))
	assert.True(t, tok(TokenKeyword, "Instance", 1, 0).Is("instance"))
}
