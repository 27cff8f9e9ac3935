package mof

import (
	"fmt"
	"strings"
)

// TokenKind identifies a token type.
type TokenKind int

const (
	TokenEOF TokenKind = iota
	// TokenError marks malformed input. Error tokens are handed to the
	// lexer's error handler and never appear in the token stream.
	TokenError

	TokenIdentifier
	TokenAlias // $name
	TokenKeyword

	TokenDecimal
	TokenBinary
	TokenOctal
	TokenHex
	TokenReal
	TokenString
	TokenChar

	TokenLBrace    // {
	TokenRBrace    // }
	TokenLParen    // (
	TokenRParen    // )
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenSemicolon // ;
	TokenComma     // ,
	TokenColon     // :
	TokenEquals    // =
	TokenHash      // #
)

var tokenNames = [...]string{
	TokenEOF:        "EOF",
	TokenError:      "error",
	TokenIdentifier: "IDENTIFIER",
	TokenAlias:      "aliasIdentifier",
	TokenKeyword:    "keyword",
	TokenDecimal:    "decimalValue",
	TokenBinary:     "binaryValue",
	TokenOctal:      "octalValue",
	TokenHex:        "hexValue",
	TokenReal:       "floatValue",
	TokenString:     "stringValue",
	TokenChar:       "charValue",
	TokenLBrace:     "'{'",
	TokenRBrace:     "'}'",
	TokenLParen:     "'('",
	TokenRParen:     "')'",
	TokenLBracket:   "'['",
	TokenRBracket:   "']'",
	TokenSemicolon:  "';'",
	TokenComma:      "','",
	TokenColon:      "':'",
	TokenEquals:     "'='",
	TokenHash:       "'#'",
}

func (k TokenKind) String() string {
	if int(k) < len(tokenNames) && tokenNames[k] != "" {
		return tokenNames[k]
	}
	return fmt.Sprintf("TokenKind(%d)", int(k))
}

// IsInteger reports whether k is one of the integer literal kinds.
func (k TokenKind) IsInteger() bool {
	return k >= TokenDecimal && k <= TokenHex
}

// Token is a lexical token. Value is the raw source text. Line is
// 1-based; Offset is the 0-based byte offset from the start of the input.
type Token struct {
	Kind   TokenKind
	Value  string
	Line   int
	Offset int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q, line %d, offset %d)", t.Kind, t.Value, t.Line, t.Offset)
}

// Is reports whether t is the keyword kw (case-insensitive).
func (t Token) Is(kw string) bool {
	return t.Kind == TokenKeyword && strings.EqualFold(t.Value, kw)
}

// keywords are matched case-insensitively and stored lowercase.
var keywords = map[string]bool{
	"any": true, "as": true, "association": true, "class": true,
	"disableoverride": true, "enableoverride": true, "false": true,
	"flavor": true, "include": true, "indication": true, "instance": true,
	"method": true, "null": true, "of": true, "parameter": true,
	"pragma": true, "property": true, "qualifier": true, "ref": true,
	"reference": true, "restricted": true, "schema": true, "scope": true,
	"tosubclass": true, "toinstance": true, "translatable": true, "true": true,

	"boolean": true, "char16": true, "datetime": true, "real32": true,
	"real64": true, "sint8": true, "sint16": true, "sint32": true,
	"sint64": true, "string": true, "uint8": true, "uint16": true,
	"uint32": true, "uint64": true,
}

// IsKeyword reports whether word is a MOF keyword.
func IsKeyword(word string) bool {
	return keywords[strings.ToLower(word)]
}
