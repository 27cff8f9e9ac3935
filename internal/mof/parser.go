package mof

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gnoswap-labs/mofc/internal/cim"
)

// Parse parses one compile unit. It stops at the first lexical or
// grammatical error and returns it as a *ParseError.
func Parse(filename, src string, opts ...LexerOption) (decls []Decl, err error) {
	p := newParser(filename, src, opts...)
	defer func() {
		if r := recover(); r != nil {
			b, ok := r.(bailout)
			if !ok {
				panic(r)
			}
			decls, err = nil, b.err
		}
	}()
	return p.parseUnit(), nil
}

// bailout unwinds the recursive descent on the first error.
type bailout struct{ err *ParseError }

type parser struct {
	file       string
	src        string
	lex        *Lexer
	lexErrs    int
	buf        []Token
	lineStarts []int
}

func newParser(filename, src string, opts ...LexerOption) *parser {
	starts := []int{0}
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &parser{
		file:       filename,
		src:        src,
		lex:        NewLexer(src, opts...),
		lineStarts: starts,
	}
}

func (p *parser) parseUnit() []Decl {
	var decls []Decl
	for {
		tok := p.peek()
		switch {
		case tok.Kind == TokenEOF:
			return decls
		case tok.Kind == TokenHash:
			decls = append(decls, p.parsePragma())
		case tok.Is("qualifier"):
			decls = append(decls, p.parseQualifierDecl())
		default:
			quals := p.parseQualifierList()
			switch tok := p.peek(); {
			case tok.Is("class"):
				decls = append(decls, p.parseClass(quals))
			case tok.Is("instance"):
				decls = append(decls, p.parseInstance(quals))
			default:
				p.unexpected(tok, "expected class, instance, qualifier or #pragma")
			}
		}
	}
}

// parsePragma parses: # pragma name ( "value" )
func (p *parser) parsePragma() *Pragma {
	hash := p.expect(TokenHash)
	p.expectKeyword("pragma")
	name := p.name()
	p.expect(TokenLParen)
	value := p.stringValue()
	p.expect(TokenRParen)
	return &Pragma{Position: p.pos(hash), Name: name.Value, Value: value}
}

// parseQualifierDecl parses:
// Qualifier Name : type [array] [= value] , Scope ( ... ) [, Flavor ( ... )] ;
func (p *parser) parseQualifierDecl() *QualifierDecl {
	start := p.expectKeyword("qualifier")
	d := &QualifierDecl{Position: p.pos(start)}
	d.Name = p.name().Value
	p.expect(TokenColon)
	d.Type = p.dataType()
	d.IsArray, d.ArraySize = p.arraySpec()
	if p.accept(TokenEquals) {
		d.Default = p.initializer()
	}
	p.expect(TokenComma)

	p.expectKeyword("scope")
	p.expect(TokenLParen)
	for {
		tok := p.name()
		scope, ok := cim.ParseScope(tok.Value)
		if !ok {
			p.fail(tok, fmt.Sprintf("unknown scope %q", tok.Value))
		}
		d.Scope |= scope
		if !p.accept(TokenComma) {
			break
		}
	}
	p.expect(TokenRParen)

	if p.accept(TokenComma) {
		p.expectKeyword("flavor")
		p.expect(TokenLParen)
		for {
			d.Flavor |= p.flavor()
			if !p.accept(TokenComma) {
				break
			}
		}
		closing := p.expect(TokenRParen)
		if err := d.Flavor.Validate(); err != nil {
			p.fail(closing, err.Error())
		}
	}
	p.expect(TokenSemicolon)
	return d
}

// parseClass parses: class Name [as $alias] [: Super] { features } ;
func (p *parser) parseClass(quals []*Qualifier) *ClassDecl {
	start := p.expectKeyword("class")
	c := &ClassDecl{Position: p.pos(start), Qualifiers: quals}
	c.Name = p.expect(TokenIdentifier).Value
	c.Alias = p.alias()
	if p.accept(TokenColon) {
		super := p.expect(TokenIdentifier)
		c.Superclass = super.Value
		c.SuperPosition = p.pos(super)
	}
	p.expect(TokenLBrace)
	for p.peek().Kind != TokenRBrace {
		p.parseFeature(c)
	}
	p.expect(TokenRBrace)
	p.expect(TokenSemicolon)
	return c
}

// parseFeature parses one property, reference or method declaration.
func (p *parser) parseFeature(c *ClassDecl) {
	quals := p.parseQualifierList()
	first := p.peek()
	typ, refClass := p.featureType()
	name := p.name()

	featurePos := p.pos(first)
	if p.accept(TokenLParen) {
		m := &MethodDecl{
			Position:       featurePos,
			Qualifiers:     quals,
			ReturnType:     typ,
			ReferenceClass: refClass,
			Name:           name.Value,
		}
		if p.peek().Kind != TokenRParen {
			for {
				m.Parameters = append(m.Parameters, p.parseParam())
				if !p.accept(TokenComma) {
					break
				}
			}
		}
		p.expect(TokenRParen)
		p.expect(TokenSemicolon)
		c.Methods = append(c.Methods, m)
		return
	}

	prop := &PropertyDecl{
		Position:       featurePos,
		Qualifiers:     quals,
		Type:           typ,
		ReferenceClass: refClass,
		Name:           name.Value,
	}
	prop.IsArray, prop.ArraySize = p.arraySpec()
	if p.accept(TokenEquals) {
		prop.Default = p.initializer()
	}
	p.expect(TokenSemicolon)
	c.Properties = append(c.Properties, prop)
}

func (p *parser) parseParam() *ParamDecl {
	quals := p.parseQualifierList()
	first := p.peek()
	typ, refClass := p.featureType()
	name := p.name()
	param := &ParamDecl{
		Position:       p.pos(first),
		Qualifiers:     quals,
		Type:           typ,
		ReferenceClass: refClass,
		Name:           name.Value,
	}
	param.IsArray, param.ArraySize = p.arraySpec()
	return param
}

// featureType parses either a data type keyword or "ClassName REF".
func (p *parser) featureType() (cim.Type, string) {
	tok := p.peek()
	if tok.Kind == TokenKeyword {
		if t, ok := cim.ParseType(tok.Value); ok {
			p.next()
			return t, ""
		}
	}
	if tok.Kind == TokenIdentifier && p.peekN(1).Is("ref") {
		p.next()
		p.next()
		return cim.TypeReference, tok.Value
	}
	p.unexpected(tok, "expected a data type or a reference declaration")
	return cim.TypeInvalid, ""
}

// parseInstance parses: instance of Class [as $alias] { name = value ; ... } ;
func (p *parser) parseInstance(quals []*Qualifier) *InstanceDecl {
	start := p.expectKeyword("instance")
	inst := &InstanceDecl{Position: p.pos(start), Qualifiers: quals}
	p.expectKeyword("of")
	inst.ClassName = p.expect(TokenIdentifier).Value
	inst.Alias = p.alias()
	p.expect(TokenLBrace)
	for p.peek().Kind != TokenRBrace {
		pquals := p.parseQualifierList()
		name := p.name()
		pv := &PropertyValue{Position: p.pos(name), Qualifiers: pquals, Name: name.Value}
		p.expect(TokenEquals)
		pv.Value = p.initializer()
		p.expect(TokenSemicolon)
		inst.Properties = append(inst.Properties, pv)
	}
	p.expect(TokenRBrace)
	p.expect(TokenSemicolon)
	return inst
}

// parseQualifierList parses an optional [ qualifier, ... ] list.
func (p *parser) parseQualifierList() []*Qualifier {
	if !p.accept(TokenLBracket) {
		return nil
	}
	var quals []*Qualifier
	for {
		quals = append(quals, p.parseQualifier())
		if !p.accept(TokenComma) {
			break
		}
	}
	p.expect(TokenRBracket)
	return quals
}

// parseQualifier parses: Name [( value ) | { values }] [: flavor ...]
func (p *parser) parseQualifier() *Qualifier {
	name := p.name()
	q := &Qualifier{Position: p.pos(name), Name: name.Value}
	switch p.peek().Kind {
	case TokenLParen:
		p.next()
		q.Value = p.initializer()
		p.expect(TokenRParen)
	case TokenLBrace:
		q.Value = p.initializer()
	}
	if p.accept(TokenColon) {
		q.Flavor = p.flavor()
		for {
			tok := p.peek()
			if tok.Kind != TokenKeyword {
				break
			}
			if _, ok := cim.ParseFlavor(tok.Value); !ok {
				break
			}
			q.Flavor |= p.flavor()
		}
		if err := q.Flavor.Validate(); err != nil {
			p.fail(name, err.Error())
		}
	}
	return q
}

func (p *parser) flavor() cim.Flavor {
	tok := p.name()
	f, ok := cim.ParseFlavor(tok.Value)
	if !ok {
		p.fail(tok, fmt.Sprintf("unknown flavor %q", tok.Value))
	}
	return f
}

// arraySpec parses an optional [ ] or [ size ] suffix.
func (p *parser) arraySpec() (bool, int) {
	if !p.accept(TokenLBracket) {
		return false, 0
	}
	size := 0
	if tok := p.peek(); tok.Kind != TokenRBracket {
		tok = p.expect(TokenDecimal)
		n, err := strconv.Atoi(tok.Value)
		if err != nil || n <= 0 {
			p.fail(tok, fmt.Sprintf("invalid array size %s", tok.Value))
		}
		size = n
	}
	p.expect(TokenRBracket)
	return true, size
}

// initializer parses a constant, an array of constants or an alias
// reference.
func (p *parser) initializer() Value {
	tok := p.peek()
	switch tok.Kind {
	case TokenLBrace:
		p.next()
		arr := &ArrayLiteral{Position: p.pos(tok)}
		if p.peek().Kind != TokenRBrace {
			for {
				arr.Elems = append(arr.Elems, p.scalar())
				if !p.accept(TokenComma) {
					break
				}
			}
		}
		p.expect(TokenRBrace)
		return arr
	default:
		return p.scalar()
	}
}

func (p *parser) scalar() Value {
	tok := p.peek()
	pos := p.pos(tok)
	switch tok.Kind {
	case TokenAlias:
		p.next()
		return &AliasRef{Position: pos, Name: strings.TrimPrefix(tok.Value, "$")}
	case TokenString:
		return &Literal{Position: pos, Kind: LitString, Text: p.stringValue()}
	case TokenChar:
		p.next()
		text, err := unquote(tok.Value)
		if err != nil {
			p.fail(tok, err.Error())
		}
		if n := len([]rune(text)); n != 1 {
			p.fail(tok, fmt.Sprintf("char literal %s must hold exactly one character", tok.Value))
		}
		return &Literal{Position: pos, Kind: LitChar, Text: text}
	case TokenDecimal, TokenBinary, TokenOctal, TokenHex, TokenReal:
		p.next()
		return &Literal{Position: pos, Kind: literalKinds[tok.Kind], Text: tok.Value}
	case TokenKeyword:
		switch strings.ToLower(tok.Value) {
		case "true", "false":
			p.next()
			return &Literal{Position: pos, Kind: LitBool, Text: strings.ToLower(tok.Value)}
		case "null":
			p.next()
			return &Literal{Position: pos, Kind: LitNull, Text: "NULL"}
		}
	}
	p.unexpected(tok, "expected a value")
	return nil
}

var literalKinds = map[TokenKind]LiteralKind{
	TokenDecimal: LitDecimal,
	TokenBinary:  LitBinary,
	TokenOctal:   LitOctal,
	TokenHex:     LitHex,
	TokenReal:    LitReal,
}

// stringValue parses one or more adjacent string literals and returns
// their concatenated, unescaped content.
func (p *parser) stringValue() string {
	var b strings.Builder
	tok := p.expect(TokenString)
	for {
		s, err := unquote(tok.Value)
		if err != nil {
			p.fail(tok, err.Error())
		}
		b.WriteString(s)
		if p.peek().Kind != TokenString {
			return b.String()
		}
		tok = p.next()
	}
}

func (p *parser) alias() string {
	if !p.peek().Is("as") {
		return ""
	}
	p.next()
	return strings.TrimPrefix(p.expect(TokenAlias).Value, "$")
}

// name accepts an identifier or a keyword used as a name.
func (p *parser) name() Token {
	tok := p.peek()
	if tok.Kind != TokenIdentifier && tok.Kind != TokenKeyword {
		p.unexpected(tok, "expected a name")
	}
	return p.next()
}

func (p *parser) dataType() cim.Type {
	tok := p.peek()
	if tok.Kind == TokenKeyword {
		if t, ok := cim.ParseType(tok.Value); ok {
			p.next()
			return t
		}
	}
	p.unexpected(tok, "expected a data type")
	return cim.TypeInvalid
}

func (p *parser) peek() Token { return p.peekN(0) }

func (p *parser) peekN(n int) Token {
	for len(p.buf) <= n {
		tok := p.lex.Next()
		if errs := p.lex.Errors(); len(errs) > p.lexErrs {
			bad := errs[p.lexErrs]
			p.lexErrs = len(errs)
			p.fail(bad, fmt.Sprintf("invalid token %q", bad.Value))
		}
		p.buf = append(p.buf, tok)
	}
	return p.buf[n]
}

func (p *parser) next() Token {
	tok := p.peek()
	if tok.Kind != TokenEOF {
		p.buf = p.buf[1:]
	}
	return tok
}

func (p *parser) accept(kind TokenKind) bool {
	if p.peek().Kind == kind {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(kind TokenKind) Token {
	tok := p.peek()
	if tok.Kind != kind {
		p.unexpected(tok, "expected "+kind.String())
	}
	return p.next()
}

func (p *parser) expectKeyword(kw string) Token {
	tok := p.peek()
	if !tok.Is(kw) {
		p.unexpected(tok, "expected "+kw)
	}
	return p.next()
}

func (p *parser) unexpected(tok Token, expected string) {
	p.fail(tok, fmt.Sprintf("%s, got %q", expected, tok.Value))
}

// fail aborts the parse at tok.
func (p *parser) fail(tok Token, msg string) {
	if tok.Kind == TokenEOF {
		msg = "unexpected end of file"
	}
	panic(bailout{newParseError(p.file, p.src, tok.Offset, len(tok.Value), msg)})
}

func (p *parser) pos(tok Token) Position {
	col := tok.Offset
	if tok.Line >= 1 && tok.Line <= len(p.lineStarts) {
		col -= p.lineStarts[tok.Line-1]
	}
	return Position{Line: tok.Line, Column: col, Offset: tok.Offset}
}

// unquote strips the quotes of a string or char literal and resolves its
// escape sequences.
func unquote(raw string) (string, error) {
	if len(raw) < 2 {
		return "", fmt.Errorf("malformed literal %s", raw)
	}
	body := raw[1 : len(raw)-1]
	if !strings.ContainsRune(body, '\\') {
		return body, nil
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("unterminated escape in %s", raw)
		}
		switch body[i] {
		case 'b':
			b.WriteByte('\b')
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'f':
			b.WriteByte('\f')
		case 'r':
			b.WriteByte('\r')
		case '"', '\'', '\\':
			b.WriteByte(body[i])
		case 'x', 'X':
			j := i + 1
			for j < len(body) && j < i+5 && isHexDigit(body[j]) {
				j++
			}
			if j == i+1 {
				return "", fmt.Errorf("invalid hex escape in %s", raw)
			}
			r, _ := strconv.ParseUint(body[i+1:j], 16, 32)
			b.WriteRune(rune(r))
			i = j - 1
		default:
			return "", fmt.Errorf("invalid escape \\%c in %s", body[i], raw)
		}
	}
	return b.String(), nil
}
