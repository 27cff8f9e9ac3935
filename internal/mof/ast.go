package mof

import "github.com/gnoswap-labs/mofc/internal/cim"

// Position locates a node in its source unit.
type Position struct {
	Line   int // 1-based
	Column int // 0-based byte column
	Offset int // 0-based byte offset
}

// Decl is a top-level production of a compile unit: *Pragma,
// *QualifierDecl, *ClassDecl or *InstanceDecl.
type Decl interface {
	Pos() Position
	isDecl()
}

// Pragma is a compiler directive: #pragma name("value").
type Pragma struct {
	Position Position
	Name     string
	Value    string
}

// QualifierDecl is a qualifier type declaration.
type QualifierDecl struct {
	Position  Position
	Name      string
	Type      cim.Type
	IsArray   bool
	ArraySize int
	Default   Value // nil when no default is written
	Scope     cim.Scope
	Flavor    cim.Flavor // as written, not normalized
}

// ClassDecl is a class declaration with its local features.
type ClassDecl struct {
	Position      Position
	Qualifiers    []*Qualifier
	Name          string
	Alias         string // without the leading '$'
	Superclass    string
	SuperPosition Position
	Properties    []*PropertyDecl
	Methods       []*MethodDecl
}

// PropertyDecl is a property or reference declaration in a class body.
type PropertyDecl struct {
	Position       Position
	Qualifiers     []*Qualifier
	Type           cim.Type
	ReferenceClass string
	Name           string
	IsArray        bool
	ArraySize      int
	Default        Value
}

// MethodDecl is a method declaration.
type MethodDecl struct {
	Position       Position
	Qualifiers     []*Qualifier
	ReturnType     cim.Type
	ReferenceClass string
	Name           string
	Parameters     []*ParamDecl
}

// ParamDecl is a method parameter.
type ParamDecl struct {
	Position       Position
	Qualifiers     []*Qualifier
	Type           cim.Type
	ReferenceClass string
	Name           string
	IsArray        bool
	ArraySize      int
}

// InstanceDecl is an "instance of" declaration.
type InstanceDecl struct {
	Position   Position
	Qualifiers []*Qualifier
	ClassName  string
	Alias      string
	Properties []*PropertyValue
}

// PropertyValue assigns a value to a property inside an instance body.
type PropertyValue struct {
	Position   Position
	Qualifiers []*Qualifier
	Name       string
	Value      Value
}

// Qualifier is a qualifier use in a qualifier list.
type Qualifier struct {
	Position Position
	Name     string
	Value    Value // nil when the qualifier is written without a value
	Flavor   cim.Flavor
}

func (d *Pragma) Pos() Position        { return d.Position }
func (d *QualifierDecl) Pos() Position { return d.Position }
func (d *ClassDecl) Pos() Position     { return d.Position }
func (d *InstanceDecl) Pos() Position  { return d.Position }

func (*Pragma) isDecl()        {}
func (*QualifierDecl) isDecl() {}
func (*ClassDecl) isDecl()     {}
func (*InstanceDecl) isDecl()  {}

// Value is an initializer: *Literal, *ArrayLiteral or *AliasRef.
type Value interface {
	Pos() Position
	isValue()
}

// LiteralKind classifies a constant.
type LiteralKind int

const (
	LitDecimal LiteralKind = iota
	LitBinary
	LitOctal
	LitHex
	LitReal
	LitString
	LitChar
	LitBool
	LitNull
)

func (k LiteralKind) String() string {
	switch k {
	case LitDecimal:
		return "decimal"
	case LitBinary:
		return "binary"
	case LitOctal:
		return "octal"
	case LitHex:
		return "hex"
	case LitReal:
		return "real"
	case LitString:
		return "string"
	case LitChar:
		return "char"
	case LitBool:
		return "boolean"
	case LitNull:
		return "NULL"
	}
	return "unknown"
}

// Literal is a constant value. Text holds the raw digits of numbers
// (sign and radix marker included), the unescaped content of strings and
// chars, and "true"/"false" for booleans.
type Literal struct {
	Position Position
	Kind     LiteralKind
	Text     string
}

// ArrayLiteral is a brace-enclosed list of values.
type ArrayLiteral struct {
	Position Position
	Elems    []Value
}

// AliasRef refers to an alias defined earlier in the same compile unit.
type AliasRef struct {
	Position Position
	Name     string // without the leading '$'
}

func (v *Literal) Pos() Position      { return v.Position }
func (v *ArrayLiteral) Pos() Position { return v.Position }
func (v *AliasRef) Pos() Position     { return v.Position }

func (*Literal) isValue()      {}
func (*ArrayLiteral) isValue() {}
func (*AliasRef) isValue()     {}
