package cim

import "strings"

// Type is a CIM data type.
type Type int

const (
	TypeInvalid Type = iota
	TypeBoolean
	TypeString
	TypeChar16
	TypeDatetime
	TypeUint8
	TypeSint8
	TypeUint16
	TypeSint16
	TypeUint32
	TypeSint32
	TypeUint64
	TypeSint64
	TypeReal32
	TypeReal64
	TypeReference
)

var typeNames = map[Type]string{
	TypeBoolean:   "boolean",
	TypeString:    "string",
	TypeChar16:    "char16",
	TypeDatetime:  "datetime",
	TypeUint8:     "uint8",
	TypeSint8:     "sint8",
	TypeUint16:    "uint16",
	TypeSint16:    "sint16",
	TypeUint32:    "uint32",
	TypeSint32:    "sint32",
	TypeUint64:    "uint64",
	TypeSint64:    "sint64",
	TypeReal32:    "real32",
	TypeReal64:    "real64",
	TypeReference: "reference",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "invalid"
}

// ParseType maps a MOF data type keyword to its Type. The lookup is
// case-insensitive. "reference" is not a data type keyword in MOF and
// is rejected.
func ParseType(name string) (Type, bool) {
	lower := strings.ToLower(name)
	for t, n := range typeNames {
		if n == lower && t != TypeReference {
			return t, true
		}
	}
	return TypeInvalid, false
}

// IsInteger reports whether t is one of the uintN or sintN types.
func (t Type) IsInteger() bool {
	return t >= TypeUint8 && t <= TypeSint64
}

// IsSigned reports whether t is a sintN type.
func (t Type) IsSigned() bool {
	switch t {
	case TypeSint8, TypeSint16, TypeSint32, TypeSint64:
		return true
	}
	return false
}

// IsReal reports whether t is real32 or real64.
func (t Type) IsReal() bool {
	return t == TypeReal32 || t == TypeReal64
}

// BitSize returns the width of integer and real types, 0 otherwise.
func (t Type) BitSize() int {
	switch t {
	case TypeUint8, TypeSint8:
		return 8
	case TypeUint16, TypeSint16:
		return 16
	case TypeUint32, TypeSint32, TypeReal32:
		return 32
	case TypeUint64, TypeSint64, TypeReal64:
		return 64
	}
	return 0
}
