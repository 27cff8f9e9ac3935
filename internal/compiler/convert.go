package compiler

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/gnoswap-labs/mofc/internal/cim"
	"github.com/gnoswap-labs/mofc/internal/mof"
)

// valueSpec is the declared shape a written value must fit.
type valueSpec struct {
	Type      cim.Type
	IsArray   bool
	ArraySize int
}

// aliasLookup resolves $name references. A nil lookup rejects all aliases.
type aliasLookup func(name string) (cim.ObjectPath, bool)

// convertValue turns a parsed initializer into the Go representation of
// spec.Type. NULL converts to nil for any type.
func convertValue(v mof.Value, spec valueSpec, aliases aliasLookup) (any, error) {
	if v == nil || isNull(v) {
		return nil, nil
	}
	arr, isArr := v.(*mof.ArrayLiteral)
	switch {
	case spec.IsArray && !isArr:
		return nil, fmt.Errorf("%s[] value expected", spec.Type)
	case !spec.IsArray && isArr:
		return nil, fmt.Errorf("array value given for scalar %s", spec.Type)
	case isArr:
		if spec.ArraySize > 0 && len(arr.Elems) > spec.ArraySize {
			return nil, fmt.Errorf("array has %d elements, at most %d allowed", len(arr.Elems), spec.ArraySize)
		}
		out := make([]any, 0, len(arr.Elems))
		for i, e := range arr.Elems {
			ev, err := convertScalar(e, spec.Type, aliases)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out = append(out, ev)
		}
		return out, nil
	}
	return convertScalar(v, spec.Type, aliases)
}

func isNull(v mof.Value) bool {
	lit, ok := v.(*mof.Literal)
	return ok && lit.Kind == mof.LitNull
}

func convertScalar(v mof.Value, t cim.Type, aliases aliasLookup) (any, error) {
	switch x := v.(type) {
	case *mof.AliasRef:
		if t != cim.TypeReference {
			return nil, fmt.Errorf("alias $%s used for %s value", x.Name, t)
		}
		if aliases != nil {
			if path, ok := aliases(x.Name); ok {
				return path, nil
			}
		}
		return nil, fmt.Errorf("$%s: %w", x.Name, errUndefinedAlias)
	case *mof.ArrayLiteral:
		return nil, fmt.Errorf("nested array given for %s", t)
	case *mof.Literal:
		return convertLiteral(x, t)
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}

func convertLiteral(lit *mof.Literal, t cim.Type) (any, error) {
	if lit.Kind == mof.LitNull {
		return nil, nil
	}
	mismatch := func() error {
		return fmt.Errorf("%s value %s is not valid for type %s", lit.Kind, literalText(lit), t)
	}

	switch {
	case t == cim.TypeBoolean:
		if lit.Kind != mof.LitBool {
			return nil, mismatch()
		}
		return lit.Text == "true", nil

	case t == cim.TypeString:
		if lit.Kind != mof.LitString {
			return nil, mismatch()
		}
		return lit.Text, nil

	case t == cim.TypeDatetime:
		if lit.Kind != mof.LitString {
			return nil, mismatch()
		}
		if !cim.ValidDatetime(lit.Text) {
			return nil, fmt.Errorf("%q is not a valid datetime", lit.Text)
		}
		return lit.Text, nil

	case t == cim.TypeChar16:
		if lit.Kind != mof.LitChar {
			return nil, mismatch()
		}
		r := []rune(lit.Text)
		if len(r) != 1 || r[0] > 0xFFFF {
			return nil, fmt.Errorf("%q is not a single UCS-2 character", lit.Text)
		}
		return cim.Char16(r[0]), nil

	case t.IsInteger():
		n, ok := parseInteger(lit)
		if !ok {
			return nil, mismatch()
		}
		return integerValue(n, t)

	case t.IsReal():
		f, ok := parseReal(lit)
		if !ok {
			return nil, mismatch()
		}
		if t == cim.TypeReal32 {
			if math.Abs(f) > math.MaxFloat32 {
				return nil, fmt.Errorf("%s overflows real32", lit.Text)
			}
			return float64(float32(f)), nil
		}
		return f, nil

	case t == cim.TypeReference:
		if lit.Kind != mof.LitString {
			return nil, mismatch()
		}
		path, err := cim.ParseObjectPath(lit.Text)
		if err != nil {
			return nil, err
		}
		return path, nil
	}
	return nil, mismatch()
}

// parseInteger reads an integer literal in its radix.
func parseInteger(lit *mof.Literal) (*big.Int, bool) {
	text := lit.Text
	neg := false
	switch {
	case strings.HasPrefix(text, "-"):
		neg = true
		text = text[1:]
	case strings.HasPrefix(text, "+"):
		text = text[1:]
	}

	base := 10
	switch lit.Kind {
	case mof.LitDecimal:
	case mof.LitBinary:
		base = 2
		text = text[:len(text)-1]
		if text == "" {
			text = "0"
		}
	case mof.LitOctal:
		base = 8
	case mof.LitHex:
		base = 16
		text = text[2:]
	default:
		return nil, false
	}

	n, ok := new(big.Int).SetString(text, base)
	if !ok {
		return nil, false
	}
	if neg {
		n.Neg(n)
	}
	return n, true
}

func integerValue(n *big.Int, t cim.Type) (any, error) {
	bits := uint(t.BitSize())
	if t.IsSigned() {
		limit := new(big.Int).Lsh(big.NewInt(1), bits-1)
		lo := new(big.Int).Neg(limit)
		hi := new(big.Int).Sub(limit, big.NewInt(1))
		if n.Cmp(lo) < 0 || n.Cmp(hi) > 0 {
			return nil, fmt.Errorf("%s is out of range for %s", n, t)
		}
		return n.Int64(), nil
	}
	hi := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), bits), big.NewInt(1))
	if n.Sign() < 0 || n.Cmp(hi) > 0 {
		return nil, fmt.Errorf("%s is out of range for %s", n, t)
	}
	return n.Uint64(), nil
}

// parseReal accepts real literals and, as MOF allows, integer literals.
func parseReal(lit *mof.Literal) (float64, bool) {
	if lit.Kind == mof.LitReal {
		f, err := strconv.ParseFloat(lit.Text, 64)
		return f, err == nil && !math.IsInf(f, 0)
	}
	n, ok := parseInteger(lit)
	if !ok {
		return 0, false
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	return f, true
}

func literalText(lit *mof.Literal) string {
	switch lit.Kind {
	case mof.LitString:
		return cim.QuoteString(lit.Text)
	case mof.LitChar:
		return "'" + lit.Text + "'"
	}
	return lit.Text
}
