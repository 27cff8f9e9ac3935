package compiler

import (
	"reflect"
	"strings"

	"github.com/gnoswap-labs/mofc/internal/cim"
	"github.com/gnoswap-labs/mofc/internal/mof"
	"github.com/gnoswap-labs/mofc/internal/repository"
)

func sameQualifierDeclaration(a, b *cim.QualifierDeclaration) bool {
	return strings.EqualFold(a.Name, b.Name) &&
		a.Type == b.Type &&
		a.IsArray == b.IsArray &&
		a.ArraySize == b.ArraySize &&
		a.Scope == b.Scope &&
		a.Flavor == b.Flavor &&
		reflect.DeepEqual(a.Default, b.Default)
}

// element names the kind of element a qualifier list decorates, for
// messages and scope checks.
type element struct {
	kind  string
	name  string
	scope cim.Scope // 0 skips the scope check
}

// resolveQualifiers checks a written qualifier list against the
// namespace's declarations and converts the values.
//
// A qualifier without a declaration is taken as an implicit boolean that
// defaults to true; giving it any other value is an error.
func (r *run) resolveQualifiers(u *unit, ns *repository.Namespace, quals []*mof.Qualifier, el element) (cim.Qualifiers, error) {
	var out cim.Qualifiers
	for _, q := range quals {
		if out.Has(q.Name) {
			return out, newError(u.file, q.Position, CodeFailed, "qualifier %s is given more than once on %s %s", q.Name, el.kind, el.name)
		}

		decl, err := ns.GetQualifier(q.Name)
		if err != nil {
			v, err := convertValue(q.Value, valueSpec{Type: cim.TypeBoolean}, nil)
			if err != nil {
				return out, newError(u.file, q.Position, CodeFailed,
					"qualifier %s on %s %s is not declared and its value is not boolean", q.Name, el.kind, el.name)
			}
			if v == nil && q.Value == nil {
				v = true
			}
			out.Set(q.Name, &cim.Qualifier{
				Name:      q.Name,
				Type:      cim.TypeBoolean,
				Value:     v,
				Flavor:    q.Flavor,
				Effective: cim.DefaultFlavor.Merge(q.Flavor),
			})
			continue
		}

		if el.scope != 0 && decl.Scope&el.scope == 0 {
			return out, newError(u.file, q.Position, CodeFailed,
				"qualifier %s cannot be applied to %s %s (scope: %s)", decl.Name, el.kind, el.name, decl.Scope)
		}
		if decl.Flavor.Has(cim.FlavorDisableOverride) && q.Flavor.Has(cim.FlavorEnableOverride) {
			return out, newError(u.file, q.Position, CodeFailed,
				"qualifier %s is declared DisableOverride and cannot be made overridable", decl.Name)
		}

		var value any
		switch {
		case q.Value != nil:
			value, err = convertValue(q.Value, valueSpec{Type: decl.Type, IsArray: decl.IsArray, ArraySize: decl.ArraySize}, nil)
			if err != nil {
				return out, newError(u.file, q.Position, CodeTypeMismatch, "qualifier %s: %v", decl.Name, err)
			}
		case decl.Type == cim.TypeBoolean && !decl.IsArray:
			value = true
		default:
			value = decl.Default
		}

		out.Set(decl.Name, &cim.Qualifier{
			Name:      decl.Name,
			Type:      decl.Type,
			Value:     value,
			Flavor:    q.Flavor,
			Effective: decl.Flavor.Merge(q.Flavor),
		})
	}
	return out, nil
}

// propagate returns copies of the inherited qualifiers that flow to a
// subclass element, marked as propagated.
func propagate(inherited cim.Qualifiers) cim.Qualifiers {
	var out cim.Qualifiers
	for _, q := range inherited.Values() {
		if !q.Effective.ToSubclass() {
			continue
		}
		c := q.Clone()
		c.Propagated = true
		out.Set(c.Name, c)
	}
	return out
}

// mergeQualifiers overlays the local qualifiers of an element on those it
// inherits. A local value may not change an inherited qualifier whose
// effective flavor is DisableOverride.
func (r *run) mergeQualifiers(u *unit, pos mof.Position, local, inherited cim.Qualifiers, el element) (cim.Qualifiers, error) {
	out := propagate(inherited)
	for _, q := range local.Values() {
		if prev, ok := out.Get(q.Name); ok && !prev.Effective.Overridable() {
			if !reflect.DeepEqual(prev.Value, q.Value) {
				return out, newError(u.file, pos, CodeFailed,
					"qualifier %s of %s %s is not overridable (inherited value %s, new value %s)",
					q.Name, el.kind, el.name, cim.FormatValue(prev.Value), cim.FormatValue(q.Value))
			}
			q.Effective = prev.Effective
		}
		out.Set(q.Name, q)
	}
	return out, nil
}
