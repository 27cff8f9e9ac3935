package cim

import (
	"fmt"
	"strings"
)

// Flavor is a set of qualifier flavor keywords. A qualifier declaration
// always carries a normalized flavor (exactly one of the override pair and
// one of the propagation pair). A qualifier value only carries the flavors
// written at its use site, which may be empty.
type Flavor uint8

const (
	FlavorEnableOverride Flavor = 1 << iota
	FlavorDisableOverride
	FlavorToSubclass
	FlavorRestricted
	FlavorToInstance
	FlavorTranslatable
)

// DefaultFlavor is the flavor of a qualifier declaration without a
// Flavor list.
const DefaultFlavor = FlavorEnableOverride | FlavorToSubclass

var flavorKeywords = []struct {
	flavor Flavor
	name   string
}{
	{FlavorEnableOverride, "EnableOverride"},
	{FlavorDisableOverride, "DisableOverride"},
	{FlavorToSubclass, "ToSubclass"},
	{FlavorRestricted, "Restricted"},
	{FlavorToInstance, "ToInstance"},
	{FlavorTranslatable, "Translatable"},
}

// ParseFlavor maps a flavor keyword (case-insensitive) to its Flavor bit.
func ParseFlavor(name string) (Flavor, bool) {
	for _, kw := range flavorKeywords {
		if strings.EqualFold(kw.name, name) {
			return kw.flavor, true
		}
	}
	return 0, false
}

// Has reports whether all bits of other are set in f.
func (f Flavor) Has(other Flavor) bool {
	return f&other == other
}

// Validate rejects sets that contain both keywords of a pair.
func (f Flavor) Validate() error {
	if f.Has(FlavorEnableOverride | FlavorDisableOverride) {
		return fmt.Errorf("flavors EnableOverride and DisableOverride are mutually exclusive")
	}
	if f.Has(FlavorToSubclass | FlavorRestricted) {
		return fmt.Errorf("flavors ToSubclass and Restricted are mutually exclusive")
	}
	return nil
}

// Normalize fills in the default of each pair that f leaves unset.
func (f Flavor) Normalize() Flavor {
	if f&(FlavorEnableOverride|FlavorDisableOverride) == 0 {
		f |= FlavorEnableOverride
	}
	if f&(FlavorToSubclass|FlavorRestricted) == 0 {
		f |= FlavorToSubclass
	}
	return f
}

// Merge applies explicit use-site flavors on top of a declared flavor.
func (f Flavor) Merge(explicit Flavor) Flavor {
	if explicit&(FlavorEnableOverride|FlavorDisableOverride) != 0 {
		f &^= FlavorEnableOverride | FlavorDisableOverride
	}
	if explicit&(FlavorToSubclass|FlavorRestricted) != 0 {
		f &^= FlavorToSubclass | FlavorRestricted
	}
	return f | explicit
}

func (f Flavor) Overridable() bool  { return !f.Has(FlavorDisableOverride) }
func (f Flavor) ToSubclass() bool   { return !f.Has(FlavorRestricted) }
func (f Flavor) ToInstance() bool   { return f.Has(FlavorToInstance) }
func (f Flavor) Translatable() bool { return f.Has(FlavorTranslatable) }

// Keywords returns the MOF keywords of f in canonical order.
func (f Flavor) Keywords() []string {
	var names []string
	for _, kw := range flavorKeywords {
		if f.Has(kw.flavor) {
			names = append(names, kw.name)
		}
	}
	return names
}

func (f Flavor) String() string {
	return strings.Join(f.Keywords(), " ")
}

// Scope is the set of element kinds a qualifier may be applied to.
type Scope uint8

const (
	ScopeClass Scope = 1 << iota
	ScopeAssociation
	ScopeIndication
	ScopeProperty
	ScopeReference
	ScopeMethod
	ScopeParameter
)

// ScopeAny covers every element kind.
const ScopeAny = ScopeClass | ScopeAssociation | ScopeIndication | ScopeProperty |
	ScopeReference | ScopeMethod | ScopeParameter

var scopeKeywords = []struct {
	scope Scope
	name  string
}{
	{ScopeClass, "class"},
	{ScopeAssociation, "association"},
	{ScopeIndication, "indication"},
	{ScopeProperty, "property"},
	{ScopeReference, "reference"},
	{ScopeMethod, "method"},
	{ScopeParameter, "parameter"},
}

// ParseScope maps a scope keyword to its Scope bits. "any" yields ScopeAny.
// "qualifier" and "schema" are accepted for compatibility and map to no
// element kind.
func ParseScope(name string) (Scope, bool) {
	lower := strings.ToLower(name)
	switch lower {
	case "any":
		return ScopeAny, true
	case "qualifier", "schema":
		return 0, true
	}
	for _, kw := range scopeKeywords {
		if kw.name == lower {
			return kw.scope, true
		}
	}
	return 0, false
}

// Has reports whether all bits of other are set in s.
func (s Scope) Has(other Scope) bool {
	return s&other == other
}

// Keywords returns the MOF keywords of s in canonical order, or "any" when
// every element kind is covered.
func (s Scope) Keywords() []string {
	if s == ScopeAny {
		return []string{"any"}
	}
	var names []string
	for _, kw := range scopeKeywords {
		if s.Has(kw.scope) {
			names = append(names, kw.name)
		}
	}
	return names
}

func (s Scope) String() string {
	return strings.Join(s.Keywords(), ", ")
}
