// Package repository stores compiled CIM objects per namespace.
//
// A Repository is not safe for concurrent use; callers serialize access.
package repository

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gnoswap-labs/mofc/internal/cim"
)

// DefaultNamespace is used when a compile names no namespace.
const DefaultNamespace = "root/cimv2"

// ErrNotFound is returned by lookups of absent objects.
var ErrNotFound = errors.New("not found")

// Repository holds any number of namespaces.
type Repository struct {
	namespaces map[string]*Namespace
	order      []string
}

// New returns an empty repository.
func New() *Repository {
	return &Repository{namespaces: make(map[string]*Namespace)}
}

// NormalizeNamespace converts backslashes to slashes and strips leading and
// trailing separators: "\\root\\cimv2\\" becomes "root/cimv2".
func NormalizeNamespace(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	return strings.Trim(name, "/")
}

func namespaceName(name string) string {
	name = NormalizeNamespace(name)
	if name == "" {
		return DefaultNamespace
	}
	return name
}

// Namespace returns the named namespace, creating it when absent. An empty
// name selects DefaultNamespace.
func (r *Repository) Namespace(name string) *Namespace {
	name = namespaceName(name)
	key := strings.ToLower(name)
	if ns, ok := r.namespaces[key]; ok {
		return ns
	}
	ns := &Namespace{name: name}
	r.namespaces[key] = ns
	r.order = append(r.order, key)
	return ns
}

// Lookup returns the named namespace if it exists. An empty name selects
// DefaultNamespace, as for Namespace.
func (r *Repository) Lookup(name string) (*Namespace, bool) {
	ns, ok := r.namespaces[strings.ToLower(namespaceName(name))]
	return ns, ok
}

// Namespaces returns the namespaces in creation order.
func (r *Repository) Namespaces() []*Namespace {
	out := make([]*Namespace, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.namespaces[key])
	}
	return out
}

// Namespace is the set of qualifier declarations, classes and instances
// one compile targets. Class and qualifier names are case-insensitive.
type Namespace struct {
	name       string
	qualifiers cim.Map[*cim.QualifierDeclaration]
	classes    cim.Map[*cim.Class]
	instances  []*cim.Instance
	order      []string
}

// Name returns the normalized namespace name.
func (ns *Namespace) Name() string { return ns.name }

// GetClass returns the resolved class.
func (ns *Namespace) GetClass(name string) (*cim.Class, error) {
	c, ok := ns.classes.Get(name)
	if !ok {
		return nil, fmt.Errorf("class %s in namespace %s: %w", name, ns.name, ErrNotFound)
	}
	return c, nil
}

// HasClass reports whether name is compiled into the namespace.
func (ns *Namespace) HasClass(name string) bool {
	return ns.classes.Has(name)
}

// EnumerateClasses returns every class in compile order, so superclasses
// precede their subclasses.
func (ns *Namespace) EnumerateClasses() []*cim.Class {
	out := make([]*cim.Class, 0, len(ns.order))
	for _, name := range ns.order {
		c, _ := ns.classes.Get(name)
		out = append(out, c)
	}
	return out
}

// CompileOrderedClassNames returns class names in the order they were
// committed. A class never precedes its superclass.
func (ns *Namespace) CompileOrderedClassNames() []string {
	return slices.Clone(ns.order)
}

// Subclasses returns the names of the direct subclasses of name.
func (ns *Namespace) Subclasses(name string) []string {
	var out []string
	for _, c := range ns.EnumerateClasses() {
		if strings.EqualFold(c.Superclass, name) {
			out = append(out, c.Name)
		}
	}
	return out
}

// SetClass commits c. A new class is appended to the compile order. A
// replaced class keeps its position unless its superclass changed, in
// which case it moves to the end so that it follows its new superclass.
func (ns *Namespace) SetClass(c *cim.Class) {
	existing, ok := ns.classes.Get(c.Name)
	switch {
	case !ok:
		ns.order = append(ns.order, c.Name)
	case !strings.EqualFold(existing.Superclass, c.Superclass):
		ns.order = slices.DeleteFunc(ns.order, func(name string) bool {
			return strings.EqualFold(name, c.Name)
		})
		ns.order = append(ns.order, c.Name)
	}
	ns.classes.Set(c.Name, c)
}

// GetQualifier returns the qualifier declaration.
func (ns *Namespace) GetQualifier(name string) (*cim.QualifierDeclaration, error) {
	q, ok := ns.qualifiers.Get(name)
	if !ok {
		return nil, fmt.Errorf("qualifier %s in namespace %s: %w", name, ns.name, ErrNotFound)
	}
	return q, nil
}

// EnumerateQualifiers returns the qualifier declarations in declaration order.
func (ns *Namespace) EnumerateQualifiers() []*cim.QualifierDeclaration {
	return ns.qualifiers.Values()
}

// SetQualifier commits a qualifier declaration.
func (ns *Namespace) SetQualifier(d *cim.QualifierDeclaration) {
	ns.qualifiers.Set(d.Name, d)
}

// EnumerateInstances returns every instance in the order it was added.
func (ns *Namespace) EnumerateInstances() []*cim.Instance {
	return slices.Clone(ns.instances)
}

// AddInstance appends inst. Instances are never deduplicated.
func (ns *Namespace) AddInstance(inst *cim.Instance) {
	ns.instances = append(ns.instances, inst)
}
