package cim

// Entity is one of the top-level objects a namespace stores:
// *QualifierDeclaration, *Class or *Instance. The set is closed.
type Entity interface {
	isEntity()
}

var (
	_ Entity = (*QualifierDeclaration)(nil)
	_ Entity = (*Class)(nil)
	_ Entity = (*Instance)(nil)
)

// QualifierDeclaration declares the type, default, scope and flavor of a
// qualifier within a namespace.
type QualifierDeclaration struct {
	Name      string
	Type      Type
	IsArray   bool
	ArraySize int // 0 for scalars and unbounded arrays
	Default   any
	Scope     Scope
	Flavor    Flavor // always normalized
}

func (*QualifierDeclaration) isEntity() {}

// Qualifier is a qualifier value attached to a class, property, method,
// parameter or instance.
type Qualifier struct {
	Name  string
	Type  Type
	Value any
	// Flavor holds only the flavors written at the use site.
	Flavor Flavor
	// Effective is the declared flavor with Flavor applied on top.
	Effective Flavor
	// Propagated is set when the value was inherited rather than written
	// on this element.
	Propagated bool
}

// Clone returns a shallow copy of q. Values are never mutated after
// conversion, so sharing them is safe.
func (q *Qualifier) Clone() *Qualifier {
	c := *q
	return &c
}

// IsTrue reports whether q is a boolean qualifier with value true.
func (q *Qualifier) IsTrue() bool {
	b, ok := q.Value.(bool)
	return ok && b
}

// Qualifiers is an ordered, case-insensitive qualifier set.
type Qualifiers = Map[*Qualifier]

// Property is a class property or an instance property value.
type Property struct {
	Name           string
	Type           Type
	ReferenceClass string // set when Type is TypeReference
	IsArray        bool
	ArraySize      int // 0 for scalars and unbounded arrays
	Value          any
	Qualifiers     Qualifiers
	// ClassOrigin names the class that first declared the property.
	ClassOrigin string
	Propagated  bool
}

// Parameter is a method parameter.
type Parameter struct {
	Name           string
	Type           Type
	ReferenceClass string
	IsArray        bool
	ArraySize      int
	Qualifiers     Qualifiers
}

// Method is a class method.
type Method struct {
	Name           string
	ReturnType     Type
	ReferenceClass string
	Parameters     Map[*Parameter]
	Qualifiers     Qualifiers
	ClassOrigin    string
	Propagated     bool
}

// Class is a resolved class: its own declarations merged with everything
// it inherits.
type Class struct {
	Name       string
	Superclass string
	Qualifiers Qualifiers
	Properties Map[*Property]
	Methods    Map[*Method]
}

func (*Class) isEntity() {}

// IsAssociation reports whether the class carries Association(true).
func (c *Class) IsAssociation() bool {
	return c.hasTrueQualifier("Association")
}

// IsIndication reports whether the class carries Indication(true).
func (c *Class) IsIndication() bool {
	return c.hasTrueQualifier("Indication")
}

// IsTerminal reports whether the class carries Terminal(true).
func (c *Class) IsTerminal() bool {
	return c.hasTrueQualifier("Terminal")
}

func (c *Class) hasTrueQualifier(name string) bool {
	q, ok := c.Qualifiers.Get(name)
	return ok && q.IsTrue()
}

// KeyProperties returns the properties qualified with Key(true), in
// declaration order.
func (c *Class) KeyProperties() []*Property {
	var keys []*Property
	for _, p := range c.Properties.Values() {
		if q, ok := p.Qualifiers.Get("Key"); ok && q.IsTrue() {
			keys = append(keys, p)
		}
	}
	return keys
}

// Instance is an instance of a class.
type Instance struct {
	ClassName  string
	Qualifiers Qualifiers
	Properties Map[*Property]
	Path       ObjectPath
}

func (*Instance) isEntity() {}
