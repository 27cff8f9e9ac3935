package compiler

import (
	"errors"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/gnoswap-labs/mofc/internal/cim"
	"github.com/gnoswap-labs/mofc/internal/mof"
	"github.com/gnoswap-labs/mofc/internal/repository"
)

// lookupClass finds a class for a reference from u. Lookup order: a class
// pending in an active unit (compiled first), the namespace, then a
// "<name>.mof" file on the search path (compiled into ns). It returns
// nil without error when nothing declares the class.
func (r *run) lookupClass(ns *repository.Namespace, name string) (*cim.Class, error) {
	key := classKey(ns, name)
	if r.resolving[key] {
		return nil, &cycleError{name: name}
	}
	if pc, ok := r.pending[key]; ok {
		return r.compileClass(pc)
	}
	if c, err := ns.GetClass(name); err == nil {
		return c, nil
	}
	path, ok := r.c.index.Lookup(name)
	if !ok {
		return nil, nil
	}
	r.c.logger.Debug("compiling class from search path",
		zap.String("class", name),
		zap.String("file", path))
	if err := r.compileFile(path, ns); err != nil {
		return nil, err
	}
	c, err := ns.GetClass(name)
	if err != nil {
		return nil, nil
	}
	return c, nil
}

// cycleError reports a superclass chain that leads back to a class whose
// resolution is in progress.
type cycleError struct{ name string }

func (e *cycleError) Error() string { return "class hierarchy cycle through " + e.name }

// classKnown reports whether a reference target exists or is being
// compiled. Targets on the search path are compiled.
func (r *run) classKnown(ns *repository.Namespace, name string) (bool, error) {
	key := classKey(ns, name)
	if r.resolving[key] || ns.HasClass(name) {
		return true, nil
	}
	if _, ok := r.pending[key]; ok {
		return true, nil
	}
	c, err := r.lookupClass(ns, name)
	return c != nil, err
}

// compileClass resolves a pending class against its superclass and
// commits it.
func (r *run) compileClass(pc *pendingClass) (*cim.Class, error) {
	d, u, ns := pc.decl, pc.unit, pc.ns
	key := classKey(ns, d.Name)
	r.resolving[key] = true
	defer func() {
		delete(r.resolving, key)
		delete(r.pending, key)
		r.done[d] = true
	}()

	var super *cim.Class
	if d.Superclass != "" {
		var err error
		super, err = r.lookupClass(ns, d.Superclass)
		if cyc, ok := err.(*cycleError); ok {
			return nil, newError(u.file, d.Position, CodeFailed,
				"class %s: superclass %s: %s", d.Name, d.Superclass, cyc)
		}
		if err != nil {
			return nil, err
		}
		if super == nil {
			return nil, newError(u.file, d.Position, CodeFailed,
				"superclass %s of class %s not found in namespace %s or on the search path", d.Superclass, d.Name, ns.Name())
		}
	}

	class, err := r.buildClass(u, ns, d, super)
	if err != nil {
		return nil, err
	}

	if existing, err := ns.GetClass(d.Name); err == nil {
		if reflect.DeepEqual(existing, class) {
			return existing, r.bindClassAlias(u, ns, d)
		}
		if subs := ns.Subclasses(d.Name); len(subs) > 0 {
			return nil, newError(u.file, d.Position, CodeFailed,
				"class %s has subclasses (%s) and cannot be modified", d.Name, strings.Join(subs, ", "))
		}
	}

	if err := r.bindClassAlias(u, ns, d); err != nil {
		return nil, err
	}
	ns.SetClass(class)
	r.c.logger.Debug("compiled class",
		zap.String("class", class.Name),
		zap.String("superclass", class.Superclass),
		zap.String("namespace", ns.Name()))
	return class, nil
}

func (r *run) bindClassAlias(u *unit, ns *repository.Namespace, d *mof.ClassDecl) error {
	if d.Alias == "" {
		return nil
	}
	return u.bindAlias(d.Alias, d.Position, cim.ObjectPath{Namespace: ns.Name(), ClassName: d.Name})
}

func (u *unit) bindAlias(name string, pos mof.Position, path cim.ObjectPath) error {
	key := strings.ToLower(name)
	if _, dup := u.aliases[key]; dup {
		return newError(u.file, pos, CodeFailed, "alias $%s is already defined", name)
	}
	u.aliases[key] = path
	return nil
}

func (u *unit) lookupAlias(name string) (cim.ObjectPath, bool) {
	path, ok := u.aliases[strings.ToLower(name)]
	return path, ok
}

// buildClass merges the declaration with everything super lets it inherit.
func (r *run) buildClass(u *unit, ns *repository.Namespace, d *mof.ClassDecl, super *cim.Class) (*cim.Class, error) {
	class := &cim.Class{Name: d.Name}
	var inherited cim.Qualifiers
	if super != nil {
		class.Superclass = super.Name
		inherited = super.Qualifiers
	}

	scope := cim.ScopeClass
	switch {
	case declaresTrue(d.Qualifiers, "Association") || super != nil && super.IsAssociation():
		scope |= cim.ScopeAssociation
	case declaresTrue(d.Qualifiers, "Indication") || super != nil && super.IsIndication():
		scope |= cim.ScopeIndication
	}
	el := element{kind: "class", name: d.Name, scope: scope}
	local, err := r.resolveQualifiers(u, ns, d.Qualifiers, el)
	if err != nil {
		return nil, err
	}
	if class.Qualifiers, err = r.mergeQualifiers(u, d.Position, local, inherited, el); err != nil {
		return nil, err
	}

	if super != nil {
		if err := checkSuperclass(u, d, class, super); err != nil {
			return nil, err
		}
		for _, p := range super.Properties.Values() {
			class.Properties.Set(p.Name, inheritProperty(p))
		}
		for _, m := range super.Methods.Values() {
			class.Methods.Set(m.Name, inheritMethod(m))
		}
	}

	seen := make(map[string]bool)
	for _, pd := range d.Properties {
		key := strings.ToLower(pd.Name)
		if seen[key] {
			return nil, newError(u.file, pd.Position, CodeFailed, "property %s is declared more than once in class %s", pd.Name, d.Name)
		}
		seen[key] = true
		p, err := r.buildProperty(u, ns, d, pd, class)
		if err != nil {
			return nil, err
		}
		class.Properties.Set(p.Name, p)
	}

	for _, md := range d.Methods {
		key := strings.ToLower(md.Name)
		if seen[key] {
			return nil, newError(u.file, md.Position, CodeFailed, "%s is declared more than once in class %s", md.Name, d.Name)
		}
		seen[key] = true
		m, err := r.buildMethod(u, ns, d, md, class)
		if err != nil {
			return nil, err
		}
		class.Methods.Set(m.Name, m)
	}
	return class, nil
}

func declaresTrue(quals []*mof.Qualifier, name string) bool {
	for _, q := range quals {
		if !strings.EqualFold(q.Name, name) {
			continue
		}
		if q.Value == nil {
			return true
		}
		lit, ok := q.Value.(*mof.Literal)
		return ok && lit.Kind == mof.LitBool && lit.Text == "true"
	}
	return false
}

// checkSuperclass rejects derivations the superclass does not permit.
func checkSuperclass(u *unit, d *mof.ClassDecl, class, super *cim.Class) error {
	switch {
	case super.IsTerminal():
		return newError(u.file, d.Position, CodeInvalidSuperclass,
			"class %s cannot derive from terminal class %s", d.Name, super.Name)
	case class.IsAssociation() && !super.IsAssociation():
		return newError(u.file, d.Position, CodeInvalidSuperclass,
			"association %s cannot derive from non-association class %s", d.Name, super.Name)
	case class.IsIndication() && !super.IsIndication():
		return newError(u.file, d.Position, CodeInvalidSuperclass,
			"indication %s cannot derive from non-indication class %s", d.Name, super.Name)
	}
	return nil
}

func inheritProperty(p *cim.Property) *cim.Property {
	c := *p
	c.Qualifiers = propagate(p.Qualifiers)
	c.Propagated = true
	return &c
}

func inheritMethod(m *cim.Method) *cim.Method {
	c := *m
	c.Qualifiers = propagate(m.Qualifiers)
	c.Propagated = true
	c.Parameters = cim.Map[*cim.Parameter]{}
	for _, p := range m.Parameters.Values() {
		pc := *p
		pc.Qualifiers = propagate(p.Qualifiers)
		c.Parameters.Set(pc.Name, &pc)
	}
	return &c
}

func (r *run) buildProperty(u *unit, ns *repository.Namespace, d *mof.ClassDecl, pd *mof.PropertyDecl, class *cim.Class) (*cim.Property, error) {
	el := element{kind: "property", name: d.Name + "." + pd.Name, scope: cim.ScopeProperty}
	if pd.Type == cim.TypeReference {
		el.kind, el.scope = "reference", cim.ScopeReference
		if err := r.checkReferenceTarget(u, ns, pd.Position, pd.ReferenceClass, el); err != nil {
			return nil, err
		}
	}
	local, err := r.resolveQualifiers(u, ns, pd.Qualifiers, el)
	if err != nil {
		return nil, err
	}
	value, err := convertValue(pd.Default, valueSpec{Type: pd.Type, IsArray: pd.IsArray, ArraySize: pd.ArraySize}, u.lookupAlias)
	if err != nil {
		return nil, conversionError(u, pd.Position, el, err)
	}

	p := &cim.Property{
		Name:           pd.Name,
		Type:           pd.Type,
		ReferenceClass: pd.ReferenceClass,
		IsArray:        pd.IsArray,
		ArraySize:      pd.ArraySize,
		Value:          value,
		ClassOrigin:    d.Name,
	}

	prev, overrides := class.Properties.Get(pd.Name)
	if !overrides {
		p.Qualifiers = local
		return p, nil
	}
	if prev.Type != pd.Type || prev.IsArray != pd.IsArray {
		return nil, newError(u.file, pd.Position, CodeTypeMismatch,
			"property %s overrides %s.%s with a different type (%s, inherited %s)",
			el.name, prev.ClassOrigin, prev.Name, describeType(p.Type, p.IsArray), describeType(prev.Type, prev.IsArray))
	}
	p.ClassOrigin = prev.ClassOrigin
	if p.Value == nil && pd.Default == nil {
		p.Value = prev.Value
	}
	if p.Qualifiers, err = r.mergeQualifiers(u, pd.Position, local, prev.Qualifiers, el); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *run) buildMethod(u *unit, ns *repository.Namespace, d *mof.ClassDecl, md *mof.MethodDecl, class *cim.Class) (*cim.Method, error) {
	el := element{kind: "method", name: d.Name + "." + md.Name, scope: cim.ScopeMethod}
	if md.ReturnType == cim.TypeReference {
		if err := r.checkReferenceTarget(u, ns, md.Position, md.ReferenceClass, el); err != nil {
			return nil, err
		}
	}
	local, err := r.resolveQualifiers(u, ns, md.Qualifiers, el)
	if err != nil {
		return nil, err
	}
	m := &cim.Method{
		Name:           md.Name,
		ReturnType:     md.ReturnType,
		ReferenceClass: md.ReferenceClass,
		ClassOrigin:    d.Name,
	}

	prev, overrides := class.Methods.Get(md.Name)
	if overrides && prev.ReturnType != md.ReturnType {
		return nil, newError(u.file, md.Position, CodeTypeMismatch,
			"method %s overrides %s.%s with a different return type (%s, inherited %s)",
			el.name, prev.ClassOrigin, prev.Name, md.ReturnType, prev.ReturnType)
	}

	for _, pd := range md.Parameters {
		pel := element{kind: "parameter", name: el.name + "." + pd.Name, scope: cim.ScopeParameter}
		if m.Parameters.Has(pd.Name) {
			return nil, newError(u.file, pd.Position, CodeFailed, "parameter %s is declared more than once", pel.name)
		}
		if pd.Type == cim.TypeReference {
			if err := r.checkReferenceTarget(u, ns, pd.Position, pd.ReferenceClass, pel); err != nil {
				return nil, err
			}
		}
		pq, err := r.resolveQualifiers(u, ns, pd.Qualifiers, pel)
		if err != nil {
			return nil, err
		}
		if overrides {
			if inherited, ok := prev.Parameters.Get(pd.Name); ok {
				if pq, err = r.mergeQualifiers(u, pd.Position, pq, inherited.Qualifiers, pel); err != nil {
					return nil, err
				}
			}
		}
		m.Parameters.Set(pd.Name, &cim.Parameter{
			Name:           pd.Name,
			Type:           pd.Type,
			ReferenceClass: pd.ReferenceClass,
			IsArray:        pd.IsArray,
			ArraySize:      pd.ArraySize,
			Qualifiers:     pq,
		})
	}

	if !overrides {
		m.Qualifiers = local
		return m, nil
	}
	m.ClassOrigin = prev.ClassOrigin
	if m.Qualifiers, err = r.mergeQualifiers(u, md.Position, local, prev.Qualifiers, el); err != nil {
		return nil, err
	}
	return m, nil
}

// checkReferenceTarget requires the class a reference points to to exist,
// be under compilation or be found on the search path.
func (r *run) checkReferenceTarget(u *unit, ns *repository.Namespace, pos mof.Position, target string, el element) error {
	ok, err := r.classKnown(ns, target)
	if err != nil {
		if _, cyc := err.(*cycleError); !cyc {
			return err
		}
		ok = true
	}
	if !ok {
		return newError(u.file, pos, CodeUnresolvedReference,
			"class %s referenced by %s %s not found", target, el.kind, el.name)
	}
	return nil
}

func conversionError(u *unit, pos mof.Position, el element, err error) error {
	code := CodeTypeMismatch
	if errors.Is(err, errUndefinedAlias) {
		code = CodeUnresolvedReference
	}
	return newError(u.file, pos, code, "value of %s %s: %v", el.kind, el.name, err)
}

func describeType(t cim.Type, isArray bool) string {
	if isArray {
		return t.String() + "[]"
	}
	return t.String()
}
