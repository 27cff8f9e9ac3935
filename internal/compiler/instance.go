package compiler

import (
	"go.uber.org/zap"

	"github.com/gnoswap-labs/mofc/internal/cim"
	"github.com/gnoswap-labs/mofc/internal/mof"
	"github.com/gnoswap-labs/mofc/internal/repository"
)

// compileInstance validates an instance against its resolved class and
// appends it to the namespace.
func (r *run) compileInstance(u *unit, ns *repository.Namespace, d *mof.InstanceDecl) error {
	class, err := r.lookupClass(ns, d.ClassName)
	if err != nil {
		if _, cyc := err.(*cycleError); !cyc {
			return err
		}
	}
	if class == nil {
		return newError(u.file, d.Position, CodeUnresolvedReference,
			"class %s of instance not found in namespace %s", d.ClassName, ns.Name())
	}

	el := element{kind: "instance of", name: class.Name}
	quals, err := r.resolveQualifiers(u, ns, d.Qualifiers, el)
	if err != nil {
		return err
	}
	inst := &cim.Instance{ClassName: class.Name, Qualifiers: quals}

	for _, pv := range d.Properties {
		prop, ok := class.Properties.Get(pv.Name)
		if !ok {
			return newError(u.file, pv.Position, CodeUnresolvedReference,
				"property %s is not defined in class %s", pv.Name, class.Name)
		}
		if inst.Properties.Has(pv.Name) {
			return newError(u.file, pv.Position, CodeFailed,
				"property %s is assigned more than once", pv.Name)
		}
		pel := element{kind: "property", name: class.Name + "." + prop.Name, scope: cim.ScopeProperty}
		if prop.Type == cim.TypeReference {
			pel.kind, pel.scope = "reference", cim.ScopeReference
		}
		pquals, err := r.resolveQualifiers(u, ns, pv.Qualifiers, pel)
		if err != nil {
			return err
		}
		value, err := convertValue(pv.Value, valueSpec{Type: prop.Type, IsArray: prop.IsArray, ArraySize: prop.ArraySize}, u.lookupAlias)
		if err != nil {
			return conversionError(u, pv.Position, pel, err)
		}
		inst.Properties.Set(prop.Name, &cim.Property{
			Name:           prop.Name,
			Type:           prop.Type,
			ReferenceClass: prop.ReferenceClass,
			IsArray:        prop.IsArray,
			ArraySize:      prop.ArraySize,
			Value:          value,
			Qualifiers:     pquals,
			ClassOrigin:    prop.ClassOrigin,
		})
	}

	inst.Path = instancePath(ns, class, inst)
	if d.Alias != "" {
		if err := u.bindAlias(d.Alias, d.Position, inst.Path); err != nil {
			return err
		}
	}
	ns.AddInstance(inst)
	r.c.logger.Debug("added instance",
		zap.String("class", class.Name),
		zap.String("path", inst.Path.String()),
		zap.String("namespace", ns.Name()))
	return nil
}

// instancePath builds the object path from the key properties, taking a
// key value from the instance or, failing that, the class default.
func instancePath(ns *repository.Namespace, class *cim.Class, inst *cim.Instance) cim.ObjectPath {
	path := cim.ObjectPath{Namespace: ns.Name(), ClassName: class.Name}
	for _, key := range class.KeyProperties() {
		value := key.Value
		if p, ok := inst.Properties.Get(key.Name); ok {
			value = p.Value
		}
		if value == nil {
			continue
		}
		path.Keys = append(path.Keys, keyBinding(key.Name, value))
	}
	return path
}

func keyBinding(name string, value any) cim.KeyBinding {
	kb := cim.KeyBinding{Name: name}
	switch v := value.(type) {
	case string:
		kb.Kind, kb.Value = cim.KeyString, v
	case cim.Char16:
		kb.Kind, kb.Value = cim.KeyString, string(rune(v))
	case bool:
		kb.Kind, kb.Value = cim.KeyBoolean, cim.FormatValue(v)
	case cim.ObjectPath:
		kb.Kind, kb.Value = cim.KeyString, v.String()
	default:
		kb.Kind, kb.Value = cim.KeyNumeric, cim.FormatValue(v)
	}
	return kb
}
