package cim

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	mofIndent          = "   "
	mofQualifierIndent = "      "
	mofParamIndent     = "         "
)

// ToMOF renders e as MOF text. Only what was written on the entity itself
// is emitted: propagated qualifiers, properties and methods are left to
// the superclass that declares them. The output is deterministic.
func ToMOF(e Entity) string {
	switch v := e.(type) {
	case *QualifierDeclaration:
		return v.MOF()
	case *Class:
		return v.MOF()
	case *Instance:
		return v.MOF()
	default:
		panic(fmt.Sprintf("cim: unknown entity %T", e))
	}
}

// MOF renders the qualifier declaration.
func (d *QualifierDeclaration) MOF() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Qualifier %s : %s", d.Name, d.Type)
	if d.IsArray {
		b.WriteString(arraySuffix(d.ArraySize))
	}
	if d.Default != nil {
		b.WriteString(" = ")
		b.WriteString(FormatValue(d.Default))
	}
	b.WriteString(",\n")
	scope := d.Scope.String()
	if scope == "" {
		scope = "qualifier"
	}
	fmt.Fprintf(&b, "%sScope(%s)", mofIndent, scope)
	if keywords := d.Flavor.Keywords(); len(keywords) > 0 {
		fmt.Fprintf(&b, ",\n%sFlavor(%s)", mofIndent, strings.Join(keywords, ", "))
	}
	b.WriteString(";\n")
	return b.String()
}

// MOF renders the class with its local qualifiers, properties and methods.
func (c *Class) MOF() string {
	var b strings.Builder
	if list := qualifierList(&c.Qualifiers); list != "" {
		b.WriteString(mofIndent)
		b.WriteString(list)
		b.WriteByte('\n')
	}
	b.WriteString("class ")
	b.WriteString(c.Name)
	if c.Superclass != "" {
		b.WriteString(" : ")
		b.WriteString(c.Superclass)
	}
	b.WriteString(" {\n")

	for _, p := range c.Properties.Values() {
		if p.Propagated {
			continue
		}
		b.WriteByte('\n')
		writeQualifierLine(&b, mofQualifierIndent, &p.Qualifiers)
		b.WriteString(mofIndent)
		b.WriteString(typeName(p.Type, p.ReferenceClass))
		b.WriteByte(' ')
		b.WriteString(p.Name)
		if p.IsArray {
			b.WriteString(arraySuffix(p.ArraySize))
		}
		// an override that clears the inherited value needs an explicit NULL
		if p.Value != nil || !strings.EqualFold(p.ClassOrigin, c.Name) {
			b.WriteString(" = ")
			b.WriteString(FormatValue(p.Value))
		}
		b.WriteString(";\n")
	}

	for _, m := range c.Methods.Values() {
		if m.Propagated {
			continue
		}
		b.WriteByte('\n')
		writeQualifierLine(&b, mofQualifierIndent, &m.Qualifiers)
		fmt.Fprintf(&b, "%s%s %s(", mofIndent, typeName(m.ReturnType, m.ReferenceClass), m.Name)
		params := m.Parameters.Values()
		for i, p := range params {
			b.WriteByte('\n')
			writeQualifierLine(&b, mofParamIndent, &p.Qualifiers)
			fmt.Fprintf(&b, "%s%s %s", mofQualifierIndent, typeName(p.Type, p.ReferenceClass), p.Name)
			if p.IsArray {
				b.WriteString(arraySuffix(p.ArraySize))
			}
			if i < len(params)-1 {
				b.WriteByte(',')
			}
		}
		b.WriteString(");\n")
	}

	b.WriteString("\n};\n")
	return b.String()
}

// MOF renders the instance with every property value it carries.
func (inst *Instance) MOF() string {
	var b strings.Builder
	if list := qualifierList(&inst.Qualifiers); list != "" {
		b.WriteString(list)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "instance of %s {\n", inst.ClassName)
	for _, p := range inst.Properties.Values() {
		writeQualifierLine(&b, mofIndent, &p.Qualifiers)
		fmt.Fprintf(&b, "%s%s = %s;\n", mofIndent, p.Name, FormatValue(p.Value))
	}
	b.WriteString("};\n")
	return b.String()
}

func writeQualifierLine(b *strings.Builder, indent string, qs *Qualifiers) {
	if list := qualifierList(qs); list != "" {
		b.WriteString(indent)
		b.WriteString(list)
		b.WriteByte('\n')
	}
}

// qualifierList renders the non-propagated qualifiers as "[a, b ( 1 )]",
// or "" when there are none.
func qualifierList(qs *Qualifiers) string {
	var parts []string
	for _, q := range qs.Values() {
		if q.Propagated {
			continue
		}
		parts = append(parts, formatQualifier(q))
	}
	if len(parts) == 0 {
		return ""
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatQualifier(q *Qualifier) string {
	var b strings.Builder
	b.WriteString(q.Name)
	switch v := q.Value.(type) {
	case bool:
		if !v {
			b.WriteString(" ( false )")
		}
	case []any:
		b.WriteByte(' ')
		b.WriteString(FormatValue(v))
	case nil:
		b.WriteString(" ( NULL )")
	default:
		fmt.Fprintf(&b, " ( %s )", FormatValue(v))
	}
	if keywords := q.Flavor.Keywords(); len(keywords) > 0 {
		b.WriteString(" : ")
		b.WriteString(strings.Join(keywords, " "))
	}
	return b.String()
}

func typeName(t Type, refClass string) string {
	if t == TypeReference {
		return refClass + " REF"
	}
	return t.String()
}

func arraySuffix(size int) string {
	if size > 0 {
		return "[" + strconv.Itoa(size) + "]"
	}
	return "[]"
}

// FormatValue renders a value as a MOF initializer.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		return strconv.FormatBool(x)
	case string:
		return QuoteString(x)
	case Char16:
		return quoteChar(rune(x))
	case uint64:
		return strconv.FormatUint(x, 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return formatReal(x)
	case ObjectPath:
		return QuoteString(x.String())
	case []any:
		elems := make([]string, len(x))
		for i, e := range x {
			elems[i] = FormatValue(e)
		}
		return "{" + strings.Join(elems, ", ") + "}"
	default:
		panic(fmt.Sprintf("cim: unsupported value type %T", v))
	}
}

// formatReal always includes a decimal point, which MOF requires to lex
// a real literal.
func formatReal(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsAny(s, ".nN") {
		return s
	}
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		return s[:i] + ".0" + s[i:]
	}
	return s + ".0"
}

// QuoteString renders s as a MOF string literal.
func QuoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		writeEscaped(&b, r, '"')
	}
	b.WriteByte('"')
	return b.String()
}

func quoteChar(r rune) string {
	var b strings.Builder
	b.WriteByte('\'')
	writeEscaped(&b, r, '\'')
	b.WriteByte('\'')
	return b.String()
}

func writeEscaped(b *strings.Builder, r rune, quote rune) {
	switch r {
	case quote, '\\':
		b.WriteByte('\\')
		b.WriteRune(r)
	case '\n':
		b.WriteString(`\n`)
	case '\t':
		b.WriteString(`\t`)
	case '\r':
		b.WriteString(`\r`)
	case '\b':
		b.WriteString(`\b`)
	case '\f':
		b.WriteString(`\f`)
	default:
		if r < 0x20 || r == 0x7f {
			fmt.Fprintf(b, `\x%04X`, r)
			return
		}
		b.WriteRune(r)
	}
}
