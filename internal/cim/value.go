package cim

import (
	"fmt"
	"regexp"
	"strings"
)

// Values held by properties and qualifiers use these Go types:
//
//	boolean          bool
//	string, datetime string
//	char16           Char16
//	uintN            uint64
//	sintN            int64
//	realN            float64
//	reference        ObjectPath
//
// Arrays are []any of the element type. A nil value is NULL.

// Char16 is a char16 value.
type Char16 rune

var (
	timestampPattern = regexp.MustCompile(`^\d{14}\.\d{6}[+-]\d{3}$`)
	intervalPattern  = regexp.MustCompile(`^\d{14}\.\d{6}:000$`)
)

// ValidDatetime reports whether s is a CIM timestamp
// (yyyymmddhhmmss.mmmmmmsutc) or interval (ddddddddhhmmss.mmmmmm:000).
// Asterisks may replace digits in timestamps to express significance.
func ValidDatetime(s string) bool {
	if len(s) != 25 {
		return false
	}
	if intervalPattern.MatchString(s) {
		return true
	}
	return timestampPattern.MatchString(strings.ReplaceAll(s, "*", "0"))
}

// KeyKind is the value kind of a key binding.
type KeyKind int

const (
	KeyString KeyKind = iota
	KeyBoolean
	KeyNumeric
)

// KeyBinding is one key property of an object path. Value holds the
// canonical text: unquoted for strings, "true"/"false" for booleans and
// decimal digits for numbers.
type KeyBinding struct {
	Name  string
	Kind  KeyKind
	Value string
}

// ObjectPath identifies a class or instance.
type ObjectPath struct {
	Namespace string
	ClassName string
	Keys      []KeyBinding
}

// String renders p as "ns:Class.key=value,...".
func (p ObjectPath) String() string {
	var b strings.Builder
	if p.Namespace != "" {
		b.WriteString(p.Namespace)
		b.WriteByte(':')
	}
	b.WriteString(p.ClassName)
	for i, k := range p.Keys {
		if i == 0 {
			b.WriteByte('.')
		} else {
			b.WriteByte(',')
		}
		b.WriteString(k.Name)
		b.WriteByte('=')
		if k.Kind == KeyString {
			b.WriteByte('"')
			b.WriteString(strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(k.Value))
			b.WriteByte('"')
		} else {
			b.WriteString(k.Value)
		}
	}
	return b.String()
}

// ParseObjectPath parses the form produced by ObjectPath.String. A
// leading "//host/" authority is accepted and dropped.
func ParseObjectPath(s string) (ObjectPath, error) {
	var p ObjectPath
	rest := strings.TrimSpace(s)
	if strings.HasPrefix(rest, "//") {
		slash := strings.IndexByte(rest[2:], '/')
		if slash < 0 {
			return p, fmt.Errorf("object path %q: missing namespace after host", s)
		}
		rest = rest[slash+3:]
	}
	if colon := strings.IndexByte(rest, ':'); colon >= 0 {
		if dot := strings.IndexByte(rest, '.'); dot < 0 || colon < dot {
			p.Namespace = rest[:colon]
			rest = rest[colon+1:]
		}
	}
	dot := strings.IndexByte(rest, '.')
	if dot < 0 {
		p.ClassName = rest
		if !isName(p.ClassName) {
			return p, fmt.Errorf("object path %q: invalid class name", s)
		}
		return p, nil
	}
	p.ClassName = rest[:dot]
	if !isName(p.ClassName) {
		return p, fmt.Errorf("object path %q: invalid class name", s)
	}
	keys, err := parseKeyBindings(rest[dot+1:])
	if err != nil {
		return p, fmt.Errorf("object path %q: %w", s, err)
	}
	p.Keys = keys
	return p, nil
}

func parseKeyBindings(s string) ([]KeyBinding, error) {
	var keys []KeyBinding
	i := 0
	for i < len(s) {
		eq := strings.IndexByte(s[i:], '=')
		if eq < 0 {
			return nil, fmt.Errorf("key binding without value at offset %d", i)
		}
		name := s[i : i+eq]
		if !isName(name) {
			return nil, fmt.Errorf("invalid key name %q", name)
		}
		i += eq + 1
		kb := KeyBinding{Name: name}
		if i < len(s) && s[i] == '"' {
			var b strings.Builder
			i++
			closed := false
			for i < len(s) {
				c := s[i]
				if c == '\\' && i+1 < len(s) {
					b.WriteByte(s[i+1])
					i += 2
					continue
				}
				i++
				if c == '"' {
					closed = true
					break
				}
				b.WriteByte(c)
			}
			if !closed {
				return nil, fmt.Errorf("unterminated string value for key %q", name)
			}
			kb.Kind = KeyString
			kb.Value = b.String()
		} else {
			end := strings.IndexByte(s[i:], ',')
			if end < 0 {
				end = len(s) - i
			}
			raw := s[i : i+end]
			i += end
			switch strings.ToLower(raw) {
			case "true", "false":
				kb.Kind = KeyBoolean
				kb.Value = strings.ToLower(raw)
			default:
				if raw == "" {
					return nil, fmt.Errorf("empty value for key %q", name)
				}
				kb.Kind = KeyNumeric
				kb.Value = raw
			}
		}
		keys = append(keys, kb)
		if i < len(s) {
			if s[i] != ',' {
				return nil, fmt.Errorf("expected ',' after key %q", name)
			}
			i++
		}
	}
	return keys, nil
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
