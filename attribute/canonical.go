package attribute

import (
	"strconv"
	"strings"
)

// Compact renders an Attribute in the canonical compact string form used
// throughout the memory core for de-duplication, logging and schema
// signatures: "key:value", where a nested value renders as
// "key:[child1,child2,...]" with children in insertion order, a variable
// renders as "?name", and atomic strings are wrapped in double quotes with
// no escaping of embedded quotes.
func Compact(a Attribute) string {
	var b strings.Builder
	writeAttribute(&b, a)
	return b.String()
}

func writeAttribute(b *strings.Builder, a Attribute) {
	b.WriteString(a.Key)
	b.WriteByte(':')
	writeValue(b, a.Value)
}

func writeValue(b *strings.Builder, v Value) {
	switch t := v.(type) {
	case Atom:
		b.WriteString(atomString(t))
	case Variable:
		b.WriteByte('?')
		b.WriteString(t.Name)
	case Nested:
		b.WriteByte('[')
		for i, child := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			writeAttribute(b, child)
		}
		b.WriteByte(']')
	}
}

func atomString(a Atom) string {
	switch a.Kind {
	case AtomInt:
		return strconv.FormatInt(a.I, 10)
	case AtomFloat:
		return strconv.FormatFloat(a.F, 'g', -1, 64)
	case AtomBool:
		return strconv.FormatBool(a.B)
	case AtomString:
		return `"` + a.S + `"`
	default:
		return ""
	}
}
