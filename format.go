package amqpdata

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func isBareSymbolByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

func quoteInto(sb *strings.Builder, data []byte) {
	for _, c := range data {
		switch {
		case c == '"' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c >= 32 && c < 127:
			sb.WriteByte(c)
		default:
			fmt.Fprintf(sb, "\\x%02x", c)
		}
	}
}

func formatAtom(sb *strings.Builder, a *atom) {
	switch a.typ {
	case typeElement:
		sb.WriteString(a.elem.String())
	case TypeNull:
		sb.WriteString("null")
	case TypeBool:
		if a.b {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case TypeUByte, TypeUShort, TypeUInt, TypeULong:
		fmt.Fprintf(sb, "%d", a.u)
	case TypeByte, TypeShort, TypeInt, TypeLong, TypeTimestamp:
		fmt.Fprintf(sb, "%d", a.i)
	case TypeChar:
		fmt.Fprintf(sb, "%c", a.c)
	case TypeFloat:
		fmt.Fprintf(sb, "%g", a.f)
	case TypeDouble:
		fmt.Fprintf(sb, "%g", a.d)
	case TypeDecimal32:
		fmt.Fprintf(sb, "D32(%d)", uint32(a.u))
	case TypeDecimal64:
		fmt.Fprintf(sb, "D64(%d)", a.u)
	case TypeDecimal128:
		fmt.Fprintf(sb, "D128(%x)", a.b16[:])
	case TypeUUID:
		fmt.Fprintf(sb, "UUID(%s)", uuid.UUID(a.b16).String())
	case TypeBinary:
		sb.WriteString("b\"")
		quoteInto(sb, a.data)
		sb.WriteByte('"')
	case TypeString:
		sb.WriteByte('"')
		quoteInto(sb, a.data)
		sb.WriteByte('"')
	case TypeSymbol:
		bare := len(a.data) > 0
		for _, c := range a.data {
			if !isBareSymbolByte(c) {
				bare = false
				break
			}
		}
		sb.WriteByte(':')
		if bare {
			sb.Write(a.data)
		} else {
			sb.WriteByte('"')
			quoteInto(sb, a.data)
			sb.WriteByte('"')
		}
	case TypeDescribed:
		sb.WriteString("descriptor")
	case TypeArray:
		fmt.Fprintf(sb, "array[%d]", a.count)
	case TypeList:
		fmt.Fprintf(sb, "list[%d]", a.count)
	case TypeMap:
		fmt.Fprintf(sb, "map[%d]", a.count)
	}
}

type atomCursor struct {
	atoms []atom
}

func (ac *atomCursor) next() (*atom, bool) {
	if len(ac.atoms) == 0 {
		return nil, false
	}
	a := &ac.atoms[0]
	ac.atoms = ac.atoms[1:]
	return a, true
}

func formatOne(sb *strings.Builder, ac *atomCursor) error {
	a, ok := ac.next()
	if !ok {
		return codecErrf(ErrUnderflow, "atom sequence ran out")
	}

	switch a.typ {
	case TypeDescribed:
		sb.WriteByte('@')
		if err := formatOne(sb, ac); err != nil {
			return err
		}
		sb.WriteByte(' ')
		return formatOne(sb, ac)
	case TypeArray:
		count := a.count
		sb.WriteByte('@')
		if err := formatOne(sb, ac); err != nil {
			return err
		}
		sb.WriteByte('[')
		for i := 0; i < count; i++ {
			if i > 0 {
				sb.WriteString(", ")
			}
			if err := formatOne(sb, ac); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
		return nil
	case TypeList, TypeMap:
		count := a.count
		list := a.typ == TypeList
		if list {
			sb.WriteByte('[')
		} else {
			sb.WriteByte('{')
		}
		for i := 0; i < count; i++ {
			if list {
				if i > 0 {
					sb.WriteString(", ")
				}
			} else if i%2 == 1 {
				sb.WriteByte('=')
			} else if i > 0 {
				sb.WriteString(", ")
			}
			if err := formatOne(sb, ac); err != nil {
				return err
			}
		}
		if list {
			sb.WriteByte(']')
		} else {
			sb.WriteByte('}')
		}
		return nil
	default:
		formatAtom(sb, a)
		return nil
	}
}

// Format renders every value in the tree as text, top-level values
// separated by a space.
func (d *Data) Format() string {
	var sb strings.Builder
	ac := atomCursor{atoms: d.flatten()}
	first := true
	for len(ac.atoms) > 0 {
		if !first {
			sb.WriteByte(' ')
		}
		first = false
		if err := formatOne(&sb, &ac); err != nil {
			break
		}
	}
	return sb.String()
}

// Dump renders arena internals, one node per line, for debugging.
func (d *Data) Dump() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "{current=%d, parent=%d}\n", d.current, d.parent)
	for i := range d.nodes {
		n := &d.nodes[i]
		var ab strings.Builder
		formatAtom(&ab, &n.atom)
		fmt.Fprintf(&sb, "Node %d: prev=%d, next=%d, parent=%d, down=%d, children=%d, type=%v (%s)\n",
			i+1, n.prev, n.next, n.parent, n.down, n.children, n.atom.typ, ab.String())
	}
	return sb.String()
}
