package amqpdata

import "math"

// nodeCode picks the narrowest wire code consistent with a node's value:
// the zero form for zero-valued uint/ulong, the small form for values that
// fit in 8 bits, the short variable-length form under 256 bytes, the
// one-byte empty-list form, and the short composite form when the sizing
// pass found that both the inner size and the child count fit in a byte.
func nodeCode(n *node) uint8 {
	a := &n.atom
	switch a.typ {
	case TypeBool:
		if a.b {
			return codeTrue
		}
		return codeFalse
	case TypeUInt:
		switch {
		case a.u == 0:
			return codeUInt0
		case a.u < 256:
			return codeSmallUInt
		default:
			return codeUInt
		}
	case TypeULong:
		switch {
		case a.u == 0:
			return codeULong0
		case a.u < 256:
			return codeSmallULong
		default:
			return codeULong
		}
	case TypeInt:
		if a.i >= math.MinInt8 && a.i <= math.MaxInt8 {
			return codeSmallInt
		}
		return codeInt
	case TypeLong:
		if a.i >= math.MinInt8 && a.i <= math.MaxInt8 {
			return codeSmallLong
		}
		return codeLong
	case TypeBinary:
		if len(a.data) < 256 {
			return codeVBin8
		}
		return codeVBin32
	case TypeString:
		if len(a.data) < 256 {
			return codeStr8
		}
		return codeStr32
	case TypeSymbol:
		if len(a.data) < 256 {
			return codeSym8
		}
		return codeSym32
	case TypeList:
		if n.children == 0 {
			return codeList0
		}
		if n.small {
			return codeList8
		}
		return codeList32
	case TypeMap:
		if n.small {
			return codeMap8
		}
		return codeMap32
	case TypeArray:
		if n.small {
			return codeArray8
		}
		return codeArray32
	default:
		code, ok := typeCode(a.typ)
		if !ok {
			panic("not a value type")
		}
		return code
	}
}

// elementCode returns the wide code shared by an array's elements.
func elementCode(t Type) (uint8, error) {
	code, ok := typeCode(t)
	if !ok {
		return 0, codecErrf(ErrState, "array element type missing")
	}
	return code, nil
}

func payloadWidth(code uint8, n *node) int {
	switch code {
	case codeDescriptor, codeNull, codeTrue, codeFalse, codeUInt0, codeULong0, codeList0:
		return 0
	case codeBoolean, codeUByte, codeByte, codeSmallUInt, codeSmallULong, codeSmallInt, codeSmallLong:
		return 1
	case codeUShort, codeShort:
		return 2
	case codeUInt, codeInt, codeUTF32, codeFloat, codeDecimal32:
		return 4
	case codeULong, codeLong, codeMS64, codeDouble, codeDecimal64:
		return 8
	case codeDecimal128, codeUUID:
		return 16
	case codeVBin8, codeStr8, codeSym8:
		return 1 + len(n.atom.data)
	case codeVBin32, codeStr32, codeSym32:
		return 4 + len(n.atom.data)
	default:
		return 0
	}
}

// sizeNode computes the encoded size of a node in its parent's context and
// records the short/long decision on every composite. It runs before the
// emit pass so that composite size fields are written with the right width
// up front instead of shrinking the output afterwards.
func (d *Data) sizeNode(parent, n *node) (int, error) {
	emitCode := true
	var forcedCode uint8
	forced := false

	if parent != nil && parent.atom.typ == TypeArray {
		ec, err := elementCode(parent.elemType)
		if err != nil {
			return 0, err
		}
		descriptorSlot := parent.described && n.prev == 0
		if descriptorSlot {
			if n.atom.typ == parent.elemType {
				forcedCode, forced = ec, true
			}
		} else {
			if n.atom.typ != parent.elemType {
				return 0, codecErrf(ErrState, "array element is %v, element type is %v", n.atom.typ, parent.elemType)
			}
			forcedCode, forced = ec, true
			emitCode = n.prev == 0 || (parent.described && d.node(n.prev).prev == 0)
		}
	}

	codeBytes := 0
	if emitCode {
		codeBytes = 1
	}

	switch n.atom.typ {
	case TypeDescribed:
		kids, err := d.sizeChildren(n)
		if err != nil {
			return 0, err
		}
		return codeBytes + kids, nil

	case TypeList, TypeMap, TypeArray:
		kids, err := d.sizeChildren(n)
		if err != nil {
			return 0, err
		}
		extras := 0
		count := n.children
		if n.atom.typ == TypeArray {
			if n.described {
				count--
				extras++ // leading 0x00 after the count
			}
			if (n.described && n.children == 1) || (!n.described && n.children == 0) {
				extras++ // trailing element typecode
			}
		}
		if forced {
			n.small = false
			return codeBytes + 4 + 4 + extras + kids, nil
		}
		if n.atom.typ == TypeList && n.children == 0 {
			n.small = false
			return codeBytes, nil
		}
		innerShort := 1 + extras + kids
		if innerShort <= 255 && count <= 255 {
			n.small = true
			return codeBytes + 1 + innerShort, nil
		}
		n.small = false
		return codeBytes + 4 + 4 + extras + kids, nil

	default:
		code := forcedCode
		if !forced {
			code = nodeCode(n)
		}
		return codeBytes + payloadWidth(code, n), nil
	}
}

func (d *Data) sizeChildren(parent *node) (int, error) {
	total := 0
	for cd := parent.down; cd != 0; cd = d.node(cd).next {
		sz, err := d.sizeNode(parent, d.node(cd))
		if err != nil {
			return 0, err
		}
		total += sz
	}
	return total, nil
}

func (d *Data) encodeNode(w *byteWriter, parent, n *node) error {
	var code uint8

	if parent != nil && parent.atom.typ == TypeArray {
		ec, err := elementCode(parent.elemType)
		if err != nil {
			return err
		}
		descriptorSlot := parent.described && n.prev == 0
		if descriptorSlot {
			// The descriptor slot shares the element code when its tag
			// allows; otherwise it is framed as a full typed value so the
			// wire stays decodable.
			if n.atom.typ == parent.elemType {
				code = ec
			} else {
				code = nodeCode(n)
			}
			if err := w.Uint8(code); err != nil {
				return err
			}
		} else {
			if n.atom.typ != parent.elemType {
				return codecErrf(ErrState, "array element is %v, element type is %v", n.atom.typ, parent.elemType)
			}
			code = ec
			first := n.prev == 0 ||
				(parent.described && d.node(n.prev).prev == 0)
			if first {
				if err := w.Uint8(code); err != nil {
					return err
				}
			}
		}
	} else {
		code = nodeCode(n)
		if err := w.Uint8(code); err != nil {
			return err
		}
	}

	return d.encodePayload(w, code, n)
}

func (d *Data) encodePayload(w *byteWriter, code uint8, n *node) error {
	a := &n.atom
	switch code {
	case codeDescriptor, codeNull, codeTrue, codeFalse, codeUInt0, codeULong0, codeList0:
		n.sizeOff = -1
		return nil
	case codeBoolean:
		var v uint8
		if a.b {
			v = 1
		}
		return w.Uint8(v)
	case codeUByte:
		return w.Uint8(uint8(a.u))
	case codeByte:
		return w.Uint8(uint8(int8(a.i)))
	case codeUShort:
		return w.Uint16(uint16(a.u))
	case codeShort:
		return w.Uint16(uint16(int16(a.i)))
	case codeSmallUInt, codeSmallULong:
		return w.Uint8(uint8(a.u))
	case codeUInt:
		return w.Uint32(uint32(a.u))
	case codeSmallInt, codeSmallLong:
		return w.Uint8(uint8(int8(a.i)))
	case codeInt:
		return w.Uint32(uint32(int32(a.i)))
	case codeUTF32:
		return w.Uint32(uint32(a.c))
	case codeULong:
		return w.Uint64(a.u)
	case codeLong, codeMS64:
		return w.Uint64(uint64(a.i))
	case codeFloat:
		return w.Uint32(math.Float32bits(a.f))
	case codeDouble:
		return w.Uint64(math.Float64bits(a.d))
	case codeDecimal32:
		return w.Uint32(uint32(a.u))
	case codeDecimal64:
		return w.Uint64(a.u)
	case codeDecimal128, codeUUID:
		return w.Block16(a.b16)
	case codeVBin8, codeStr8, codeSym8:
		return w.Var8(a.data)
	case codeVBin32, codeStr32, codeSym32:
		return w.Var32(a.data)
	case codeList8, codeMap8, codeArray8:
		off, err := w.Skip(1)
		if err != nil {
			return err
		}
		n.sizeOff = off
		count := n.children
		if code == codeArray8 && n.described {
			count--
		}
		if err := w.Uint8(uint8(count)); err != nil {
			return err
		}
		if code == codeArray8 && n.described {
			return w.Uint8(codeDescriptor)
		}
		return nil
	case codeList32, codeMap32, codeArray32:
		off, err := w.Skip(4)
		if err != nil {
			return err
		}
		n.sizeOff = off
		count := n.children
		if code == codeArray32 && n.described {
			count--
		}
		if err := w.Uint32(uint32(count)); err != nil {
			return err
		}
		if code == codeArray32 && n.described {
			return w.Uint8(codeDescriptor)
		}
		return nil
	default:
		return codecErrf(ErrState, "unrecognized encoding 0x%02X", code)
	}
}

// encodeNodeExit runs when the encoder leaves a composite: an array with no
// data elements still emits its element typecode so the wire round-trips,
// and the reserved size field is backpatched with the bytes written between
// it and here.
func (d *Data) encodeNodeExit(w *byteWriter, n *node) error {
	switch n.atom.typ {
	case TypeArray:
		if (n.described && n.children == 1) || (!n.described && n.children == 0) {
			code, err := elementCode(n.elemType)
			if err != nil {
				return err
			}
			if err := w.Uint8(code); err != nil {
				return err
			}
		}
		fallthrough
	case TypeList, TypeMap:
		if n.sizeOff >= 0 {
			if n.small {
				w.PatchUint8(n.sizeOff, uint8(w.Off-n.sizeOff-1))
			} else {
				w.PatchUint32(n.sizeOff, uint32(w.Off-n.sizeOff-4))
			}
		}
	}
	return nil
}

// Encode writes the whole tree to buf in pre-order and returns the number
// of bytes written, or an overflow error when buf is too small. A sizing
// pass runs first so every composite is emitted with its final width.
func (d *Data) Encode(buf []byte) (int, error) {
	if len(d.nodes) > 0 {
		for nd := 1; nd != 0; nd = d.node(nd).next {
			if _, err := d.sizeNode(nil, d.node(nd)); err != nil {
				return 0, d.saveErr(err)
			}
		}
	}

	w := byteWriter{Buf: buf}

	nd := 0
	if len(d.nodes) > 0 {
		nd = 1
	}
	for nd != 0 {
		n := d.node(nd)
		parent := d.node(n.parent)

		if err := d.encodeNode(&w, parent, n); err != nil {
			return 0, d.saveErr(err)
		}

		next := 0
		if n.down != 0 {
			next = n.down
		} else if n.next != 0 {
			if err := d.encodeNodeExit(&w, n); err != nil {
				return 0, d.saveErr(err)
			}
			next = n.next
		} else {
			if err := d.encodeNodeExit(&w, n); err != nil {
				return 0, d.saveErr(err)
			}
			for parent != nil {
				if err := d.encodeNodeExit(&w, parent); err != nil {
					return 0, d.saveErr(err)
				}
				if parent.next != 0 {
					next = parent.next
					break
				}
				parent = d.node(parent.parent)
			}
		}
		nd = next
	}

	return w.Written(), nil
}

// Encoded encodes into a fresh buffer, doubling it until the tree fits.
func (d *Data) Encoded() ([]byte, error) {
	size := 128
	for {
		buf := make([]byte, size)
		n, err := d.Encode(buf)
		if err == nil {
			return buf[:n], nil
		}
		if errCode(err) == ErrOverflow {
			size *= 2
			continue
		}
		return nil, err
	}
}
