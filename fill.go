package amqpdata

// Fill appends values into the tree, driven by a format string:
//
//	n null, o bool, B/b ubyte/byte, H/h ushort/short, I/i uint/int,
//	c char, L/l ulong/long, t timestamp, f/d float/double, z binary,
//	S string, s symbol, [ ] list, { } map, @T[ ] array (@DT[ ] described
//	array, T takes the element type from an argument), D described,
//	? conditional, *N repeated code, C subtree copy from another Data.
//
// After every value, a described parent that has its two children is
// exited automatically, so "DL[...]" reads as one unit. A false argument
// before ? emits a null in place of the following value and discards
// whatever the skipped codes build.
//
// Integer codes accept their exact Go type or an int that fits.
func (d *Data) Fill(format string, args ...any) error {
	ar := argReader{args: args}
	openArray := false

	for pos := 0; pos < len(format); pos++ {
		code := format[pos]
		if code != '[' {
			openArray = false
		}

		switch code {
		case 'n':
			d.PutNull()
		case 'o':
			v, err := ar.boolArg(code)
			if err != nil {
				return d.saveErr(err)
			}
			d.PutBool(v)
		case 'B':
			v, err := ar.uintArg(code, 8)
			if err != nil {
				return d.saveErr(err)
			}
			d.PutUByte(uint8(v))
		case 'b':
			v, err := ar.intArg(code, 8)
			if err != nil {
				return d.saveErr(err)
			}
			d.PutByte(int8(v))
		case 'H':
			v, err := ar.uintArg(code, 16)
			if err != nil {
				return d.saveErr(err)
			}
			d.PutUShort(uint16(v))
		case 'h':
			v, err := ar.intArg(code, 16)
			if err != nil {
				return d.saveErr(err)
			}
			d.PutShort(int16(v))
		case 'I':
			v, err := ar.uintArg(code, 32)
			if err != nil {
				return d.saveErr(err)
			}
			d.PutUInt(uint32(v))
		case 'i':
			v, err := ar.intArg(code, 32)
			if err != nil {
				return d.saveErr(err)
			}
			d.PutInt(int32(v))
		case 'c':
			v, err := ar.intArg(code, 32)
			if err != nil {
				return d.saveErr(err)
			}
			d.PutChar(rune(v))
		case 'L':
			v, err := ar.uintArg(code, 64)
			if err != nil {
				return d.saveErr(err)
			}
			d.PutULong(v)
		case 'l':
			v, err := ar.intArg(code, 64)
			if err != nil {
				return d.saveErr(err)
			}
			d.PutLong(v)
		case 't':
			v, err := ar.intArg(code, 64)
			if err != nil {
				return d.saveErr(err)
			}
			d.PutTimestamp(v)
		case 'f':
			v, err := ar.floatArg(code)
			if err != nil {
				return d.saveErr(err)
			}
			d.PutFloat(float32(v))
		case 'd':
			v, err := ar.floatArg(code)
			if err != nil {
				return d.saveErr(err)
			}
			d.PutDouble(v)
		case 'z':
			v, err := ar.bytesArg(code)
			if err != nil {
				return d.saveErr(err)
			}
			if v == nil {
				d.PutNull()
			} else {
				d.PutBinary(v)
			}
		case 'S':
			v, err := ar.stringArg(code)
			if err != nil {
				return d.saveErr(err)
			}
			d.PutString(v)
		case 's':
			v, err := ar.stringArg(code)
			if err != nil {
				return d.saveErr(err)
			}
			d.PutSymbol(v)
		case 'D':
			d.PutDescribed()
			d.Enter()
		case 'T':
			t, err := ar.typeArg(code)
			if err != nil {
				return d.saveErr(err)
			}
			parent := d.node(d.parent)
			if parent == nil || parent.atom.typ != TypeArray {
				return d.saveErr(codecErrf(ErrState, "naked type"))
			}
			parent.elemType = t
			openArray = true
		case '@':
			described := false
			if pos+1 < len(format) && format[pos+1] == 'D' {
				pos++
				described = true
			}
			d.PutArray(described, TypeNull)
			d.Enter()
			openArray = true
		case '[':
			if openArray {
				openArray = false
			} else {
				d.PutList()
				d.Enter()
			}
		case '{':
			d.PutMap()
			d.Enter()
		case ']', '}':
			if !d.Exit() {
				return d.saveErr(codecErrf(ErrState, "exit failed"))
			}
		case '?':
			v, err := ar.boolArg(code)
			if err != nil {
				return d.saveErr(err)
			}
			if !v {
				d.PutNull()
				d.Enter()
			}
		case '*':
			count, err := ar.countArg(code)
			if err != nil {
				return d.saveErr(err)
			}
			pos++
			if pos >= len(format) {
				return d.saveErr(codecErrf(ErrArg, "format ended after *"))
			}
			switch format[pos] {
			case 's':
				syms, err := ar.stringsArg(code)
				if err != nil {
					return d.saveErr(err)
				}
				if len(syms) < count {
					return d.saveErr(codecErrf(ErrArg, "*%d s: %d symbols supplied", count, len(syms)))
				}
				for _, sym := range syms[:count] {
					d.PutSymbol(sym)
				}
			default:
				return d.saveErr(codecErrf(ErrArg, "unrecognized * code: %q", format[pos]))
			}
		case 'C':
			src, err := ar.dataArg(code)
			if err != nil {
				return d.saveErr(err)
			}
			if src != nil && src.Size() > 0 {
				if err := d.AppendN(src, 1); err != nil {
					return err
				}
			} else {
				d.PutNull()
			}
		default:
			return d.saveErr(codecErrf(ErrState, "unrecognized fill code: %q", code))
		}

		// Auto-exit: a described value closes once it holds its descriptor
		// and value; a null standing in for a skipped optional discards
		// whatever was built under it.
		for {
			parent := d.node(d.parent)
			if parent == nil {
				break
			}
			if parent.atom.typ == TypeDescribed && parent.children == 2 {
				d.Exit()
			} else if parent.atom.typ == TypeNull && parent.children == 1 {
				d.Exit()
				cur := d.node(d.current)
				cur.down = 0
				cur.children = 0
			} else {
				break
			}
		}
	}

	return nil
}

type argReader struct {
	args []any
	i    int
}

func (ar *argReader) next(code byte) (any, error) {
	if ar.i >= len(ar.args) {
		return nil, codecErrf(ErrArg, "missing argument for %q", code)
	}
	v := ar.args[ar.i]
	ar.i++
	return v, nil
}

func (ar *argReader) boolArg(code byte) (bool, error) {
	v, err := ar.next(code)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, codecErrf(ErrArg, "%q wants bool, got %T", code, v)
	}
	return b, nil
}

func (ar *argReader) uintArg(code byte, bits int) (uint64, error) {
	v, err := ar.next(code)
	if err != nil {
		return 0, err
	}
	var u uint64
	switch v := v.(type) {
	case uint8:
		u = uint64(v)
	case uint16:
		u = uint64(v)
	case uint32:
		u = uint64(v)
	case uint64:
		u = v
	case uint:
		u = uint64(v)
	case int:
		if v < 0 {
			return 0, codecErrf(ErrArg, "%q wants unsigned, got %d", code, v)
		}
		u = uint64(v)
	default:
		return 0, codecErrf(ErrArg, "%q wants unsigned integer, got %T", code, v)
	}
	if bits < 64 && u >= 1<<uint(bits) {
		return 0, codecErrf(ErrArg, "%q: %d does not fit %d bits", code, u, bits)
	}
	return u, nil
}

func (ar *argReader) intArg(code byte, bits int) (int64, error) {
	v, err := ar.next(code)
	if err != nil {
		return 0, err
	}
	var i int64
	switch v := v.(type) {
	case int8:
		i = int64(v)
	case int16:
		i = int64(v)
	case int32:
		i = int64(v)
	case int64:
		i = v
	case int:
		i = int64(v)
	default:
		return 0, codecErrf(ErrArg, "%q wants signed integer, got %T", code, v)
	}
	if bits < 64 {
		lim := int64(1) << uint(bits-1)
		if i < -lim || i >= lim {
			return 0, codecErrf(ErrArg, "%q: %d does not fit %d bits", code, i, bits)
		}
	}
	return i, nil
}

func (ar *argReader) floatArg(code byte) (float64, error) {
	v, err := ar.next(code)
	if err != nil {
		return 0, err
	}
	switch v := v.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, codecErrf(ErrArg, "%q wants float, got %T", code, v)
	}
}

func (ar *argReader) bytesArg(code byte) ([]byte, error) {
	v, err := ar.next(code)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, codecErrf(ErrArg, "%q wants []byte, got %T", code, v)
	}
	return b, nil
}

func (ar *argReader) stringArg(code byte) (string, error) {
	v, err := ar.next(code)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", codecErrf(ErrArg, "%q wants string, got %T", code, v)
	}
	return s, nil
}

func (ar *argReader) stringsArg(code byte) ([]string, error) {
	v, err := ar.next(code)
	if err != nil {
		return nil, err
	}
	s, ok := v.([]string)
	if !ok {
		return nil, codecErrf(ErrArg, "%q wants []string, got %T", code, v)
	}
	return s, nil
}

func (ar *argReader) countArg(code byte) (int, error) {
	v, err := ar.next(code)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int)
	if !ok {
		return 0, codecErrf(ErrArg, "%q wants int count, got %T", code, v)
	}
	return n, nil
}

func (ar *argReader) typeArg(code byte) (Type, error) {
	v, err := ar.next(code)
	if err != nil {
		return TypeInvalid, err
	}
	t, ok := v.(Type)
	if !ok {
		return TypeInvalid, codecErrf(ErrArg, "%q wants Type, got %T", code, v)
	}
	return t, nil
}

func (ar *argReader) dataArg(code byte) (*Data, error) {
	v, err := ar.next(code)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	src, ok := v.(*Data)
	if !ok {
		return nil, codecErrf(ErrArg, "%q wants *Data, got %T", code, v)
	}
	return src, nil
}
