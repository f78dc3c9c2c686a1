package amqpdata

// suspension keeps a mismatched container's inner codes consuming format
// positions without touching the cursor. A missing D or @ suspends for 3
// codes (itself plus the two codes its content would have matched), a
// missing [ or { for 1; nested brackets push the accounting one level down
// so alignment survives arbitrary nesting.
type suspension struct {
	remaining int
	level     int
}

func (s *suspension) active() bool {
	return s.remaining > 0
}

func (s *suspension) start(codes, level int) {
	s.remaining = codes
	s.level = level
}

func (s *suspension) tick(level int) {
	if s.remaining > 0 && level == s.level {
		s.remaining--
	}
}

// scanNext advances to the next value, stepping out of described parents
// whose children are exhausted so D's content reads as a flat unit.
func (d *Data) scanNext(suspend bool) (Type, bool) {
	if suspend {
		return TypeInvalid, false
	}
	if d.Next() {
		return d.Type(), true
	}
	parent := d.node(d.parent)
	if parent != nil && parent.atom.typ == TypeDescribed {
		d.Exit()
		return d.scanNext(suspend)
	}
	return TypeInvalid, false
}

// Scan rewinds the tree and extracts values into pointer arguments, driven
// by the same codes as Fill plus "." which skips one value. A ? consumes a
// *bool that reports whether the following code matched; mismatched
// primitives zero their outputs and mismatched containers suspend the
// scanner so later codes stay aligned.
func (d *Data) Scan(format string, args ...any) error {
	d.Rewind()
	ar := argReader{args: args}
	var scanarg *bool
	at := false
	level := 0
	var sus suspension

	for pos := 0; pos < len(format); pos++ {
		code := format[pos]
		suspend := sus.active()
		scanned := false

		switch code {
		case 'n':
			typ, found := d.scanNext(suspend)
			scanned = found && typ == TypeNull
			sus.tick(level)
		case 'o':
			out, err := scanArg[bool](&ar, code)
			if err != nil {
				return d.saveErr(err)
			}
			typ, found := d.scanNext(suspend)
			if found && typ == TypeBool {
				*out = d.GetBool()
				scanned = true
			} else {
				*out = false
			}
			sus.tick(level)
		case 'B':
			out, err := scanArg[uint8](&ar, code)
			if err != nil {
				return d.saveErr(err)
			}
			typ, found := d.scanNext(suspend)
			if found && typ == TypeUByte {
				*out = d.GetUByte()
				scanned = true
			} else {
				*out = 0
			}
			sus.tick(level)
		case 'b':
			out, err := scanArg[int8](&ar, code)
			if err != nil {
				return d.saveErr(err)
			}
			typ, found := d.scanNext(suspend)
			if found && typ == TypeByte {
				*out = d.GetByte()
				scanned = true
			} else {
				*out = 0
			}
			sus.tick(level)
		case 'H':
			out, err := scanArg[uint16](&ar, code)
			if err != nil {
				return d.saveErr(err)
			}
			typ, found := d.scanNext(suspend)
			if found && typ == TypeUShort {
				*out = d.GetUShort()
				scanned = true
			} else {
				*out = 0
			}
			sus.tick(level)
		case 'h':
			out, err := scanArg[int16](&ar, code)
			if err != nil {
				return d.saveErr(err)
			}
			typ, found := d.scanNext(suspend)
			if found && typ == TypeShort {
				*out = d.GetShort()
				scanned = true
			} else {
				*out = 0
			}
			sus.tick(level)
		case 'I':
			out, err := scanArg[uint32](&ar, code)
			if err != nil {
				return d.saveErr(err)
			}
			typ, found := d.scanNext(suspend)
			if found && typ == TypeUInt {
				*out = d.GetUInt()
				scanned = true
			} else {
				*out = 0
			}
			sus.tick(level)
		case 'i':
			out, err := scanArg[int32](&ar, code)
			if err != nil {
				return d.saveErr(err)
			}
			typ, found := d.scanNext(suspend)
			if found && typ == TypeInt {
				*out = d.GetInt()
				scanned = true
			} else {
				*out = 0
			}
			sus.tick(level)
		case 'c':
			out, err := scanArg[rune](&ar, code)
			if err != nil {
				return d.saveErr(err)
			}
			typ, found := d.scanNext(suspend)
			if found && typ == TypeChar {
				*out = d.GetChar()
				scanned = true
			} else {
				*out = 0
			}
			sus.tick(level)
		case 'L':
			out, err := scanArg[uint64](&ar, code)
			if err != nil {
				return d.saveErr(err)
			}
			typ, found := d.scanNext(suspend)
			if found && typ == TypeULong {
				*out = d.GetULong()
				scanned = true
			} else {
				*out = 0
			}
			sus.tick(level)
		case 'l':
			out, err := scanArg[int64](&ar, code)
			if err != nil {
				return d.saveErr(err)
			}
			typ, found := d.scanNext(suspend)
			if found && typ == TypeLong {
				*out = d.GetLong()
				scanned = true
			} else {
				*out = 0
			}
			sus.tick(level)
		case 't':
			out, err := scanArg[int64](&ar, code)
			if err != nil {
				return d.saveErr(err)
			}
			typ, found := d.scanNext(suspend)
			if found && typ == TypeTimestamp {
				*out = d.GetTimestamp()
				scanned = true
			} else {
				*out = 0
			}
			sus.tick(level)
		case 'f':
			out, err := scanArg[float32](&ar, code)
			if err != nil {
				return d.saveErr(err)
			}
			typ, found := d.scanNext(suspend)
			if found && typ == TypeFloat {
				*out = d.GetFloat()
				scanned = true
			} else {
				*out = 0
			}
			sus.tick(level)
		case 'd':
			out, err := scanArg[float64](&ar, code)
			if err != nil {
				return d.saveErr(err)
			}
			typ, found := d.scanNext(suspend)
			if found && typ == TypeDouble {
				*out = d.GetDouble()
				scanned = true
			} else {
				*out = 0
			}
			sus.tick(level)
		case 'z':
			out, err := scanArg[[]byte](&ar, code)
			if err != nil {
				return d.saveErr(err)
			}
			typ, found := d.scanNext(suspend)
			if found && typ == TypeBinary {
				*out = d.GetBinary()
				scanned = true
			} else {
				*out = nil
			}
			sus.tick(level)
		case 'S':
			out, err := scanArg[string](&ar, code)
			if err != nil {
				return d.saveErr(err)
			}
			typ, found := d.scanNext(suspend)
			if found && typ == TypeString {
				*out = d.GetString()
				scanned = true
			} else {
				*out = ""
			}
			sus.tick(level)
		case 's':
			out, err := scanArg[string](&ar, code)
			if err != nil {
				return d.saveErr(err)
			}
			typ, found := d.scanNext(suspend)
			if found && typ == TypeSymbol {
				*out = d.GetSymbol()
				scanned = true
			} else {
				*out = ""
			}
			sus.tick(level)
		case 'D':
			typ, found := d.scanNext(suspend)
			if found && typ == TypeDescribed {
				d.Enter()
				scanned = true
			} else if !suspend {
				sus.start(3, level)
			}
			sus.tick(level)
		case '@':
			typ, found := d.scanNext(suspend)
			if found && typ == TypeArray {
				d.Enter()
				scanned = true
				at = true
			} else if !suspend {
				sus.start(3, level)
			}
			sus.tick(level)
		case '[':
			if at {
				scanned = true
				at = false
			} else {
				typ, found := d.scanNext(suspend)
				if found && typ == TypeList {
					d.Enter()
					scanned = true
				} else if !suspend {
					sus.start(1, level)
				}
			}
			level++
		case '{':
			typ, found := d.scanNext(suspend)
			if found && typ == TypeMap {
				d.Enter()
				scanned = true
			} else if !suspend {
				sus.start(1, level)
			}
			level++
		case ']', '}':
			level--
			if !suspend && !d.Exit() {
				return d.saveErr(codecErrf(ErrState, "exit failed"))
			}
			sus.tick(level)
		case '.':
			_, found := d.scanNext(suspend)
			scanned = found
			sus.tick(level)
		case '?':
			if pos+1 >= len(format) || format[pos+1] == '?' {
				return d.saveErr(codecErrf(ErrArg, "codes must follow a ?"))
			}
			out, err := scanArg[bool](&ar, code)
			if err != nil {
				return d.saveErr(err)
			}
			scanarg = out
		case 'C':
			dst, err := ar.dataArg(code)
			if err != nil {
				return d.saveErr(err)
			}
			if dst == nil {
				return d.saveErr(codecErrf(ErrArg, "C wants a destination"))
			}
			if !suspend {
				old := dst.Size()
				next := d.peek()
				if next != nil && next.atom.typ != TypeNull {
					d.Narrow()
					err := dst.AppendN(d, 1)
					d.Widen()
					if err != nil {
						return err
					}
					scanned = dst.Size() > old
				}
				d.Next()
			}
			sus.tick(level)
		default:
			return d.saveErr(codecErrf(ErrState, "unrecognized scan code: %q", code))
		}

		if scanarg != nil && code != '?' {
			*scanarg = scanned
			scanarg = nil
		}
	}

	return nil
}

func scanArg[T any](ar *argReader, code byte) (*T, error) {
	v, err := ar.next(code)
	if err != nil {
		return nil, err
	}
	p, ok := v.(*T)
	if !ok {
		return nil, codecErrf(ErrArg, "%q wants %T, got %T", code, p, v)
	}
	return p, nil
}
