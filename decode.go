package amqpdata

import (
	"context"
	"log/slog"
	"math"
)

const debugLogDecode = false

// atomBuf is a fixed-capacity sink for flattened atoms. Running out of
// room is an overflow, which Decode answers by retrying with double the
// capacity.
type atomBuf struct {
	atoms []atom
}

func (ab *atomBuf) put(a atom) error {
	if len(ab.atoms) == cap(ab.atoms) {
		return codecErrf(ErrOverflow, "atom buffer full: %d atoms", cap(ab.atoms))
	}
	ab.atoms = append(ab.atoms, a)
	return nil
}

// decodeTypeCode reads the next typecode, unwinding any leading descriptor
// prefixes: each 0x00 emits a described marker followed by its fully
// decoded descriptor value, then the search for the code continues. This
// nests arbitrarily.
func decodeTypeCode(r *byteReader, ab *atomBuf) (uint8, error) {
	code, err := r.Uint8()
	if err != nil {
		return 0, err
	}
	if code != codeDescriptor {
		return code, nil
	}
	if err := ab.put(atom{typ: TypeDescribed}); err != nil {
		return 0, err
	}
	if err := decodeAtom(r, ab); err != nil {
		return 0, err
	}
	return decodeTypeCode(r, ab)
}

func decodeAtom(r *byteReader, ab *atomBuf) error {
	code, err := decodeTypeCode(r, ab)
	if err != nil {
		return err
	}
	return decodeValue(r, ab, code)
}

func decodeValue(r *byteReader, ab *atomBuf, code uint8) error {
	var a atom

	switch code {
	case codeDescriptor:
		return codecErrf(ErrArg, "descriptor prefix in value position")
	case codeNull:
		a = atom{typ: TypeNull}
	case codeTrue:
		a = atom{typ: TypeBool, b: true}
	case codeFalse:
		a = atom{typ: TypeBool, b: false}
	case codeBoolean:
		v, err := r.Uint8()
		if err != nil {
			return err
		}
		a = atom{typ: TypeBool, b: v != 0}
	case codeUByte:
		v, err := r.Uint8()
		if err != nil {
			return err
		}
		a = atom{typ: TypeUByte, u: uint64(v)}
	case codeByte:
		v, err := r.Uint8()
		if err != nil {
			return err
		}
		a = atom{typ: TypeByte, i: int64(int8(v))}
	case codeUShort:
		v, err := r.Uint16()
		if err != nil {
			return err
		}
		a = atom{typ: TypeUShort, u: uint64(v)}
	case codeShort:
		v, err := r.Uint16()
		if err != nil {
			return err
		}
		a = atom{typ: TypeShort, i: int64(int16(v))}
	case codeUInt0:
		a = atom{typ: TypeUInt}
	case codeSmallUInt:
		v, err := r.Uint8()
		if err != nil {
			return err
		}
		a = atom{typ: TypeUInt, u: uint64(v)}
	case codeUInt:
		v, err := r.Uint32()
		if err != nil {
			return err
		}
		a = atom{typ: TypeUInt, u: uint64(v)}
	case codeSmallInt:
		v, err := r.Uint8()
		if err != nil {
			return err
		}
		a = atom{typ: TypeInt, i: int64(int8(v))}
	case codeInt:
		v, err := r.Uint32()
		if err != nil {
			return err
		}
		a = atom{typ: TypeInt, i: int64(int32(v))}
	case codeUTF32:
		v, err := r.Uint32()
		if err != nil {
			return err
		}
		a = atom{typ: TypeChar, c: rune(v)}
	case codeULong0:
		a = atom{typ: TypeULong}
	case codeSmallULong:
		v, err := r.Uint8()
		if err != nil {
			return err
		}
		a = atom{typ: TypeULong, u: uint64(v)}
	case codeULong:
		v, err := r.Uint64()
		if err != nil {
			return err
		}
		a = atom{typ: TypeULong, u: v}
	case codeSmallLong:
		v, err := r.Uint8()
		if err != nil {
			return err
		}
		a = atom{typ: TypeLong, i: int64(int8(v))}
	case codeLong:
		v, err := r.Uint64()
		if err != nil {
			return err
		}
		a = atom{typ: TypeLong, i: int64(v)}
	case codeMS64:
		v, err := r.Uint64()
		if err != nil {
			return err
		}
		a = atom{typ: TypeTimestamp, i: int64(v)}
	case codeFloat:
		v, err := r.Uint32()
		if err != nil {
			return err
		}
		a = atom{typ: TypeFloat, f: math.Float32frombits(v)}
	case codeDouble:
		v, err := r.Uint64()
		if err != nil {
			return err
		}
		a = atom{typ: TypeDouble, d: math.Float64frombits(v)}
	case codeDecimal32:
		v, err := r.Uint32()
		if err != nil {
			return err
		}
		a = atom{typ: TypeDecimal32, u: uint64(v)}
	case codeDecimal64:
		v, err := r.Uint64()
		if err != nil {
			return err
		}
		a = atom{typ: TypeDecimal64, u: v}
	case codeDecimal128:
		v, err := r.Block16()
		if err != nil {
			return err
		}
		a = atom{typ: TypeDecimal128, b16: v}
	case codeUUID:
		v, err := r.Block16()
		if err != nil {
			return err
		}
		a = atom{typ: TypeUUID, b16: v}
	case codeVBin8, codeStr8, codeSym8, codeVBin32, codeStr32, codeSym32:
		var payload []byte
		var err error
		switch code & 0xF0 {
		case 0xA0:
			payload, err = r.Var8()
		case 0xB0:
			payload, err = r.Var32()
		}
		if err != nil {
			return err
		}
		switch code & 0x0F {
		case 0x0:
			a = atom{typ: TypeBinary, data: payload}
		case 0x1:
			a = atom{typ: TypeString, data: payload}
		case 0x3:
			a = atom{typ: TypeSymbol, data: payload}
		}
	case codeList0:
		a = atom{typ: TypeList}
	case codeList8, codeMap8, codeArray8, codeList32, codeMap32, codeArray32:
		return decodeComposite(r, ab, code)
	default:
		return codecErrf(ErrArg, "unrecognized typecode 0x%02X at offset %d", code, r.Off()-1)
	}

	return ab.put(a)
}

// decodeComposite reads the size/count header — (u8, u8) for the short
// forms, (u32, u32) for the long forms — and then exactly count children.
// An array additionally reads one element typecode, itself allowed to be
// prefixed by descriptors, shared by all its elements.
func decodeComposite(r *byteReader, ab *atomBuf, code uint8) error {
	var count int
	switch code {
	case codeList8, codeMap8, codeArray8:
		_, err := r.Uint8()
		if err != nil {
			return err
		}
		c, err := r.Uint8()
		if err != nil {
			return err
		}
		count = int(c)
	default:
		_, err := r.Uint32()
		if err != nil {
			return err
		}
		c, err := r.Uint32()
		if err != nil {
			return err
		}
		count = int(c)
	}

	switch code {
	case codeArray8, codeArray32:
		if err := ab.put(atom{typ: TypeArray, count: count}); err != nil {
			return err
		}
		elemCode, err := decodeTypeCode(r, ab)
		if err != nil {
			return err
		}
		elemType, ok := codeType(elemCode)
		if !ok {
			return codecErrf(ErrArg, "unrecognized array element typecode 0x%02X", elemCode)
		}
		if err := ab.put(atom{typ: typeElement, elem: elemType}); err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			if err := decodeValue(r, ab, elemCode); err != nil {
				return err
			}
		}
		return nil
	case codeList8, codeList32:
		if err := ab.put(atom{typ: TypeList, count: count}); err != nil {
			return err
		}
	case codeMap8, codeMap32:
		if err := ab.put(atom{typ: TypeMap, count: count}); err != nil {
			return err
		}
	}

	for i := 0; i < count; i++ {
		if err := decodeAtom(r, ab); err != nil {
			return err
		}
	}
	return nil
}

// Decode reads exactly one value off buf, appends it at the cursor's
// insertion point, and returns the number of bytes consumed. On error the
// tree is unchanged and the failed value is not appended.
func (d *Data) Decode(buf []byte) (int, error) {
	if debugLogDecode {
		slog.LogAttrs(context.Background(), slog.LevelDebug, "decode", hexAttr("input", buf))
	}
	asize := 64
	for {
		ab := atomBuf{atoms: make([]atom, 0, asize)}
		r := makeByteReader(buf)
		err := decodeAtom(&r, &ab)
		if err == nil {
			if _, err := d.parseAtoms(ab.atoms, 0, -1); err != nil {
				return 0, d.saveErr(err)
			}
			return r.Off(), nil
		}
		if errCode(err) == ErrOverflow {
			asize *= 2
			continue
		}
		return 0, d.saveErr(err)
	}
}

// DecodeAll decodes values until buf is exhausted. It halts on the first
// error; every value decoded before it remains in the tree.
func (d *Data) DecodeAll(buf []byte) error {
	for len(buf) > 0 {
		n, err := d.Decode(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}
