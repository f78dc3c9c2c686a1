package amqpdata

import (
	"bytes"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Native counterparts of tags that have no direct Go type. Symbol is a
// distinct string type so symbols survive a native round trip; Described,
// MapEntry and Array preserve structure msgpack and Go maps would lose.
type Symbol string

type Char rune

type Decimal32 uint32

type Decimal64 uint64

type Decimal128 [16]byte

type Described struct {
	Descriptor any
	Value      any
}

type MapEntry struct {
	Key   any
	Value any
}

type Array struct {
	ElemType   Type
	Descriptor any // nil unless the array is described
	Elements   []any
}

// GetNative converts the current value into native Go data: lists become
// []any, maps []MapEntry in insertion order, timestamps time.Time with
// millisecond precision. Composites are converted recursively.
func (d *Data) GetNative() (any, error) {
	switch d.Type() {
	case TypeNull:
		return nil, nil
	case TypeBool:
		return d.GetBool(), nil
	case TypeUByte:
		return d.GetUByte(), nil
	case TypeByte:
		return d.GetByte(), nil
	case TypeUShort:
		return d.GetUShort(), nil
	case TypeShort:
		return d.GetShort(), nil
	case TypeUInt:
		return d.GetUInt(), nil
	case TypeInt:
		return d.GetInt(), nil
	case TypeChar:
		return Char(d.GetChar()), nil
	case TypeULong:
		return d.GetULong(), nil
	case TypeLong:
		return d.GetLong(), nil
	case TypeTimestamp:
		return time.UnixMilli(d.GetTimestamp()).UTC(), nil
	case TypeFloat:
		return d.GetFloat(), nil
	case TypeDouble:
		return d.GetDouble(), nil
	case TypeDecimal32:
		return Decimal32(d.GetDecimal32()), nil
	case TypeDecimal64:
		return Decimal64(d.GetDecimal64()), nil
	case TypeDecimal128:
		return Decimal128(d.GetDecimal128()), nil
	case TypeUUID:
		return d.GetUUID(), nil
	case TypeBinary:
		return bytes.Clone(d.GetBinary()), nil
	case TypeString:
		return d.GetString(), nil
	case TypeSymbol:
		return Symbol(d.GetSymbol()), nil
	case TypeDescribed:
		var v Described
		d.Enter()
		defer d.Exit()
		if !d.Next() {
			return nil, codecErrf(ErrState, "described value has no descriptor")
		}
		desc, err := d.GetNative()
		if err != nil {
			return nil, err
		}
		v.Descriptor = desc
		if !d.Next() {
			return nil, codecErrf(ErrState, "described value has no value")
		}
		v.Value, err = d.GetNative()
		if err != nil {
			return nil, err
		}
		return v, nil
	case TypeList:
		count := d.GetList()
		out := make([]any, 0, count)
		d.Enter()
		defer d.Exit()
		for d.Next() {
			v, err := d.GetNative()
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case TypeMap:
		count := d.GetMap()
		out := make([]MapEntry, 0, count/2)
		d.Enter()
		defer d.Exit()
		for d.Next() {
			k, err := d.GetNative()
			if err != nil {
				return nil, err
			}
			if !d.Next() {
				return nil, codecErrf(ErrState, "map has a key with no value")
			}
			v, err := d.GetNative()
			if err != nil {
				return nil, err
			}
			out = append(out, MapEntry{k, v})
		}
		return out, nil
	case TypeArray:
		out := Array{ElemType: d.GetArrayType()}
		described := d.IsArrayDescribed()
		count := d.GetArray()
		out.Elements = make([]any, 0, count)
		d.Enter()
		defer d.Exit()
		if described {
			if !d.Next() {
				return nil, codecErrf(ErrState, "described array has no descriptor")
			}
			desc, err := d.GetNative()
			if err != nil {
				return nil, err
			}
			out.Descriptor = desc
		}
		for d.Next() {
			v, err := d.GetNative()
			if err != nil {
				return nil, err
			}
			out.Elements = append(out.Elements, v)
		}
		return out, nil
	default:
		return nil, codecErrf(ErrState, "no current value")
	}
}

// PutNative appends the native value v. Plain int maps to long, uint to
// ulong; the distinct types above select the narrower tags.
func (d *Data) PutNative(v any) error {
	switch v := v.(type) {
	case nil:
		return d.PutNull()
	case bool:
		return d.PutBool(v)
	case uint8:
		return d.PutUByte(v)
	case int8:
		return d.PutByte(v)
	case uint16:
		return d.PutUShort(v)
	case int16:
		return d.PutShort(v)
	case uint32:
		return d.PutUInt(v)
	case int32:
		return d.PutInt(v)
	case Char:
		return d.PutChar(rune(v))
	case uint64:
		return d.PutULong(v)
	case uint:
		return d.PutULong(uint64(v))
	case int64:
		return d.PutLong(v)
	case int:
		return d.PutLong(int64(v))
	case time.Time:
		return d.PutTimestamp(v.UnixMilli())
	case float32:
		return d.PutFloat(v)
	case float64:
		return d.PutDouble(v)
	case Decimal32:
		return d.PutDecimal32(uint32(v))
	case Decimal64:
		return d.PutDecimal64(uint64(v))
	case Decimal128:
		return d.PutDecimal128([16]byte(v))
	case uuid.UUID:
		return d.PutUUID(v)
	case []byte:
		return d.PutBinary(v)
	case string:
		return d.PutString(v)
	case Symbol:
		return d.PutSymbol(string(v))
	case Described:
		d.PutDescribed()
		d.Enter()
		if err := d.PutNative(v.Descriptor); err != nil {
			return err
		}
		if err := d.PutNative(v.Value); err != nil {
			return err
		}
		d.Exit()
		return nil
	case []any:
		d.PutList()
		d.Enter()
		for _, el := range v {
			if err := d.PutNative(el); err != nil {
				return err
			}
		}
		d.Exit()
		return nil
	case []MapEntry:
		d.PutMap()
		d.Enter()
		for _, e := range v {
			if err := d.PutNative(e.Key); err != nil {
				return err
			}
			if err := d.PutNative(e.Value); err != nil {
				return err
			}
		}
		d.Exit()
		return nil
	case Array:
		d.PutArray(v.Descriptor != nil, v.ElemType)
		d.Enter()
		if v.Descriptor != nil {
			if err := d.PutNative(v.Descriptor); err != nil {
				return err
			}
		}
		for _, el := range v.Elements {
			if err := d.PutNative(el); err != nil {
				return err
			}
		}
		d.Exit()
		return nil
	default:
		return d.saveErr(codecErrf(ErrArg, "cannot put %T", v))
	}
}

// MarshalMsgpack renders every top-level value as an element of a msgpack
// array, via the native form, so decoded payloads can be embedded in
// msgpack documents.
func (d *Data) MarshalMsgpack() ([]byte, error) {
	point := d.Point()
	defer d.Restore(point)
	d.Rewind()

	var values []any
	for d.Next() {
		v, err := d.GetNative()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.Reset(&buf)
	err := enc.Encode(values)
	msgpack.PutEncoder(enc)
	if err != nil {
		return nil, d.saveErr(codecErrf(ErrArg, "msgpack encode: %v", err))
	}
	return buf.Bytes(), nil
}

// UnmarshalMsgpack appends the elements of a msgpack array. Types map to
// the closest AMQP tags (msgpack integers become long/ulong, strings
// become string), so this is a typed import rather than a lossless inverse
// of MarshalMsgpack.
func (d *Data) UnmarshalMsgpack(data []byte) error {
	var r bytes.Reader
	r.Reset(data)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	dec.UseLooseInterfaceDecoding(true)
	var values []any
	err := dec.Decode(&values)
	msgpack.PutDecoder(dec)
	if err != nil {
		return d.saveErr(codecErrf(ErrArg, "msgpack decode: %v", err))
	}
	for _, v := range values {
		if err := d.putDecodedMsgpack(v); err != nil {
			return err
		}
	}
	return nil
}

func (d *Data) putDecodedMsgpack(v any) error {
	switch v := v.(type) {
	case map[string]any:
		d.PutMap()
		d.Enter()
		for k, val := range v {
			if err := d.PutString(k); err != nil {
				return err
			}
			if err := d.putDecodedMsgpack(val); err != nil {
				return err
			}
		}
		d.Exit()
		return nil
	case []any:
		d.PutList()
		d.Enter()
		for _, el := range v {
			if err := d.putDecodedMsgpack(el); err != nil {
				return err
			}
		}
		d.Exit()
		return nil
	default:
		return d.PutNative(v)
	}
}
