package amqpdata

import "encoding/binary"

func ensureCapacity(buf []byte, minCap int) []byte {
	c := cap(buf)
	if minCap > c {
		if c < 16 {
			c = 16
		}
		for minCap > c {
			c <<= 1
		}
		old := buf
		buf = make([]byte, len(old), c)
		copy(buf, old)
	}
	return buf
}

func grow(buf []byte, n int) (int, []byte) {
	off := len(buf)
	newLen := off + n
	buf = ensureCapacity(buf, newLen)
	return off, buf[:newLen]
}

func appendRaw(buf []byte, chunk []byte) []byte {
	n := len(chunk)
	off, buf := grow(buf, n)
	copy(buf[off:], chunk)
	return buf
}

// byteWriter writes big-endian scalars and length-prefixed spans into a
// fixed destination buffer. Every write either advances Off by exactly the
// width consumed or fails with an overflow error leaving Off unchanged.
type byteWriter struct {
	Buf []byte
	Off int
}

func (w *byteWriter) Written() int {
	return w.Off
}

func (w *byteWriter) room(n int) error {
	if len(w.Buf)-w.Off < n {
		return codecErrf(ErrOverflow, "buffer full: %d bytes wanted, %d remaining", n, len(w.Buf)-w.Off)
	}
	return nil
}

func (w *byteWriter) Uint8(v uint8) error {
	if err := w.room(1); err != nil {
		return err
	}
	w.Buf[w.Off] = v
	w.Off++
	return nil
}

func (w *byteWriter) Uint16(v uint16) error {
	if err := w.room(2); err != nil {
		return err
	}
	binary.BigEndian.PutUint16(w.Buf[w.Off:], v)
	w.Off += 2
	return nil
}

func (w *byteWriter) Uint32(v uint32) error {
	if err := w.room(4); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(w.Buf[w.Off:], v)
	w.Off += 4
	return nil
}

func (w *byteWriter) Uint64(v uint64) error {
	if err := w.room(8); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(w.Buf[w.Off:], v)
	w.Off += 8
	return nil
}

func (w *byteWriter) Block16(v [16]byte) error {
	if err := w.room(16); err != nil {
		return err
	}
	copy(w.Buf[w.Off:], v[:])
	w.Off += 16
	return nil
}

func (w *byteWriter) Var8(v []byte) error {
	if err := w.room(1 + len(v)); err != nil {
		return err
	}
	w.Buf[w.Off] = uint8(len(v))
	copy(w.Buf[w.Off+1:], v)
	w.Off += 1 + len(v)
	return nil
}

func (w *byteWriter) Var32(v []byte) error {
	if err := w.room(4 + len(v)); err != nil {
		return err
	}
	binary.BigEndian.PutUint32(w.Buf[w.Off:], uint32(len(v)))
	copy(w.Buf[w.Off+4:], v)
	w.Off += 4 + len(v)
	return nil
}

// Skip reserves n bytes to be backpatched later; returns their offset.
func (w *byteWriter) Skip(n int) (int, error) {
	if err := w.room(n); err != nil {
		return 0, err
	}
	off := w.Off
	w.Off += n
	return off, nil
}

func (w *byteWriter) PatchUint8(off int, v uint8) {
	w.Buf[off] = v
}

func (w *byteWriter) PatchUint32(off int, v uint32) {
	binary.BigEndian.PutUint32(w.Buf[off:], v)
}

// byteReader reads big-endian scalars and length-prefixed spans off a byte
// slice. Every read either advances past exactly the width consumed or
// fails with an underflow error.
type byteReader struct {
	Orig []byte
	Buf  []byte
}

func makeByteReader(buf []byte) byteReader {
	return byteReader{buf, buf}
}

func (r *byteReader) Off() int {
	return len(r.Orig) - len(r.Buf)
}

func (r *byteReader) Remaining() int {
	return len(r.Buf)
}

func (r *byteReader) short(n int) error {
	return codecErrf(ErrUnderflow, "input ran out at offset %d: %d bytes wanted, %d remaining", r.Off(), n, len(r.Buf))
}

func (r *byteReader) Uint8() (uint8, error) {
	if len(r.Buf) < 1 {
		return 0, r.short(1)
	}
	v := r.Buf[0]
	r.Buf = r.Buf[1:]
	return v, nil
}

func (r *byteReader) Uint16() (uint16, error) {
	if len(r.Buf) < 2 {
		return 0, r.short(2)
	}
	v := binary.BigEndian.Uint16(r.Buf)
	r.Buf = r.Buf[2:]
	return v, nil
}

func (r *byteReader) Uint32() (uint32, error) {
	if len(r.Buf) < 4 {
		return 0, r.short(4)
	}
	v := binary.BigEndian.Uint32(r.Buf)
	r.Buf = r.Buf[4:]
	return v, nil
}

func (r *byteReader) Uint64() (uint64, error) {
	if len(r.Buf) < 8 {
		return 0, r.short(8)
	}
	v := binary.BigEndian.Uint64(r.Buf)
	r.Buf = r.Buf[8:]
	return v, nil
}

func (r *byteReader) Block16() ([16]byte, error) {
	var v [16]byte
	if len(r.Buf) < 16 {
		return v, r.short(16)
	}
	copy(v[:], r.Buf)
	r.Buf = r.Buf[16:]
	return v, nil
}

// Raw returns a view into the input; callers that retain it must copy.
func (r *byteReader) Raw(n int) ([]byte, error) {
	if len(r.Buf) < n {
		return nil, r.short(n)
	}
	v := r.Buf[:n]
	r.Buf = r.Buf[n:]
	return v, nil
}

func (r *byteReader) Var8() ([]byte, error) {
	n, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	return r.Raw(int(n))
}

func (r *byteReader) Var32() ([]byte, error) {
	n, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	return r.Raw(int(n))
}
