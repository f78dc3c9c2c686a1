package amqpdata

import (
	"github.com/google/uuid"
)

// Data holds a tree of AMQP values and a cursor over it. A single owner may
// mutate it; concurrent use requires external synchronization.
//
// Nodes are addressed by 1-based index into a flat arena; 0 means none. The
// arena and the intern buffer both reallocate on growth, so node pointers
// are always re-derived from indices after a mutation, and interned
// payload slices are rebased from recorded offsets.
type Data struct {
	nodes []node
	buf   []byte // intern buffer backing all variable-length payloads

	parent      int
	current     int
	baseParent  int
	baseCurrent int

	lastErr error
}

type node struct {
	next     int
	prev     int
	down     int
	parent   int
	children int
	atom     atom

	// arrays
	described bool
	elemType  Type

	// interned payloads
	interned bool
	dataOff  int
	dataSize int

	// encoder state: short/long form decision and size-field backpatch
	small   bool
	sizeOff int
}

// Point is a snapshot of the cursor, valid until the tree shrinks below it.
type Point struct {
	parent  int
	current int
}

// New returns an empty tree with room for capacity nodes before the first
// arena growth.
func New(capacity int) *Data {
	return &Data{nodes: make([]node, 0, capacity)}
}

// Size returns the number of nodes in the tree.
func (d *Data) Size() int {
	if d == nil {
		return 0
	}
	return len(d.nodes)
}

// Clear empties the tree and resets the cursor without releasing capacity.
func (d *Data) Clear() {
	if d == nil {
		return
	}
	d.nodes = d.nodes[:0]
	d.buf = d.buf[:0]
	d.parent, d.current = 0, 0
	d.baseParent, d.baseCurrent = 0, 0
	d.lastErr = nil
}

// LastError returns the most recent failure recorded on this instance.
func (d *Data) LastError() error {
	return d.lastErr
}

func (d *Data) saveErr(err error) error {
	if err != nil {
		d.lastErr = err
	}
	return err
}

// node converts an index to a pointer; 0 yields nil. The pointer is only
// valid until the next mutation that can grow the arena.
func (d *Data) node(nd int) *node {
	if nd == 0 {
		return nil
	}
	return &d.nodes[nd-1]
}

func (d *Data) newNode() int {
	d.nodes = append(d.nodes, node{})
	return len(d.nodes)
}

// add appends a node at the cursor's insertion point and makes it current.
// Positions where a node already exists (after a Restore into the middle of
// a tree) reuse that node, as repeated fills over a rewound tree do.
func (d *Data) add() int {
	var nd int
	if d.current != 0 {
		if next := d.node(d.current).next; next != 0 {
			nd = next
		} else {
			nd = d.newNode()
			cur := d.node(d.current)
			cur.next = nd
			n := d.node(nd)
			n.prev = d.current
			n.parent = d.parent
			if parent := d.node(d.parent); parent != nil {
				if parent.down == 0 {
					parent.down = nd
				}
				parent.children++
			}
		}
	} else if d.parent != 0 {
		if down := d.node(d.parent).down; down != 0 {
			nd = down
		} else {
			nd = d.newNode()
			n := d.node(nd)
			n.prev = 0
			n.parent = d.parent
			parent := d.node(d.parent)
			parent.down = nd
			parent.children++
		}
	} else if len(d.nodes) > 0 {
		nd = 1
	} else {
		nd = d.newNode()
	}

	n := d.node(nd)
	n.down = 0
	n.children = 0
	n.interned = false
	n.dataOff, n.dataSize = 0, 0
	n.described = false
	n.elemType = TypeNull
	d.current = nd
	return nd
}

// intern copies a node's variable-length payload into the side buffer and
// repoints the atom's slice there. If the buffer reallocated, every
// interned slice in the tree is rebased.
func (d *Data) intern(nd int) {
	n := d.node(nd)
	switch n.atom.typ {
	case TypeBinary, TypeString, TypeSymbol:
	default:
		return
	}
	oldCap := cap(d.buf)
	off := len(d.buf)
	d.buf = appendRaw(d.buf, n.atom.data)
	n.interned = true
	n.dataOff = off
	n.dataSize = len(n.atom.data)
	n.atom.data = d.buf[off : off+n.dataSize]
	if cap(d.buf) != oldCap {
		d.rebase()
	}
}

func (d *Data) rebase() {
	for i := range d.nodes {
		n := &d.nodes[i]
		if n.interned {
			n.atom.data = d.buf[n.dataOff : n.dataOff+n.dataSize]
		}
	}
}

func (d *Data) putAtom(a atom) {
	nd := d.add()
	d.node(nd).atom = a
	d.intern(nd)
}

// Navigation.

// Rewind moves the cursor back to the base anchors (the tree root unless
// narrowed).
func (d *Data) Rewind() {
	d.parent = d.baseParent
	d.current = d.baseCurrent
}

// Narrow confines navigation to the current subtree until Widen.
func (d *Data) Narrow() {
	d.baseParent = d.parent
	d.baseCurrent = d.current
}

func (d *Data) Widen() {
	d.baseParent = 0
	d.baseCurrent = 0
}

// Point snapshots the cursor for a later Restore.
func (d *Data) Point() Point {
	return Point{parent: d.parent, current: d.current}
}

// Restore brings the cursor back to a snapshot. A snapshot whose current
// node no longer exists falls back to the parent anchor alone; Restore
// reports whether any position was recovered.
func (d *Data) Restore(p Point) bool {
	if p.current != 0 && p.current <= len(d.nodes) {
		d.current = p.current
		d.parent = d.node(d.current).parent
		return true
	} else if p.parent != 0 && p.parent <= len(d.nodes) {
		d.parent = p.parent
		d.current = 0
		return true
	}
	return false
}

// Next advances to the following sibling, or to the first child when the
// cursor has just entered a composite, or to the first root value on a
// fresh tree. Returns false at the end of the sibling list.
func (d *Data) Next() bool {
	cur := d.node(d.current)
	parent := d.node(d.parent)
	var next int
	if cur != nil {
		next = cur.next
	} else if parent != nil && parent.down != 0 {
		next = parent.down
	} else if parent == nil && len(d.nodes) > 0 {
		next = 1
	} else {
		return false
	}
	if next == 0 {
		return false
	}
	d.current = next
	return true
}

func (d *Data) Prev() bool {
	cur := d.node(d.current)
	if cur != nil && cur.prev != 0 {
		d.current = cur.prev
		return true
	}
	return false
}

// Enter descends into the current composite; subsequent puts and Next calls
// operate on its children.
func (d *Data) Enter() bool {
	if d.current != 0 {
		d.parent = d.current
		d.current = 0
		return true
	}
	return false
}

// Exit ascends back to the composite the cursor last entered.
func (d *Data) Exit() bool {
	if d.parent != 0 {
		parent := d.node(d.parent)
		d.current = d.parent
		d.parent = parent.parent
		return true
	}
	return false
}

// peek returns the node Next would move to, without moving.
func (d *Data) peek() *node {
	if cur := d.node(d.current); cur != nil {
		return d.node(cur.next)
	}
	if parent := d.node(d.parent); parent != nil {
		return d.node(parent.down)
	}
	if len(d.nodes) > 0 {
		return d.node(1)
	}
	return nil
}

// Type returns the tag of the current value, TypeInvalid when there is
// none.
func (d *Data) Type() Type {
	if n := d.node(d.current); n != nil {
		return n.atom.typ
	}
	return TypeInvalid
}

// Put operations. Each appends a sibling at the cursor's insertion point
// and advances the cursor to it.

func (d *Data) PutNull() error {
	d.putAtom(atom{typ: TypeNull})
	return nil
}

func (d *Data) PutBool(v bool) error {
	d.putAtom(atom{typ: TypeBool, b: v})
	return nil
}

func (d *Data) PutUByte(v uint8) error {
	d.putAtom(atom{typ: TypeUByte, u: uint64(v)})
	return nil
}

func (d *Data) PutByte(v int8) error {
	d.putAtom(atom{typ: TypeByte, i: int64(v)})
	return nil
}

func (d *Data) PutUShort(v uint16) error {
	d.putAtom(atom{typ: TypeUShort, u: uint64(v)})
	return nil
}

func (d *Data) PutShort(v int16) error {
	d.putAtom(atom{typ: TypeShort, i: int64(v)})
	return nil
}

func (d *Data) PutUInt(v uint32) error {
	d.putAtom(atom{typ: TypeUInt, u: uint64(v)})
	return nil
}

func (d *Data) PutInt(v int32) error {
	d.putAtom(atom{typ: TypeInt, i: int64(v)})
	return nil
}

func (d *Data) PutChar(v rune) error {
	d.putAtom(atom{typ: TypeChar, c: v})
	return nil
}

func (d *Data) PutULong(v uint64) error {
	d.putAtom(atom{typ: TypeULong, u: v})
	return nil
}

func (d *Data) PutLong(v int64) error {
	d.putAtom(atom{typ: TypeLong, i: v})
	return nil
}

// PutTimestamp stores signed milliseconds since the Unix epoch.
func (d *Data) PutTimestamp(ms int64) error {
	d.putAtom(atom{typ: TypeTimestamp, i: ms})
	return nil
}

func (d *Data) PutFloat(v float32) error {
	d.putAtom(atom{typ: TypeFloat, f: v})
	return nil
}

func (d *Data) PutDouble(v float64) error {
	d.putAtom(atom{typ: TypeDouble, d: v})
	return nil
}

func (d *Data) PutDecimal32(v uint32) error {
	d.putAtom(atom{typ: TypeDecimal32, u: uint64(v)})
	return nil
}

func (d *Data) PutDecimal64(v uint64) error {
	d.putAtom(atom{typ: TypeDecimal64, u: v})
	return nil
}

func (d *Data) PutDecimal128(v [16]byte) error {
	d.putAtom(atom{typ: TypeDecimal128, b16: v})
	return nil
}

func (d *Data) PutUUID(v uuid.UUID) error {
	d.putAtom(atom{typ: TypeUUID, b16: [16]byte(v)})
	return nil
}

func (d *Data) PutBinary(v []byte) error {
	d.putAtom(atom{typ: TypeBinary, data: v})
	return nil
}

func (d *Data) PutString(v string) error {
	d.putAtom(atom{typ: TypeString, data: []byte(v)})
	return nil
}

func (d *Data) PutSymbol(v string) error {
	d.putAtom(atom{typ: TypeSymbol, data: []byte(v)})
	return nil
}

func (d *Data) PutList() error {
	d.putAtom(atom{typ: TypeList})
	return nil
}

func (d *Data) PutMap() error {
	d.putAtom(atom{typ: TypeMap})
	return nil
}

// PutArray appends a homogeneous array. The element type must be chosen
// before entering; when described, the first child added inside is the
// descriptor and the wire-visible element count excludes it.
func (d *Data) PutArray(described bool, elemType Type) error {
	nd := d.add()
	n := d.node(nd)
	n.atom = atom{typ: TypeArray}
	n.described = described
	n.elemType = elemType
	return nil
}

// PutDescribed appends a described-value marker whose two children, in
// order, are the descriptor and the value.
func (d *Data) PutDescribed() error {
	d.putAtom(atom{typ: TypeDescribed})
	return nil
}

// Get accessors. Each reads the current value and returns the zero value
// on a tag mismatch, so optional fields read cleanly off a rewound tree.

func (d *Data) IsNull() bool {
	n := d.node(d.current)
	return n != nil && n.atom.typ == TypeNull
}

func (d *Data) GetBool() bool {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeBool {
		return n.atom.b
	}
	return false
}

func (d *Data) GetUByte() uint8 {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeUByte {
		return uint8(n.atom.u)
	}
	return 0
}

func (d *Data) GetByte() int8 {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeByte {
		return int8(n.atom.i)
	}
	return 0
}

func (d *Data) GetUShort() uint16 {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeUShort {
		return uint16(n.atom.u)
	}
	return 0
}

func (d *Data) GetShort() int16 {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeShort {
		return int16(n.atom.i)
	}
	return 0
}

func (d *Data) GetUInt() uint32 {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeUInt {
		return uint32(n.atom.u)
	}
	return 0
}

func (d *Data) GetInt() int32 {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeInt {
		return int32(n.atom.i)
	}
	return 0
}

func (d *Data) GetChar() rune {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeChar {
		return n.atom.c
	}
	return 0
}

func (d *Data) GetULong() uint64 {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeULong {
		return n.atom.u
	}
	return 0
}

func (d *Data) GetLong() int64 {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeLong {
		return n.atom.i
	}
	return 0
}

func (d *Data) GetTimestamp() int64 {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeTimestamp {
		return n.atom.i
	}
	return 0
}

func (d *Data) GetFloat() float32 {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeFloat {
		return n.atom.f
	}
	return 0
}

func (d *Data) GetDouble() float64 {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeDouble {
		return n.atom.d
	}
	return 0
}

func (d *Data) GetDecimal32() uint32 {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeDecimal32 {
		return uint32(n.atom.u)
	}
	return 0
}

func (d *Data) GetDecimal64() uint64 {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeDecimal64 {
		return n.atom.u
	}
	return 0
}

func (d *Data) GetDecimal128() [16]byte {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeDecimal128 {
		return n.atom.b16
	}
	return [16]byte{}
}

func (d *Data) GetUUID() uuid.UUID {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeUUID {
		return uuid.UUID(n.atom.b16)
	}
	return uuid.UUID{}
}

// GetBinary returns a view into the intern buffer, valid until the next
// mutation; callers that retain it must copy.
func (d *Data) GetBinary() []byte {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeBinary {
		return n.atom.data
	}
	return nil
}

func (d *Data) GetString() string {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeString {
		return string(n.atom.data)
	}
	return ""
}

func (d *Data) GetSymbol() string {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeSymbol {
		return string(n.atom.data)
	}
	return ""
}

// GetList returns the child count of the current list, 0 otherwise.
func (d *Data) GetList() int {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeList {
		return n.children
	}
	return 0
}

func (d *Data) GetMap() int {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeMap {
		return n.children
	}
	return 0
}

// GetArray returns the data element count of the current array, excluding
// the descriptor slot.
func (d *Data) GetArray() int {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeArray {
		if n.described {
			return n.children - 1
		}
		return n.children
	}
	return 0
}

func (d *Data) IsArrayDescribed() bool {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeArray {
		return n.described
	}
	return false
}

func (d *Data) GetArrayType() Type {
	if n := d.node(d.current); n != nil && n.atom.typ == TypeArray {
		return n.elemType
	}
	return TypeInvalid
}

func (d *Data) IsDescribed() bool {
	n := d.node(d.current)
	return n != nil && n.atom.typ == TypeDescribed
}

// Copy replaces this tree's contents with a deep copy of src and rewinds.
func (d *Data) Copy(src *Data) error {
	d.Clear()
	err := d.Append(src)
	d.Rewind()
	return err
}

// Append deep-copies all of src's values into this tree at the cursor's
// insertion point, preserving structure, array element types and
// described-ness. src's cursor is restored afterwards.
func (d *Data) Append(src *Data) error {
	return d.AppendN(src, -1)
}

// AppendN is Append limited to the first limit top-level values.
func (d *Data) AppendN(src *Data, limit int) error {
	level, count := 0, 0
	point := src.Point()
	defer src.Restore(point)
	src.Rewind()

	for {
		stop := false
		for !src.Next() {
			if level > 0 {
				d.Exit()
				src.Exit()
				level--
				continue
			}
			stop = true
			break
		}
		if stop {
			break
		}
		if level == 0 && count == limit {
			break
		}
		if level == 0 {
			count++
		}

		switch src.Type() {
		case TypeNull:
			d.PutNull()
		case TypeBool:
			d.PutBool(src.GetBool())
		case TypeUByte:
			d.PutUByte(src.GetUByte())
		case TypeByte:
			d.PutByte(src.GetByte())
		case TypeUShort:
			d.PutUShort(src.GetUShort())
		case TypeShort:
			d.PutShort(src.GetShort())
		case TypeUInt:
			d.PutUInt(src.GetUInt())
		case TypeInt:
			d.PutInt(src.GetInt())
		case TypeChar:
			d.PutChar(src.GetChar())
		case TypeULong:
			d.PutULong(src.GetULong())
		case TypeLong:
			d.PutLong(src.GetLong())
		case TypeTimestamp:
			d.PutTimestamp(src.GetTimestamp())
		case TypeFloat:
			d.PutFloat(src.GetFloat())
		case TypeDouble:
			d.PutDouble(src.GetDouble())
		case TypeDecimal32:
			d.PutDecimal32(src.GetDecimal32())
		case TypeDecimal64:
			d.PutDecimal64(src.GetDecimal64())
		case TypeDecimal128:
			d.PutDecimal128(src.GetDecimal128())
		case TypeUUID:
			d.PutUUID(src.GetUUID())
		case TypeBinary:
			d.PutBinary(src.GetBinary())
		case TypeString:
			d.PutString(src.GetString())
		case TypeSymbol:
			d.PutSymbol(src.GetSymbol())
		case TypeDescribed:
			d.PutDescribed()
			d.Enter()
			src.Enter()
			level++
		case TypeArray:
			d.PutArray(src.IsArrayDescribed(), src.GetArrayType())
			d.Enter()
			src.Enter()
			level++
		case TypeList:
			d.PutList()
			d.Enter()
			src.Enter()
			level++
		case TypeMap:
			d.PutMap()
			d.Enter()
			src.Enter()
			level++
		default:
			return d.saveErr(codecErrf(ErrState, "cannot append %v", src.Type()))
		}
	}
	return nil
}
