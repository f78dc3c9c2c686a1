/*
Package amqpdata implements the AMQP 1.0 type system: an in-memory tree of
AMQP values together with a binary codec for the AMQP wire format.

We implement:

1. Data, a navigable tree of typed values (atoms) with a cursor, built
through Put calls or decoded off the wire.

2. A binary encoder and decoder covering every AMQP 1.0 primitive and
composite encoding, including described values and typed arrays.

3. Fill and Scan, two interpreters over a terse format string that append
values into a tree from arguments and extract values from a tree into
pointers.

4. A text formatter for values, and a msgpack bridge for embedding decoded
payloads in foreign documents.

# Technical Details

**Node arena.**
Nodes live in a flat growable arena and refer to each other by 1-based
index; index 0 means none. The arena may reallocate on growth, so internal
code re-derives node pointers from indices after any operation that can
grow it. Cursor positions are indices and survive growth.

**Intern buffer**
Variable-length payloads (binary, string, symbol) are copied into a byte
arena owned by the Data instance. Each interned node records its offset and
size; when the arena reallocates, every interned slice is rebased from
those offsets.

**Wire widths**
The decoder accepts every encoding a conforming peer may emit, including
the zero and small integer forms and both composite widths. The encoder
picks the narrowest primitive encoding, and a sizing pass picks the short
composite form whenever both the size field and the child count fit in a
byte; otherwise it uses the wide form.
*/
package amqpdata
