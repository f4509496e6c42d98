// Package wire implements the canonical length-delimited tagged encoding
// used for every public datum in the core (spec §6): a sequence of
// (tag uint32, length uint32, bytes) records, big-endian. The same encoding
// is used both for wire exchange and as the byte input hashed into
// Fiat-Shamir transcripts and content-addressed Ids (spec §2), so two
// parties that agree on a value always agree on its bytes.
package wire

import (
	"encoding/binary"

	"github.com/rmartinho/pbmx/xerr"
)

// Writer appends a sequence of tagged fields into one buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Field appends one (tag, length, bytes) record.
func (w *Writer) Field(tag uint32, data []byte) *Writer {
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], tag)
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(data)))
	w.buf = append(w.buf, hdr[:]...)
	w.buf = append(w.buf, data...)
	return w
}

// Uint64Field appends a field carrying a big-endian uint64.
func (w *Writer) Uint64Field(tag uint32, v uint64) *Writer {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return w.Field(tag, buf[:])
}

// StringField appends a field carrying a UTF-8 string.
func (w *Writer) StringField(tag uint32, s string) *Writer {
	return w.Field(tag, []byte(s))
}

// SubMessage appends a field whose payload is itself an already-encoded
// sequence of fields, producing a nested tagged message.
func (w *Writer) SubMessage(tag uint32, inner *Writer) *Writer {
	return w.Field(tag, inner.Bytes())
}

// Bytes returns the accumulated encoding.
func (w *Writer) Bytes() []byte { return w.buf }

// Field is one decoded (tag, value) pair.
type Field struct {
	Tag  uint32
	Data []byte
}

// Reader walks the tagged fields of a previously encoded buffer.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential field decoding.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Done reports whether every byte of the buffer has been consumed.
func (r *Reader) Done() bool { return r.pos >= len(r.buf) }

// Next decodes the next field, or returns a DecodingError if the buffer is
// truncated or a field's declared length overruns the remaining bytes.
func (r *Reader) Next() (Field, error) {
	if len(r.buf)-r.pos < 8 {
		return Field{}, xerr.New(xerr.Decoding, "truncated field header at offset %d", r.pos)
	}
	tag := binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4])
	length := binary.BigEndian.Uint32(r.buf[r.pos+4 : r.pos+8])
	r.pos += 8
	if uint64(len(r.buf)-r.pos) < uint64(length) {
		return Field{}, xerr.New(xerr.Decoding, "field %d declares length %d past end of buffer", tag, length)
	}
	data := r.buf[r.pos : r.pos+int(length)]
	r.pos += int(length)
	return Field{Tag: tag, Data: data}, nil
}

// All decodes every field in order, erroring on trailing garbage.
func (r *Reader) All() ([]Field, error) {
	var fields []Field
	for !r.Done() {
		f, err := r.Next()
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// Uint64 decodes a big-endian uint64 field value.
func Uint64(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, xerr.New(xerr.Decoding, "uint64 field must be 8 bytes, got %d", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}
