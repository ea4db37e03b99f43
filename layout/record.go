// File: layout/record.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0

package layout

import (
	"encoding/binary"
	"math"

	"github.com/nebulastream/streamcore/errs"
)

// PushRecord appends one tuple to the bound buffer. Fails with BufferFull
// if the buffer is already at capacity. On success the buffer's tuple
// count is incremented by one (spec §4.2).
func (b *BoundLayout) PushRecord(record []any) error {
	count := int(b.buf.TupleCount())
	if count >= b.capacity {
		return errs.New(errs.CodeBufferFull, "buffer at capacity").
			WithContext("capacity", b.capacity)
	}
	if len(record) != b.layout.schema.Len() {
		return errs.New(errs.CodeSchemaSizeMismatch, "record arity does not match schema").
			WithContext("want", b.layout.schema.Len()).WithContext("got", len(record))
	}

	raw := b.buf.Bytes()
	for i, f := range b.layout.schema.fields {
		off := b.offsetOf(i, count)
		if err := writeField(raw[off:off+f.Type.Size()], f.Type, record[i]); err != nil {
			return err
		}
	}
	b.buf.SetTupleCount(uint64(count + 1))
	return nil
}

// ReadRecord returns the tuple at index as a slice of values in schema
// field order. Fails with IndexOutOfBounds if index >= tupleCount.
func (b *BoundLayout) ReadRecord(index int) ([]any, error) {
	if index < 0 || uint64(index) >= b.buf.TupleCount() {
		return nil, errs.New(errs.CodeIndexOutOfBounds, "record index out of bounds").
			WithContext("index", index).WithContext("tupleCount", b.buf.TupleCount())
	}
	raw := b.buf.Bytes()
	out := make([]any, b.layout.schema.Len())
	for i, f := range b.layout.schema.fields {
		off := b.offsetOf(i, index)
		out[i] = readField(raw[off:off+f.Type.Size()], f.Type)
	}
	return out, nil
}

func writeField(dst []byte, t FieldType, v any) error {
	switch t {
	case Int8:
		x, ok := v.(int8)
		if !ok {
			return typeMismatch(t, v)
		}
		dst[0] = byte(x)
	case UInt8:
		x, ok := v.(uint8)
		if !ok {
			return typeMismatch(t, v)
		}
		dst[0] = x
	case Bool:
		x, ok := v.(bool)
		if !ok {
			return typeMismatch(t, v)
		}
		if x {
			dst[0] = 1
		} else {
			dst[0] = 0
		}
	case Int16:
		x, ok := v.(int16)
		if !ok {
			return typeMismatch(t, v)
		}
		binary.LittleEndian.PutUint16(dst, uint16(x))
	case UInt16:
		x, ok := v.(uint16)
		if !ok {
			return typeMismatch(t, v)
		}
		binary.LittleEndian.PutUint16(dst, x)
	case Int32:
		x, ok := v.(int32)
		if !ok {
			return typeMismatch(t, v)
		}
		binary.LittleEndian.PutUint32(dst, uint32(x))
	case UInt32:
		x, ok := v.(uint32)
		if !ok {
			return typeMismatch(t, v)
		}
		binary.LittleEndian.PutUint32(dst, x)
	case Float32:
		x, ok := v.(float32)
		if !ok {
			return typeMismatch(t, v)
		}
		binary.LittleEndian.PutUint32(dst, math.Float32bits(x))
	case Int64:
		x, ok := v.(int64)
		if !ok {
			return typeMismatch(t, v)
		}
		binary.LittleEndian.PutUint64(dst, uint64(x))
	case UInt64:
		x, ok := v.(uint64)
		if !ok {
			return typeMismatch(t, v)
		}
		binary.LittleEndian.PutUint64(dst, x)
	case Float64:
		x, ok := v.(float64)
		if !ok {
			return typeMismatch(t, v)
		}
		binary.LittleEndian.PutUint64(dst, math.Float64bits(x))
	default:
		return errs.New(errs.CodeFieldTypeMismatch, "unknown field type")
	}
	return nil
}

func readField(src []byte, t FieldType) any {
	switch t {
	case Int8:
		return int8(src[0])
	case UInt8:
		return src[0]
	case Bool:
		return src[0] != 0
	case Int16:
		return int16(binary.LittleEndian.Uint16(src))
	case UInt16:
		return binary.LittleEndian.Uint16(src)
	case Int32:
		return int32(binary.LittleEndian.Uint32(src))
	case UInt32:
		return binary.LittleEndian.Uint32(src)
	case Float32:
		return math.Float32frombits(binary.LittleEndian.Uint32(src))
	case Int64:
		return int64(binary.LittleEndian.Uint64(src))
	case UInt64:
		return binary.LittleEndian.Uint64(src)
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(src))
	default:
		return nil
	}
}

func typeMismatch(t FieldType, v any) error {
	return errs.New(errs.CodeFieldTypeMismatch, "value does not match schema field type").
		WithContext("fieldType", t).WithContext("value", v)
}
