// File: layout/field.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0

package layout

import "github.com/nebulastream/streamcore/errs"

// scalar is the set of Go types a FieldAccessor may be instantiated over.
type scalar interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64 | bool
}

// FieldAccessor is a typed, per-column view into a bound buffer. Get reads
// a copy of one tuple's value for one field and Set overwrites it in the
// buffer (spec §4.2 "Field-sliced access").
type FieldAccessor[T scalar] struct {
	bound      *BoundLayout
	fieldIndex int
	fieldType  FieldType
}

// Field constructs a checked typed accessor for the field at fieldIndex.
// Fails with FieldTypeMismatch if the schema field is not of type T.
// Checked-mode builds call this; unchecked-mode hot paths call
// FieldUnchecked instead to skip the type comparison.
func Field[T scalar](bound *BoundLayout, fieldIndex int) (FieldAccessor[T], error) {
	acc, err := fieldOf[T](bound, fieldIndex)
	if err != nil {
		return FieldAccessor[T]{}, err
	}
	if !matchesGoType[T](acc.fieldType) {
		return FieldAccessor[T]{}, errs.New(errs.CodeFieldTypeMismatch, "requested accessor type does not match schema field type").
			WithContext("fieldIndex", fieldIndex).WithContext("schemaType", acc.fieldType)
	}
	return acc, nil
}

// FieldUnchecked constructs a typed accessor without verifying that T
// matches the schema's declared field type. Intended for generated,
// already-validated hot-path code (spec §4.2 "unchecked-mode builds").
func FieldUnchecked[T scalar](bound *BoundLayout, fieldIndex int) (FieldAccessor[T], error) {
	return fieldOf[T](bound, fieldIndex)
}

func fieldOf[T scalar](bound *BoundLayout, fieldIndex int) (FieldAccessor[T], error) {
	if fieldIndex < 0 || fieldIndex >= bound.layout.schema.Len() {
		return FieldAccessor[T]{}, errs.New(errs.CodeIndexOutOfBounds, "field index out of bounds").
			WithContext("fieldIndex", fieldIndex)
	}
	return FieldAccessor[T]{
		bound:      bound,
		fieldIndex: fieldIndex,
		fieldType:  bound.layout.schema.fields[fieldIndex].Type,
	}, nil
}

func matchesGoType[T scalar](t FieldType) bool {
	var zero T
	switch any(zero).(type) {
	case int8:
		return t == Int8
	case int16:
		return t == Int16
	case int32:
		return t == Int32
	case int64:
		return t == Int64
	case uint8:
		return t == UInt8
	case uint16:
		return t == UInt16
	case uint32:
		return t == UInt32
	case uint64:
		return t == UInt64
	case float32:
		return t == Float32
	case float64:
		return t == Float64
	case bool:
		return t == Bool
	default:
		return false
	}
}

// Get returns the value of this field for the tuple at tupleIndex. Fails
// with IndexOutOfBounds if tupleIndex >= tupleCount.
func (a FieldAccessor[T]) Get(tupleIndex int) (T, error) {
	var zero T
	if tupleIndex < 0 || uint64(tupleIndex) >= a.bound.buf.TupleCount() {
		return zero, errs.New(errs.CodeIndexOutOfBounds, "tuple index out of bounds").
			WithContext("tupleIndex", tupleIndex)
	}
	off := a.bound.offsetOf(a.fieldIndex, tupleIndex)
	sz := a.fieldType.Size()
	raw := a.bound.buf.Bytes()[off : off+sz]
	return readField(raw, a.fieldType).(T), nil
}

// Set writes the value of this field for the tuple at tupleIndex. Fails
// with IndexOutOfBounds if tupleIndex >= tupleCount: Set may only
// overwrite an already-pushed record, it does not grow the buffer.
func (a FieldAccessor[T]) Set(tupleIndex int, value T) error {
	if tupleIndex < 0 || uint64(tupleIndex) >= a.bound.buf.TupleCount() {
		return errs.New(errs.CodeIndexOutOfBounds, "tuple index out of bounds").
			WithContext("tupleIndex", tupleIndex)
	}
	off := a.bound.offsetOf(a.fieldIndex, tupleIndex)
	sz := a.fieldType.Size()
	raw := a.bound.buf.Bytes()[off : off+sz]
	return writeField(raw, a.fieldType, value)
}
