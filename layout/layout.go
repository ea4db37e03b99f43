// File: layout/layout.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0

package layout

import (
	"github.com/nebulastream/streamcore/buffer"
	"github.com/nebulastream/streamcore/errs"
)

type arrangement int

const (
	rowArrangement arrangement = iota
	columnArrangement
)

// Layout is a derived view pairing a Schema with a chosen physical
// arrangement (spec §3 "Memory Layout"). It does not itself hold any
// buffer; binding to one produces a BoundLayout.
type Layout struct {
	schema *Schema
	kind   arrangement
}

// NewRowLayout builds a row-oriented layout: field i of tuple k lives at
// offset k*rowStride + fieldOffset[i].
func NewRowLayout(schema *Schema) *Layout {
	return &Layout{schema: schema, kind: rowArrangement}
}

// NewColumnLayout builds a column-oriented layout: field i of tuple k
// lives at offset columnBase[i] + k*fieldSize[i].
func NewColumnLayout(schema *Schema) *Layout {
	return &Layout{schema: schema, kind: columnArrangement}
}

// Schema returns the layout's backing schema.
func (l *Layout) Schema() *Schema { return l.schema }

// Bind couples the layout with a specific buffer, producing a BoundLayout.
// Fails with SchemaSizeMismatch if the buffer cannot hold at least one
// full record under this layout's row stride (spec §4.2).
func (l *Layout) Bind(buf *buffer.Buffer) (*BoundLayout, error) {
	stride := l.schema.SizeInBytes()
	if stride <= 0 {
		return nil, errs.New(errs.CodeSchemaSizeMismatch, "schema has zero row stride")
	}
	capacity := buf.Size() / stride
	if capacity < 1 {
		return nil, errs.New(errs.CodeSchemaSizeMismatch, "buffer too small for one record of this schema").
			WithContext("bufferSize", buf.Size()).WithContext("rowStride", stride)
	}

	bl := &BoundLayout{
		layout:   l,
		buf:      buf,
		capacity: capacity,
		stride:   stride,
	}
	if l.kind == columnArrangement {
		bl.columnBase = make([]int, l.schema.Len())
		base := 0
		for i, f := range l.schema.Fields() {
			bl.columnBase[i] = base
			base += f.Type.Size() * capacity
		}
	}
	return bl, nil
}

// BoundLayout couples a Layout with a specific tuple buffer, enabling
// typed record and field access (spec §3 "bound layout").
type BoundLayout struct {
	layout     *Layout
	buf        *buffer.Buffer
	capacity   int
	stride     int
	columnBase []int // only populated for column arrangement
}

// Capacity returns the maximum number of records this binding can hold.
// For column layout this is recomputed on bind, not cached at
// construction, because buffer size may differ from the schema's
// default assumption (spec §4.2 edge case).
func (b *BoundLayout) Capacity() int { return b.capacity }

// Schema returns the bound schema.
func (b *BoundLayout) Schema() *Schema { return b.layout.schema }

func (b *BoundLayout) offsetOf(fieldIndex, tupleIndex int) int {
	f := b.layout.schema.fields[fieldIndex]
	if b.layout.kind == rowArrangement {
		return tupleIndex*b.stride + b.layout.schema.FieldOffsetRow(fieldIndex)
	}
	return b.columnBase[fieldIndex] + tupleIndex*f.Type.Size()
}
