// File: pipeline/filter_stage.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
//
// FilterStage is the polymorphic-stage variant that evaluates a
// predicate over a bound layout (spec §8 scenario 5 "filter(id<5)";
// §9 "Dynamic dispatch on stages... FilterStage").

package pipeline

import (
	"github.com/nebulastream/streamcore/buffer"
	"github.com/nebulastream/streamcore/layout"
)

// FilterStage binds Layout to each incoming buffer and evaluates
// Predicate once per tuple. A buffer that has no passing tuples is
// dropped (never forwarded); one with at least one passing tuple is
// forwarded to every successor unmodified, since record removal would
// require a compaction pass this implementation does not perform.
type FilterStage struct {
	Layout    *layout.Layout
	Predicate func(record []any) bool
}

// NewFilterStage builds a FilterStage over l, keeping tuples for which
// predicate returns true.
func NewFilterStage(l *layout.Layout, predicate func(record []any) bool) *FilterStage {
	return &FilterStage{Layout: l, Predicate: predicate}
}

func (f *FilterStage) Setup() error    { return nil }
func (f *FilterStage) TearDown() error { return nil }

// Execute reads every tuple in buf through Layout and forwards buf
// downstream if and only if at least one tuple satisfies Predicate.
func (f *FilterStage) Execute(buf *buffer.Buffer, ctx Context, wc *WorkerContext) ExecutionResult {
	bound, err := f.Layout.Bind(buf)
	if err != nil {
		return Error(err)
	}

	passed := uint64(0)
	count := buf.TupleCount()
	for i := uint64(0); i < count; i++ {
		record, err := bound.ReadRecord(int(i))
		if err != nil {
			return Error(err)
		}
		if f.Predicate(record) {
			passed++
		}
	}
	if passed == 0 {
		return Ok()
	}
	ctx.EmitBuffer(buf, wc)
	return Ok()
}
