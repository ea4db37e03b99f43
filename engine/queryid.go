// File: engine/queryid.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
//
// Query identifiers are caller-supplied uint64s everywhere in this
// package (they travel on the wire as part of partition.NesPartition),
// but a caller that has no natural ID of its own - an ad hoc query
// submitted from a shell or test harness - needs one minted for it.
// GenerateQueryID folds a random UUIDv4 down to 64 bits for that case.

package engine

import (
	"encoding/binary"

	"github.com/google/uuid"

	"github.com/nebulastream/streamcore/pipeline"
)

// GenerateQueryID mints a new query identifier from a random UUID. It
// never returns the zero value, so callers can use 0 as "not yet
// assigned" when deciding whether to call it.
func GenerateQueryID() uint64 {
	for {
		id := uuid.New()
		if v := binary.BigEndian.Uint64(id[:8]); v != 0 {
			return v
		}
	}
}

// SubmitQuery registers plans under a freshly generated query ID and
// returns it, for callers that don't already have one (spec §4.8
// "registerQueryInNodeEngine" assumes the caller names the query; this
// is the convenience path for callers that don't).
func (n *Node) SubmitQuery(plans []*pipeline.Plan) (uint64, error) {
	queryID := GenerateQueryID()
	if err := n.RegisterQueryInNodeEngine(queryID, plans); err != nil {
		return 0, err
	}
	return queryID, nil
}
