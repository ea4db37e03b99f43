// File: network/location.go
// Package network implements the partition-addressed wire protocol
// between worker nodes: producer-side channels with registration retry,
// and a single-threaded receiver reactor per node (spec §4.4).
// Author: nebulastream/streamcore contributors
// License: Apache-2.0
package network

import (
	"fmt"
	"net"
)

// NodeLocation is the physical endpoint hosting one or more partitions
// (spec §3 "Node Location").
type NodeLocation struct {
	NodeID   uint64
	Host     string
	DataPort int
}

// Address returns the host:port form suitable for net.Dial.
func (n NodeLocation) Address() string {
	return net.JoinHostPort(n.Host, fmt.Sprintf("%d", n.DataPort))
}
