// File: buffer/align.go
// Author: nebulastream/streamcore contributors
// License: Apache-2.0

package buffer

import "unsafe"

// uintptrOf returns the address of buf's backing array for alignment
// arithmetic. The slice is never reallocated after this point, so the
// address remains stable for the arena's lifetime.
func uintptrOf(buf []byte) uintptr {
	if len(buf) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&buf[0]))
}
