// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import "unsafe"

// unsafePointer returns the address of a mmap'd byte slice's backing
// array, used only for page bookkeeping (page-end map keys, slot index
// arithmetic); never dereferenced as a Go pointer.
func unsafePointer(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}
