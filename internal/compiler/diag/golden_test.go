// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package diag

import (
	"bufio"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/tools/txtar"
)

// lineMapFixtures holds several named source texts plus the
// offset/line/column triples GetLocation must return for each,
// archived together the way the teacher's testdata directories bundle
// golden cases into one txtar file rather than one file per case.
const lineMapFixtures = `
-- blank-lines.sc --
one
two

four
-- cases.txt --
0 1 1
4 2 1
9 4 1
-- crlf-ish.sc --
a; b; c
-- cases.txt --
0 1 1
3 1 4
6 1 7
`

func TestGetLocationAgainstGoldenFixtures(t *testing.T) {
	archive := txtar.Parse([]byte(lineMapFixtures))

	var source string
	for _, f := range archive.Files {
		switch {
		case strings.HasSuffix(f.Name, ".sc"):
			source = string(f.Data)
		case f.Name == "cases.txt":
			if source == "" {
				t.Fatalf("cases.txt appeared before its source fixture")
			}
			r := NewReporter(source)
			runGoldenCases(t, r, f.Data)
			source = ""
		}
	}
}

func runGoldenCases(t *testing.T, r *Reporter, data []byte) {
	t.Helper()
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			t.Fatalf("malformed golden case line %q", line)
		}
		offset, err := strconv.Atoi(fields[0])
		if err != nil {
			t.Fatalf("bad offset in %q: %v", line, err)
		}
		wantLine, _ := strconv.Atoi(fields[1])
		wantCol, _ := strconv.Atoi(fields[2])

		got := r.GetLocation(offset)
		if got.Line != wantLine || got.Column != wantCol {
			t.Errorf("GetLocation(%d) = line %d col %d, want line %d col %d", offset, got.Line, got.Column, wantLine, wantCol)
		}
	}
}
