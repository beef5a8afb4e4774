// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fastahx

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func int64p(v int64) *int64 { return &v }

// TestSliceString exercises the worked seq1/seq2 example from the end-to-end
// test table against a materialized sequence directly.
func TestSliceString(t *testing.T) {
	t.Parallel()

	const seq1 = "ACTGACTGAC"
	const seq2 = "GTCG"

	testCases := []struct {
		name        string
		s           string
		start, stop *int64
		step        int64
		want        string
	}{
		{"seq1[0:2]", seq1, int64p(0), int64p(2), 1, "AC"},
		{"seq1[2:6]", seq1, int64p(2), int64p(6), 1, "TGAC"},
		{"seq2[:100]", seq2, nil, int64p(100), 1, "GTCG"},
		{"seq2[::-1]", seq2, nil, nil, -1, "GCTG"},
		{"seq1[::2]", seq1, nil, nil, 2, "ATATA"},
		{"seq1[4:4]", seq1, int64p(4), int64p(4), 1, ""},
		{"seq1[6:4]", seq1, int64p(6), int64p(4), 1, ""},
		{"seq1[15:20]", seq1, int64p(15), int64p(20), 1, ""},
		{"seq1[-1:4:-1]", seq1, int64p(-1), int64p(4), -1, "CAGTC"},
		{"seq1 full via nils", seq1, nil, nil, 1, seq1},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := sliceString(tc.s, tc.start, tc.stop, tc.step)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("sliceString (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestApplyStep(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		s    string
		step int64
		want string
	}{
		{"step 1 is identity", "ACTGACTGAC", 1, "ACTGACTGAC"},
		{"step 2", "ACTGACTGAC", 2, "ATATA"},
		{"step -1 reverses", "GTCG", -1, "GCTG"},
		{"step -2", "ACTGACTGAC", -2, "CGCGC"},
		{"empty string", "", 3, ""},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := applyStep(tc.s, tc.step)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("applyStep (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestNormalizeRange(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		length      int64
		start, stop *int64
		step        int64
		wantStart   int64
		wantStop    int64
		wantEmpty   bool
	}{
		{"defaults forward", 10, nil, nil, 1, 0, 10, false},
		{"defaults backward", 10, nil, nil, -1, 0, 10, false},
		{"empty equal bounds", 10, int64p(4), int64p(4), 1, 0, 0, true},
		{"empty reversed forward step", 10, int64p(6), int64p(4), 1, 0, 0, true},
		{"out of range clamps to empty", 10, int64p(15), int64p(20), 1, 0, 0, true},
		{"negative start swapped for reverse step", 10, int64p(-1), int64p(4), -1, 5, 10, false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			startV, stopV, empty := normalizeRange(tc.length, tc.start, tc.stop, tc.step)
			if diff := cmp.Diff(tc.wantEmpty, empty); diff != "" {
				t.Fatalf("empty (-want, +got):\n%s", diff)
			}
			if empty {
				return
			}
			if diff := cmp.Diff(tc.wantStart, startV); diff != "" {
				t.Errorf("startV (-want, +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.wantStop, stopV); diff != "" {
				t.Errorf("stopV (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestStripTerminators(t *testing.T) {
	t.Parallel()

	got := stripTerminators([]byte("ACTG\nACTG\r\nAC\n"))
	want := "ACTGACTGAC"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("stripTerminators (-want, +got):\n%s", diff)
	}
}

func TestParseRecordBlock(t *testing.T) {
	t.Parallel()

	rec, err := parseRecordBlock([]byte(">seq1 a description\nACTG\nACTG\nAC\n"))
	if err != nil {
		t.Fatalf("parseRecordBlock: %v", err)
	}
	if diff := cmp.Diff("seq1", rec.ID()); diff != "" {
		t.Errorf("ID (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff("a description", rec.Description()); diff != "" {
		t.Errorf("Description (-want, +got):\n%s", diff)
	}
	seq, err := rec.Sequence()
	if err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	if diff := cmp.Diff("ACTGACTGAC", seq); diff != "" {
		t.Errorf("Sequence (-want, +got):\n%s", diff)
	}
}

func TestParseRecordBlockMissingHeader(t *testing.T) {
	t.Parallel()

	_, err := parseRecordBlock([]byte("ACTGACTGAC\n"))
	if err == nil {
		t.Fatal("parseRecordBlock: want error for a block missing its header line")
	}
}
