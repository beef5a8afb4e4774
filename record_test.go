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
	"bytes"
	"encoding/gob"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/twrightsman/fastahx/compression"
)

func TestMaterializedRecordAccessors(t *testing.T) {
	t.Parallel()

	rec := newMaterializedRecord("seq1", "a description", "ACTGACTGAC")

	if diff := cmp.Diff("seq1", rec.ID()); diff != "" {
		t.Errorf("ID (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff("a description", rec.Description()); diff != "" {
		t.Errorf("Description (-want, +got):\n%s", diff)
	}

	length, err := rec.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if diff := cmp.Diff(int64(10), length); diff != "" {
		t.Errorf("Len (-want, +got):\n%s", diff)
	}

	seq, err := rec.Sequence()
	if err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	if diff := cmp.Diff("ACTGACTGAC", seq); diff != "" {
		t.Errorf("Sequence (-want, +got):\n%s", diff)
	}

	at, err := rec.At(1)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if diff := cmp.Diff("C", at); diff != "" {
		t.Errorf("At (-want, +got):\n%s", diff)
	}
}

func TestRecordAtOutOfRange(t *testing.T) {
	t.Parallel()

	rec := newMaterializedRecord("seq1", "", "ACTGACTGAC")

	if _, err := rec.At(10); !errors.Is(err, ErrArgument) {
		t.Errorf("At(10) error = %v, want ErrArgument", err)
	}
	if _, err := rec.At(-11); !errors.Is(err, ErrArgument) {
		t.Errorf("At(-11) error = %v, want ErrArgument", err)
	}
}

func TestRecordSliceZeroStep(t *testing.T) {
	t.Parallel()

	rec := newMaterializedRecord("seq1", "", "ACTGACTGAC")
	if _, err := rec.Slice(nil, nil, 0); !errors.Is(err, ErrArgument) {
		t.Errorf("Slice error = %v, want ErrArgument", err)
	}
}

func TestRecordGobRoundTripMaterialized(t *testing.T) {
	t.Parallel()

	rec := newMaterializedRecord("seq1", "a description", "ACTGACTGAC")

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var decoded FASTARecord
	if err := gob.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if diff := cmp.Diff("seq1", decoded.ID()); diff != "" {
		t.Errorf("ID (-want, +got):\n%s", diff)
	}
	if diff := cmp.Diff("a description", decoded.Description()); diff != "" {
		t.Errorf("Description (-want, +got):\n%s", diff)
	}
	seq, err := decoded.Sequence()
	if err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	if diff := cmp.Diff("ACTGACTGAC", seq); diff != "" {
		t.Errorf("Sequence (-want, +got):\n%s", diff)
	}
}

// TestRecordGobRoundTripLazy confirms that gob-encoding a lazy record
// materializes its sequence first (detaching it from its owning file)
// rather than erroring on a struct with only unexported fields.
func TestRecordGobRoundTripLazy(t *testing.T) {
	t.Parallel()

	path := buildWorkedExample(t, compression.None, true, false)
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	lazy, err := f.Record("seq2")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(lazy); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Close the file to confirm the encoded record no longer depends on it.
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	var decoded FASTARecord
	if err := gob.NewDecoder(&buf).Decode(&decoded); err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if diff := cmp.Diff("seq2", decoded.ID()); diff != "" {
		t.Errorf("ID (-want, +got):\n%s", diff)
	}
	seq, err := decoded.Sequence()
	if err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	if diff := cmp.Diff("GTCG", seq); diff != "" {
		t.Errorf("Sequence (-want, +got):\n%s", diff)
	}
}

// TestRecordIndexEquivalence confirms that a lazy record obtained from
// FASTAFile.Record and the materialized record produced by iterating the
// same file give identical results for every worked-example index and
// slice, whether or not Sequence has been called to materialize the lazy
// one first.
func TestRecordIndexEquivalence(t *testing.T) {
	t.Parallel()

	path := buildWorkedExample(t, compression.None, true, false)
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	lazy, err := f.Record("seq1")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	it, err := f.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	var materialized *FASTARecord
	for it.Scan() {
		if it.Record().ID() == "seq1" {
			materialized = it.Record()
			break
		}
	}
	if err := it.Err(); err != nil {
		t.Fatalf("iteration error: %v", err)
	}
	if materialized == nil {
		t.Fatal("seq1 not found via iteration")
	}

	testCases := []struct {
		name        string
		start, stop *int64
		step        int64
	}{
		{"full", nil, nil, 1},
		{"reverse", nil, nil, -1},
		{"substring", int64p(2), int64p(6), 1},
		{"strided", nil, nil, 2},
		{"reverse with bounds", int64p(-1), int64p(4), -1},
		{"empty", int64p(4), int64p(4), 1},
	}

	// Subtests run in sequence, not in parallel: the final Sequence() check
	// below depends on lazy still being unmaterialized until every Slice
	// case above has run against its lazy (FAI-backed) path.
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			lazyGot, err := lazy.Slice(tc.start, tc.stop, tc.step)
			if err != nil {
				t.Fatalf("lazy.Slice: %v", err)
			}
			materializedGot, err := materialized.Slice(tc.start, tc.stop, tc.step)
			if err != nil {
				t.Fatalf("materialized.Slice: %v", err)
			}
			if diff := cmp.Diff(materializedGot, lazyGot); diff != "" {
				t.Errorf("lazy vs materialized Slice (-materialized, +lazy):\n%s", diff)
			}
		})
	}

	// Sequence must materialize a lazy record to the same content the
	// iterator produced, detaching it from its owning file.
	lazySeq, err := lazy.Sequence()
	if err != nil {
		t.Fatalf("lazy.Sequence: %v", err)
	}
	materializedSeq, err := materialized.Sequence()
	if err != nil {
		t.Fatalf("materialized.Sequence: %v", err)
	}
	if diff := cmp.Diff(materializedSeq, lazySeq); diff != "" {
		t.Errorf("lazy vs materialized Sequence (-materialized, +lazy):\n%s", diff)
	}
}
