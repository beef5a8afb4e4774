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
	"fmt"
)

// FASTARecord is a single FASTA record: an id, an optional free-text
// description, and a sequence. A record obtained from FASTAFile.Record is
// lazy: its sequence is read from the backing file on demand, one slice at
// a time, until Sequence is called, at which point it materializes fully
// and detaches from its owning file. A record produced by iteration is
// already materialized, since iteration reads every record's full
// sequence as it advances.
type FASTARecord struct {
	id          string
	description string

	sequence     string
	materialized bool

	file *FASTAFile
}

func newMaterializedRecord(id, description, sequence string) *FASTARecord {
	return &FASTARecord{id: id, description: description, sequence: sequence, materialized: true}
}

func newLazyRecord(file *FASTAFile, id string) *FASTARecord {
	return &FASTARecord{id: id, file: file}
}

// ID returns the record's sequence id.
func (r *FASTARecord) ID() string {
	return r.id
}

// Description returns the record's free-text description, the remainder
// of its header line after the id, or "" if it has none. A record obtained
// via FASTAFile.Record is built from the FAI index alone and never carries
// a description, since random access never reads a record's header line;
// only a record produced by iteration has one.
func (r *FASTARecord) Description() string {
	return r.description
}

// Len returns the number of bases in the record, without reading or
// materializing its sequence for a lazy record.
func (r *FASTARecord) Len() (int64, error) {
	if r.materialized {
		return int64(len(r.sequence)), nil
	}
	entry, ok := r.file.Index().Get(r.id)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, r.id)
	}
	return entry.Length, nil
}

// Sequence returns the record's full sequence, reading and caching it (and
// detaching from the owning file) on a lazy record's first call.
func (r *FASTARecord) Sequence() (string, error) {
	if r.materialized {
		return r.sequence, nil
	}

	seq, err := r.file.Fetch(r.id, nil, nil, 1)
	if err != nil {
		return "", err
	}

	r.sequence = seq
	r.materialized = true
	r.file = nil
	return r.sequence, nil
}

// At returns the single base at base coordinate i, which may be negative
// to count from the end of the record.
func (r *FASTARecord) At(i int64) (string, error) {
	length, err := r.Len()
	if err != nil {
		return "", err
	}
	if i >= length || i < -length {
		return "", fmt.Errorf("%w: sequence index %d out of range for a record of length %d", ErrArgument, i, length)
	}
	if i < 0 {
		i += length
	}

	start, stop := i, i+1
	return r.slice(&start, &stop, 1)
}

// Slice returns the subsequence selected by start, stop, and step; start
// and stop may be nil to mean "the beginning" or "the end" (oriented by
// step's sign). step must be non-zero.
func (r *FASTARecord) Slice(start, stop *int64, step int64) (string, error) {
	if step == 0 {
		return "", fmt.Errorf("%w: slice step cannot be zero", ErrArgument)
	}
	return r.slice(start, stop, step)
}

func (r *FASTARecord) slice(start, stop *int64, step int64) (string, error) {
	if r.materialized {
		return sliceString(r.sequence, start, stop, step), nil
	}
	return r.file.Fetch(r.id, start, stop, step)
}

// recordState is the Gob-serializable snapshot of a FASTARecord: its
// materialized sequence, since a lazy record's backing file cannot itself
// be serialized.
type recordState struct {
	ID          string
	Description string
	Sequence    string
}

// GobEncode implements gob.GobEncoder. It first materializes the record's
// sequence, same as Sequence, so the encoded record no longer depends on
// its owning file.
func (r *FASTARecord) GobEncode() ([]byte, error) {
	seq, err := r.Sequence()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	state := recordState{ID: r.id, Description: r.description, Sequence: seq}
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, fmt.Errorf("%w: encoding: %w", ErrFastahx, err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder, restoring an already-materialized
// record.
func (r *FASTARecord) GobDecode(data []byte) error {
	var state recordState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return fmt.Errorf("%w: decoding: %w", ErrFastahx, err)
	}

	r.id = state.ID
	r.description = state.Description
	r.sequence = state.Sequence
	r.materialized = true
	r.file = nil
	return nil
}
