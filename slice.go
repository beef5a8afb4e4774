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
	"fmt"
	"strings"
)

// normalizeRange resolves a general slice (start, stop, step), any of
// whose bounds may be nil, against a sequence of the given length into a
// concrete, non-negative [startV, stopV) index range with step already
// accounted for in its orientation (reversed ranges are swapped to read
// forward; the caller applies step's actual striding afterward). empty is
// true when the resulting range selects nothing.
//
// This function backs both FASTAFile.Fetch (applied to base coordinates)
// and the materialized-record fast path (applied directly to a cached
// sequence string), so that a record's indexing behaves identically
// whether or not it has been materialized.
func normalizeRange(length int64, start, stop *int64, step int64) (startV, stopV int64, empty bool) {
	if start == nil {
		if step > 0 {
			startV = 0
		} else {
			startV = length - 1
		}
	} else {
		startV = clampBound(*start, length)
	}

	if stop == nil {
		if step > 0 {
			stopV = length
		} else {
			stopV = -1
		}
	} else {
		stopV = clampBound(*stop, length)
	}

	if startV == stopV {
		return 0, 0, true
	}
	if step > 0 && startV > stopV {
		return 0, 0, true
	}
	if step < 0 && startV < stopV {
		return 0, 0, true
	}

	if startV > stopV {
		startV, stopV = stopV+1, startV+1
	}
	return startV, stopV, false
}

// clampBound normalizes a negative index relative to length, then clamps
// the result to [-1, length], the "-1" sentinel standing for "one before
// the first element" for reverse-slice purposes.
func clampBound(v, length int64) int64 {
	if v < 0 {
		v += length
	}
	if v < -1 {
		v = -1
	}
	if v > length {
		v = length
	}
	return v
}

// applyStep strides over s by step, which must be non-zero; a negative
// step reads s from its end backward. s is expected to already be
// oriented so that striding forward (for step > 0) or backward (for
// step < 0) from its natural byte order produces the correct result,
// matching normalizeRange's startV/stopV swap for reversed ranges.
func applyStep(s string, step int64) string {
	if step == 1 {
		return s
	}

	b := []byte(s)
	out := make([]byte, 0, (len(b)+1)/absInt64(step))
	if step > 0 {
		for i := int64(0); i < int64(len(b)); i += step {
			out = append(out, b[i])
		}
	} else {
		for i := int64(len(b)) - 1; i >= 0; i += step {
			out = append(out, b[i])
		}
	}
	return string(out)
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// sliceString applies a general slice directly to an already-materialized
// sequence, using the same range semantics as FASTAFile.Fetch.
func sliceString(s string, start, stop *int64, step int64) string {
	startV, stopV, empty := normalizeRange(int64(len(s)), start, stop, step)
	if empty {
		return ""
	}
	return applyStep(s[startV:stopV], step)
}

// stripTerminators removes embedded line terminators from a raw record
// byte range read from the backing stream.
func stripTerminators(data []byte) string {
	out := make([]byte, 0, len(data))
	for _, c := range data {
		if c != '\n' && c != '\r' {
			out = append(out, c)
		}
	}
	return string(out)
}

// parseRecordBlock parses one full record's worth of raw bytes (a leading
// ">id description\n" header line followed by wrapped sequence lines) as
// produced by a FAI-bounded read, into a materialized FASTARecord.
func parseRecordBlock(raw []byte) (*FASTARecord, error) {
	lines := strings.Split(string(raw), "\n")
	if len(lines) == 0 || !strings.HasPrefix(lines[0], ">") {
		return nil, fmt.Errorf("%w: record block is missing its header line", ErrFormat)
	}

	fields := strings.Split(lines[0][1:], " ")
	seqid := fields[0]
	description := strings.Join(fields[1:], " ")
	sequence := strings.Join(lines[1:], "")

	return newMaterializedRecord(seqid, description, sequence), nil
}
