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

package bgzf

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// readAllBlocks decodes every block in data, in order, concatenating their
// payloads, stopping at the first empty (EOF-marker) block.
func readAllBlocks(t *testing.T, data []byte) []byte {
	t.Helper()

	r := bytes.NewReader(data)
	var out bytes.Buffer
	for {
		block, err := ReadBlock(r, nil)
		if err != nil {
			t.Fatalf("ReadBlock: %v", err)
		}
		if len(block) == 0 {
			break
		}
		out.Write(block)
	}
	return out.Bytes()
}

func TestWriterRoundTrip(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"single short write", "ACTG\nACTG\nAC\n"},
		{"content larger than one block", strings.Repeat("ACTG\n", 20000)},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			w := NewWriter(&buf)
			if _, err := w.Write([]byte(tc.content)); err != nil {
				t.Fatalf("Write: %v", err)
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			got := readAllBlocks(t, buf.Bytes())
			if diff := cmp.Diff(tc.content, string(got)); diff != "" {
				t.Errorf("round trip (-want, +got):\n%s", diff)
			}
		})
	}
}

// TestWriterBlockBoundaryNewline covers the case where the candidate block's
// last byte is itself the split newline: the remainder after flushing must
// be empty, carrying no stray partial line into the next block.
func TestWriterBlockBoundaryNewline(t *testing.T) {
	t.Parallel()

	content := strings.Repeat("A", UncompressedPayloadBound-1) + "\n" + "more data after the boundary\n"

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := readAllBlocks(t, buf.Bytes())
	if diff := cmp.Diff(content, string(got)); diff != "" {
		t.Errorf("round trip (-want, +got):\n%s", diff)
	}
}

func TestWriterClosedRejectsWrite(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if _, err := w.Write([]byte("ACTG\n")); err == nil {
		t.Fatal("Write: want error after Close")
	}
}

func TestWriterCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
