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

package zstdframe

import (
	"bytes"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/zstd"

	"github.com/twrightsman/fastahx/gzi"
)

// encodeFrame compresses content into a single, standalone ZSTD frame.
func encodeFrame(t *testing.T, content []byte) []byte {
	t.Helper()

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatalf("zstd.NewWriter: %v", err)
	}
	defer enc.Close()
	return enc.EncodeAll(content, nil)
}

func TestIsZstd(t *testing.T) {
	t.Parallel()

	frame := encodeFrame(t, []byte("ACTG\nACTG\nAC\n"))

	testCases := []struct {
		name string
		data []byte
		want bool
	}{
		{"zstd frame", frame, true},
		{"not zstd", []byte("ACTGACTG"), false},
		{"empty", nil, false},
		{"too short", frame[:2], false},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := bytes.NewReader(tc.data)
			got, err := IsZstd(r)
			if err != nil {
				t.Fatalf("IsZstd: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("IsZstd (-want, +got):\n%s", diff)
			}

			pos, err := r.Seek(0, io.SeekCurrent)
			if err != nil {
				t.Fatalf("Seek: %v", err)
			}
			if diff := cmp.Diff(int64(0), pos); diff != "" {
				t.Errorf("position after IsZstd (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestReadFrame(t *testing.T) {
	t.Parallel()

	content := []byte("ACTG\nACTG\nAC\n")
	frame := encodeFrame(t, content)

	// Append a second frame to confirm ReadFrame stops at the first one's
	// boundary and leaves the stream positioned at the start of the next.
	second := encodeFrame(t, []byte(">seq2\nGTCG\n"))
	r := bytes.NewReader(append(append([]byte{}, frame...), second...))

	got, err := ReadFrame(r)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if diff := cmp.Diff(content, got); diff != "" {
		t.Errorf("ReadFrame (-want, +got):\n%s", diff)
	}

	pos, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if diff := cmp.Diff(int64(len(frame)), pos); diff != "" {
		t.Errorf("position after ReadFrame (-want, +got):\n%s", diff)
	}

	got2, err := ReadFrame(r)
	if err != nil {
		t.Fatalf("ReadFrame (second): %v", err)
	}
	if diff := cmp.Diff([]byte(">seq2\nGTCG\n"), got2); diff != "" {
		t.Errorf("ReadFrame second (-want, +got):\n%s", diff)
	}
}

func TestDecompressBuffer(t *testing.T) {
	t.Parallel()

	content := []byte("ACTG\nACTG\nAC\n")
	frame := encodeFrame(t, content)

	got, err := DecompressBuffer(frame)
	if err != nil {
		t.Fatalf("DecompressBuffer: %v", err)
	}
	if diff := cmp.Diff(content, got); diff != "" {
		t.Errorf("DecompressBuffer (-want, +got):\n%s", diff)
	}
}

func TestBuildIndex(t *testing.T) {
	t.Parallel()

	first := []byte(">seq1\nACTGACTGAC\n")
	second := []byte(">seq2\nGTCG\n")
	stream := append(append([]byte{}, encodeFrame(t, first)...), encodeFrame(t, second)...)

	var indexBuf bytes.Buffer
	if err := BuildIndex(bytes.NewReader(stream), &indexBuf); err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	blocks, err := gzi.Read(&indexBuf)
	if err != nil {
		t.Fatalf("gzi.Read: %v", err)
	}

	want := []gzi.Block{
		{CompressedOffset: 0, UncompressedOffset: 0},
		{CompressedOffset: int64(len(encodeFrame(t, first))), UncompressedOffset: int64(len(first))},
	}
	if diff := cmp.Diff(want, blocks); diff != "" {
		t.Errorf("blocks (-want, +got):\n%s", diff)
	}

	// The index must let DecompressBuffer reconstruct each frame's own
	// span of the uncompressed stream.
	secondCompressed := stream[blocks[1].CompressedOffset:]
	gotSecond, err := DecompressBuffer(secondCompressed)
	if err != nil {
		t.Fatalf("DecompressBuffer: %v", err)
	}
	if diff := cmp.Diff(second, gotSecond); diff != "" {
		t.Errorf("second frame content (-want, +got):\n%s", diff)
	}
}

func TestBuildIndexEmptyStream(t *testing.T) {
	t.Parallel()

	var indexBuf bytes.Buffer
	if err := BuildIndex(bytes.NewReader(nil), &indexBuf); err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}

	blocks, err := gzi.Read(&indexBuf)
	if err != nil {
		t.Fatalf("gzi.Read: %v", err)
	}
	want := []gzi.Block{{CompressedOffset: 0, UncompressedOffset: 0}}
	if diff := cmp.Diff(want, blocks); diff != "" {
		t.Errorf("blocks (-want, +got):\n%s", diff)
	}
}
