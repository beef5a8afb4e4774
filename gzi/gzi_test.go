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

package gzi

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriteReadRoundTrip(t *testing.T) {
	t.Parallel()

	blocks := []Block{
		{CompressedOffset: 18, UncompressedOffset: 65485},
		{CompressedOffset: 40, UncompressedOffset: 130970},
	}

	var buf bytes.Buffer
	if err := Write(&buf, blocks); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	want := append([]Block{{CompressedOffset: 0, UncompressedOffset: 0}}, blocks...)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Read (-want, +got):\n%s", diff)
	}
}

func TestReadEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, nil); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}

	want := []Block{{CompressedOffset: 0, UncompressedOffset: 0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Read (-want, +got):\n%s", diff)
	}
}

func TestReadTruncated(t *testing.T) {
	t.Parallel()

	_, err := Read(bytes.NewReader([]byte{0x01}))
	if err == nil {
		t.Fatal("Read: want error for truncated count field")
	}
}
