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

// Package gzi reads and writes the little-endian binary GZI index format:
// a block count followed by that many (compressed_offset, uncompressed_offset)
// pairs. This is the wire format samtools/htslib uses for its .gzi sidecar
// files, and this package is byte-compatible with it.
package gzi

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Block is one entry in a GZI index: the byte offset of a block's start in
// the compressed stream, and the cumulative count of uncompressed bytes
// preceding that block.
type Block struct {
	CompressedOffset   int64
	UncompressedOffset int64
}

// Write encodes blocks, exactly as given, as a GZI file. Callers leave out
// the leading implicit (0, 0) entry; Read prepends it back on load.
func Write(w io.Writer, blocks []Block) error {
	if err := binary.Write(w, binary.LittleEndian, uint64(len(blocks))); err != nil {
		return fmt.Errorf("gzi: writing count: %w", err)
	}
	for _, b := range blocks {
		pair := [2]uint64{uint64(b.CompressedOffset), uint64(b.UncompressedOffset)}
		if err := binary.Write(w, binary.LittleEndian, pair); err != nil {
			return fmt.Errorf("gzi: writing block: %w", err)
		}
	}
	return nil
}

// Read decodes a GZI file, prepending the implicit leading (0, 0) entry that
// every GZI index starts with.
func Read(r io.Reader) ([]Block, error) {
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("gzi: reading count: %w", err)
	}

	blocks := make([]Block, 0, count+1)
	blocks = append(blocks, Block{CompressedOffset: 0, UncompressedOffset: 0})
	for i := uint64(0); i < count; i++ {
		var pair [2]uint64
		if err := binary.Read(r, binary.LittleEndian, &pair); err != nil {
			return nil, fmt.Errorf("gzi: reading block %d: %w", i, err)
		}
		blocks = append(blocks, Block{
			CompressedOffset:   int64(pair[0]),
			UncompressedOffset: int64(pair[1]),
		})
	}

	return blocks, nil
}
