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
	"fmt"
	"io"

	"github.com/twrightsman/fastahx/gzi"
)

// BuildIndex walks src, a BGZF stream, from its beginning, and writes a GZI
// index of block boundaries to dst. Building the index only parses block
// headers and trailers; it never inflates block payloads. The redundant
// leading (0, 0) entry and the trailing EOF-marker block are both omitted
// from the written index, matching the samtools .gzi convention.
func BuildIndex(src io.ReadSeeker, dst io.Writer) error {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("bgzf: seeking to start: %w", err)
	}

	var blocks []gzi.Block
	var compressedOffset, uncompressedOffset int64

	for {
		raw, err := readRawBlock(src)
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("bgzf: indexing: %w", err)
		}

		blocks = append(blocks, gzi.Block{
			CompressedOffset:   compressedOffset,
			UncompressedOffset: uncompressedOffset,
		})

		uncompressedOffset += int64(raw.isize)
		compressedOffset += raw.length
	}

	// Discard the first (redundant, always (0, 0)) and last (EOF marker)
	// entries.
	if len(blocks) >= 2 {
		blocks = blocks[1 : len(blocks)-1]
	} else {
		blocks = nil
	}

	if err := gzi.Write(dst, blocks); err != nil {
		return fmt.Errorf("bgzf: writing index: %w", err)
	}
	return nil
}
