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
	"sort"

	"github.com/twrightsman/fastahx/bgzf"
	"github.com/twrightsman/fastahx/gzi"
)

// gziStartIndex returns the index of the GZI block that contains
// uncompressed byteStart. bgzfBound, true only for BGZF (never ZSTD,
// whose frames have no fixed maximum size), seeds the search with a lower
// bound derived from BGZF's fixed maximum uncompressed block size, turning
// the search closer to O(1) for files with many blocks.
//
// Mirrors a bisect_left-and-step-back search: when byteStart lands exactly
// on a block boundary, the search intentionally resolves to that same
// block (not one before it) only when it is the very first candidate;
// otherwise it lands one block early. This matches the reference
// implementation's own off-by-one behavior at exact boundaries, which is
// harmless (the caller reads one extra block's worth of bytes) and is
// reproduced here for parity rather than "fixed".
func gziStartIndex(blocks []gzi.Block, byteStart int64, bgzfBound bool) int {
	lo := 0
	if bgzfBound {
		lo = int(byteStart / bgzf.MaxBlockSize)
		if lo > len(blocks) {
			lo = len(blocks)
		}
	}

	idx := lo + sort.Search(len(blocks)-lo, func(i int) bool {
		return blocks[lo+i].UncompressedOffset >= byteStart
	})

	start := idx - 1
	if start < 0 {
		start = 0
	}
	return start
}

// gziStopIndex returns the exclusive end index of the span of GZI blocks
// covering [byteStart, byteStart+byteLen), given the span's start index as
// already located by gziStartIndex.
func gziStopIndex(blocks []gzi.Block, byteStart, byteLen int64, startIdx int) int {
	stop := startIdx + 1
	target := byteStart + byteLen
	for stop < len(blocks) && blocks[stop].UncompressedOffset < target {
		stop++
	}
	return stop
}
