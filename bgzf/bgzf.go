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

// Package bgzf implements the Blocked GZIP Format: a concatenation of gzip
// members, each carrying its compressed size in a fixed extra field, which
// permits seeking to arbitrary block boundaries. It also builds the GZI
// index that maps compressed to uncompressed byte offsets across those
// blocks; reading a GZI file is done by package gzi.
package bgzf

import (
	"errors"
	"fmt"
	"io"
)

const (
	// MaxBlockSize is the maximum size, in bytes, of a single BGZF block
	// (header + compressed payload + trailer).
	MaxBlockSize = 65_536

	// UncompressedPayloadBound is the largest uncompressed payload that is
	// guaranteed to fit in a single MaxBlockSize block once compressed,
	// chosen so that deflateBound(payload) + 26 <= MaxBlockSize.
	UncompressedPayloadBound = 65_485

	// blockHeaderLength is the size of the fixed BGZF block header,
	// including the trailing BSIZE field.
	blockHeaderLength = 18

	// blockTrailerLength is the size of the CRC32+ISIZE trailer.
	blockTrailerLength = 8
)

// gzipMagic is the 2-byte magic common to all gzip-family streams.
var gzipMagic = [2]byte{0x1f, 0x8b}

// header is the fixed 16-byte BGZF prefix shared by every block: ID1, ID2,
// CM, FLG, MTIME(4), XFL, OS, XLEN(2)=6, then the 'BC' extra subfield
// header with SLEN(2)=2.
var header = [16]byte{
	0x1f, 0x8b, 0x08, 0x04,
	0x00, 0x00, 0x00, 0x00,
	0x00, 0xff,
	0x06, 0x00,
	0x42, 0x43,
	0x02, 0x00,
}

// ErrCorrupt indicates that a BGZF block's header or trailer could not be
// parsed.
var ErrCorrupt = errors.New("bgzf: corrupt block")

// IsBGZF reports whether stream is positioned at the start of a BGZF block,
// restoring the stream's position afterward.
func IsBGZF(r io.ReadSeeker) (bool, error) {
	return peekPrefix(r, header[:])
}

// IsGzip reports whether stream is positioned at the start of some gzip
// member (BGZF included, since BGZF is a valid gzip stream), restoring the
// stream's position afterward.
func IsGzip(r io.ReadSeeker) (bool, error) {
	return peekPrefix(r, gzipMagic[:])
}

func peekPrefix(r io.ReadSeeker, want []byte) (bool, error) {
	buf := make([]byte, len(want))
	n, err := io.ReadFull(r, buf)
	if _, serr := r.Seek(-int64(n), io.SeekCurrent); serr != nil {
		return false, fmt.Errorf("bgzf: restoring stream position: %w", serr)
	}
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, fmt.Errorf("bgzf: peeking header: %w", err)
	}
	for i, b := range want {
		if buf[i] != b {
			return false, nil
		}
	}
	return true, nil
}
