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
	"compress/flate"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/sirupsen/logrus"
)

// rawBlock is a single parsed BGZF block, prior to inflation.
type rawBlock struct {
	payload []byte // raw deflate data
	crc32   uint32
	isize   uint32
	length  int64 // total on-disk length of the block, header through trailer
}

// readRawBlock reads one BGZF block's header, compressed payload, and
// trailer from the current position of r, without inflating the payload.
func readRawBlock(r io.Reader) (rawBlock, error) {
	head := make([]byte, blockHeaderLength)
	if _, err := io.ReadFull(r, head); err != nil {
		if err == io.EOF {
			return rawBlock{}, io.EOF
		}
		return rawBlock{}, fmt.Errorf("%w: reading block header: %w", ErrCorrupt, err)
	}
	for i, b := range header {
		if head[i] != b {
			return rawBlock{}, fmt.Errorf("%w: unexpected block header bytes", ErrCorrupt)
		}
	}
	bsize := binary.LittleEndian.Uint16(head[blockHeaderLength-2:])

	remaining := make([]byte, int(bsize)+1-blockHeaderLength)
	if _, err := io.ReadFull(r, remaining); err != nil {
		return rawBlock{}, fmt.Errorf("%w: reading block body: %w", ErrCorrupt, err)
	}
	if len(remaining) < blockTrailerLength {
		return rawBlock{}, fmt.Errorf("%w: block shorter than trailer", ErrCorrupt)
	}

	payload := remaining[:len(remaining)-blockTrailerLength]
	trailer := remaining[len(remaining)-blockTrailerLength:]

	return rawBlock{
		payload: payload,
		crc32:   binary.LittleEndian.Uint32(trailer[0:4]),
		isize:   binary.LittleEndian.Uint32(trailer[4:8]),
		length:  int64(bsize) + 1,
	}, nil
}

// ReadBlock reads and decompresses exactly one BGZF block from the current
// position of r. A CRC32 or size mismatch between the block's trailer and
// its decompressed payload is logged as a warning via logger (or the
// package-level standard logger, if logger is nil) and does not prevent the
// decompressed payload from being returned, per the BGZF integrity-warning
// contract.
func ReadBlock(r io.Reader, logger *logrus.Logger) ([]byte, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	raw, err := readRawBlock(r)
	if err != nil {
		return nil, err
	}

	fr := flate.NewReader(bytes.NewReader(raw.payload))
	defer fr.Close()
	payload, err := io.ReadAll(fr)
	if err != nil {
		return nil, fmt.Errorf("%w: inflating block: %w", ErrCorrupt, err)
	}

	if crc32.ChecksumIEEE(payload) != raw.crc32 {
		logger.Warn("bgzf: block CRC32 failed to validate")
	}
	if uint32(len(payload)) != raw.isize {
		logger.Warn("bgzf: block data size does not match metadata")
	}

	return payload, nil
}

// DecompressBuffer decompresses a buffer containing one or more
// concatenated BGZF (or plain gzip) members, as produced by reading a
// contiguous compressed byte range spanning multiple blocks. Unlike
// ReadBlock, corruption here is fatal: this path is used to serve random
// fetches, where a silently wrong answer is worse than a hard failure.
func DecompressBuffer(data []byte) ([]byte, error) {
	gr, err := newMultistreamGzipReader(data)
	if err != nil {
		return nil, fmt.Errorf("%w: opening compressed buffer: %w", ErrCorrupt, err)
	}
	defer gr.Close()

	out, err := io.ReadAll(gr)
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing buffer: %w", ErrCorrupt, err)
	}
	return out, nil
}
