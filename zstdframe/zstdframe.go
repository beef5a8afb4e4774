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

// Package zstdframe treats a ZSTD-compressed stream as a sequence of
// independent frames, the ZSTD analog of a BGZF block, and builds a
// GZI-shaped index across them. It is a thin layer over
// github.com/klauspost/compress/zstd. ReadFrame and BuildIndex never hand the
// decoder more than one frame's worth of bytes at a time, so that frame
// boundaries stay visible to the index builder instead of being hidden
// behind the decoder's own multi-frame streaming; DecompressBuffer and
// LineIterator decode across frame boundaries.
package zstdframe

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/twrightsman/fastahx/gzi"
)

// frameMagic is the 4-byte ZSTD frame magic number.
var frameMagic = [4]byte{0x28, 0xb5, 0x2f, 0xfd}

// ErrCorrupt indicates that a ZSTD frame could not be parsed or decoded.
var ErrCorrupt = errors.New("zstdframe: corrupt frame")

var dictIDLength = [4]int{0, 1, 2, 4}

// IsZstd reports whether r is positioned at the start of a ZSTD frame,
// restoring the stream's position afterward.
func IsZstd(r io.ReadSeeker) (bool, error) {
	buf := make([]byte, len(frameMagic))
	n, err := io.ReadFull(r, buf)
	if _, serr := r.Seek(-int64(n), io.SeekCurrent); serr != nil {
		return false, fmt.Errorf("zstdframe: restoring stream position: %w", serr)
	}
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, fmt.Errorf("zstdframe: peeking magic: %w", err)
	}
	return bytes.Equal(buf, frameMagic[:]), nil
}

// frameHeader describes the parsed header of one ZSTD frame.
type frameHeader struct {
	headerLength int64
	checksumFlag bool
	contentSize  int64
	contentKnown bool
}

// parseFrameHeader reads a frame's header (magic number through frame
// content size field) from r, without reading any block data.
func parseFrameHeader(r io.Reader) (frameHeader, error) {
	var h frameHeader

	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return h, fmt.Errorf("%w: reading magic number: %w", ErrCorrupt, err)
	}
	if !bytes.Equal(magic, frameMagic[:]) {
		return h, fmt.Errorf("%w: bad magic number", ErrCorrupt)
	}
	h.headerLength += 4

	var fhd [1]byte
	if _, err := io.ReadFull(r, fhd[:]); err != nil {
		return h, fmt.Errorf("%w: reading frame header descriptor: %w", ErrCorrupt, err)
	}
	h.headerLength++

	fcsFlag := fhd[0] >> 6
	singleSegment := fhd[0]&(1<<5) != 0
	h.checksumFlag = fhd[0]&(1<<2) != 0
	dictIDFlag := fhd[0] & 0x3

	if !singleSegment {
		var wd [1]byte
		if _, err := io.ReadFull(r, wd[:]); err != nil {
			return h, fmt.Errorf("%w: reading window descriptor: %w", ErrCorrupt, err)
		}
		h.headerLength++
	}

	if n := dictIDLength[dictIDFlag]; n > 0 {
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return h, fmt.Errorf("%w: reading dictionary ID: %w", ErrCorrupt, err)
		}
		h.headerLength += int64(n)
	}

	var fcsLen int
	switch {
	case fcsFlag == 0 && singleSegment:
		fcsLen = 1
	case fcsFlag == 0:
		fcsLen = 0
	case fcsFlag == 1:
		fcsLen = 2
	case fcsFlag == 2:
		fcsLen = 4
	default:
		fcsLen = 8
	}
	if fcsLen > 0 {
		buf := make([]byte, fcsLen)
		if _, err := io.ReadFull(r, buf); err != nil {
			return h, fmt.Errorf("%w: reading frame content size: %w", ErrCorrupt, err)
		}
		h.headerLength += int64(fcsLen)
		h.contentKnown = true
		var size uint64
		for i := len(buf) - 1; i >= 0; i-- {
			size = size<<8 | uint64(buf[i])
		}
		if fcsLen == 2 {
			size += 256
		}
		h.contentSize = int64(size)
	}

	return h, nil
}

// frameInfo is everything the index builder needs about one frame: its
// total length on the wire and, when statable without decompression, its
// decompressed length.
type frameInfo struct {
	compressedLength int64
	contentSize      int64
	contentKnown     bool
}

// scanFrame walks one ZSTD frame's header and block headers (never its
// block content), returning the frame's total compressed length and, when
// the frame header carries an explicit content size, its decompressed
// length. r is left positioned immediately after the frame.
func scanFrame(r io.Reader) (frameInfo, error) {
	h, err := parseFrameHeader(r)
	if err != nil {
		return frameInfo{}, err
	}
	total := h.headerLength

	for {
		var bh [3]byte
		if _, err := io.ReadFull(r, bh[:]); err != nil {
			return frameInfo{}, fmt.Errorf("%w: reading block header: %w", ErrCorrupt, err)
		}
		total += 3

		raw := uint32(bh[0]) | uint32(bh[1])<<8 | uint32(bh[2])<<16
		lastBlock := raw&0x1 != 0
		blockType := (raw >> 1) & 0x3
		blockSize := int64(raw >> 3)

		var contentLen int64
		switch blockType {
		case 0, 2: // Raw, Compressed
			contentLen = blockSize
		case 1: // RLE
			contentLen = 1
		default:
			return frameInfo{}, fmt.Errorf("%w: reserved block type", ErrCorrupt)
		}

		if contentLen > 0 {
			if _, err := io.CopyN(io.Discard, r, contentLen); err != nil {
				return frameInfo{}, fmt.Errorf("%w: reading block content: %w", ErrCorrupt, err)
			}
			total += contentLen
		}

		if lastBlock {
			break
		}
	}

	if h.checksumFlag {
		if _, err := io.CopyN(io.Discard, r, 4); err != nil {
			return frameInfo{}, fmt.Errorf("%w: reading content checksum: %w", ErrCorrupt, err)
		}
		total += 4
	}

	return frameInfo{
		compressedLength: total,
		contentSize:      h.contentSize,
		contentKnown:     h.contentKnown,
	}, nil
}

// ReadFrame decodes exactly one ZSTD frame from the current position of r,
// leaving r positioned immediately after the frame and returning the
// frame's decompressed content.
func ReadFrame(r io.ReadSeeker) ([]byte, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("zstdframe: tell: %w", err)
	}

	info, err := scanFrame(r)
	if err != nil {
		return nil, err
	}

	if _, err := r.Seek(start, io.SeekStart); err != nil {
		return nil, fmt.Errorf("zstdframe: seeking to frame start: %w", err)
	}
	raw := make([]byte, info.compressedLength)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, fmt.Errorf("%w: reading frame bytes: %w", ErrCorrupt, err)
	}

	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("%w: opening decoder: %w", ErrCorrupt, err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding frame: %w", ErrCorrupt, err)
	}
	return out, nil
}

// BuildIndex walks src, a sequence of concatenated ZSTD frames, from its
// beginning, and writes a GZI-shaped index of frame boundaries to dst.
// Frame content is only decompressed when a frame omits its content size
// field; otherwise the index is built from frame and block headers alone,
// as bgzf.BuildIndex builds its index from block headers and trailers. The implicit leading (0, 0) entry for the
// first frame is omitted, matching the BGZF GZI layout.
func BuildIndex(src io.ReadSeeker, dst io.Writer) error {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("zstdframe: seeking to start: %w", err)
	}

	var blocks []gzi.Block
	var compressedOffset, uncompressedOffset int64

	for {
		ok, err := IsZstd(src)
		if err != nil {
			return fmt.Errorf("zstdframe: indexing: %w", err)
		}
		if !ok {
			break
		}

		start := compressedOffset
		info, err := scanFrame(src)
		if err != nil {
			return fmt.Errorf("zstdframe: indexing: %w", err)
		}

		contentSize := info.contentSize
		if !info.contentKnown {
			if _, err := src.Seek(start, io.SeekStart); err != nil {
				return fmt.Errorf("zstdframe: seeking to frame start: %w", err)
			}
			frame, err := ReadFrame(src)
			if err != nil {
				return fmt.Errorf("zstdframe: indexing: %w", err)
			}
			contentSize = int64(len(frame))
		}

		blocks = append(blocks, gzi.Block{
			CompressedOffset:   start,
			UncompressedOffset: uncompressedOffset,
		})
		compressedOffset = start + info.compressedLength
		uncompressedOffset += contentSize

		if _, err := src.Seek(compressedOffset, io.SeekStart); err != nil {
			return fmt.Errorf("zstdframe: advancing to next frame: %w", err)
		}
	}

	// Discard the first (redundant, always (0, 0)) entry.
	if len(blocks) >= 1 {
		blocks = blocks[1:]
	}

	if err := gzi.Write(dst, blocks); err != nil {
		return fmt.Errorf("zstdframe: writing index: %w", err)
	}
	return nil
}

// DecompressBuffer decompresses a buffer containing one or more
// concatenated ZSTD frames, as produced by reading a contiguous compressed
// byte range spanning multiple frames. Corruption here is fatal, matching
// bgzf.DecompressBuffer's hard-fail contract for the random-fetch path.
func DecompressBuffer(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("%w: opening decoder: %w", ErrCorrupt, err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompressing buffer: %w", ErrCorrupt, err)
	}
	return out, nil
}

// LineIterator returns a streaming decoder over a ZSTD stream that decodes
// across frame boundaries, for use by the unindexed-iteration fallback,
// which never needs to know where one frame ends and the next begins.
func LineIterator(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: opening stream: %w", ErrCorrupt, err)
	}
	return dec.IOReadCloser(), nil
}
