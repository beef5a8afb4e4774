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
)

// Writer implements io.WriteCloser, splitting its input into BGZF blocks of
// up to UncompressedPayloadBound uncompressed bytes each. Unlike a plain
// gzip stream, every BGZF block carries its own complete trailer, so unlike
// the teacher's dictzip.Writer, no staging file or final assembly pass is
// needed: each block is written to the destination as soon as it is full.
//
// Close must be called to flush the final partial block and write the
// trailing empty EOF-marker block.
type Writer struct {
	w      io.Writer
	level  int
	buf    bytes.Buffer // accumulates uncompressed input for the current block
	closed bool
}

// NewWriter returns a Writer using flate.DefaultCompression.
func NewWriter(w io.Writer) *Writer {
	return NewWriterLevel(w, flate.DefaultCompression)
}

// NewWriterLevel returns a Writer using the given compression level, one of
// the flate.* compression level constants.
func NewWriterLevel(w io.Writer, level int) *Writer {
	return &Writer{w: w, level: level}
}

// Write buffers p, flushing complete blocks (splitting on the last newline
// in the candidate block when one is present, so that individual lines are
// never split across a block boundary) as UncompressedPayloadBound is
// reached.
func (z *Writer) Write(p []byte) (int, error) {
	if z.closed {
		return 0, fmt.Errorf("%w: Write called on closed writer", ErrCorrupt)
	}

	total := len(p)
	z.buf.Write(p)

	for z.buf.Len() > UncompressedPayloadBound {
		candidate := z.buf.Bytes()[:UncompressedPayloadBound]
		splitAt := bytes.LastIndexByte(candidate, '\n')
		if splitAt < 0 {
			splitAt = UncompressedPayloadBound - 1
		}

		block := make([]byte, splitAt+1)
		copy(block, candidate[:splitAt+1])
		if err := z.writeBlock(block); err != nil {
			return 0, err
		}

		remaining := z.buf.Len() - (splitAt + 1)
		rest := make([]byte, remaining)
		copy(rest, z.buf.Bytes()[splitAt+1:])
		z.buf.Reset()
		z.buf.Write(rest)
	}

	return total, nil
}

// Close flushes any buffered data into a final block, writes the trailing
// empty EOF-marker block, and marks the writer closed.
func (z *Writer) Close() error {
	if z.closed {
		return nil
	}
	z.closed = true

	if z.buf.Len() > 0 {
		if err := z.writeBlock(z.buf.Bytes()); err != nil {
			return err
		}
	}

	return z.writeBlock(nil)
}

func (z *Writer) writeBlock(content []byte) error {
	if len(content) > UncompressedPayloadBound {
		return fmt.Errorf("%w: block content exceeds %d bytes", ErrCorrupt, UncompressedPayloadBound)
	}

	var compressed bytes.Buffer
	fw, err := flate.NewWriter(&compressed, z.level)
	if err != nil {
		return fmt.Errorf("bgzf: initializing deflate writer: %w", err)
	}
	if _, err := fw.Write(content); err != nil {
		return fmt.Errorf("bgzf: compressing block: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("bgzf: compressing block: %w", err)
	}

	bsize := compressed.Len() + blockHeaderLength + blockTrailerLength - 1
	if bsize+1 > MaxBlockSize {
		return fmt.Errorf("%w: compressed block too large to fit in a single BGZF block", ErrCorrupt)
	}

	if _, err := z.w.Write(header[:]); err != nil {
		return fmt.Errorf("bgzf: writing header: %w", err)
	}
	var bsizeBuf [2]byte
	binary.LittleEndian.PutUint16(bsizeBuf[:], uint16(bsize))
	if _, err := z.w.Write(bsizeBuf[:]); err != nil {
		return fmt.Errorf("bgzf: writing BSIZE: %w", err)
	}
	if _, err := z.w.Write(compressed.Bytes()); err != nil {
		return fmt.Errorf("bgzf: writing block payload: %w", err)
	}

	var trailer [8]byte
	binary.LittleEndian.PutUint32(trailer[0:4], crc32.ChecksumIEEE(content))
	binary.LittleEndian.PutUint32(trailer[4:8], uint32(len(content)))
	if _, err := z.w.Write(trailer[:]); err != nil {
		return fmt.Errorf("bgzf: writing trailer: %w", err)
	}

	return nil
}
