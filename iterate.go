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
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/twrightsman/fastahx/compression"
)

// RecordIterator walks a FASTAFile's records in on-disk order. Call Scan
// repeatedly; it returns false once iteration is done or an error occurs,
// distinguishable via Err.
type RecordIterator struct {
	next func() (*FASTARecord, error, bool)
	cur  *FASTARecord
	err  error
	done bool
}

// Scan advances to the next record, returning false when there are no more
// or an error occurred.
func (it *RecordIterator) Scan() bool {
	if it.done {
		return false
	}
	rec, err, ok := it.next()
	if err != nil {
		it.err = err
		it.done = true
		return false
	}
	if !ok {
		it.done = true
		return false
	}
	it.cur = rec
	return true
}

// Record returns the record produced by the most recent call to Scan.
func (it *RecordIterator) Record() *FASTARecord {
	return it.cur
}

// Err returns the first error encountered during iteration, if any.
func (it *RecordIterator) Err() error {
	return it.err
}

// Records returns an iterator over every record in the file, in on-disk
// order. The iteration strategy depends on compression and whether an FAI
// index is loaded: indexed sources (plain or compressed, with an FAI) walk
// record boundaries directly; unindexed plain and gzip sources scan lines;
// unindexed BGZF/ZSTD sources scan decoded blocks/frames. Only indexed
// iteration can run concurrently with Fetch without serializing behind it
// block-for-block, since it shares Fetch's own locking discipline.
func (f *FASTAFile) Records() (*RecordIterator, error) {
	f.mu.Lock()
	closed := f.closed
	hasIndex := f.index != nil
	hasGZI := f.gziBlocks != nil
	kind := f.kind
	f.mu.Unlock()

	if closed {
		return nil, fmt.Errorf("%w: cannot iterate a closed FASTAFile", ErrClosed)
	}

	// Plain GZIP has no block index (compression.BuildIndex refuses to build
	// one for it), so an FAI index alone can never give it byte-accurate random
	// access; it always scans, FAI or not. A compressed source needs both
	// indexes to walk record boundaries directly; with only an FAI it falls
	// back to scanning decoded blocks/frames just like an unindexed source.
	indexedAccess := hasIndex && (kind == compression.None || hasGZI)

	var next func() (*FASTARecord, error, bool)
	switch {
	case kind == compression.GZIP:
		next = f.iterUnindexedGzip()
	case indexedAccess:
		next = f.iterIndexed()
	case kind == compression.None:
		next = f.iterUnindexed()
	default:
		next = f.iterChunked()
	}

	return &RecordIterator{next: next}, nil
}

// iterIndexed walks records using the FAI index's own offsets to bound
// each record's byte range, dispatching each range read through
// readLogicalRange so the same algorithm serves plain, BGZF, and ZSTD
// sources alike once an FAI (and, if compressed, GZI) index is loaded.
func (f *FASTAFile) iterIndexed() func() (*FASTARecord, error, bool) {
	names := f.Index().Names()
	i := 0
	var prevEntry FaiEntry

	return func() (*FASTARecord, error, bool) {
		if i >= len(names) {
			return nil, nil, false
		}

		entry, _ := f.Index().Get(names[i])

		var start int64
		if i == 0 {
			start = 0
		} else {
			start = prevEntry.Offset + baseToByte(prevEntry.Length, prevEntry.Linebases, prevEntry.Linewidth)
			if prevEntry.Length%prevEntry.Linebases != 0 {
				// A short final line's terminator is not yet counted.
				start += prevEntry.Linewidth - prevEntry.Linebases
			}
		}

		var length *int64
		if i+1 < len(names) {
			l := (entry.Offset - start) + baseToByte(entry.Length, entry.Linebases, entry.Linewidth)
			length = &l
		}

		raw, err := f.readLogicalRange(start, length)
		if err != nil {
			return nil, err, false
		}

		rec, err := parseRecordBlock(raw)
		if err != nil {
			return nil, err, false
		}

		prevEntry = entry
		i++
		return rec, nil, true
	}
}

// readLogicalRange reads length bytes (or, if nil, through to the end)
// starting at the logical (uncompressed) byte offset start, dispatching to
// a direct stream read or a GZI-located compressed read depending on
// whether the file is compressed.
func (f *FASTAFile) readLogicalRange(start int64, length *int64) ([]byte, error) {
	f.mu.Lock()
	kind := f.kind
	f.mu.Unlock()

	if kind == compression.None {
		return f.readUncompressedRange(start, length)
	}
	return f.readCompressedRange(start, length)
}

// iterUnindexed scans an uncompressed, unindexed FASTA stream line by
// line, re-seeking the shared stream to its own bookmark before every
// line read so that a concurrent Fetch interleaving between advances
// cannot desynchronize the iterator's position.
func (f *FASTAFile) iterUnindexed() func() (*FASTARecord, error, bool) {
	offset := int64(0)
	var line string
	started := false

	return func() (*FASTARecord, error, bool) {
		if !started {
			started = true
			l, newOffset, err := f.readLine(offset)
			offset = newOffset
			if err != nil && err != io.EOF {
				return nil, err, false
			}
			if l == "" {
				return nil, nil, false
			}
			if !strings.HasPrefix(l, ">") {
				return nil, fmt.Errorf("%w: first line of a FASTA file must start with '>'", ErrFormat), false
			}
			line = l
		}
		if line == "" {
			return nil, nil, false
		}

		header := strings.TrimRight(line, "\r\n")
		fields := strings.Split(header[1:], " ")
		seqid := fields[0]
		description := strings.Join(fields[1:], " ")

		var seqLines []string
		for {
			l, newOffset, err := f.readLine(offset)
			offset = newOffset
			if err != nil && err != io.EOF {
				return nil, err, false
			}
			if l == "" {
				line = ""
				break
			}
			if strings.HasPrefix(l, ">") {
				line = l
				break
			}
			seqLines = append(seqLines, strings.TrimRight(l, "\r\n"))
		}

		return newMaterializedRecord(seqid, description, strings.Join(seqLines, "")), nil, true
	}
}

// readLine reads one line (through and including its trailing "\n", if
// any) starting at offset, returning the new stream offset after the line
// and io.EOF if the stream ended without one.
func (f *FASTAFile) readLine(offset int64) (string, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.stream.Seek(offset, io.SeekStart); err != nil {
		return "", offset, fmt.Errorf("%w: seeking: %w", ErrFastahx, err)
	}
	line, err := bufio.NewReader(f.stream).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", offset, fmt.Errorf("%w: reading line: %w", ErrFastahx, err)
	}

	newOffset := offset + int64(len(line))
	if _, serr := f.stream.Seek(newOffset, io.SeekStart); serr != nil {
		return "", offset, fmt.Errorf("%w: seeking: %w", ErrFastahx, serr)
	}

	if line == "" && err == io.EOF {
		return "", newOffset, io.EOF
	}
	return line, newOffset, nil
}

// iterUnindexedGzip scans an unindexed plain-GZIP FASTA stream line by
// line through a one-shot streaming decoder. Unlike iterUnindexed, it
// never re-seeks between advances: a plain gzip stream's decoder has no
// efficient way to resume from an arbitrary byte offset, so this mode,
// like the reference it is grounded on, accepts that it cannot interleave
// cleanly with a concurrent Fetch (which plain GZIP does not support
// anyway, since it has no block index to seek within).
func (f *FASTAFile) iterUnindexedGzip() func() (*FASTARecord, error, bool) {
	var scanner *bufio.Scanner
	var line string
	started := false

	advance := func() (string, bool, error) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if scanner == nil {
			if _, err := f.stream.Seek(0, io.SeekStart); err != nil {
				return "", false, fmt.Errorf("%w: seeking: %w", ErrFastahx, err)
			}
			gr, err := compression.LineIterator(f.stream, compression.GZIP)
			if err != nil {
				return "", false, err
			}
			scanner = bufio.NewScanner(gr)
			scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		}

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", false, fmt.Errorf("%w: reading line: %w", ErrFastahx, err)
			}
			return "", false, nil
		}
		return scanner.Text(), true, nil
	}

	return func() (*FASTARecord, error, bool) {
		if !started {
			started = true
			l, ok, err := advance()
			if err != nil {
				return nil, err, false
			}
			if !ok {
				return nil, nil, false
			}
			if !strings.HasPrefix(l, ">") {
				return nil, fmt.Errorf("%w: first line of a FASTA file must start with '>'", ErrFormat), false
			}
			line = l
		}
		if line == "" {
			return nil, nil, false
		}

		fields := strings.Split(line[1:], " ")
		seqid := fields[0]
		description := strings.Join(fields[1:], " ")

		var seqLines []string
		for {
			l, ok, err := advance()
			if err != nil {
				return nil, err, false
			}
			if !ok {
				line = ""
				break
			}
			if strings.HasPrefix(l, ">") {
				line = l
				break
			}
			seqLines = append(seqLines, l)
		}

		return newMaterializedRecord(seqid, description, strings.Join(seqLines, "")), nil, true
	}
}

// iterChunked scans an unindexed BGZF/ZSTD FASTA stream one decoded
// block/frame at a time, accumulating lines across block boundaries until
// a full record (one header line up to the next header line, or the end
// of the stream) is assembled. A header line that itself spans a block
// boundary is not reassembled across the boundary; this is a known
// limitation shared with the reference this is ported from, and is not
// expected to occur in practice since blocks/frames are tens of kilobytes.
func (f *FASTAFile) iterChunked() func() (*FASTARecord, error, bool) {
	offset := int64(0)
	buf := ""
	started := false
	haveRecord := false
	var seqid, description string
	var sequences []string

	fetchChunk := func() (string, error) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if _, err := f.stream.Seek(offset, io.SeekStart); err != nil {
			return "", fmt.Errorf("%w: seeking: %w", ErrFastahx, err)
		}
		chunk, err := compression.ReadChunk(f.stream, f.kind, f.logger)
		if err != nil {
			return "", err
		}
		pos, err := f.stream.Seek(0, io.SeekCurrent)
		if err != nil {
			return "", fmt.Errorf("%w: reading position: %w", ErrFastahx, err)
		}
		offset = pos
		return string(chunk), nil
	}

	return func() (*FASTARecord, error, bool) {
		if !started {
			started = true
			c, err := fetchChunk()
			if err != nil {
				return nil, err, false
			}
			buf = c
		}

		for buf != "" {
			var out *FASTARecord
			yielding := false

			if strings.HasPrefix(buf, ">") {
				if haveRecord {
					out = newMaterializedRecord(seqid, description, strings.Join(sequences, ""))
					yielding = true
				}

				descLine, rest, _ := strings.Cut(buf, "\n")
				buf = rest
				fields := strings.Split(descLine[1:], " ")
				seqid = fields[0]
				description = strings.Join(fields[1:], " ")
				sequences = nil
				haveRecord = true
			} else {
				line, rest, found := strings.Cut(buf, "\n")
				if found {
					sequences = append(sequences, line)
					buf = rest
				} else {
					sequences = append(sequences, buf)
					buf = ""
				}
			}

			if buf == "" {
				c, err := fetchChunk()
				if err != nil {
					return nil, err, false
				}
				buf += c
			}

			if yielding {
				return out, nil, true
			}
		}

		if haveRecord {
			haveRecord = false
			return newMaterializedRecord(seqid, description, strings.Join(sequences, "")), nil, true
		}
		return nil, nil, false
	}
}
