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
	"strconv"
	"strings"
)

// FaiEntry is one record's line geometry, as found in a five-column FAI
// index line.
type FaiEntry struct {
	// Name is the sequence id.
	Name string

	// Length is the total number of bases in the record.
	Length int64

	// Offset is the byte offset, in the uncompressed stream, of the first
	// base of the record.
	Offset int64

	// Linebases is the number of bases on a full line, excluding the
	// terminator.
	Linebases int64

	// Linewidth is the number of bytes on a full line, including the
	// terminator.
	Linewidth int64

	// QualOffset is reserved for FASTQ-style quality offsets and is unused
	// by this package.
	QualOffset int64
}

// FASTAIndex is an insertion-ordered mapping from sequence id to FaiEntry,
// preserving the on-disk order of the underlying FAI file.
type FASTAIndex struct {
	entries map[string]FaiEntry
	order   []string
}

// NewFASTAIndex returns an empty FASTAIndex.
func NewFASTAIndex() *FASTAIndex {
	return &FASTAIndex{entries: make(map[string]FaiEntry)}
}

// Get returns the entry for name, and whether it was present.
func (idx *FASTAIndex) Get(name string) (FaiEntry, bool) {
	e, ok := idx.entries[name]
	return e, ok
}

// Names returns sequence ids in on-disk order.
func (idx *FASTAIndex) Names() []string {
	return idx.order
}

// Len returns the number of records in the index.
func (idx *FASTAIndex) Len() int {
	return len(idx.order)
}

func (idx *FASTAIndex) add(e FaiEntry) error {
	if _, ok := idx.entries[e.Name]; ok {
		return fmt.Errorf("%w: duplicate sequence id %q", ErrFormat, e.Name)
	}
	idx.entries[e.Name] = e
	idx.order = append(idx.order, e.Name)
	return nil
}

// ParseFAI reads a textual FAI index (tab-separated, five columns per
// line) and returns the resulting FASTAIndex.
func ParseFAI(r io.Reader) (*FASTAIndex, error) {
	idx := NewFASTAIndex()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 5 {
			return nil, fmt.Errorf("%w: FAI line has %d fields, want 5: %q", ErrFormat, len(fields), line)
		}
		length, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: length: %w", ErrFormat, err)
		}
		offset, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: offset: %w", ErrFormat, err)
		}
		linebases, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: linebases: %w", ErrFormat, err)
		}
		linewidth, err := strconv.ParseInt(fields[4], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: linewidth: %w", ErrFormat, err)
		}

		if err := idx.add(FaiEntry{
			Name:       fields[0],
			Length:     length,
			Offset:     offset,
			Linebases:  linebases,
			Linewidth:  linewidth,
			QualOffset: -1,
		}); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading FAI: %w", ErrFastahx, err)
	}

	return idx, nil
}

// faiBuilderState tracks the in-progress record while scanning a FASTA
// file line by line, mirroring the field-for-field state of the reference
// FAI-building algorithm.
type faiBuilderState struct {
	seqid     string
	hasRecord bool

	length    int64
	offset    int64
	linebases int64
	linewidth int64

	sawShortLinebases bool
	sawShortLinewidth bool
}

func (s *faiBuilderState) flush(dst io.Writer) error {
	if !s.hasRecord {
		return nil
	}
	_, err := fmt.Fprintf(dst, "%s\t%d\t%d\t%d\t%d\n", s.seqid, s.length, s.offset, s.linebases, s.linewidth)
	return err
}

// BuildFAI scans a decompressed FASTA text stream read from src and writes
// its five-column FAI index to dst, one record per line.
func BuildFAI(src io.Reader, dst io.Writer) error {
	br := bufio.NewReader(src)

	var offset int64
	var state faiBuilderState
	sawBlankLine := false

	for {
		line, err := br.ReadString('\n')
		if len(line) == 0 {
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("%w: reading FASTA: %w", ErrFastahx, err)
			}
		}

		offset += int64(len(line))
		trimmed := strings.TrimRight(line, " \t\r\n\v\f")

		switch {
		case sawBlankLine:
			return fmt.Errorf("%w: blank line in the middle of the FASTA file", ErrFormat)
		case trimmed == "":
			sawBlankLine = true
		case strings.HasPrefix(trimmed, ">"):
			if err := state.flush(dst); err != nil {
				return fmt.Errorf("%w: writing FAI: %w", ErrFastahx, err)
			}

			header := trimmed[1:]
			seqid, _, _ := strings.Cut(header, " ")
			state = faiBuilderState{
				seqid:     seqid,
				hasRecord: true,
				offset:    offset,
				linebases: -1,
				linewidth: -1,
			}
		default:
			if !state.hasRecord {
				return fmt.Errorf("%w: FASTA data line encountered before any record header", ErrFormat)
			}

			lineBases := int64(len(trimmed))
			if state.linebases == -1 {
				state.linebases = lineBases
			} else if lineBases != state.linebases {
				if state.sawShortLinebases {
					return fmt.Errorf("%w: unequal numbers of bases in lines of sequence record %q", ErrFormat, state.seqid)
				}
				state.sawShortLinebases = true
			}

			lineWidth := int64(len(line))
			if state.linewidth == -1 {
				state.linewidth = lineWidth
			} else if lineWidth != state.linewidth {
				terminatorWidth := lineWidth - lineBases
				if terminatorWidth != (state.linewidth - state.linebases) {
					return fmt.Errorf("%w: lines with unequal terminator widths in sequence record %q", ErrFormat, state.seqid)
				}
				if state.sawShortLinewidth {
					return fmt.Errorf("%w: unequal line widths in sequence record %q", ErrFormat, state.seqid)
				}
				state.sawShortLinewidth = true
			}

			state.length += lineBases
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: reading FASTA: %w", ErrFastahx, err)
		}
	}

	if err := state.flush(dst); err != nil {
		return fmt.Errorf("%w: writing FAI: %w", ErrFastahx, err)
	}

	return nil
}
