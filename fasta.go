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
	"bytes"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/twrightsman/fastahx/compression"
	"github.com/twrightsman/fastahx/gzi"
)

// FASTAFile is indexed or sequential read access to a FASTA file, plain or
// wrapped in BGZF, plain GZIP, or ZSTD framing. All access to the backing
// stream, whether a fetch seeking to a record's byte range or an iterator
// advancing sequentially, is serialized through mu, so a FASTAFile is safe
// for concurrent use: any number of goroutines may fetch or iterate at
// once, interleaved at the granularity of one seek-and-read.
type FASTAFile struct {
	mu     sync.Mutex
	stream io.ReadSeeker
	closer io.Closer
	path   string // empty for a stream-backed FASTAFile that Open did not create
	closed bool

	kind   compression.Kind
	logger *logrus.Logger

	index     *FASTAIndex
	gziBlocks []gzi.Block
}

// Open opens the FASTA file at path, detects its compression, and loads a
// sibling path+".fai" index and, for BGZF/ZSTD files, a sibling
// path+".gzi" index, when present. Either index's absence is not an error;
// its absence only narrows which operations are later available.
func Open(path string) (*FASTAFile, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %q: %w", ErrFastahx, path, err)
	}

	f, err := newFASTAFile(fh, fh)
	if err != nil {
		fh.Close()
		return nil, err
	}
	f.path = path

	if err := f.loadSidecarIndexes(path); err != nil {
		f.Close()
		return nil, err
	}

	return f, nil
}

// NewFASTAFile wraps an already-open stream, such as an in-memory buffer or
// a stream whose sidecar indexes are supplied separately via LoadFAI and
// LoadGZI. The FASTAFile takes ownership of stream and closes it, if it
// implements io.Closer, when Close is called.
func NewFASTAFile(stream io.ReadSeeker) (*FASTAFile, error) {
	closer, _ := stream.(io.Closer)
	return newFASTAFile(stream, closer)
}

func newFASTAFile(stream io.ReadSeeker, closer io.Closer) (*FASTAFile, error) {
	kind, err := compression.Detect(stream)
	if err != nil {
		return nil, err
	}
	return &FASTAFile{
		stream: stream,
		closer: closer,
		kind:   kind,
		logger: logrus.StandardLogger(),
	}, nil
}

func (f *FASTAFile) loadSidecarIndexes(path string) error {
	faiFile, err := os.Open(path + ".fai")
	switch {
	case err == nil:
		defer faiFile.Close()
		idx, err := ParseFAI(faiFile)
		if err != nil {
			return err
		}
		f.index = idx
	case os.IsNotExist(err):
		// no FAI index available; sequential iteration still works,
		// membership checks and random access do not.
	default:
		return fmt.Errorf("%w: opening FAI index for %q: %w", ErrFastahx, path, err)
	}

	if !f.kind.GZIBuildable() {
		return nil
	}

	gziFile, err := os.Open(path + ".gzi")
	switch {
	case err == nil:
		defer gziFile.Close()
		blocks, err := gzi.Read(gziFile)
		if err != nil {
			return err
		}
		f.gziBlocks = blocks
	case os.IsNotExist(err):
		// no compressed index available; random access is unavailable
		// for compressed sources until one is built and loaded.
	default:
		return fmt.Errorf("%w: opening compressed index for %q: %w", ErrFastahx, path, err)
	}

	return nil
}

// LoadFAI loads an FAI index from r, replacing any previously loaded index.
func (f *FASTAFile) LoadFAI(r io.Reader) error {
	idx, err := ParseFAI(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.index = idx
	return nil
}

// LoadGZI loads a GZI compressed-block index from r, replacing any
// previously loaded index. It is only meaningful for BGZF or ZSTD sources.
func (f *FASTAFile) LoadGZI(r io.Reader) error {
	blocks, err := gzi.Read(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gziBlocks = blocks
	return nil
}

// SetLogger overrides the logger used for non-fatal BGZF integrity
// warnings. The default is logrus's standard logger.
func (f *FASTAFile) SetLogger(logger *logrus.Logger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logger = logger
}

// Compression reports the detected compression kind of the file.
func (f *FASTAFile) Compression() compression.Kind {
	return f.kind
}

// Index returns the loaded FAI index, or nil if none has been loaded.
func (f *FASTAFile) Index() *FASTAIndex {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.index
}

// Closed reports whether Close has been called.
func (f *FASTAFile) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Close releases the backing stream. Close is idempotent.
func (f *FASTAFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	if f.closer != nil {
		if err := f.closer.Close(); err != nil {
			return fmt.Errorf("%w: closing: %w", ErrFastahx, err)
		}
	}
	return nil
}

// Has reports whether seqid names a record in the loaded FAI index.
func (f *FASTAFile) Has(seqid string) (bool, error) {
	f.mu.Lock()
	idx := f.index
	f.mu.Unlock()
	if idx == nil {
		return false, fmt.Errorf("%w: checking record membership requires an FAI index", ErrUnsupported)
	}
	_, ok := idx.Get(seqid)
	return ok, nil
}

// Record returns a lazy handle to the record named seqid. The record's
// sequence is not read until it is indexed, sliced, or its Sequence method
// is called.
func (f *FASTAFile) Record(seqid string) (*FASTARecord, error) {
	f.mu.Lock()
	idx := f.index
	kind := f.kind
	f.mu.Unlock()

	if idx == nil {
		return nil, fmt.Errorf("%w: random access requires an FAI index", ErrUnsupported)
	}
	if kind == compression.GZIP {
		return nil, fmt.Errorf("%w: random access into a plain gzipped FASTA file is not supported; bgzip or zstd-compress it instead", ErrUnsupported)
	}
	if _, ok := idx.Get(seqid); !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, seqid)
	}
	return newLazyRecord(f, seqid), nil
}

// Fetch returns the subsequence of record seqid selected by start, stop,
// and step. start and stop may be nil to mean "the beginning" or "the end"
// respectively (oriented by step's sign, matching a Python-style slice);
// step must be non-zero. Indices are base coordinates into the record, not
// byte offsets, and negative indices count from the end of the record.
func (f *FASTAFile) Fetch(seqid string, start, stop *int64, step int64) (string, error) {
	if step == 0 {
		return "", fmt.Errorf("%w: slice step cannot be zero", ErrArgument)
	}

	f.mu.Lock()
	closed := f.closed
	idx := f.index
	kind := f.kind
	gziBlocks := f.gziBlocks
	f.mu.Unlock()

	if closed {
		return "", fmt.Errorf("%w: cannot fetch from a closed FASTAFile", ErrClosed)
	}
	if idx == nil {
		return "", fmt.Errorf("%w: random access requires an FAI index", ErrUnsupported)
	}
	entry, ok := idx.Get(seqid)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, seqid)
	}
	if kind != compression.None && gziBlocks == nil {
		return "", fmt.Errorf("%w: random access into a compressed FASTA file requires a compressed (GZI) index", ErrUnsupported)
	}

	startV, stopV, empty := normalizeRange(entry.Length, start, stop, step)
	if empty {
		return "", nil
	}

	byteStart := entry.Offset + baseToByte(startV, entry.Linebases, entry.Linewidth)
	byteStop := entry.Offset + baseToByte(stopV, entry.Linebases, entry.Linewidth)
	byteLen := byteStop - byteStart

	var raw []byte
	var err error
	if kind == compression.None {
		raw, err = f.readUncompressedRange(byteStart, &byteLen)
	} else {
		raw, err = f.readCompressedRange(byteStart, &byteLen)
	}
	if err != nil {
		return "", err
	}

	return applyStep(stripTerminators(raw), step), nil
}

// readUncompressedRange reads length bytes starting at offset from the
// backing stream directly. A nil length reads through to the end of the
// stream.
func (f *FASTAFile) readUncompressedRange(offset int64, length *int64) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.stream.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seeking: %w", ErrFastahx, err)
	}
	if length == nil {
		data, err := io.ReadAll(f.stream)
		if err != nil {
			return nil, fmt.Errorf("%w: reading: %w", ErrFastahx, err)
		}
		return data, nil
	}

	buf := make([]byte, *length)
	if _, err := io.ReadFull(f.stream, buf); err != nil {
		return nil, fmt.Errorf("%w: reading: %w", ErrFastahx, err)
	}
	return buf, nil
}

// readCompressedRange reads length uncompressed bytes starting at the
// uncompressed offset into a BGZF- or ZSTD-wrapped stream, using the
// loaded GZI index to locate and read the minimal span of compressed
// blocks/frames covering the range. A nil length reads through to the end
// of the last block/frame.
func (f *FASTAFile) readCompressedRange(offset int64, length *int64) ([]byte, error) {
	f.mu.Lock()
	blocks := f.gziBlocks
	kind := f.kind
	f.mu.Unlock()

	bgzfBound := kind == compression.BGZF
	startIdx := gziStartIndex(blocks, offset, bgzfBound)

	var stopIdx int
	if length == nil {
		stopIdx = len(blocks)
	} else {
		stopIdx = gziStopIndex(blocks, offset, *length, startIdx)
	}

	f.mu.Lock()
	compressed, err := f.readBlockSpanLocked(blocks, startIdx, stopIdx)
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	uncompressed, err := compression.DecompressBuffer(compressed, kind)
	if err != nil {
		return nil, err
	}

	rangeStart := offset - blocks[startIdx].UncompressedOffset
	if rangeStart < 0 || rangeStart > int64(len(uncompressed)) {
		return nil, fmt.Errorf("%w: compressed index does not agree with stream content", ErrFormat)
	}
	if length == nil {
		return uncompressed[rangeStart:], nil
	}
	rangeStop := rangeStart + *length
	if rangeStop > int64(len(uncompressed)) {
		return nil, fmt.Errorf("%w: compressed index does not agree with stream content", ErrFormat)
	}
	return uncompressed[rangeStart:rangeStop], nil
}

// readBlockSpanLocked reads the concatenated compressed bytes of
// blocks[startIdx:stopIdx] from the stream. mu must already be held.
func (f *FASTAFile) readBlockSpanLocked(blocks []gzi.Block, startIdx, stopIdx int) ([]byte, error) {
	if _, err := f.stream.Seek(blocks[startIdx].CompressedOffset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: seeking: %w", ErrFastahx, err)
	}

	var buf bytes.Buffer
	for i := startIdx; i < stopIdx; i++ {
		if i+1 < len(blocks) {
			n := blocks[i+1].CompressedOffset - blocks[i].CompressedOffset
			if _, err := io.CopyN(&buf, f.stream, n); err != nil {
				return nil, fmt.Errorf("%w: reading compressed blocks: %w", ErrFastahx, err)
			}
		} else if _, err := io.Copy(&buf, f.stream); err != nil {
			return nil, fmt.Errorf("%w: reading compressed blocks: %w", ErrFastahx, err)
		}
	}
	return buf.Bytes(), nil
}

// fastaFileState is the Gob-serializable snapshot of a path-backed
// FASTAFile: its loaded indexes and enough to reopen the backing stream.
// A stream-backed FASTAFile with no path cannot be serialized.
type fastaFileState struct {
	Path   string
	Kind   compression.Kind
	Index  []FaiEntry
	GZI    []gzi.Block
	HasGZI bool
}

// GobEncode implements gob.GobEncoder, allowing a path-backed FASTAFile
// (and its loaded indexes) to be serialized without re-reading either
// sidecar index file on every process restart.
func (f *FASTAFile) GobEncode() ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.path == "" {
		return nil, fmt.Errorf("%w: cannot serialize a stream-backed FASTAFile", ErrUnsupported)
	}

	state := fastaFileState{Path: f.path, Kind: f.kind}
	if f.index != nil {
		for _, name := range f.index.Names() {
			entry, _ := f.index.Get(name)
			state.Index = append(state.Index, entry)
		}
	}
	if f.gziBlocks != nil {
		state.HasGZI = true
		state.GZI = f.gziBlocks
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, fmt.Errorf("%w: encoding: %w", ErrFastahx, err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder, reopening the backing file at its
// original path and restoring any loaded indexes.
func (f *FASTAFile) GobDecode(data []byte) error {
	var state fastaFileState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return fmt.Errorf("%w: decoding: %w", ErrFastahx, err)
	}

	fh, err := os.Open(state.Path)
	if err != nil {
		return fmt.Errorf("%w: reopening %q: %w", ErrFastahx, state.Path, err)
	}

	f.path = state.Path
	f.stream = fh
	f.closer = fh
	f.kind = state.Kind
	f.logger = logrus.StandardLogger()

	if len(state.Index) > 0 {
		idx := NewFASTAIndex()
		for _, entry := range state.Index {
			if err := idx.add(entry); err != nil {
				fh.Close()
				return err
			}
		}
		f.index = idx
	}
	if state.HasGZI {
		f.gziBlocks = state.GZI
	}

	return nil
}
