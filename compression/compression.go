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

// Package compression sniffs and dispatches across the compression kinds a
// FASTA source may be wrapped in: none, BGZF, plain GZIP, and ZSTD-framed.
// It never implements a codec itself; it routes to bgzf or zstdframe, or to
// the standard library for plain GZIP, and exposes the capabilities each
// kind supports (chunked reads, buildable GZI index) as a small table
// rather than scattering type switches across callers.
package compression

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/twrightsman/fastahx/bgzf"
	"github.com/twrightsman/fastahx/zstdframe"
)

// Kind identifies the compression wrapping a FASTA source.
type Kind int

const (
	// None is an uncompressed FASTA stream.
	None Kind = iota
	// BGZF is the blocked gzip format used by samtools/htslib.
	BGZF
	// GZIP is a plain, unblocked gzip stream.
	GZIP
	// ZSTD is a sequence of one or more concatenated ZSTD frames.
	ZSTD
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case BGZF:
		return "bgzf"
	case GZIP:
		return "gzip"
	case ZSTD:
		return "zstd"
	default:
		return "unknown"
	}
}

// ErrUnsupported is returned for operations a Kind's capabilities don't
// support, such as chunked reads or index building on plain GZIP.
var ErrUnsupported = errors.New("compression: unsupported operation")

// capabilities describes what a compression Kind permits beyond a plain
// sequential read.
type capabilities struct {
	Seekable     bool // supports ReadChunk and block/frame-bounded random access
	GZIBuildable bool // supports BuildIndex
}

var capsTable = map[Kind]capabilities{
	None: {Seekable: true, GZIBuildable: false},
	BGZF: {Seekable: true, GZIBuildable: true},
	GZIP: {Seekable: false, GZIBuildable: false},
	ZSTD: {Seekable: true, GZIBuildable: true},
}

// Seekable reports whether k supports random access: block/frame-bounded
// access via ReadChunk for BGZF and ZSTD. None also reports true, since an
// uncompressed stream is seekable by direct file seek, but ReadChunk and
// BuildIndex do not accept it.
func (k Kind) Seekable() bool {
	return capsTable[k].Seekable
}

// GZIBuildable reports whether a GZI-shaped index can be built over a
// stream of this kind.
func (k Kind) GZIBuildable() bool {
	return capsTable[k].GZIBuildable
}

// Detect sniffs the compression kind of r, which must be positioned at the
// start of the stream, restoring r's position afterward. It checks BGZF
// before GZIP, since every BGZF stream is also a valid (plain) GZIP stream
// by magic bytes alone, and ZSTD last. A stream that matches none of them
// is reported as None: a plain, uncompressed FASTA file is the common
// case, not an error.
func Detect(r io.ReadSeeker) (Kind, error) {
	if ok, err := bgzf.IsBGZF(r); err != nil {
		return None, fmt.Errorf("compression: detecting format: %w", err)
	} else if ok {
		return BGZF, nil
	}
	if ok, err := bgzf.IsGzip(r); err != nil {
		return None, fmt.Errorf("compression: detecting format: %w", err)
	} else if ok {
		return GZIP, nil
	}
	if ok, err := zstdframe.IsZstd(r); err != nil {
		return None, fmt.Errorf("compression: detecting format: %w", err)
	} else if ok {
		return ZSTD, nil
	}
	return None, nil
}

// IsFormat reports whether r is positioned at the start of a stream of the
// given kind, restoring r's position afterward.
func IsFormat(r io.ReadSeeker, kind Kind) (bool, error) {
	switch kind {
	case BGZF:
		return bgzf.IsBGZF(r)
	case GZIP:
		return bgzf.IsGzip(r)
	case ZSTD:
		return zstdframe.IsZstd(r)
	default:
		return false, fmt.Errorf("%w: cannot sniff for compression kind %s", ErrUnsupported, kind)
	}
}

// ReadChunk reads and decodes exactly one block (BGZF) or frame (ZSTD) from
// the current position of r. logger receives any non-fatal BGZF integrity
// warnings; it is ignored for ZSTD, which has no analogous warn-only
// integrity check.
//
// ReadChunk returns a nil slice with a nil error, rather than an error, once
// r is positioned at the true end of the stream with no further block or
// frame to read. BGZF's trailing empty EOF-marker block already decodes to
// an empty slice, and this makes ZSTD's "no more frames" case (which has no
// such marker) end the same way, so callers can use an empty chunk as a
// uniform end-of-stream signal regardless of kind.
func ReadChunk(r io.ReadSeeker, kind Kind, logger *logrus.Logger) ([]byte, error) {
	switch kind {
	case BGZF, ZSTD:
		ok, err := IsFormat(r, kind)
		if err != nil {
			return nil, fmt.Errorf("compression: reading chunk: %w", err)
		}
		if !ok {
			return nil, nil
		}
	default:
		return nil, fmt.Errorf("%w: cannot read a chunk from compression kind %s", ErrUnsupported, kind)
	}

	switch kind {
	case BGZF:
		return bgzf.ReadBlock(r, logger)
	case ZSTD:
		return zstdframe.ReadFrame(r)
	}
	return nil, nil
}

// DecompressBuffer decompresses a buffer containing one or more
// concatenated blocks or frames of the given kind, as produced by reading
// a contiguous compressed byte range spanning several GZI entries.
func DecompressBuffer(data []byte, kind Kind) ([]byte, error) {
	switch kind {
	case BGZF, GZIP:
		return bgzf.DecompressBuffer(data)
	case ZSTD:
		return zstdframe.DecompressBuffer(data)
	default:
		return nil, fmt.Errorf("%w: cannot decompress a buffer of compression kind %s", ErrUnsupported, kind)
	}
}

// BuildIndex writes a GZI-shaped index of src's block or frame boundaries
// to dst. Plain GZIP has no block structure to index.
func BuildIndex(src io.ReadSeeker, dst io.Writer, kind Kind) error {
	switch kind {
	case BGZF:
		return bgzf.BuildIndex(src, dst)
	case ZSTD:
		return zstdframe.BuildIndex(src, dst)
	default:
		return fmt.Errorf("%w: cannot build a compressed index for compression kind %s", ErrUnsupported, kind)
	}
}

// LineIterator returns a decoder that reads across block/frame boundaries
// transparently, for the unindexed streaming-iteration fallback, which
// never needs to stop at a block boundary the way ReadChunk does.
func LineIterator(r io.Reader, kind Kind) (io.ReadCloser, error) {
	switch kind {
	case GZIP, BGZF:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("compression: opening gzip stream: %w", err)
		}
		return gr, nil
	case ZSTD:
		return zstdframe.LineIterator(r)
	default:
		return nil, fmt.Errorf("%w: cannot create a line iterator for compression kind %s", ErrUnsupported, kind)
	}
}
