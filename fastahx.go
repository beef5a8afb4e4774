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

// Package fastahx provides indexed random-access and streaming access to
// FASTA reference sequence files, including block-compressed (BGZF and
// ZSTD-framed) variants.
//
// A FASTAFile owns a backing stream, an optional FAI index mapping sequence
// ids to line geometry, and an optional GZI-shaped index mapping compressed
// to uncompressed byte offsets. Random access requires a FAI index, and
// random access into a block-compressed file additionally requires a GZI
// index; plain gzip files cannot be randomly accessed at all since gzip has
// no block structure to index.
//
// Unless otherwise informed clients should not assume implementations in
// this package are safe for parallel execution beyond what is documented on
// individual types.
package fastahx

import (
	"errors"
	"fmt"
)

// ErrFastahx is the base error for all fastahx errors.
var ErrFastahx = errors.New("fastahx")

// ErrFormat indicates malformed FASTA, FAI, or GZI wire data.
var ErrFormat = fmt.Errorf("%w: format error", ErrFastahx)

// ErrNotFound indicates a sequence id that is not present in a FASTAIndex.
var ErrNotFound = fmt.Errorf("%w: sequence not found", ErrFastahx)

// ErrUnsupported indicates an operation that the current file configuration
// cannot perform: random access without an index, a GZI requested for a
// plain gzip file, or ZSTD support that isn't available.
var ErrUnsupported = fmt.Errorf("%w: unsupported", ErrFastahx)

// ErrClosed indicates an operation attempted on a closed FASTAFile.
var ErrClosed = fmt.Errorf("%w: closed", ErrFastahx)

// ErrArgument indicates an invalid argument: a zero slice step, an
// out-of-range integer index, or an index key that is neither an integer
// nor a slice.
var ErrArgument = fmt.Errorf("%w: invalid argument", ErrFastahx)
