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
	"compress/gzip"
)

// newMultistreamGzipReader opens data as a standard (multistream) gzip
// reader. A BGZF file is a concatenation of independent gzip members, which
// compress/gzip decodes transparently across member boundaries by default.
func newMultistreamGzipReader(data []byte) (*gzip.Reader, error) {
	return gzip.NewReader(bytes.NewReader(data))
}
