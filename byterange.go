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

// baseToByte maps a base offset within a FASTA record to the byte offset of
// that base within the record's own span of the uncompressed stream, given
// the record's line geometry.
//
// linebases is the number of bases on a full line; linewidth is the number
// of bytes on a full line, including its terminator. The caller never passes
// a baseOffset that would land inside a line terminator, since base offsets
// are defined purely in terms of the base coordinate space.
func baseToByte(baseOffset, linebases, linewidth int64) int64 {
	fullLines := baseOffset / linebases
	remainder := baseOffset % linebases
	return fullLines*linewidth + remainder
}
