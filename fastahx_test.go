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
	"errors"
	"testing"
)

func TestSentinelErrorsWrapErrFastahx(t *testing.T) {
	t.Parallel()

	sentinels := map[string]error{
		"ErrFormat":      ErrFormat,
		"ErrNotFound":    ErrNotFound,
		"ErrUnsupported": ErrUnsupported,
		"ErrClosed":      ErrClosed,
		"ErrArgument":    ErrArgument,
	}

	for name, err := range sentinels {
		if !errors.Is(err, ErrFastahx) {
			t.Errorf("%s does not wrap ErrFastahx", name)
		}
	}
}
