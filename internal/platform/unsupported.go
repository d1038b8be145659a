// Copyright 2026 The bpbuild Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package platform

import (
	"context"
	"fmt"
)

// unsupported is a registered platform whose native build is not
// implemented. It always fails.
type unsupported ID

func (u unsupported) Build(context.Context, Layout) error {
	return fmt.Errorf("%w: building %s is not implemented", ErrUnsupported, ID(u))
}
