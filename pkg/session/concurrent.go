/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunConcurrently starts n independent sessions. A failing session does not stop the others.
// The returned slice is indexed like the sessions were started; the error is the first failure.
func RunConcurrently(ctx context.Context, n int, fn func(ctx context.Context) (*Session, error)) ([]*Session, error) {
	out := make([]*Session, n)

	var g errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			s, err := fn(ctx)
			out[i] = s
			return err
		})
	}

	return out, g.Wait()
}
