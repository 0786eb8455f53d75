/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package datastore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/scoir/canis-exchange/pkg/session"
)

// Journal records every finished session in the store.
type Journal struct {
	Store Store
}

var _ session.Reporter = (*Journal)(nil)

func (r *Journal) Report(ctx context.Context, s *session.Session) error {
	if err := r.Store.InsertSession(ctx, s); err != nil {
		return errors.Wrapf(err, "unable to journal session %s", s.ID)
	}

	return nil
}
