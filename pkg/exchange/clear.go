/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// clearRounds bounds the list/delete passes per record kind.
const clearRounds = 50

// ClearAllRecords deletes presentation, credential and connection records, keeping endorser connections.
func (r *Client) ClearAllRecords(ctx context.Context) error {
	r.log.Info().Msg("clearing presentation exchange records")
	err := r.clear(ctx, "/present-proof/records", func(rec map[string]interface{}) string {
		id, _ := rec["presentation_exchange_id"].(string)
		return id
	})
	if err != nil {
		return err
	}

	r.log.Info().Msg("clearing credential exchange records")
	err = r.clear(ctx, "/issue-credential/records", func(rec map[string]interface{}) string {
		id, _ := rec["credential_exchange_id"].(string)
		return id
	})
	if err != nil {
		return err
	}

	r.log.Info().Msg("clearing connections")
	return r.clear(ctx, "/connections", func(rec map[string]interface{}) string {
		if alias, _ := rec["alias"].(string); strings.HasSuffix(alias, endorserAliasSuffix) {
			return ""
		}
		id, _ := rec["connection_id"].(string)
		return id
	})
}

// clear lists path and deletes each record that id names, repeating until nothing deletable is left.
func (r *Client) clear(ctx context.Context, path string, id func(map[string]interface{}) string) error {
	for round := 0; round < clearRounds; round++ {
		list := struct {
			Results []map[string]interface{} `json:"results"`
		}{}

		if err := r.agent.Get(ctx, path, nil, &list); err != nil {
			return errors.Wrapf(err, "unable to list %s", path)
		}

		var ids []string
		for _, rec := range list.Results {
			if i := id(rec); i != "" {
				ids = append(ids, i)
			}
		}

		if len(ids) == 0 {
			return nil
		}

		for _, i := range ids {
			if err := r.agent.Delete(ctx, path+"/"+i); err != nil {
				return errors.Wrapf(err, "unable to delete %s/%s", path, i)
			}
		}
	}

	return errors.Errorf("records under %s still present after %d passes", path, clearRounds)
}
