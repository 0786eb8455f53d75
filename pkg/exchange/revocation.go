/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"context"
	"net/url"

	"github.com/pkg/errors"

	"github.com/scoir/canis-exchange/pkg/poll"
)

// RevokeCredential revokes and publishes, notifying the holder.
func (r *Client) RevokeCredential(ctx context.Context, cred *CredentialExchange, comment string) error {
	if cred.RevocationID == "" || cred.RevocRegID == "" {
		return errors.Errorf("credential exchange %s carries no revocation ids", cred.CredentialExchangeID)
	}

	body := map[string]interface{}{
		"comment":        comment,
		"connection_id":  cred.ConnectionID,
		"cred_rev_id":    cred.RevocationID,
		"notify":         true,
		"notify_version": "v1_0",
		"publish":        true,
		"rev_reg_id":     cred.RevocRegID,
	}

	if err := r.agent.Post(ctx, "/revocation/revoke", nil, body, nil); err != nil {
		return errors.Wrap(err, "unable to revoke credential")
	}

	r.log.Info().
		Str("rev_reg_id", cred.RevocRegID).
		Str("cred_rev_id", cred.RevocationID).
		Msg("credential revoked")

	return nil
}

// WaitForCredentialRevoked waits for the revocation record to report revoked.
func (r *Client) WaitForCredentialRevoked(ctx context.Context, revRegID, credRevID string) error {
	q := url.Values{"cred_rev_id": {credRevID}, "rev_reg_id": {revRegID}}

	return r.waiter.Wait(ctx, "revocation "+revRegID+"/"+credRevID, func(ctx context.Context) (poll.Status, string, error) {
		resp := struct {
			Result struct {
				State string `json:"state"`
			} `json:"result"`
		}{}

		if err := r.agent.Get(ctx, "/revocation/credential-record", q, &resp); err != nil {
			return poll.Pending, "", err
		}

		if resp.Result.State == Revoked {
			return poll.Success, resp.Result.State, nil
		}

		return poll.Pending, resp.Result.State, nil
	})
}
