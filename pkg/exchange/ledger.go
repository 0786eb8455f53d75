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
	"github.com/scoir/canis-exchange/pkg/schema"
)

type transactionRef struct {
	TransactionID string `json:"transaction_id"`
}

// CreateSchema returns the id of a schema with the same name and version, creating it when absent.
func (r *Client) CreateSchema(ctx context.Context, def *schema.Definition) (string, error) {
	created := struct {
		SchemaIDs []string `json:"schema_ids"`
	}{}

	q := url.Values{"schema_name": {def.Name}, "schema_version": {def.Version}}
	if err := r.agent.Get(ctx, "/schemas/created", q, &created); err != nil {
		return "", errors.Wrap(err, "unable to list created schemas")
	}

	if len(created.SchemaIDs) > 0 {
		def.ID = created.SchemaIDs[0]
		r.log.Info().Str("schema_id", def.ID).Msg("schema found")
		return def.ID, nil
	}

	resp := struct {
		Sent struct {
			SchemaID string `json:"schema_id"`
		} `json:"sent"`
		SchemaID string          `json:"schema_id"`
		Txn      *transactionRef `json:"txn"`
	}{}

	body := &schema.Definition{Name: def.Name, Version: def.Version, Attributes: def.Attributes}
	if err := r.agent.Post(ctx, "/schemas", nil, body, &resp); err != nil {
		return "", errors.Wrap(err, "unable to create schema")
	}

	if err := r.waitForTransaction(ctx, resp.Txn); err != nil {
		return "", err
	}

	def.ID = resp.Sent.SchemaID
	if def.ID == "" {
		def.ID = resp.SchemaID
	}

	r.log.Info().Str("schema_id", def.ID).Msg("schema created")
	return def.ID, nil
}

// CreateCredentialDefinition returns the id of a credential definition for the schema with a
// matching tag and revocation support, creating it when absent.
func (r *Client) CreateCredentialDefinition(ctx context.Context, cd *schema.CredentialDefinition) (string, error) {
	req := cd.Request()
	if req.SchemaID == "" {
		return "", errors.New("credential definition has no schema id")
	}

	created := struct {
		IDs []string `json:"credential_definition_ids"`
	}{}

	q := url.Values{"schema_id": {req.SchemaID}}
	if cd.Schema != nil {
		q.Set("schema_name", cd.Schema.Name)
		q.Set("schema_version", cd.Schema.Version)
	}

	if err := r.agent.Get(ctx, "/credential-definitions/created", q, &created); err != nil {
		return "", errors.Wrap(err, "unable to list created credential definitions")
	}

	for _, id := range created.IDs {
		found := struct {
			CredentialDefinition struct {
				ID    string                 `json:"id"`
				Tag   string                 `json:"tag"`
				Value map[string]interface{} `json:"value"`
			} `json:"credential_definition"`
		}{}

		if err := r.agent.Get(ctx, "/credential-definitions/"+id, nil, &found); err != nil {
			return "", errors.Wrapf(err, "unable to read credential definition %s", id)
		}

		def := found.CredentialDefinition
		if def.Tag != req.Tag {
			continue
		}

		_, revocable := def.Value["revocation"]
		if revocable != req.SupportRevocation {
			continue
		}

		cd.ID = def.ID
		if cd.ID == "" {
			cd.ID = id
		}
		cd.Tag = def.Tag

		r.log.Info().Str("cred_def_id", cd.ID).Msg("credential definition found")
		return cd.ID, nil
	}

	resp := struct {
		Sent struct {
			CredentialDefinitionID string `json:"credential_definition_id"`
		} `json:"sent"`
		CredentialDefinitionID string          `json:"credential_definition_id"`
		Txn                    *transactionRef `json:"txn"`
	}{}

	if err := r.agent.Post(ctx, "/credential-definitions", nil, req, &resp); err != nil {
		return "", errors.Wrap(err, "unable to create credential definition")
	}

	if err := r.waitForTransaction(ctx, resp.Txn); err != nil {
		return "", err
	}

	cd.ID = resp.Sent.CredentialDefinitionID
	if cd.ID == "" {
		cd.ID = resp.CredentialDefinitionID
	}
	cd.SchemaID = req.SchemaID
	cd.Tag = req.Tag

	r.log.Info().Str("cred_def_id", cd.ID).Msg("credential definition created")
	return cd.ID, nil
}

// waitForTransaction waits for an endorsed ledger write. Agents writing directly return no transaction.
func (r *Client) waitForTransaction(ctx context.Context, txn *transactionRef) error {
	if txn == nil || txn.TransactionID == "" {
		return nil
	}

	id := txn.TransactionID
	r.log.Info().Str("transaction_id", id).Msg("waiting for ledger transaction")

	return r.waiter.Wait(ctx, "transaction "+id, func(ctx context.Context) (poll.Status, string, error) {
		rec := struct {
			State string `json:"state"`
		}{}

		if err := r.agent.Get(ctx, "/transactions/"+id, nil, &rec); err != nil {
			return poll.Pending, "", err
		}

		if rec.State == TransactionAcked {
			return poll.Success, rec.State, nil
		}

		return poll.Pending, rec.State, nil
	})
}
