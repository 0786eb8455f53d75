/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/scoir/canis-exchange/pkg/schema"
	"github.com/scoir/canis-exchange/pkg/session"
)

var issueFlags struct {
	credDefID     string
	schemaName    string
	schemaVersion string
	revocable     bool
	attrs         map[string]string
	v2            bool
	outOfBand     bool
	revoke        bool
	reason        string
}

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issues a credential to the holder",
	Long: `Connects the holder to the issuer, offers a credential and waits until the holder has stored it.

 Without --cred-def the schema and credential definition are found or created from --schema-name,
 --schema-version and the --attr names.`,
	RunE: runIssue,
}

func init() {
	addSessionFlags(issueCmd)
	f := issueCmd.Flags()
	f.StringVar(&issueFlags.credDefID, "cred-def", "", "credential definition id to issue against")
	f.StringVar(&issueFlags.schemaName, "schema-name", "", "schema to find or create when no credential definition is given")
	f.StringVar(&issueFlags.schemaVersion, "schema-version", "1.0", "schema version")
	f.BoolVar(&issueFlags.revocable, "revocable", false, "create a credential definition that supports revocation")
	f.StringToStringVar(&issueFlags.attrs, "attr", nil, "credential attribute as name=value, repeatable")
	f.BoolVar(&issueFlags.v2, "v2", false, "offer over issue-credential 2.0")
	f.BoolVar(&issueFlags.outOfBand, "oob", false, "attach the offer to the out-of-band invitation")
	f.BoolVar(&issueFlags.revoke, "revoke", false, "revoke the credential once it is issued")
	f.StringVar(&issueFlags.reason, "revoke-comment", "", "comment sent with the revocation")
	rootCmd.AddCommand(issueCmd)
}

func attributeNames(attrs map[string]string) []string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func issueOptions() ([]session.IssueOption, error) {
	if issueFlags.v2 && issueFlags.outOfBand {
		return nil, errors.New("--oob offers are issue-credential 1.0 only, drop --v2")
	}

	var opts []session.IssueOption
	if issueFlags.v2 {
		opts = append(opts, session.OfferV2())
	}
	if issueFlags.outOfBand {
		opts = append(opts, session.OfferOutOfBand())
	}
	if issueFlags.revoke {
		opts = append(opts, session.RevokeAfterIssue(issueFlags.reason))
	}

	return opts, nil
}

func runIssue(cmd *cobra.Command, _ []string) error {
	if len(issueFlags.attrs) == 0 {
		return errors.New("at least one --attr is required")
	}

	opts, err := issueOptions()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	v, err := variant()
	if err != nil {
		return err
	}

	issuer, err := prov.Issuer()
	if err != nil {
		return err
	}

	names := attributeNames(issueFlags.attrs)
	credDefID := issueFlags.credDefID
	if credDefID == "" {
		if issueFlags.schemaName == "" {
			return errors.New("either --cred-def or --schema-name is required")
		}

		def := &schema.Definition{Name: issueFlags.schemaName, Version: issueFlags.schemaVersion, Attributes: names}
		def.ID, err = issuer.CreateSchema(ctx, def)
		if err != nil {
			return err
		}

		credDefID, err = issuer.CreateCredentialDefinition(ctx, &schema.CredentialDefinition{
			Schema:            def,
			SupportRevocation: issueFlags.revocable,
		})
		if err != nil {
			return err
		}
		log.Info().Str("schema_id", def.ID).Str("cred_def_id", credDefID).Msg("credential definition ready")
	}

	o, err := orchestrator(ctx)
	if err != nil {
		return err
	}

	return runSessions(ctx, cmd.OutOrStdout(), func(ctx context.Context) (*session.Session, error) {
		preview := schema.NewCredentialPreview()
		for _, name := range names {
			preview.Add(name, issueFlags.attrs[name])
		}

		return o.IssueCredential(ctx, issuer, v, credDefID, preview, opts...)
	})
}
