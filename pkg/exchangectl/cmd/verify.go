/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/scoir/canis-exchange/pkg/schema"
	"github.com/scoir/canis-exchange/pkg/session"
)

var verifyFlags struct {
	attrs          []string
	credDefID      string
	schemaName     string
	connectionless bool
	outOfBand      bool
	v2             bool
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Requests a proof from the holder",
	Long: `Requests a proof of the --attr attributes and waits for the verified presentation.

 With --connectionless the request travels inside the invitation and no connection is made.`,
	RunE: runVerify,
}

func init() {
	addSessionFlags(verifyCmd)
	f := verifyCmd.Flags()
	f.StringSliceVar(&verifyFlags.attrs, "attr", nil, "attribute to request, repeatable")
	f.StringVar(&verifyFlags.credDefID, "cred-def", "", "only accept attributes from this credential definition")
	f.StringVar(&verifyFlags.schemaName, "schema-name", "", "only accept attributes from credentials of this schema")
	f.BoolVar(&verifyFlags.connectionless, "connectionless", false, "send the request without a connection")
	f.BoolVar(&verifyFlags.outOfBand, "oob", false, "attach a connectionless request to an out-of-band invitation")
	f.BoolVar(&verifyFlags.v2, "v2", false, "use present-proof 2.0 for connectionless requests")
	rootCmd.AddCommand(verifyCmd)
}

func proofRequest() *schema.ProofRequest {
	restrictions := []*schema.Restriction{}
	if verifyFlags.credDefID != "" || verifyFlags.schemaName != "" {
		restrictions = append(restrictions, &schema.Restriction{
			CredDefID:  verifyFlags.credDefID,
			SchemaName: verifyFlags.schemaName,
		})
	}

	req := schema.NewProofRequest("canis-exchange")
	for _, name := range verifyFlags.attrs {
		req.AddAttribute(name, &schema.AttributeRequest{Name: name, Restrictions: restrictions})
	}

	return req
}

func runVerify(cmd *cobra.Command, _ []string) error {
	if len(verifyFlags.attrs) == 0 {
		return errors.New("at least one --attr is required")
	}

	ctx, cancel := signalContext()
	defer cancel()

	verifier, err := prov.Verifier()
	if err != nil {
		return err
	}

	o, err := orchestrator(ctx)
	if err != nil {
		return err
	}

	if verifyFlags.connectionless {
		mode := session.Mode{
			OutOfBand: verifyFlags.outOfBand,
			Redirect:  flags.redirect,
			DeepLink:  flags.deepLink,
			V2:        verifyFlags.v2,
		}

		return runSessions(ctx, cmd.OutOrStdout(), func(ctx context.Context) (*session.Session, error) {
			return o.VerifyConnectionless(ctx, verifier, proofRequest(), mode)
		})
	}

	v, err := variant()
	if err != nil {
		return err
	}

	return runSessions(ctx, cmd.OutOrStdout(), func(ctx context.Context) (*session.Session, error) {
		return o.RequestProof(ctx, verifier, v, proofRequest())
	})
}
