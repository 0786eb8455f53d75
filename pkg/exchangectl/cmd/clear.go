/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Deletes exchange records from the issuer and verifier agents",
	Long:  `Deletes presentation, credential and connection records from the issuer and verifier agents, keeping endorser connections`,
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(_ *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	issuer, err := prov.Issuer()
	if err != nil {
		return err
	}

	if err := issuer.ClearAllRecords(ctx); err != nil {
		return err
	}

	verifier, err := prov.Verifier()
	if err != nil {
		return err
	}

	if verifier == issuer {
		return nil
	}

	return verifier.ClearAllRecords(ctx)
}
