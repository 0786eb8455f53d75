/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/scoir/canis-exchange/pkg/session"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connects the holder to the issuer",
	Long:  `Creates an invitation on the issuer, hands it to the holder and waits until the connection is active`,
	RunE:  runConnect,
}

func init() {
	addSessionFlags(connectCmd)
	rootCmd.AddCommand(connectCmd)
}

func runConnect(cmd *cobra.Command, _ []string) error {
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

	o, err := orchestrator(ctx)
	if err != nil {
		return err
	}

	return runSessions(ctx, cmd.OutOrStdout(), func(ctx context.Context) (*session.Session, error) {
		return o.Connect(ctx, issuer, v)
	})
}
