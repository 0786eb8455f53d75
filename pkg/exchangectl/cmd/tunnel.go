/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"github.com/spf13/cobra"
)

var tunnelCmd = &cobra.Command{
	Use:   "tunnel",
	Short: "Serves redirect invitation documents",
}

var tunnelServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Runs the document server behind the public tunnel",
	Long:  `Serves published invitation documents, and any already saved in tunnel.dir, until interrupted`,
	RunE:  runTunnelServe,
}

func init() {
	tunnelCmd.AddCommand(tunnelServeCmd)
	rootCmd.AddCommand(tunnelCmd)
}

func runTunnelServe(_ *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	srv, err := prov.Tunnel()
	if err != nil {
		return err
	}

	return srv.ListenAndServe(ctx)
}
