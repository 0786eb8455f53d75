/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/scoir/canis-exchange/pkg/notifier"
)

var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Relays session notifications to webhooks",
}

var notifierStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts the webhook notifier",
	Long:  `Consumes session notifications from the broker and posts each one to the webhooks registered for its topic`,
	RunE:  runNotifierStart,
}

func init() {
	notifierCmd.AddCommand(notifierStartCmd)
	rootCmd.AddCommand(notifierCmd)
}

func runNotifierStart(_ *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	log.Info().Msg("starting webhook notifier")

	srv, err := notifier.New(prov, notifier.WithLogger(log.Logger))
	if err != nil {
		return err
	}

	return srv.Start(ctx)
}
