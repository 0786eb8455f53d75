/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/scoir/canis-exchange/pkg/session"
)

var messageFlags struct {
	content string
	reply   string
}

var messageCmd = &cobra.Command{
	Use:   "message",
	Short: "Exchanges basic messages with the holder",
	Long: `Connects the holder to the issuer, sends the holder a basic message and waits until the
 holder's reply reaches the issuer. The reply is matched without regard to case.`,
	RunE: runMessage,
}

func init() {
	addSessionFlags(messageCmd)
	f := messageCmd.Flags()
	f.StringVar(&messageFlags.content, "content", "Hello", "message sent to the holder")
	f.StringVar(&messageFlags.reply, "reply", "ok", "reply the holder sends back")
	rootCmd.AddCommand(messageCmd)
}

func runMessage(cmd *cobra.Command, _ []string) error {
	if messageFlags.content == "" || messageFlags.reply == "" {
		return errors.New("--content and --reply must not be empty")
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

	o, err := orchestrator(ctx)
	if err != nil {
		return err
	}

	return runSessions(ctx, cmd.OutOrStdout(), func(ctx context.Context) (*session.Session, error) {
		return o.Message(ctx, issuer, v, messageFlags.content, messageFlags.reply)
	})
}
