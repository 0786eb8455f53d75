/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scoir/canis-exchange/pkg/datastore"
	"github.com/scoir/canis-exchange/pkg/notifier"
	"github.com/scoir/canis-exchange/pkg/session"
)

var listFlags struct {
	criteria datastore.SessionCriteria
	scenario string
	state    string
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Reads the session journal",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists journaled sessions, newest first",
	RunE:  runSessionsList,
}

var sessionsGetCmd = &cobra.Command{
	Use:   "get <session-id>",
	Short: "Prints one journaled session with its stages",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsGet,
}

var webhooksCmd = &cobra.Command{
	Use:   "webhooks",
	Short: "Manages the webhooks session notifications are posted to",
}

var webhooksAddCmd = &cobra.Command{
	Use:   "add <url>",
	Short: "Registers a webhook for session notifications",
	Args:  cobra.ExactArgs(1),
	RunE:  runWebhooksAdd,
}

func init() {
	f := sessionsListCmd.Flags()
	f.IntVar(&listFlags.criteria.Start, "start", 0, "number of sessions to skip")
	f.IntVar(&listFlags.criteria.PageSize, "page-size", datastore.DefaultPageSize, "number of sessions to list")
	f.StringVar(&listFlags.scenario, "scenario", "", "only sessions of this scenario")
	f.StringVar(&listFlags.state, "state", "", "only sessions in this state")
	f.StringVar(&listFlags.criteria.CorrelationID, "correlation-id", "", "only sessions with this correlation id")

	sessionsCmd.AddCommand(sessionsListCmd, sessionsGetCmd)
	webhooksCmd.AddCommand(webhooksAddCmd)
	rootCmd.AddCommand(sessionsCmd, webhooksCmd)
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	store, err := prov.Store()
	if err != nil {
		return err
	}

	criteria := listFlags.criteria
	criteria.Scenario = session.Scenario(listFlags.scenario)
	criteria.State = session.State(listFlags.state)

	list, err := store.ListSessions(ctx, &criteria)
	if err != nil {
		return err
	}

	printSessions(cmd.OutOrStdout(), list.Sessions)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\nSessions matching: %d\n", list.Count)
	return nil
}

func runSessionsGet(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	store, err := prov.Store()
	if err != nil {
		return err
	}

	s, err := store.GetSession(ctx, args[0])
	if err != nil {
		return err
	}

	d, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(d))
	return err
}

func runWebhooksAdd(_ *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	store, err := prov.Store()
	if err != nil {
		return err
	}

	return store.InsertWebhook(ctx, &datastore.Webhook{Type: notifier.SessionTopic, URL: args[0]})
}
