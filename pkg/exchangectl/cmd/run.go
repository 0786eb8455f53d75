/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/scoir/canis-exchange/pkg/invitation"
	"github.com/scoir/canis-exchange/pkg/session"
)

type sessionFlags struct {
	holder   string
	variant  string
	redirect bool
	fallback bool
	deepLink bool
	sessions int
}

var flags sessionFlags

func addSessionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&flags.holder, "holder", "rest", "holder to drive: rest, wallet or manual")
	f.StringVar(&flags.variant, "variant", string(invitation.ConnectionV1),
		"invitation variant: connection-v1, oob-connection-v1 or oob-didexchange-v1.1")
	f.BoolVar(&flags.redirect, "redirect", false, "publish invitations through the tunnel and hand the holder the short link")
	f.BoolVar(&flags.fallback, "redirect-fallback", false, "use the encoded invitation when the tunnel is unavailable")
	f.BoolVar(&flags.deepLink, "deep-link", false, "wrap invitation links in the configured landing page")
	f.IntVar(&flags.sessions, "sessions", 1, "number of sessions to run concurrently")
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// orchestrator wires the configured holder, reporters and redirect publisher together. The
// tunnel, when used, serves until ctx ends.
func orchestrator(ctx context.Context) (*session.Orchestrator, error) {
	h, err := prov.Holder(ctx, flags.holder)
	if err != nil {
		return nil, err
	}

	rep, err := prov.Reporter()
	if err != nil {
		return nil, err
	}

	opts := []session.Option{
		session.WithReporter(rep),
		session.WithLogger(log.Logger),
	}

	if flags.redirect {
		srv, err := prov.Tunnel()
		if err != nil {
			return nil, err
		}

		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				log.Error().Err(err).Msg("document server stopped")
			}
		}()

		opts = append(opts, session.WithRedirect(srv))
		if flags.fallback {
			opts = append(opts, session.WithRedirectFallback())
		}
	}

	if flags.deepLink {
		page := prov.DeepLinkPage()
		if page == "" {
			return nil, errors.New("--deep-link needs invitation.deep_link_page in the configuration")
		}
		opts = append(opts, session.WithDeepLink(page))
	}

	return session.New(h, opts...), nil
}

func variant() (invitation.Variant, error) {
	return invitation.ParseVariant(flags.variant)
}

// runSessions runs fn --sessions times concurrently and prints a summary of every session.
func runSessions(ctx context.Context, out io.Writer, fn func(ctx context.Context) (*session.Session, error)) error {
	n := flags.sessions
	if n < 1 {
		n = 1
	}

	sessions, err := session.RunConcurrently(ctx, n, fn)
	printSessions(out, sessions)

	return err
}

func printSessions(out io.Writer, sessions []*session.Session) {
	tab := tabwriter.NewWriter(out, 10, 4, 3, ' ', 0)
	_, _ = fmt.Fprintln(tab, "ID\tSCENARIO\tSTATE\tSTAGE\tELAPSED\tERROR")

	for _, s := range sessions {
		if s == nil {
			continue
		}

		stage := ""
		if last := s.LastStage(); last != nil {
			stage = last.Name
		}

		_, _ = fmt.Fprintf(tab, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Scenario, s.State, stage, s.Finished.Sub(s.Started).Round(time.Millisecond), s.Error)
	}

	_ = tab.Flush()
}
