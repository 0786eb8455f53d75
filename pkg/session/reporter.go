/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package session

import (
	"context"

	"github.com/rs/zerolog"
)

// Reporter is told about every finished session.
//go:generate mockery -name=Reporter
type Reporter interface {
	Report(ctx context.Context, s *Session) error
}

// LogReporter writes one summary line per session.
type LogReporter struct {
	Logger zerolog.Logger
}

func (r *LogReporter) Report(_ context.Context, s *Session) error {
	var ev *zerolog.Event
	if s.State == StateCompleted {
		ev = r.Logger.Info()
	} else {
		ev = r.Logger.Error().Str("error", s.Error).Str("kind", s.ErrorKind)
	}

	stage := ""
	if last := s.LastStage(); last != nil {
		stage = last.Name
	}

	ev.Str("session_id", s.ID).
		Str("scenario", string(s.Scenario)).
		Str("variant", string(s.Variant)).
		Str("state", string(s.State)).
		Str("stage", stage).
		Str("correlation_id", s.CorrelationID).
		Str("exchange_id", s.ExchangeID).
		Dur("elapsed", s.Finished.Sub(s.Started)).
		Msg("session finished")

	return nil
}

// Reporters fans a session out to every reporter and returns the first error.
type Reporters []Reporter

func (r Reporters) Report(ctx context.Context, s *Session) error {
	var first error
	for _, rep := range r {
		if err := rep.Report(ctx, s); err != nil && first == nil {
			first = err
		}
	}

	return first
}
