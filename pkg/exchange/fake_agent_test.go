/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package exchange

import (
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/scoir/canis-exchange/pkg/client/rest/resttest"
	"github.com/scoir/canis-exchange/pkg/poll"
)

type fakeAgent struct {
	*resttest.Agent
}

func newFakeAgent(t *testing.T) *fakeAgent {
	return &fakeAgent{Agent: resttest.NewAgent(t)}
}

func (r *fakeAgent) on(route string, h func(w http.ResponseWriter, req *http.Request, n int)) {
	r.On(route, h)
}

func (r *fakeAgent) reply(route string, v interface{}) {
	r.Reply(route, v)
}

func (r *fakeAgent) sequence(route string, vs ...interface{}) {
	r.Sequence(route, vs...)
}

func (r *fakeAgent) count(route string) int {
	return r.Count(route)
}

func (r *fakeAgent) body(route string, i int) map[string]interface{} {
	return r.Body(route, i)
}

func (r *fakeAgent) client(opts ...Option) *Client {
	waiter := poll.New(
		poll.WithInterval(5*time.Millisecond),
		poll.WithTimeout(500*time.Millisecond),
		poll.WithLogger(zerolog.Nop()),
	)

	all := append([]Option{WithWaiter(waiter), WithLogger(zerolog.Nop())}, opts...)
	return New(r.Client(), all...)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	resttest.WriteJSON(w, v)
}

type obj = map[string]interface{}
