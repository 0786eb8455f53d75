/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scoir/canis-exchange/pkg/client/rest"
	"github.com/scoir/canis-exchange/pkg/client/rest/resttest"
	"github.com/scoir/canis-exchange/pkg/invitation"
	"github.com/scoir/canis-exchange/pkg/session"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Cleanup(func() {
		prov, recorder = nil, nil
		cfgFile, recordFile = "", ""
	})

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, yaml string) string {
	file := filepath.Join(t.TempDir(), "canis-exchange.yaml")
	require.NoError(t, ioutil.WriteFile(file, []byte(yaml), 0600))
	return file
}

func TestClearCommand(t *testing.T) {
	agent := resttest.NewAgent(t)
	agent.Reply("GET /present-proof/records", map[string]interface{}{"results": []interface{}{}})
	agent.Reply("GET /issue-credential/records", map[string]interface{}{"results": []interface{}{}})
	agent.Sequence("GET /connections",
		map[string]interface{}{"results": []interface{}{
			map[string]interface{}{"connection_id": "conn-1"},
			map[string]interface{}{"connection_id": "conn-2", "alias": "ledger-endorser"},
		}},
		map[string]interface{}{"results": []interface{}{
			map[string]interface{}{"connection_id": "conn-2", "alias": "ledger-endorser"},
		}},
	)
	agent.Reply("DELETE /connections/conn-1", map[string]interface{}{})

	conf := writeConfig(t, fmt.Sprintf("issuer:\n  base_url: %s\n  token: issuer-token\n", agent.URL()))
	record := filepath.Join(t.TempDir(), "requests.json")

	_, err := execute(t, "clear", "--config", conf, "--record", record)
	require.NoError(t, err)
	require.Equal(t, 1, agent.Count("DELETE /connections/conn-1"))
	require.Equal(t, 0, agent.Count("DELETE /connections/conn-2"))

	d, err := ioutil.ReadFile(record)
	require.NoError(t, err)

	var requests []rest.RecordedRequest
	require.NoError(t, json.Unmarshal(d, &requests))

	deletes := 0
	for _, rec := range requests {
		if rec.Method == "delete" {
			deletes++
			require.Equal(t, "/connections/{connection_id}", rec.URL)
		}
	}
	require.Equal(t, 1, deletes)
}

func TestClearCommand_NoIssuer(t *testing.T) {
	conf := writeConfig(t, "log:\n  level: error\n")

	_, err := execute(t, "clear", "--config", conf)
	require.Error(t, err)
	require.Contains(t, err.Error(), "issuer.base_url")
}

func TestIssueCommand_NeedsAttributes(t *testing.T) {
	conf := writeConfig(t, "log:\n  level: error\n")

	_, err := execute(t, "issue", "--config", conf)
	require.Error(t, err)
	require.Contains(t, err.Error(), "--attr")
}

func TestAttributeNames(t *testing.T) {
	names := attributeNames(map[string]string{"name": "Alice", "degree": "Maths", "age": "24"})
	require.Equal(t, []string{"age", "degree", "name"}, names)
}

func TestProofRequest(t *testing.T) {
	defer func() { verifyFlags.attrs, verifyFlags.credDefID = nil, "" }()

	verifyFlags.attrs = []string{"name", "degree"}
	verifyFlags.credDefID = "WgWxqztrNooG92RXvxSTWv:3:CL:20:tag"

	req := proofRequest()
	require.Len(t, req.RequestedAttributes, 2)
	require.Equal(t, "name", req.RequestedAttributes["name"].Name)
	require.Equal(t, "WgWxqztrNooG92RXvxSTWv:3:CL:20:tag", req.RequestedAttributes["degree"].Restrictions[0].CredDefID)
	require.NotEqual(t, req.Nonce, proofRequest().Nonce)
}

func TestPrintSessions(t *testing.T) {
	started := time.Date(2020, 9, 1, 12, 0, 0, 0, time.UTC)
	sessions := []*session.Session{
		{
			ID:       "s-1",
			Scenario: session.ScenarioConnect,
			Variant:  invitation.ConnectionV1,
			State:    session.StateCompleted,
			Stages:   []*session.Stage{{Name: session.StageConnection}},
			Started:  started,
			Finished: started.Add(1500 * time.Millisecond),
		},
		nil,
		{
			ID:       "s-2",
			Scenario: session.ScenarioConnect,
			State:    session.StateFailed,
			Error:    "timed out",
			Started:  started,
			Finished: started.Add(time.Second),
		},
	}

	out := &bytes.Buffer{}
	printSessions(out, sessions)

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	require.Contains(t, string(lines[1]), "wait-connection")
	require.Contains(t, string(lines[1]), "1.5s")
	require.Contains(t, string(lines[2]), "timed out")
}

func TestIssueOptions(t *testing.T) {
	defer func() {
		issueFlags.v2, issueFlags.outOfBand, issueFlags.revoke, issueFlags.reason = false, false, false, ""
	}()

	opts, err := issueOptions()
	require.NoError(t, err)
	require.Empty(t, opts)

	issueFlags.v2 = true
	issueFlags.revoke = true
	issueFlags.reason = "lost"
	opts, err = issueOptions()
	require.NoError(t, err)
	require.Len(t, opts, 2)

	issueFlags.outOfBand = true
	_, err = issueOptions()
	require.Error(t, err)
	require.Contains(t, err.Error(), "--oob")
}

func TestMessageCommand_NeedsContent(t *testing.T) {
	defer func() { messageFlags.content, messageFlags.reply = "Hello", "ok" }()

	conf := writeConfig(t, "log:\n  level: error\n")

	_, err := execute(t, "message", "--config", conf, "--content", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "--content")
}
