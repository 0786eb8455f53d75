/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package config loads the exchange configuration from files, environment and flags.
package config

import "github.com/scoir/canis-exchange/pkg/framework"

// Agent roles with their own configuration section.
const (
	Issuer   = "issuer"
	Verifier = "verifier"
	Holder   = "holder"
)

type Provider interface {
	Load(file string) (Config, error)
}

type Config interface {
	WithAMQP(opts ...Option) Config
	AMQPAddress() string
	AMQPConfig() (*framework.AMQPConfig, error)

	WithDatastore(opts ...Option) Config
	DataStore() (*framework.DatastoreConfig, error)

	Agent(role string) (*framework.AgentConfig, error)
	Wallet() (*framework.WalletConfig, error)
	Polling() (*framework.PollConfig, error)
	Tunnel() (*framework.TunnelConfig, error)
	Invitation() (*framework.InvitationConfig, error)
	Manual() (*framework.ManualConfig, error)
	Log() (*framework.LogConfig, error)

	// Webhooks is the static topic -> URLs registry.
	Webhooks() (map[string][]string, error)

	GetString(s string) string
	GetInt(s string) int
	GetBool(s string) bool

	Endpoint(s string) (*framework.Endpoint, error)
}
