/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package framework

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/scoir/canis-exchange/pkg/client/rest"
	"github.com/scoir/canis-exchange/pkg/poll"
)

type Endpoint struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Token    string `mapstructure:"token"`
}

func (r Endpoint) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type AMQPConfig struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	VHost    string `mapstructure:"vhost"`
}

func (r *AMQPConfig) Endpoint() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", r.User, r.Password, r.Host, r.Port, r.VHost)
}

// AgentConfig locates one agent admin API and how to authenticate against it.
type AgentConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	TenantID        string `mapstructure:"tenant_id"`
	APIKey          string `mapstructure:"api_key"`
	WalletID        string `mapstructure:"wallet_id"`
	WalletKey       string `mapstructure:"wallet_key"`
	Token           string `mapstructure:"token"`
	ServiceEndpoint string `mapstructure:"service_endpoint"`
	Label           string `mapstructure:"label"`
	ImageURL        string `mapstructure:"image_url"`
}

// Client builds an admin API client. A static token wins over tenant credentials, which
// win over wallet credentials; with none of them requests go out unauthenticated.
func (r *AgentConfig) Client(opts ...rest.Option) (*rest.Client, error) {
	if r.BaseURL == "" {
		return nil, errors.New("agent base_url is required")
	}

	var ts rest.TokenSource
	switch {
	case r.Token != "":
		ts = rest.StaticToken(r.Token)
	case r.TenantID != "":
		ts = rest.NewTenantToken(rest.New(r.BaseURL, opts...), r.TenantID, r.APIKey)
	case r.WalletID != "":
		ts = rest.NewWalletToken(rest.New(r.BaseURL, opts...), r.WalletID, r.WalletKey)
	}

	if ts != nil {
		opts = append(opts, rest.WithTokens(ts))
	}

	return rest.New(r.BaseURL, opts...), nil
}

const (
	EventsWebsocket = "websocket"
	EventsAMQP      = "amqp"

	DefaultWalletQueue = "wallet-events"
)

// WalletConfig points at an event-driven wallet runtime. Queue carries record events when
// Events is amqp; empty means DefaultWalletQueue.
type WalletConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	EventsURL string `mapstructure:"events_url"`
	Events    string `mapstructure:"events"`
	Queue     string `mapstructure:"queue"`
	Token     string `mapstructure:"token"`
}

type PollConfig struct {
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxAttempts      uint64        `mapstructure:"max_attempts"`
	Forever          bool          `mapstructure:"forever"`
	TransportRetries uint64        `mapstructure:"transport_retries"`
}

// Waiter builds the poll.Waiter these settings describe. Zero values keep the waiter defaults.
func (r *PollConfig) Waiter(l zerolog.Logger) *poll.Waiter {
	opts := []poll.Option{poll.WithLogger(l)}

	if r.Interval > 0 {
		opts = append(opts, poll.WithInterval(r.Interval))
	}
	if r.Timeout > 0 {
		opts = append(opts, poll.WithTimeout(r.Timeout))
	}
	if r.MaxAttempts > 0 {
		opts = append(opts, poll.WithMaxAttempts(r.MaxAttempts))
	}
	if r.TransportRetries > 0 {
		opts = append(opts, poll.WithTransportRetries(r.TransportRetries))
	}
	if r.Forever {
		opts = append(opts, poll.WaitForever())
	}

	return poll.New(opts...)
}

type TunnelConfig struct {
	Listen    Endpoint `mapstructure:"listen"`
	APIURL    string   `mapstructure:"api_url"`
	Dir       string   `mapstructure:"dir"`
	PublicURL string   `mapstructure:"public_url"`
}

// DefaultTunnelPort is where the document server listens when no port is configured.
const DefaultTunnelPort = 8089

// ListenAddress is the document server address, on DefaultTunnelPort unless one is set.
func (r *TunnelConfig) ListenAddress() string {
	ep := r.Listen
	if ep.Port == 0 {
		ep.Port = DefaultTunnelPort
	}
	return ep.Address()
}

type InvitationConfig struct {
	Scheme       string `mapstructure:"scheme"`
	DeepLinkPage string `mapstructure:"deep_link_page"`
}

type ManualConfig struct {
	Dir    string `mapstructure:"dir"`
	QRPath string `mapstructure:"qr_path"`
	QRSize int    `mapstructure:"qr_size"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}
