/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/scoir/canis-exchange/pkg/framework"
	"github.com/scoir/canis-exchange/pkg/invitation"
	"github.com/scoir/canis-exchange/pkg/poll"
	"github.com/scoir/canis-exchange/pkg/tunnel"
)

const (
	DefaultConfigName = "canis-exchange"

	defaultAMQP      = "canis-amqp-config"
	defaultDataStore = "canis-data-store-config"
)

// Option configures the config...
type Option func(opts *vpr)

// WithFile merges the given file instead of the default one for that section.
func WithFile(file string) Option {
	return func(opts *vpr) {
		opts.file = file
	}
}

type ViperConfigProvider struct {
	DefaultConfigName string
	// Flags are bound in addition to the global command line set.
	Flags *pflag.FlagSet
}

type vpr struct {
	*viper.Viper
	file string
}

// FromViper wraps an already populated viper instance.
func FromViper(vp *viper.Viper) Config {
	setDefaults(vp)
	return &vpr{Viper: vp}
}

func setDefaults(vp *viper.Viper) {
	vp.SetDefault("polling.interval", poll.DefaultInterval)
	vp.SetDefault("polling.timeout", poll.DefaultTimeout)
	vp.SetDefault("invitation.scheme", invitation.DefaultScheme)
	vp.SetDefault("tunnel.api_url", tunnel.DefaultAPIURL)
	vp.SetDefault("tunnel.listen.port", framework.DefaultTunnelPort)
	vp.SetDefault("wallet.events", framework.EventsWebsocket)
	vp.SetDefault("wallet.queue", framework.DefaultWalletQueue)
	vp.SetDefault("manual.qr_path", "invitation.png")
	vp.SetDefault("manual.qr_size", 256)
	vp.SetDefault("log.level", "info")
}

// Load reads file, or the default config name from /etc/canis/ and ./deploy/compose/.
// A missing default file is not an error; environment and flags still apply.
func (r *ViperConfigProvider) Load(file string) (Config, error) {
	config := &vpr{
		viper.New(),
		"", // really don't like this
	}

	if file != "" {
		config.SetConfigFile(file)
	} else {
		name := r.DefaultConfigName
		if name == "" {
			name = DefaultConfigName
		}

		config.SetConfigType("yaml")
		config.AddConfigPath("/etc/canis/")
		config.AddConfigPath("./deploy/compose/")
		config.SetConfigName(name)
	}

	config.SetEnvPrefix("CANIS")
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()
	setDefaults(config.Viper)

	err := config.BindPFlags(pflag.CommandLine)
	if err != nil {
		return nil, errors.Wrap(err, "failed to bind flags")
	}

	if r.Flags != nil {
		if err := config.BindPFlags(r.Flags); err != nil {
			return nil, errors.Wrap(err, "failed to bind flags")
		}
	}

	err = config.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrapf(err, "failed to read config %s", config.ConfigFileUsed())
		}

		log.Debug().Str("name", r.DefaultConfigName).Msg("no config file found, using environment and flags")
	}

	return config, nil
}

func (r *vpr) WithDatastore(opts ...Option) Config {
	for _, opt := range opts {
		opt(r)
	}

	return r.with(r.file, defaultDataStore)
}

func (r *vpr) WithAMQP(opts ...Option) Config {
	for _, opt := range opts {
		opt(r)
	}

	return r.with(r.file, defaultAMQP)
}

func (r *vpr) with(file, defawlt string) Config {
	if file != "" {
		r.file = ""
		return r.withFile(r.SetConfigFile, file, true)
	}

	return r.withFile(r.SetConfigName, defawlt, false)
}

func (r *vpr) withFile(setter func(name string), file string, required bool) Config {
	setter(file)

	err := r.MergeInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if required || !errors.As(err, &notFound) {
			log.Fatal().Err(err).Str("file", r.ConfigFileUsed()).Msg("failed to merge")
		}
	}

	return r
}

func (r *vpr) AMQPAddress() string {
	amqpUser := r.GetString("amqp.user")
	amqpPwd := r.GetString("amqp.password")
	amqpHost := r.GetString("amqp.host")
	amqpPort := r.GetInt("amqp.port")
	amqpVHost := r.GetString("amqp.vhost")

	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", amqpUser, amqpPwd, amqpHost, amqpPort, amqpVHost)
}

func (r *vpr) unmarshal(key string, out interface{}) error {
	if err := r.UnmarshalKey(key, out); err != nil {
		return errors.Wrapf(err, "invalid %s key in configuration", key)
	}
	return nil
}

func (r *vpr) AMQPConfig() (*framework.AMQPConfig, error) {
	config := &framework.AMQPConfig{}
	if err := r.unmarshal("amqp", config); err != nil {
		return nil, err
	}

	return config, nil
}

func (r *vpr) DataStore() (*framework.DatastoreConfig, error) {
	dc := &framework.DatastoreConfig{}
	if err := r.unmarshal("datastore", dc); err != nil {
		return nil, err
	}

	return dc, nil
}

func (r *vpr) Agent(role string) (*framework.AgentConfig, error) {
	ac := &framework.AgentConfig{}
	if err := r.unmarshal(role, ac); err != nil {
		return nil, err
	}

	if ac.BaseURL == "" {
		return nil, errors.Errorf("%s.base_url is not configured", role)
	}

	return ac, nil
}

func (r *vpr) Wallet() (*framework.WalletConfig, error) {
	wc := &framework.WalletConfig{}
	if err := r.unmarshal("wallet", wc); err != nil {
		return nil, err
	}

	switch wc.Events {
	case "":
		wc.Events = framework.EventsWebsocket
	case framework.EventsWebsocket, framework.EventsAMQP:
	default:
		return nil, errors.Errorf("unknown wallet event transport %q", wc.Events)
	}

	if wc.Queue == "" {
		wc.Queue = framework.DefaultWalletQueue
	}

	return wc, nil
}

func (r *vpr) Polling() (*framework.PollConfig, error) {
	pc := &framework.PollConfig{}
	if err := r.unmarshal("polling", pc); err != nil {
		return nil, err
	}

	return pc, nil
}

func (r *vpr) Tunnel() (*framework.TunnelConfig, error) {
	tc := &framework.TunnelConfig{}
	if err := r.unmarshal("tunnel", tc); err != nil {
		return nil, err
	}

	return tc, nil
}

func (r *vpr) Invitation() (*framework.InvitationConfig, error) {
	ic := &framework.InvitationConfig{}
	if err := r.unmarshal("invitation", ic); err != nil {
		return nil, err
	}

	return ic, nil
}

func (r *vpr) Manual() (*framework.ManualConfig, error) {
	mc := &framework.ManualConfig{}
	if err := r.unmarshal("manual", mc); err != nil {
		return nil, err
	}

	return mc, nil
}

func (r *vpr) Log() (*framework.LogConfig, error) {
	lc := &framework.LogConfig{}
	if err := r.unmarshal("log", lc); err != nil {
		return nil, err
	}

	return lc, nil
}

func (r *vpr) Webhooks() (map[string][]string, error) {
	hooks := map[string][]string{}
	if err := r.unmarshal("webhooks", &hooks); err != nil {
		return nil, err
	}

	return hooks, nil
}

// GetString uses Get because recursion
func (r *vpr) GetString(s string) string {
	ret, _ := r.Get(s).(string)

	return ret
}

// GetInt uses Get because same recursion
func (r *vpr) GetInt(s string) int {
	ret, _ := r.Get(s).(int)

	return ret
}

func (r *vpr) GetBool(s string) bool {
	ret, _ := r.Get(s).(bool)

	return ret
}

func (r *vpr) Endpoint(key string) (*framework.Endpoint, error) {
	ep := &framework.Endpoint{}

	err := r.UnmarshalKey(key, ep)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load key "+key)
	}

	return ep, nil
}
