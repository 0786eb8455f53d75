/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package context

import (
	"context"

	"github.com/pkg/errors"

	"github.com/scoir/canis-exchange/pkg/config"
	"github.com/scoir/canis-exchange/pkg/exchange"
	"github.com/scoir/canis-exchange/pkg/framework"
	"github.com/scoir/canis-exchange/pkg/holder"
	"github.com/scoir/canis-exchange/pkg/wallet"
)

// Holder kinds selectable from the command line.
const (
	HolderREST   = "rest"
	HolderWallet = "wallet"
	HolderManual = "manual"
)

func (r *Provider) exchangeClient(ac *framework.AgentConfig) (*exchange.Client, error) {
	agent, err := ac.Client(r.restOptions()...)
	if err != nil {
		return nil, err
	}

	waiter, err := r.getWaiter()
	if err != nil {
		return nil, err
	}

	codec, err := r.getCodec()
	if err != nil {
		return nil, err
	}

	return exchange.New(agent,
		exchange.WithWaiter(waiter),
		exchange.WithCodec(codec),
		exchange.WithLogger(r.log),
		exchange.WithLabel(ac.Label),
		exchange.WithImageURL(ac.ImageURL),
		exchange.WithServiceEndpoint(ac.ServiceEndpoint),
	), nil
}

// Issuer is the exchange client for the issuer section.
func (r *Provider) Issuer() (*exchange.Client, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.issuer != nil {
		return r.issuer, nil
	}

	ac, err := r.conf.Agent(config.Issuer)
	if err != nil {
		return nil, err
	}

	r.issuer, err = r.exchangeClient(ac)
	return r.issuer, err
}

// Verifier is the exchange client for the verifier section, or the issuer when no
// verifier is configured.
func (r *Provider) Verifier() (*exchange.Client, error) {
	r.lock.Lock()
	if r.verifier != nil {
		defer r.lock.Unlock()
		return r.verifier, nil
	}

	ac, err := r.conf.Agent(config.Verifier)
	if err != nil {
		r.lock.Unlock()
		r.log.Debug().Err(err).Msg("no verifier configured, using the issuer agent")
		return r.Issuer()
	}
	defer r.lock.Unlock()

	r.verifier, err = r.exchangeClient(ac)
	return r.verifier, err
}

// Holder builds the holder of the given kind. A wallet holder's event stream stays open until ctx ends.
func (r *Provider) Holder(ctx context.Context, kind string) (holder.Client, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	waiter, err := r.getWaiter()
	if err != nil {
		return nil, err
	}

	codec, err := r.getCodec()
	if err != nil {
		return nil, err
	}

	opts := []holder.Option{
		holder.WithWaiter(waiter),
		holder.WithCodec(codec),
		holder.WithLogger(r.log),
	}

	switch kind {
	case HolderREST, "":
		ac, err := r.conf.Agent(config.Holder)
		if err != nil {
			return nil, err
		}

		agent, err := ac.Client(r.restOptions()...)
		if err != nil {
			return nil, err
		}

		return holder.NewREST(agent, opts...), nil
	case HolderWallet:
		return r.walletHolder(ctx, opts)
	case HolderManual:
		mc, err := r.conf.Manual()
		if err != nil {
			return nil, err
		}

		opts = append(opts, holder.WithOutputDir(mc.Dir), holder.WithQRCode(mc.QRPath, mc.QRSize))
		return holder.NewManual(opts...), nil
	}

	return nil, errors.Errorf("unknown holder %q, want %s, %s or %s", kind, HolderREST, HolderWallet, HolderManual)
}

func (r *Provider) walletHolder(ctx context.Context, opts []holder.Option) (holder.Client, error) {
	wc, err := r.conf.Wallet()
	if err != nil {
		return nil, err
	}

	ac := &framework.AgentConfig{BaseURL: wc.BaseURL, Token: wc.Token}
	api, err := ac.Client(r.restOptions()...)
	if err != nil {
		return nil, errors.Wrap(err, "wallet")
	}

	var stream wallet.Stream
	switch wc.Events {
	case framework.EventsAMQP:
		listener, err := r.listener(wc.Queue)
		if err != nil {
			return nil, err
		}
		stream = wallet.NewAMQPStream(listener, wallet.WithStreamLogger(r.log))
	default:
		if wc.EventsURL == "" {
			return nil, errors.New("wallet.events_url is required for websocket events")
		}
		stream = wallet.NewWebsocketStream(wc.EventsURL, wallet.WithStreamLogger(r.log))
	}

	hub := wallet.NewHub(stream, wallet.WithHubLogger(r.log))
	if err := hub.Start(ctx); err != nil {
		return nil, err
	}

	return holder.NewWallet(wallet.NewClient(api), hub, opts...), nil
}
