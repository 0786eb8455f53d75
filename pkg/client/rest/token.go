/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// expirySkew refreshes tokens slightly before the agent would reject them.
const expirySkew = 30 * time.Second

// StaticToken always returns the same token.
type StaticToken string

func (r StaticToken) Token(context.Context) (string, error) {
	if r == "" {
		return "", errors.New("no token configured")
	}

	return string(r), nil
}

func (r StaticToken) Invalidate(string) {}

// TenantToken fetches a tenant bearer token from the multitenancy API and caches it.
// One TenantToken is shared by every session talking to the same tenant.
type TenantToken struct {
	client    *Client
	tenantID  string
	apiKey    string
	walletID  string
	walletKey string
	now       func() time.Time

	lock  sync.RWMutex
	token string
}

// NewTenantToken authenticates as a tenant with its API key.
func NewTenantToken(client *Client, tenantID, apiKey string) *TenantToken {
	return &TenantToken{client: client, tenantID: tenantID, apiKey: apiKey, now: time.Now}
}

// NewWalletToken authenticates with a wallet id and key.
func NewWalletToken(client *Client, walletID, walletKey string) *TenantToken {
	return &TenantToken{client: client, walletID: walletID, walletKey: walletKey, now: time.Now}
}

// Seed primes the cache with a token obtained elsewhere.
func (r *TenantToken) Seed(token string) {
	r.lock.Lock()
	r.token = token
	r.lock.Unlock()
}

func (r *TenantToken) Token(ctx context.Context) (string, error) {
	r.lock.RLock()
	token := r.token
	r.lock.RUnlock()

	if r.usable(token) {
		return token, nil
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if r.usable(r.token) {
		return r.token, nil
	}

	token, err := r.fetch(ctx)
	if err != nil {
		return "", err
	}

	r.token = token
	return token, nil
}

func (r *TenantToken) Invalidate(token string) {
	r.lock.Lock()
	if r.token == token {
		r.token = ""
	}
	r.lock.Unlock()
}

func (r *TenantToken) usable(token string) bool {
	if token == "" {
		return false
	}

	exp, ok := expiry(token)
	if !ok {
		return true
	}

	return r.now().Add(expirySkew).Before(exp)
}

func (r *TenantToken) fetch(ctx context.Context) (string, error) {
	var (
		path string
		body map[string]string
	)

	switch {
	case r.tenantID != "":
		path = "/multitenancy/tenant/" + r.tenantID + "/token"
		body = map[string]string{"api_key": r.apiKey}
	case r.walletID != "":
		path = "/multitenancy/wallet/" + r.walletID + "/token"
		body = map[string]string{"wallet_key": r.walletKey}
	default:
		return "", errors.New("neither tenant id nor wallet id configured")
	}

	resp := struct {
		Token string `json:"token"`
	}{}

	if err := r.client.Post(ctx, path, nil, body, &resp); err != nil {
		return "", errors.Wrap(err, "unable to obtain tenant token")
	}

	if resp.Token == "" {
		return "", errors.Errorf("%s returned no token", path)
	}

	return resp.Token, nil
}

// expiry reads the exp claim without verifying the signature. Tokens that are not JWTs
// or carry no exp never expire locally.
func expiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}

	return exp.Time, true
}
