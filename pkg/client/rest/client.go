/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package rest is a small JSON client for agent admin APIs.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/scoir/canis-exchange/pkg/outcome"
)

// TokenSource supplies bearer tokens for a tenant.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	// Invalidate drops token if it is still the cached one.
	Invalidate(token string)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	log        zerolog.Logger
}

type Option func(c *Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTokens(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithRecorder routes every request through rec. Apply it after WithHTTPClient.
func WithRecorder(rec *Recorder) Option {
	return func(c *Client) {
		rec.addPrefix(c.baseURL)
		hc := *c.httpClient
		hc.Transport = rec.Wrap(hc.Transport)
		c.httpClient = &hc
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.Logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (r *Client) BaseURL() string {
	return r.baseURL
}

func (r *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return r.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (r *Client) Post(ctx context.Context, path string, query url.Values, body, out interface{}) error {
	return r.Do(ctx, http.MethodPost, path, query, body, out)
}

func (r *Client) Delete(ctx context.Context, path string) error {
	return r.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Do sends one JSON request. A 401 invalidates the bearer token and the request is retried once.
func (r *Client) Do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, "unable to marshal %s %s request", method, path)
		}
	}

	op := method + " " + path

	status, respBody, token, err := r.send(ctx, method, path, query, payload)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && r.tokens != nil {
		r.log.Debug().Str("op", op).Msg("bearer token rejected, refreshing")
		r.tokens.Invalidate(token)

		status, respBody, _, err = r.send(ctx, method, path, query, payload)
		if err != nil {
			return err
		}
	}

	if status < 200 || status > 299 {
		return &outcome.TransportError{Op: op, StatusCode: status, Body: snippet(respBody)}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &outcome.TransportError{Op: op, Err: errors.Wrap(err, "undecodable response")}
	}

	return nil
}

func (r *Client) send(ctx context.Context, method, path string, query url.Values, payload []byte) (int, []byte, string, error) {
	op := method + " " + path

	target := r.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, "", errors.Wrapf(err, "unable to build %s request", op)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var token string
	if r.tokens != nil {
		token, err = r.tokens.Token(ctx)
		if err != nil {
			return 0, nil, "", err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return 0, nil, token, &outcome.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	b, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, token, &outcome.TransportError{Op: op, Err: err}
	}

	r.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("agent request")

	return resp.StatusCode, b, token, nil
}

// IsNotFound reports whether err is a 404 from the agent.
func IsNotFound(err error) bool {
	var te *outcome.TransportError
	return errors.As(err, &te) && te.StatusCode == http.StatusNotFound
}

func snippet(b []byte) string {
	const max = 512
	if len(b) > max {
		return string(b[:max])
	}

	return string(b)
}
