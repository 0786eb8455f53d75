/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package invitation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/scoir/canis-exchange/pkg/outcome"
)

const (
	DefaultScheme = "bcwallet"

	ParamOOB      = "oob"
	ParamLegacy   = "c_i"
	ParamDeepLink = "url"
	paramDM       = "d_m"

	handshakeField = "handshake_protocols"
)

type Codec struct {
	Scheme     string
	HTTPClient *http.Client
}

type CodecOption func(c *Codec)

func WithScheme(scheme string) CodecOption {
	return func(c *Codec) {
		if scheme != "" {
			c.Scheme = scheme
		}
	}
}

func WithHTTPClient(client *http.Client) CodecOption {
	return func(c *Codec) {
		c.HTTPClient = client
	}
}

func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{
		Scheme:     DefaultScheme,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type encodeOpts struct {
	connectionless bool
}

type EncodeOption func(o *encodeOpts)

// Connectionless drops the handshake negotiation so the wallet answers the attached
// request without establishing a connection.
func Connectionless() EncodeOption {
	return func(o *encodeOpts) {
		o.connectionless = true
	}
}

// Encode renders doc as <scheme>://launch?oob=<base64(JSON(doc))>.
func (r *Codec) Encode(variant Variant, doc Document, opts ...EncodeOption) (*Invitation, error) {
	o := &encodeOpts{}
	for _, opt := range opts {
		opt(o)
	}

	out, err := Normalize(doc)
	if err != nil {
		return nil, err
	}

	if variant.OutOfBand() && o.connectionless {
		delete(out, handshakeField)
	}

	u, err := r.launchURL(ParamOOB, out)
	if err != nil {
		return nil, err
	}

	return &Invitation{
		Variant: variant,
		Payload: Payload{
			Invitation: out,
			URL:        u,
		},
	}, nil
}

// EncodeLegacy renders a connectionless request carrier with the c_i parameter.
func (r *Codec) EncodeLegacy(doc Document) (*Invitation, error) {
	out, err := Normalize(doc)
	if err != nil {
		return nil, err
	}

	u, err := r.launchURL(ParamLegacy, out)
	if err != nil {
		return nil, err
	}

	return &Invitation{
		Variant: ConnectionV1,
		Payload: Payload{
			Invitation: out,
			URL:        u,
		},
	}, nil
}

func (r *Codec) launchURL(param string, doc Document) (string, error) {
	b, err := Canonical(doc)
	if err != nil {
		return "", err
	}

	scheme := r.Scheme
	if scheme == "" {
		scheme = DefaultScheme
	}

	return scheme + "://launch?" + param + "=" + url.QueryEscape(base64.StdEncoding.EncodeToString(b)), nil
}

// Decode accepts an encoded launch URL, a plain document URL or raw JSON and returns the document.
// Deep link landing pages are unwrapped first.
func (r *Codec) Decode(ctx context.Context, input string) (Document, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, errors.New("empty invitation")
	}

	if strings.HasPrefix(input, "{") {
		return parseDocument([]byte(input))
	}

	input = Unwrap(input)

	u, err := url.Parse(input)
	if err != nil {
		return nil, errors.Wrap(err, "invalid invitation url")
	}

	if doc, ok, err := fromQuery(u); ok {
		return doc, err
	}

	if u.Scheme == "http" || u.Scheme == "https" {
		return r.fetch(ctx, u.String())
	}

	return nil, errors.Errorf("invitation url %s carries no invitation", input)
}

func fromQuery(u *url.URL) (Document, bool, error) {
	q := u.Query()
	for _, param := range []string{ParamOOB, ParamLegacy, paramDM} {
		v := q.Get(param)
		if v == "" {
			continue
		}

		b, err := decodeBase64(v)
		if err != nil {
			return nil, true, errors.Wrapf(err, "invalid %s parameter", param)
		}

		doc, err := parseDocument(b)
		return doc, true, err
	}

	return nil, false, nil
}

func (r *Codec) fetch(ctx context.Context, target string) (Document, error) {
	client := r.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "unable to build invitation request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, &outcome.TransportError{Op: "GET " + target, Err: err}
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, &outcome.TransportError{Op: "GET " + target, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &outcome.TransportError{Op: "GET " + target, StatusCode: resp.StatusCode, Body: snippet(body)}
	}

	doc, err := parseDocument(body)
	if err != nil && resp.Request != nil && resp.Request.URL != nil {
		// short links redirect to an encoded launch url
		if d, ok, qerr := fromQuery(resp.Request.URL); ok {
			return d, qerr
		}
	}

	return doc, err
}

func decodeBase64(v string) ([]byte, error) {
	v = strings.ReplaceAll(v, " ", "+")

	var err error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		var b []byte
		if b, err = enc.DecodeString(v); err == nil {
			return b, nil
		}
	}

	return nil, err
}

func parseDocument(b []byte) (Document, error) {
	doc := Document{}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, errors.Wrap(err, "invitation is not a JSON document")
	}

	return doc, nil
}

func snippet(b []byte) string {
	const max = 256
	if len(b) > max {
		return string(b[:max])
	}

	return string(b)
}
