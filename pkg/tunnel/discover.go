/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package tunnel publishes invitation documents at a public URL served through a local tunnel agent.
package tunnel

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/scoir/canis-exchange/pkg/outcome"
)

const DefaultAPIURL = "http://127.0.0.1:4040"

// Discoverer finds the public URL of the running tunnel.
type Discoverer struct {
	APIURL     string
	PublicURL  string
	HTTPClient *http.Client
}

type tunnelList struct {
	Tunnels []struct {
		Name      string `json:"name"`
		PublicURL string `json:"public_url"`
		Proto     string `json:"proto"`
	} `json:"tunnels"`
}

func NewDiscoverer(apiURL, publicURL string) *Discoverer {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	return &Discoverer{
		APIURL:     strings.TrimRight(apiURL, "/"),
		PublicURL:  strings.TrimRight(publicURL, "/"),
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Discover returns the static public URL when configured, else the first https tunnel,
// else the first tunnel of any kind.
func (r *Discoverer) Discover(ctx context.Context) (string, error) {
	if r.PublicURL != "" {
		return r.PublicURL, nil
	}

	target := r.APIURL + "/api/tunnels"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", errors.Wrap(err, "unable to build tunnel request")
	}

	client := r.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", &outcome.TransportError{Op: "GET " + target, Err: err}
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", &outcome.TransportError{Op: "GET " + target, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return "", &outcome.TransportError{Op: "GET " + target, StatusCode: resp.StatusCode, Body: string(body)}
	}

	list := &tunnelList{}
	if err := json.Unmarshal(body, list); err != nil {
		return "", &outcome.TransportError{Op: "GET " + target, Err: errors.Wrap(err, "undecodable tunnel list")}
	}

	var first string
	for _, t := range list.Tunnels {
		if t.PublicURL == "" {
			continue
		}
		if strings.HasPrefix(t.PublicURL, "https://") {
			return strings.TrimRight(t.PublicURL, "/"), nil
		}
		if first == "" {
			first = t.PublicURL
		}
	}

	if first == "" {
		return "", errors.New("no tunnels running")
	}

	return strings.TrimRight(first, "/"), nil
}
