/*
Copyright Scoir Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/scoir/canis-exchange/pkg/outcome"
)

func TestClient(t *testing.T) {
	t.Run("get decodes json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/connections/abc", r.URL.Path)
			require.Equal(t, "x", r.URL.Query().Get("state"))
			_, _ = w.Write([]byte(`{"state":"active"}`))
		}))
		defer srv.Close()

		out := struct {
			State string `json:"state"`
		}{}
		c := New(srv.URL+"/", WithLogger(zerolog.Nop()))
		err := c.Get(context.Background(), "/connections/abc", url.Values{"state": {"x"}}, &out)
		require.NoError(t, err)
		require.Equal(t, "active", out.State)
	})

	t.Run("post sends json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "application/json", r.Header.Get("Content-Type"))
			body := map[string]string{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "hello", body["content"])
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c := New(srv.URL, WithLogger(zerolog.Nop()))
		err := c.Post(context.Background(), "/connections/abc/send-message", nil, map[string]string{"content": "hello"}, nil)
		require.NoError(t, err)
	})

	t.Run("non 2xx is a transport error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("no such record"))
		}))
		defer srv.Close()

		err := New(srv.URL, WithLogger(zerolog.Nop())).Delete(context.Background(), "/connections/abc")
		require.True(t, outcome.IsTransport(err))
		require.True(t, IsNotFound(err))
		require.Contains(t, err.Error(), "no such record")
	})

	t.Run("undecodable response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}))
		defer srv.Close()

		out := map[string]interface{}{}
		err := New(srv.URL, WithLogger(zerolog.Nop())).Get(context.Background(), "/status", nil, &out)
		require.True(t, outcome.IsTransport(err))
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		err := New(srv.URL, WithLogger(zerolog.Nop())).Get(context.Background(), "/status", nil, nil)
		require.True(t, outcome.IsTransport(err))
	})

	t.Run("rejected token is refreshed once", func(t *testing.T) {
		var issued int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/multitenancy/tenant/t1/token":
				n := atomic.AddInt32(&issued, 1)
				_, _ = w.Write([]byte(`{"token":"token-` + string(rune('0'+n)) + `"}`))
			default:
				if r.Header.Get("Authorization") != "Bearer token-2" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				_, _ = w.Write([]byte(`{}`))
			}
		}))
		defer srv.Close()

		tokens := NewTenantToken(New(srv.URL, WithLogger(zerolog.Nop())), "t1", "key")
		c := New(srv.URL, WithTokens(tokens), WithLogger(zerolog.Nop()))

		require.NoError(t, c.Get(context.Background(), "/connections", nil, nil))
		require.Equal(t, int32(2), atomic.LoadInt32(&issued))
	})
}

func signed(t *testing.T, exp time.Time) string {
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp.Unix()}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return s
}

func TestTenantToken(t *testing.T) {
	t.Run("concurrent callers share one fetch", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			body := map[string]string{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			require.Equal(t, "key", body["api_key"])
			time.Sleep(20 * time.Millisecond)
			_, _ = w.Write([]byte(`{"token":"opaque"}`))
		}))
		defer srv.Close()

		tokens := NewTenantToken(New(srv.URL, WithLogger(zerolog.Nop())), "t1", "key")

		wg := sync.WaitGroup{}
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tok, err := tokens.Token(context.Background())
				require.NoError(t, err)
				require.Equal(t, "opaque", tok)
			}()
		}
		wg.Wait()

		require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("expired jwt is refreshed", func(t *testing.T) {
		fresh := signed(t, time.Now().Add(time.Hour))
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/multitenancy/wallet/w1/token", r.URL.Path)
			_, _ = w.Write([]byte(`{"token":"` + fresh + `"}`))
		}))
		defer srv.Close()

		tokens := NewWalletToken(New(srv.URL, WithLogger(zerolog.Nop())), "w1", "wkey")
		tokens.Seed(signed(t, time.Now().Add(-time.Minute)))

		tok, err := tokens.Token(context.Background())
		require.NoError(t, err)
		require.Equal(t, fresh, tok)
	})

	t.Run("valid seeded jwt is reused", func(t *testing.T) {
		seeded := signed(t, time.Now().Add(time.Hour))
		tokens := NewTenantToken(New("http://127.0.0.1:1", WithLogger(zerolog.Nop())), "t1", "key")
		tokens.Seed(seeded)

		tok, err := tokens.Token(context.Background())
		require.NoError(t, err)
		require.Equal(t, seeded, tok)
	})

	t.Run("invalidate only drops the current token", func(t *testing.T) {
		tokens := NewTenantToken(nil, "t1", "key")
		tokens.Seed("current")
		tokens.Invalidate("stale")

		tok, err := tokens.Token(context.Background())
		require.NoError(t, err)
		require.Equal(t, "current", tok)
	})

	t.Run("no credentials", func(t *testing.T) {
		_, err := NewTenantToken(nil, "", "").Token(context.Background())
		require.Error(t, err)
	})
}

func TestStaticToken(t *testing.T) {
	tok, err := StaticToken("abc").Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, "abc", tok)

	_, err = StaticToken("").Token(context.Background())
	require.Error(t, err)
}
