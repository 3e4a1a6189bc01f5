package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phoenix-rest/internal/config"
	"phoenix-rest/internal/logging"
	"phoenix-rest/internal/protocol"
	"phoenix-rest/internal/signing"
	"phoenix-rest/internal/token"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func testConfig(t *testing.T, raw string) config.Client {
	t.Helper()
	cfg := config.Default()
	require.NoError(t, cfg.ApplyURL(raw))
	return cfg
}

func newTestClient(t *testing.T, rt roundTripFunc) *PhoenixClient {
	t.Helper()
	c, err := New(&http.Client{Transport: rt}, testConfig(t, "http://k:s@api.example.test/apps/3"), logging.New(false))
	require.NoError(t, err)
	return c
}

func failingTransport(t *testing.T) roundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected request %s %s", req.Method, req.URL)
		return nil, nil
	}
}

func verifySignature(t *testing.T, req *http.Request, secret string) {
	t.Helper()
	query := req.URL.Query()
	sig := query.Get(signing.SignatureParam)
	query.Del(signing.SignatureParam)
	want := signing.Sign(secret, signing.CanonicalRequest(req.Method, req.URL.Path, query))
	assert.Equal(t, want, sig)
}

func TestTrigger_SendsSignedEvent(t *testing.T) {
	var got protocol.EventRequest
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/apps/3/events", req.URL.Path)
		assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &got))

		query := req.URL.Query()
		assert.Equal(t, "k", query.Get("auth_key"))
		assert.Equal(t, token.AuthVersion, query.Get("auth_version"))
		assert.Equal(t, signing.BodyMD5(body), query.Get("body_md5"))
		assert.NotEmpty(t, query.Get("auth_timestamp"))
		verifySignature(t, req, "s")
		return jsonResponse(http.StatusOK, "{}\n"), nil
	})

	_, err := c.Trigger(context.Background(), []string{"a", "b"}, "created", map[string]any{"id": 1}, TriggerOptions{SocketID: "1234.5678"})
	require.NoError(t, err)
	assert.Equal(t, "created", got.Name)
	assert.Equal(t, []string{"a", "b"}, got.Channels)
	assert.JSONEq(t, `{"id":1}`, got.Data)
	assert.Equal(t, "1234.5678", got.SocketID)
}

func TestTrigger_StringDataPassesThrough(t *testing.T) {
	var got protocol.EventRequest
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		return jsonResponse(http.StatusOK, "{}"), nil
	})

	_, err := c.Trigger(context.Background(), []string{"a"}, "e", `{"already":"json"}`, TriggerOptions{})
	require.NoError(t, err)
	assert.Equal(t, `{"already":"json"}`, got.Data)
	assert.Empty(t, got.SocketID)
}

func TestTrigger_RejectsBeforeSending(t *testing.T) {
	tooMany := make([]string, protocol.MaxTriggerChannels+1)
	for i := range tooMany {
		tooMany[i] = "channel"
	}

	tests := []struct {
		name     string
		channels []string
		event    string
		data     any
		socketID string
		want     error
	}{
		{name: "too many channels", channels: tooMany, event: "e", data: "x", want: protocol.ErrCapacity},
		{name: "cap checked before names", channels: append(tooMany, "bad name"), event: "e", data: "x", want: protocol.ErrCapacity},
		{name: "illegal channel", channels: []string{"bad:name"}, event: "e", data: "x", want: protocol.ErrValidation},
		{name: "no channels", channels: nil, event: "e", data: "x", want: protocol.ErrValidation},
		{name: "empty event", channels: []string{"a"}, event: " ", data: "x", want: protocol.ErrValidation},
		{name: "bad socket id", channels: []string{"a"}, event: "e", data: "x", socketID: "1234", want: protocol.ErrValidation},
		{name: "unencodable data", channels: []string{"a"}, event: "e", data: make(chan int), want: protocol.ErrSerialization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, failingTransport(t))
			_, err := c.Trigger(context.Background(), tt.channels, tt.event, tt.data, TriggerOptions{SocketID: tt.socketID})
			require.ErrorIs(t, err, tt.want)
			assert.True(t, protocol.IsProgrammerError(err))
		})
	}
}

func TestTrigger_UnconfiguredClient(t *testing.T) {
	cfg := config.Default()
	c, err := New(&http.Client{Transport: failingTransport(t)}, cfg, logging.New(false))
	require.NoError(t, err)
	assert.False(t, c.Configured())

	_, err = c.Trigger(context.Background(), []string{"a"}, "e", "x", TriggerOptions{})
	require.ErrorIs(t, err, protocol.ErrConfiguration)
}

func TestTrigger_MissingAppID(t *testing.T) {
	cfg := config.Default()
	cfg.Key, cfg.Secret = "k", "s"
	c, err := New(&http.Client{Transport: failingTransport(t)}, cfg, logging.New(false))
	require.NoError(t, err)

	_, err = c.Trigger(context.Background(), []string{"a"}, "e", "x", TriggerOptions{})
	require.ErrorIs(t, err, protocol.ErrConfiguration)
	assert.Contains(t, err.Error(), "app_id")

	_, err = c.Users(context.Background(), "room")
	require.ErrorIs(t, err, protocol.ErrConfiguration)
}

func TestResponseStatusMapping(t *testing.T) {
	tests := []struct {
		status  int
		body    string
		want    error
		message string
	}{
		{status: http.StatusBadRequest, body: "Unknown auth_key\n", want: protocol.ErrMalformedRequest, message: "Unknown auth_key"},
		{status: http.StatusUnauthorized, body: "Invalid signature", want: protocol.ErrAuthentication, message: "Invalid signature"},
		{status: http.StatusNotFound, body: "", want: protocol.ErrNotFound, message: "/apps/3/channels/missing/users"},
		{status: http.StatusInternalServerError, body: "boom", want: protocol.ErrService, message: "500"},
		{status: http.StatusAccepted, body: "", want: protocol.ErrService, message: "202"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
				return jsonResponse(tt.status, tt.body), nil
			})
			_, err := c.Users(context.Background(), "missing")
			require.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), tt.message)

			var statusErr *protocol.StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
			assert.Equal(t, strings.TrimRight(tt.body, "\n"), statusErr.Body)
		})
	}
}

func TestUsers_DecodesBody(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, "/apps/3/channels/presence-room/users", req.URL.Path)
		verifySignature(t, req, "s")
		assert.Empty(t, req.URL.Query().Get("body_md5"))
		return jsonResponse(http.StatusOK, `{"users":[{"id":"4"}]}`), nil
	})

	users, err := c.Users(context.Background(), "presence-room")
	require.NoError(t, err)
	assert.Equal(t, []protocol.User{{ID: "4"}}, users)
}

func TestChannels_SendsFilterAndInfo(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		query := req.URL.Query()
		assert.Equal(t, "presence-", query.Get("filter_by_prefix"))
		assert.Equal(t, "user_count,subscription_count", query.Get("info"))
		verifySignature(t, req, "s")
		return jsonResponse(http.StatusOK, `{"channels":{"presence-a":{"user_count":2}}}`), nil
	})

	resp, err := c.Channels(context.Background(), ChannelsQuery{FilterByPrefix: "presence-", Info: []string{"user_count", "subscription_count"}})
	require.NoError(t, err)
	require.Contains(t, resp.Channels, "presence-a")
	require.NotNil(t, resp.Channels["presence-a"].UserCount)
	assert.Equal(t, 2, *resp.Channels["presence-a"].UserCount)
}

func TestChannelInfo(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/apps/3/channels/room", req.URL.Path)
		return jsonResponse(http.StatusOK, `{"occupied":true,"subscription_count":3}`), nil
	})

	info, err := c.ChannelInfo(context.Background(), "room", "subscription_count")
	require.NoError(t, err)
	assert.True(t, info.Occupied)
	require.NotNil(t, info.SubscriptionCount)
	assert.Equal(t, 3, *info.SubscriptionCount)
	assert.Nil(t, info.UserCount)
}

func TestGet_PreservesCallerParams(t *testing.T) {
	params := url.Values{"info": []string{"user_count"}}
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{}`), nil
	})

	var out map[string]any
	require.NoError(t, c.Get(context.Background(), "/channels", params, &out))
	assert.Equal(t, url.Values{"info": []string{"user_count"}}, params)
}

func TestPost_InvalidResponseJSON(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `not json`), nil
	})

	var out map[string]any
	err := c.Post(context.Background(), "/events", map[string]string{"name": "e"}, &out)
	require.ErrorIs(t, err, protocol.ErrTransport)
}

func TestBearerModeSetsAuthorizationHeader(t *testing.T) {
	cfg := testConfig(t, "http://k:s@api.example.test/apps/3")
	cfg.AuthMode = token.ModeBearer
	c, err := New(&http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		assert.True(t, strings.HasPrefix(req.Header.Get("Authorization"), "Bearer "))
		assert.Empty(t, req.URL.Query().Get(signing.SignatureParam))
		return jsonResponse(http.StatusOK, `{}`), nil
	})}, cfg, logging.New(false))
	require.NoError(t, err)

	_, err = c.Trigger(context.Background(), []string{"a"}, "e", "x", TriggerOptions{})
	require.NoError(t, err)
}

func TestTransportErrorOnConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	raw := strings.Replace(server.URL, "http://", "http://k:s@", 1) + "/apps/3"
	server.Close()

	cfg := testConfig(t, raw)
	c, err := New(nil, cfg, logging.New(false))
	require.NoError(t, err)

	_, err = c.Trigger(context.Background(), []string{"a"}, "e", "x", TriggerOptions{})
	require.ErrorIs(t, err, protocol.ErrTransport)
	var transportErr *protocol.TransportError
	require.ErrorAs(t, err, &transportErr)
	require.NotNil(t, transportErr.Err)
	assert.False(t, protocol.IsProgrammerError(err))
}

func TestTransportErrorOnTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cfg := testConfig(t, strings.Replace(server.URL, "http://", "http://k:s@", 1)+"/apps/3")
	cfg.SetTimeout(50 * time.Millisecond)
	c, err := New(nil, cfg, logging.New(false))
	require.NoError(t, err)

	_, err = c.Users(context.Background(), "room")
	var transportErr *protocol.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.True(t, transportErr.Timeout())
}

func TestContextCancelledIsTransportError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, req.Context().Err()
	})

	_, err := c.Users(ctx, "room")
	require.ErrorIs(t, err, protocol.ErrTransport)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNew_PanicsWithoutLogger(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = New(nil, config.Default(), nil)
	})
}

func TestNew_RejectsUnknownAuthMode(t *testing.T) {
	cfg := config.Default()
	cfg.AuthMode = token.Mode("oauth")
	_, err := New(nil, cfg, logging.New(false))
	require.ErrorIs(t, err, protocol.ErrConfiguration)
}
