package channel

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phoenix-rest/internal/client"
	"phoenix-rest/internal/logging"
	"phoenix-rest/internal/protocol"
)

type fakeDispatcher struct {
	configured bool
	err        error
	calls      int
	channels   []string
	event      string
	data       any
	opts       client.TriggerOptions
	users      []protocol.User
	info       protocol.ChannelInfo
	infoAttrs  []string
}

func (f *fakeDispatcher) Trigger(_ context.Context, channels []string, event string, data any, opts client.TriggerOptions) (protocol.TriggerResponse, error) {
	f.calls++
	f.channels, f.event, f.data, f.opts = channels, event, data, opts
	if f.err != nil {
		return protocol.TriggerResponse{}, f.err
	}
	return protocol.TriggerResponse{}, nil
}

func (f *fakeDispatcher) Users(_ context.Context, _ string) ([]protocol.User, error) {
	return f.users, f.err
}

func (f *fakeDispatcher) ChannelInfo(_ context.Context, _ string, info ...string) (protocol.ChannelInfo, error) {
	f.infoAttrs = info
	return f.info, f.err
}

func (f *fakeDispatcher) Configured() bool {
	return f.configured
}

func expectedAuth(key string, secret string, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return key + ":" + hex.EncodeToString(mac.Sum(nil))
}

func testAuthorizer() *Authorizer {
	return NewAuthorizer(protocol.Credentials{Key: "k", Secret: "s"}, logging.New(false))
}

func TestAuthorize_PrivateChannel(t *testing.T) {
	payload, err := testAuthorizer().Authorize("private-foo", "1234.5678", nil)
	require.NoError(t, err)
	assert.Equal(t, expectedAuth("k", "s", "1234.5678:private-foo"), payload.Auth)
	assert.Empty(t, payload.ChannelData)

	encoded, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), "channel_data")
}

func TestAuthorize_PresenceChannelData(t *testing.T) {
	payload, err := testAuthorizer().Authorize("presence-foo", "1234.5678", map[string]string{"user_id": "4"})
	require.NoError(t, err)
	assert.Equal(t, `{"user_id":"4"}`, payload.ChannelData)
	assert.Equal(t, expectedAuth("k", "s", `1234.5678:presence-foo:{"user_id":"4"}`), payload.Auth)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(payload.ChannelData), &decoded))
	assert.Equal(t, map[string]string{"user_id": "4"}, decoded)
}

func TestAuthorize_RawChannelDataPassesThrough(t *testing.T) {
	payload, err := testAuthorizer().Authorize("presence-foo", "1.2", json.RawMessage(`{"user_id":"9"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"user_id":"9"}`, payload.ChannelData)

	_, err = testAuthorizer().Authorize("presence-foo", "1.2", []byte(`{broken`))
	require.ErrorIs(t, err, protocol.ErrSerialization)
}

func TestAuthorize_NullChannelDataIsOmitted(t *testing.T) {
	var nilUser *protocol.User
	for name, data := range map[string]any{
		"raw":     json.RawMessage("null"),
		"bytes":   []byte(" null\n"),
		"nil ptr": nilUser,
	} {
		t.Run(name, func(t *testing.T) {
			payload, err := testAuthorizer().Authorize("presence-foo", "1234.5678", data)
			require.NoError(t, err)
			assert.Empty(t, payload.ChannelData)
			assert.Equal(t, expectedAuth("k", "s", "1234.5678:presence-foo"), payload.Auth)
		})
	}
}

func TestAuthorize_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		channel  string
		socketID string
		data     any
		want     error
	}{
		{name: "bad channel", channel: "private foo", socketID: "1.2", want: protocol.ErrValidation},
		{name: "socket without dot", channel: "private-foo", socketID: "12", want: protocol.ErrValidation},
		{name: "socket with letters", channel: "private-foo", socketID: "1.2a", want: protocol.ErrValidation},
		{name: "unencodable data", channel: "private-foo", socketID: "1.2", data: func() {}, want: protocol.ErrSerialization},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testAuthorizer().Authorize(tt.channel, tt.socketID, tt.data)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAuthorize_MissingCredentials(t *testing.T) {
	a := NewAuthorizer(protocol.Credentials{Key: "k"}, logging.New(false))
	_, err := a.Authorize("private-foo", "1.2", nil)
	require.ErrorIs(t, err, protocol.ErrConfiguration)
}

func TestNew(t *testing.T) {
	_, err := New(&fakeDispatcher{}, testAuthorizer(), "room")
	require.ErrorIs(t, err, protocol.ErrConfiguration)

	_, err = New(&fakeDispatcher{configured: true}, testAuthorizer(), "room:1")
	require.ErrorIs(t, err, protocol.ErrValidation)

	ch, err := New(&fakeDispatcher{configured: true}, testAuthorizer(), "room")
	require.NoError(t, err)
	assert.Equal(t, "room", ch.Name())
}

func TestChannelTrigger_Delegates(t *testing.T) {
	d := &fakeDispatcher{configured: true}
	ch, err := New(d, testAuthorizer(), "room")
	require.NoError(t, err)

	_, err = ch.Trigger(context.Background(), "created", map[string]int{"id": 1}, "1.2")
	require.NoError(t, err)
	assert.Equal(t, []string{"room"}, d.channels)
	assert.Equal(t, "created", d.event)
	assert.Equal(t, "1.2", d.opts.SocketID)
}

func TestTriggerSoft(t *testing.T) {
	transportErr := &protocol.TransportError{Method: "POST", URL: "http://x", Err: context.DeadlineExceeded}
	tests := []struct {
		name       string
		err        error
		wantReturn error
		wantResult error
	}{
		{name: "success"},
		{name: "service error", err: &protocol.StatusError{StatusCode: 500, Body: "boom"}, wantResult: protocol.ErrService},
		{name: "auth error", err: &protocol.StatusError{StatusCode: 401}, wantResult: protocol.ErrAuthentication},
		{name: "transport error", err: transportErr, wantResult: protocol.ErrTransport},
		{name: "validation is returned", err: protocol.ErrValidation, wantReturn: protocol.ErrValidation},
		{name: "capacity is returned", err: protocol.ErrCapacity, wantReturn: protocol.ErrCapacity},
		{name: "serialization is returned", err: protocol.ErrSerialization, wantReturn: protocol.ErrSerialization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := logging.New(false)
			logger.SetOutput(&logs)
			d := &fakeDispatcher{configured: true, err: tt.err}
			ch, err := New(d, NewAuthorizer(protocol.Credentials{Key: "k", Secret: "s"}, logger), "room")
			require.NoError(t, err)

			result, err := ch.TriggerSoft(context.Background(), "e", "x", "")
			if tt.wantReturn != nil {
				require.ErrorIs(t, err, tt.wantReturn)
				return
			}
			require.NoError(t, err)
			if tt.wantResult == nil {
				assert.True(t, result.OK())
				assert.Empty(t, logs.String())
				return
			}
			assert.False(t, result.OK())
			assert.ErrorIs(t, result.Err, tt.wantResult)
			assert.Contains(t, logs.String(), "trigger failed")
		})
	}
}

func TestAuthenticationString(t *testing.T) {
	ch, err := New(&fakeDispatcher{configured: true}, testAuthorizer(), "presence-foo")
	require.NoError(t, err)

	got, err := ch.AuthenticationString("1234.5678", `{"user_id":"4"}`)
	require.NoError(t, err)
	assert.Equal(t, expectedAuth("k", "s", `1234.5678:presence-foo:{"user_id":"4"}`), got)

	_, err = ch.AuthenticationString("bogus", "")
	require.ErrorIs(t, err, protocol.ErrValidation)

	payload, err := ch.Authenticate("1234.5678", map[string]string{"user_id": "4"})
	require.NoError(t, err)
	assert.Equal(t, got, payload.Auth)
}

func TestUsersAndInfoPassThrough(t *testing.T) {
	count := 2
	d := &fakeDispatcher{
		configured: true,
		users:      []protocol.User{{ID: "4"}},
		info:       protocol.ChannelInfo{Occupied: true, UserCount: &count},
	}
	ch, err := New(d, testAuthorizer(), "presence-foo")
	require.NoError(t, err)

	users, err := ch.Users(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []protocol.User{{ID: "4"}}, users)

	info, err := ch.Info(context.Background(), "user_count")
	require.NoError(t, err)
	assert.True(t, info.Occupied)
	assert.Equal(t, []string{"user_count"}, d.infoAttrs)
}
