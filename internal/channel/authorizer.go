package channel

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"phoenix-rest/internal/logging"
	"phoenix-rest/internal/protocol"
	"phoenix-rest/internal/token"
)

// Authorizer signs subscription requests for private and presence
// channels. It performs no I/O.
type Authorizer struct {
	creds  protocol.Credentials
	logger *logging.Logger
}

func NewAuthorizer(creds protocol.Credentials, logger *logging.Logger) *Authorizer {
	if logger == nil {
		panic("channel.NewAuthorizer: logger must not be nil")
	}
	return &Authorizer{creds: creds, logger: logger}
}

// Authorize returns the payload a client presents when subscribing.
// customData is JSON-encoded unless it is already raw JSON; nil or a JSON
// null omits channel_data entirely.
func (a *Authorizer) Authorize(channelName string, socketID string, customData any) (protocol.AuthPayload, error) {
	if err := protocol.ValidateChannelName(channelName); err != nil {
		return protocol.AuthPayload{}, err
	}
	if err := protocol.ValidateSocketID(socketID); err != nil {
		return protocol.AuthPayload{}, err
	}

	var channelData string
	if customData != nil {
		encoded, err := encodeChannelData(customData)
		if err != nil {
			a.logger.Error("could not convert channel data into JSON",
				logging.Field("channel", channelName),
				logging.Field("error", err),
			)
			return protocol.AuthPayload{}, fmt.Errorf("%w: %v", protocol.ErrSerialization, err)
		}
		channelData = encoded
	}

	auth, err := token.IssueSocketAuth(a.creds, socketID, channelName, channelData)
	if err != nil {
		return protocol.AuthPayload{}, err
	}
	a.logger.Debug("authorized subscription", logging.Field("channel", channelName), logging.Field("socket_id", socketID))
	return protocol.AuthPayload{Auth: auth, ChannelData: channelData}, nil
}

var errInvalidChannelData = errors.New("channel data is not valid JSON")

func encodeChannelData(data any) (string, error) {
	var encoded []byte
	switch v := data.(type) {
	case json.RawMessage:
		encoded = v
	case []byte:
		encoded = v
	default:
		var err error
		if encoded, err = json.Marshal(data); err != nil {
			return "", err
		}
	}
	if !json.Valid(encoded) {
		return "", errInvalidChannelData
	}
	if bytes.Equal(bytes.TrimSpace(encoded), []byte("null")) {
		return "", nil
	}
	return string(encoded), nil
}
