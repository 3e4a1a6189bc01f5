package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"phoenix-rest/internal/logging"
	"phoenix-rest/internal/protocol"
)

type TriggerOptions struct {
	// SocketID, when set, excludes that connection from receiving the event.
	SocketID string
}

// Trigger publishes one event to up to ten channels. Every argument is
// validated before anything is signed or sent.
func (c *PhoenixClient) Trigger(ctx context.Context, channels []string, event string, data any, opts TriggerOptions) (protocol.TriggerResponse, error) {
	if err := protocol.ValidateChannels(channels); err != nil {
		return protocol.TriggerResponse{}, err
	}
	if len(channels) == 0 {
		return protocol.TriggerResponse{}, fmt.Errorf("%w: at least one channel is required", protocol.ErrValidation)
	}
	if strings.TrimSpace(event) == "" {
		return protocol.TriggerResponse{}, fmt.Errorf("%w: event name is required", protocol.ErrValidation)
	}
	encoded, err := c.encodeData(data)
	if err != nil {
		return protocol.TriggerResponse{}, err
	}
	if opts.SocketID != "" {
		if err := protocol.ValidateSocketID(opts.SocketID); err != nil {
			return protocol.TriggerResponse{}, err
		}
	}

	body, err := json.Marshal(protocol.EventRequest{
		Name:     event,
		Channels: append([]string(nil), channels...),
		Data:     encoded,
		SocketID: opts.SocketID,
	})
	if err != nil {
		return protocol.TriggerResponse{}, fmt.Errorf("%w: %v", protocol.ErrSerialization, err)
	}
	c.logger.Debug("triggering event",
		logging.Field("event", event),
		logging.Field("channels", channels),
		logging.Field("payload", logging.FormatHTTPPayload(body)),
	)

	var out protocol.TriggerResponse
	if err := c.do(ctx, http.MethodPost, "/events", nil, body, &out); err != nil {
		return protocol.TriggerResponse{}, err
	}
	return out, nil
}

// encodeData passes text through verbatim and JSON-encodes anything else.
func (c *PhoenixClient) encodeData(data any) (string, error) {
	switch v := data.(type) {
	case string:
		return v, nil
	case json.RawMessage:
		return string(v), nil
	case []byte:
		return string(v), nil
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		c.logger.Error("could not convert event data into JSON",
			logging.Field("data", fmt.Sprintf("%#v", data)),
			logging.Field("error", err),
		)
		return "", fmt.Errorf("%w: %v", protocol.ErrSerialization, err)
	}
	return string(encoded), nil
}
