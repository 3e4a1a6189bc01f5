package channel

import (
	"context"
	"fmt"

	"phoenix-rest/internal/client"
	"phoenix-rest/internal/logging"
	"phoenix-rest/internal/protocol"
	"phoenix-rest/internal/token"
)

// Dispatcher is the subset of client.PhoenixClient a Channel needs.
type Dispatcher interface {
	Trigger(ctx context.Context, channels []string, event string, data any, opts client.TriggerOptions) (protocol.TriggerResponse, error)
	Users(ctx context.Context, name string) ([]protocol.User, error)
	ChannelInfo(ctx context.Context, name string, info ...string) (protocol.ChannelInfo, error)
	Configured() bool
}

// Channel binds one channel name to a dispatcher and an authorizer.
type Channel struct {
	name       string
	dispatcher Dispatcher
	authorizer *Authorizer
	logger     *logging.Logger
}

// Result carries the outcome of TriggerSoft. Err is set when the service
// or the network rejected the event; it is never a programmer error.
type Result struct {
	Response protocol.TriggerResponse
	Err      error
}

func (r Result) OK() bool {
	return r.Err == nil
}

func New(dispatcher Dispatcher, authorizer *Authorizer, name string) (*Channel, error) {
	if dispatcher == nil || authorizer == nil {
		panic("channel.New: dispatcher and authorizer must not be nil")
	}
	if !dispatcher.Configured() {
		return nil, fmt.Errorf("%w: missing client configuration: please check that key, secret and app_id are configured", protocol.ErrConfiguration)
	}
	if err := protocol.ValidateChannelName(name); err != nil {
		return nil, err
	}
	return &Channel{name: name, dispatcher: dispatcher, authorizer: authorizer, logger: authorizer.logger}, nil
}

func (c *Channel) Name() string {
	return c.name
}

// Trigger publishes an event on this channel. socketID, when not empty,
// excludes that connection from delivery.
func (c *Channel) Trigger(ctx context.Context, event string, data any, socketID string) (protocol.TriggerResponse, error) {
	return c.dispatcher.Trigger(ctx, []string{c.name}, event, data, client.TriggerOptions{SocketID: socketID})
}

// TriggerSoft is Trigger for callers that treat delivery failures as
// non-fatal. Bad arguments or configuration are still returned as err.
func (c *Channel) TriggerSoft(ctx context.Context, event string, data any, socketID string) (Result, error) {
	resp, err := c.Trigger(ctx, event, data, socketID)
	if err == nil {
		return Result{Response: resp}, nil
	}
	if protocol.IsProgrammerError(err) {
		return Result{}, err
	}
	c.logger.Error("trigger failed",
		logging.Field("channel", c.name),
		logging.Field("event", event),
		logging.Field("error", err),
	)
	return Result{Err: err}, nil
}

func (c *Channel) Authenticate(socketID string, customData any) (protocol.AuthPayload, error) {
	return c.authorizer.Authorize(c.name, socketID, customData)
}

// AuthenticationString returns the raw "key:signature" for socketID and
// optional pre-encoded custom data.
func (c *Channel) AuthenticationString(socketID string, custom string) (string, error) {
	return token.IssueSocketAuth(c.authorizer.creds, socketID, c.name, custom)
}

func (c *Channel) Users(ctx context.Context) ([]protocol.User, error) {
	return c.dispatcher.Users(ctx, c.name)
}

func (c *Channel) Info(ctx context.Context, attributes ...string) (protocol.ChannelInfo, error) {
	return c.dispatcher.ChannelInfo(ctx, c.name, attributes...)
}
