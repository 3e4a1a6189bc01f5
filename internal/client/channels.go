package client

import (
	"context"
	"net/url"
	"strings"

	"phoenix-rest/internal/protocol"
)

type ChannelsQuery struct {
	FilterByPrefix string
	Info           []string
}

func (q ChannelsQuery) values() url.Values {
	params := url.Values{}
	if q.FilterByPrefix != "" {
		params.Set("filter_by_prefix", q.FilterByPrefix)
	}
	if len(q.Info) > 0 {
		params.Set("info", strings.Join(q.Info, ","))
	}
	return params
}

// Channels lists occupied channels, optionally filtered by name prefix.
func (c *PhoenixClient) Channels(ctx context.Context, query ChannelsQuery) (protocol.ChannelsResponse, error) {
	var out protocol.ChannelsResponse
	if err := c.Get(ctx, "/channels", query.values(), &out); err != nil {
		return protocol.ChannelsResponse{}, err
	}
	return out, nil
}

func (c *PhoenixClient) ChannelInfo(ctx context.Context, name string, info ...string) (protocol.ChannelInfo, error) {
	if err := protocol.ValidateChannelName(name); err != nil {
		return protocol.ChannelInfo{}, err
	}
	var out protocol.ChannelInfo
	if err := c.Get(ctx, "/channels/"+name, ChannelsQuery{Info: info}.values(), &out); err != nil {
		return protocol.ChannelInfo{}, err
	}
	return out, nil
}

// Users lists the members of a presence channel.
func (c *PhoenixClient) Users(ctx context.Context, name string) ([]protocol.User, error) {
	if err := protocol.ValidateChannelName(name); err != nil {
		return nil, err
	}
	var out protocol.UsersResponse
	if err := c.Get(ctx, "/channels/"+name+"/users", nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}
