package protocol

import "net/url"

// Request is the canonical form of an outbound API call. Authenticators
// attach credentials to Query or Header before it is sent.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header map[string]string
	Body   []byte
}

func NewRequest(method string, path string, query url.Values, body []byte) *Request {
	if query == nil {
		query = url.Values{}
	}
	return &Request{Method: method, Path: path, Query: query, Header: map[string]string{}, Body: body}
}

type EventRequest struct {
	Name     string   `json:"name"`
	Channels []string `json:"channels"`
	Data     string   `json:"data"`
	SocketID string   `json:"socket_id,omitempty"`
}

// AuthPayload is the body an auth endpoint returns to a subscribing client.
type AuthPayload struct {
	Auth        string `json:"auth"`
	ChannelData string `json:"channel_data,omitempty"`
}

type TriggerResponse struct {
	Channels map[string]ChannelInfo `json:"channels,omitempty"`
}

type ChannelInfo struct {
	Occupied          bool `json:"occupied"`
	UserCount         *int `json:"user_count,omitempty"`
	SubscriptionCount *int `json:"subscription_count,omitempty"`
}

type ChannelsResponse struct {
	Channels map[string]ChannelInfo `json:"channels"`
}

type User struct {
	ID string `json:"id"`
}

type UsersResponse struct {
	Users []User `json:"users"`
}
