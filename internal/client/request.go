package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"phoenix-rest/internal/logging"
	"phoenix-rest/internal/protocol"
)

// Get sends a signed GET to an app-relative path and decodes a 200 body
// into out (which may be nil).
func (c *PhoenixClient) Get(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, params, nil, out)
}

// Post JSON-encodes body and sends it as a signed POST.
func (c *PhoenixClient) Post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %v", protocol.ErrSerialization, err)
	}
	return c.do(ctx, http.MethodPost, path, nil, payload, out)
}

func (c *PhoenixClient) do(ctx context.Context, method string, path string, params url.Values, body []byte, out any) error {
	if strings.TrimSpace(c.cfg.AppID) == "" {
		return fmt.Errorf("%w: app_id is required", protocol.ErrConfiguration)
	}
	query := url.Values{}
	for key, values := range params {
		query[key] = append([]string(nil), values...)
	}
	req := protocol.NewRequest(method, c.cfg.AppPath(path), query, body)
	if err := c.auth.Authenticate(req); err != nil {
		return err
	}

	target := c.endpoints.BaseURL + req.Path
	fullURL := target
	if encoded := req.Query.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return &protocol.TransportError{Method: method, URL: target, Err: err}
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, value := range req.Header {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Debug("request failed", logging.Field("method", method), logging.Field("url", target), logging.Field("error", err))
		return &protocol.TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()
	c.logger.Debugf("%s %s -> %s", method, target, resp.Status)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &protocol.TransportError{Method: method, URL: target, Err: fmt.Errorf("read response: %w", err)}
	}
	return c.handleResponse(method, target, req.Path, resp, strings.TrimRight(string(data), "\r\n"), out)
}

func (c *PhoenixClient) handleResponse(method string, target string, path string, resp *http.Response, body string, out any) error {
	if resp.StatusCode == http.StatusOK {
		if out == nil || body == "" {
			return nil
		}
		if err := json.Unmarshal([]byte(body), out); err != nil {
			c.logger.Warn("invalid response JSON",
				logging.Field("url", target),
				logging.Field("content_type", resp.Header.Get("Content-Type")),
				logging.Field("error", err),
				logging.Field("response", logging.FormatHTTPPayload([]byte(body))),
			)
			return &protocol.TransportError{Method: method, URL: target, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	}

	c.logger.Warn("request rejected",
		logging.Field("method", method),
		logging.Field("path", path),
		logging.Field("status", resp.Status),
		logging.Field("response", logging.FormatHTTPPayload([]byte(body))),
	)
	return &protocol.StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Path: path, Body: body}
}
