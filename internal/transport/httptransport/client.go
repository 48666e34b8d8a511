// Package httptransport is the one concrete Backend implementation: an
// HTTPS client speaking the msgpack wire format. It handles http.Client
// construction, auth header attachment, and status-code handling, with a
// request-id header stamped on every request for correlation.
package httptransport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/mapleapps-ca/vaultsync/internal/apperr"
)

// Client implements transport.Backend over HTTPS + msgpack.
type Client struct {
	logger     *zap.Logger
	httpClient *http.Client
}

// New constructs a Client with the given timeout. Pass a *zap.Logger
// scoped with logger.Named("transport") the way the rest of the module's
// components are named.
func New(logger *zap.Logger, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
	}
}

const msgpackContentType = "application/msgpack"

// errorBody is the shape the server sends alongside a non-2xx status; Detail
// becomes the apperr.Error's Detail when present.
type errorBody struct {
	Detail string `msgpack:"detail"`
}

// do executes one request/response round trip: marshals body (if any) as
// msgpack, stamps a request-id, attaches the auth token as
// "Authorization: Token <authToken>", and maps
// non-2xx responses to the matching apperr.Kind. If out is non-nil the
// response body is unmarshaled into it.
func (c *Client) do(ctx context.Context, method, url, authToken string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := msgpack.Marshal(body)
		if err != nil {
			return apperr.Wrap(apperr.Programming, "encode request body", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return apperr.Wrap(apperr.Programming, "build request", err)
	}
	req.Header.Set("Content-Type", msgpackContentType)
	req.Header.Set("Accept", msgpackContentType)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if authToken != "" {
		req.Header.Set("Authorization", "Token "+authToken)
	}

	c.logger.Debug("backend request", zap.String("method", method), zap.String("url", url))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.Network, fmt.Sprintf("%s %s", method, url), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.Network, "read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		detail := string(respBody)
		if err := msgpack.Unmarshal(respBody, &eb); err == nil && eb.Detail != "" {
			detail = eb.Detail
		}
		return apperr.FromHTTPStatus(resp.StatusCode, detail)
	}

	if out != nil && len(respBody) > 0 {
		if err := msgpack.Unmarshal(respBody, out); err != nil {
			return apperr.Wrap(apperr.Programming, "decode response body", err)
		}
	}
	return nil
}

// doRaw is do's octet-stream counterpart, used for chunk upload/download.
func (c *Client) doRaw(ctx context.Context, method, url, authToken string, body []byte) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, apperr.Wrap(apperr.Programming, "build request", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if authToken != "" {
		req.Header.Set("Authorization", "Token "+authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.Network, fmt.Sprintf("%s %s", method, url), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrap(apperr.Network, "read response body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.FromHTTPStatus(resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
