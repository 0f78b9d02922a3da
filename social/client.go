// Copyright 2026 The FriendMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package social retrieves the friend list of an account together with the
// free-text location each friend put on their profile.
package social

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/friendmap/friendmap/utils/httputils"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Defaults for the friends/list endpoint.
const (
	DefaultBaseURL = "https://api.twitter.com/"
	DefaultCount   = 50

	friendsListPath = "1.1/friends/list.json"

	// upper bound of a friends/list body we are willing to read.
	maxBodySize = 16 << 20
)

// FriendRecord is a friend with a non-empty profile location.
type FriendRecord struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// ClientOptions configuration for Client.
type ClientOptions struct {
	// BaseURL of the API; the friends/list path is resolved against it.
	BaseURL string

	// UserAgent is the User-Agent header to use in HTTP requests
	UserAgent string

	// Timeout of the friends/list request.
	Timeout time.Duration

	// Enables light tracing of HTTP requests and responses
	TraceWriter io.Writer

	// Enables full HTTP body tracing
	TraceBody bool

	// Transport overrides the base transport, mostly for tests.
	Transport http.RoundTripper
}

// Client fetches one page of the friends/list endpoint.
type Client struct {
	endpoint  string
	transport http.RoundTripper
	timeout   time.Duration
	logger    *zap.Logger
}

// NewClient creates a new friend list client.
func NewClient(opts *ClientOptions, logger *zap.Logger) *Client {
	if opts == nil {
		opts = &ClientOptions{}
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	base := DefaultBaseURL
	if opts.BaseURL != "" {
		base = opts.BaseURL
	}

	endpoint := base + friendsListPath
	if u, err := url.Parse(base); err == nil {
		endpoint = u.ResolveReference(&url.URL{Path: friendsListPath}).String()
	}

	userAgent := "friendmap/unknown"
	if opts.UserAgent != "" {
		userAgent = opts.UserAgent
	}

	timeout := 30 * time.Second
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	return &Client{
		endpoint: endpoint,
		transport: httputils.NewTransport(httputils.TransportOptions{
			Base: opts.Transport,
			Headers: map[string]string{
				"User-Agent": userAgent,
				"Accept":     "application/json",
			},
			TraceWriter: opts.TraceWriter,
			TraceBody:   opts.TraceBody,
		}),
		timeout: timeout,
		logger:  logger,
	}
}

type friendsListResponse struct {
	Users *[]struct {
		Name     string  `json:"name"`
		Location *string `json:"location"`
	} `json:"users"`
}

type apiErrorResponse struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Friends returns up to count friends of handle that have a location set,
// in the order the API lists them. A non-positive count means DefaultCount;
// larger values are passed through and bounded by the API itself.
//
// Only the first page is read and nothing is retried.
func (c *Client) Friends(ctx context.Context, credential, handle string, count int) ([]FriendRecord, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if count <= 0 {
		count = DefaultCount
	}

	params := url.Values{}
	params.Set("screen_name", handle)
	params.Set("count", strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &FetchError{Handle: handle, Message: "building request", Err: err}
	}

	client := &http.Client{
		Timeout: c.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{
				AccessToken: credential,
				TokenType:   "Bearer",
			}),
			Base: c.transport,
		},
	}

	c.logger.Debug("fetching friend list", zap.String("handle", handle), zap.Int("count", count))

	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{Handle: handle, Message: "request failed", Err: err}
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &FetchError{Handle: handle, StatusCode: resp.StatusCode, Message: "reading response body", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{
			Handle:     handle,
			StatusCode: resp.StatusCode,
			Message:    apiErrorMessage(body, resp.Status),
		}
	}

	var data friendsListResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, &FetchError{Handle: handle, StatusCode: resp.StatusCode, Message: "decoding response", Err: err}
	}

	if data.Users == nil {
		return nil, &FetchError{
			Handle:     handle,
			StatusCode: resp.StatusCode,
			Message:    "malformed response",
			Err:        errors.New(`missing "users" collection`),
		}
	}

	users := *data.Users
	friends := make([]FriendRecord, 0, len(users))

	for _, user := range users {
		if user.Location == nil || *user.Location == "" {
			continue
		}

		friends = append(friends, FriendRecord{Name: user.Name, Location: *user.Location})
	}

	c.logger.Info("fetched friend list",
		zap.String("handle", handle),
		zap.Int("friends", len(users)),
		zap.Int("with_location", len(friends)),
	)

	return friends, nil
}

// apiErrorMessage extracts the first error message of an API error body.
func apiErrorMessage(body []byte, fallback string) string {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && len(apiErr.Errors) > 0 {
		e := apiErr.Errors[0]

		return "api error " + strconv.Itoa(e.Code) + ": " + e.Message
	}

	return "unexpected status " + fallback
}
