// Package remote implements the Backend contract against an HTTP peer
// node. The peer performs its own validation; this client maps the
// protocol operations onto the conventional routes
// (POST /receive, GET /read/..., GET /list/..., DELETE /delete/...,
// GET /health, GET /schema) and converts transport failures into
// tagged backend faults.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/stratum/internal/protocol"
	"github.com/roach88/stratum/internal/uri"
)

// Client is a protocol.Backend backed by a remote peer.
type Client struct {
	base *url.URL
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (custom transport,
// timeout, test doubles).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a client for the peer at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}
	c := &Client{
		base: base,
		http: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// envelope is the peer's uniform response shape.
type envelope struct {
	Success    bool                 `json:"success"`
	Record     *protocol.Record     `json:"record,omitempty"`
	Data       []protocol.ListEntry `json:"data,omitempty"`
	Pagination *protocol.Pagination `json:"pagination,omitempty"`
	Results    []remoteOutcome      `json:"results,omitempty"`
	Programs   []string             `json:"programs,omitempty"`
	Status     string               `json:"status,omitempty"`
	Message    string               `json:"message,omitempty"`
	Details    map[string]any       `json:"details,omitempty"`
	Error      *remoteError         `json:"error,omitempty"`
}

type remoteOutcome struct {
	URI     string           `json:"uri"`
	Success bool             `json:"success"`
	Record  *protocol.Record `json:"record,omitempty"`
	Error   *remoteError     `json:"error,omitempty"`
}

type remoteError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *remoteError) toProtocol(u string) *protocol.Error {
	code := protocol.Code(e.Code)
	if code == "" {
		code = protocol.CodeBackendFault
	}
	return &protocol.Error{Code: code, Message: e.Message, URI: u}
}

// Write submits a transaction to the peer's receive endpoint.
func (c *Client) Write(ctx context.Context, u uri.URI, value any) (*protocol.Record, error) {
	body, err := json.Marshal(map[string]any{"uri": u.String(), "value": value})
	if err != nil {
		return nil, protocol.Fault(u.String(), fmt.Errorf("encode transaction: %w", err))
	}
	env, err := c.do(ctx, http.MethodPost, c.endpoint("receive"), bytes.NewReader(body), u.String())
	if err != nil {
		return nil, err
	}
	if env.Record == nil {
		return nil, protocol.Fault(u.String(), fmt.Errorf("peer accepted the write without a record"))
	}
	return env.Record, nil
}

// Read fetches a record from the peer.
func (c *Client) Read(ctx context.Context, u uri.URI) (*protocol.Record, error) {
	env, err := c.do(ctx, http.MethodGet, c.uriEndpoint("read", u), nil, u.String())
	if err != nil {
		return nil, err
	}
	if env.Record == nil {
		return nil, protocol.Fault(u.String(), fmt.Errorf("peer returned success without a record"))
	}
	return env.Record, nil
}

// ReadMulti issues individual reads against the peer. The conventional
// route set has no batch endpoint, so the batch is client-side.
func (c *Client) ReadMulti(ctx context.Context, uris []uri.URI) (protocol.MultiRead, error) {
	out := protocol.MultiRead{Total: len(uris)}
	out.Results = make([]protocol.ReadOutcome, len(uris))
	for i, u := range uris {
		rec, err := c.Read(ctx, u)
		out.Results[i] = protocol.ReadOutcome{URI: u.String(), Record: rec, Err: err}
		if err != nil {
			out.Failed++
		} else {
			out.Succeeded++
		}
	}
	return out, nil
}

// List fetches a directory-style listing from the peer.
func (c *Client) List(ctx context.Context, u uri.URI, opts protocol.ListOptions) (protocol.Listing, error) {
	endpoint := c.uriEndpoint("list", u)
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Pattern != "" {
		q.Set("pattern", opts.Pattern)
	}
	if opts.SortBy != "" {
		q.Set("sortBy", opts.SortBy)
	}
	if opts.SortOrder != "" {
		q.Set("sortOrder", opts.SortOrder)
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	env, err := c.do(ctx, http.MethodGet, endpoint, nil, u.String())
	if err != nil {
		return protocol.Listing{}, err
	}
	listing := protocol.Listing{Entries: env.Data}
	if env.Pagination != nil {
		listing.Pagination = *env.Pagination
	}
	return listing, nil
}

// Delete removes a record on the peer.
func (c *Client) Delete(ctx context.Context, u uri.URI) error {
	_, err := c.do(ctx, http.MethodDelete, c.uriEndpoint("delete", u), nil, u.String())
	return err
}

// Health queries the peer's self-check. Transport failure is reported
// as a down peer, not an error: health must always resolve.
func (c *Client) Health(ctx context.Context) protocol.Health {
	env, err := c.do(ctx, http.MethodGet, c.endpoint("health"), nil, "")
	if err != nil {
		return protocol.Health{Status: protocol.HealthDown, Message: err.Error()}
	}
	status := env.Status
	if status == "" {
		status = protocol.HealthOK
	}
	return protocol.Health{Status: status, Message: env.Message, Details: env.Details}
}

// Programs fetches the peer's configured program keys.
func (c *Client) Programs(ctx context.Context) ([]string, error) {
	env, err := c.do(ctx, http.MethodGet, c.endpoint("schema"), nil, "")
	if err != nil {
		return nil, err
	}
	return env.Programs, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) endpoint(parts ...string) string {
	return c.base.JoinPath(parts...).String()
}

// uriEndpoint builds /op/{scheme}/{namespace}/{path...}.
func (c *Client) uriEndpoint(op string, u uri.URI) string {
	parts := []string{op, u.Scheme, u.Namespace}
	if u.Path != "" {
		parts = append(parts, strings.Split(u.Path, "/")...)
	}
	return c.endpoint(parts...)
}

// do issues the request and decodes the uniform response envelope.
// Peer-reported failures keep their error codes; transport and decode
// failures become backend faults.
func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, u string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, protocol.Fault(u, fmt.Errorf("build request: %w", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, protocol.Fault(u, fmt.Errorf("peer unreachable: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, protocol.Fault(u, fmt.Errorf("read response: %w", err))
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, protocol.Fault(u, fmt.Errorf("malformed peer response (status %d): %w", resp.StatusCode, err))
	}

	if env.Error != nil {
		return nil, env.Error.toProtocol(u)
	}
	if !env.Success && env.Status == "" {
		return nil, protocol.Fault(u, fmt.Errorf("peer reported failure without detail (status %d)", resp.StatusCode))
	}
	return &env, nil
}
