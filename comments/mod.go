// Package comments implements the client of the comment service. Comments
// are attached to the votes of a ballot and posted once the ballot
// transaction is pending.
//
// Documentation Last Review: 01.10.2026
//
package comments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.canvass.io/canvass/ballot/types"
	"golang.org/x/xerrors"
)

const (
	// NoncePath is the path of the endpoint delivering nonces.
	NoncePath = "/api/comments/nonce"
	// AddPath is the path of the endpoint adding the comments of a ballot.
	AddPath = "/api/comments/polling/add"
	// ListPath is the prefix of the path of the endpoint listing the comments
	// of a poll.
	ListPath = "/api/comments/polling/"
)

const defaultTimeout = 30 * time.Second

// Service is the comment service used by the ballot manager.
type Service interface {
	// Nonce returns a single-use nonce for the address.
	Nonce(ctx context.Context, address string) (string, error)

	// Add posts the comments of a ballot.
	Add(ctx context.Context, network string, req AddRequest) error
}

// NonceRequest is the body of a nonce request.
type NonceRequest struct {
	Address string `json:"address"`
}

// NonceResponse is the body of a nonce response.
type NonceResponse struct {
	Nonce string `json:"nonce"`
}

// AddRequest is the body of a request adding comments. The signed message is
// the signature of the nonce by the hot address.
type AddRequest struct {
	VoterAddress  string          `json:"voterAddress"`
	HotAddress    string          `json:"hotAddress"`
	Comments      []types.Comment `json:"comments"`
	SignedMessage string          `json:"signedMessage"`
	TxHash        string          `json:"txHash"`
}

// Entry is a comment stored by the service.
type Entry struct {
	types.Comment

	Network      string `json:"network"`
	VoterAddress string `json:"voterAddress"`
	HotAddress   string `json:"hotAddress"`
}

// Option is the type of option to create a client.
type Option func(*Client)

// WithHTTPClient is an option to set the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

// Client is an HTTP client of the comment service.
//
// - implements comments.Service
type Client struct {
	base   string
	client *http.Client
}

// NewClient returns a client of the service at the base URL.
func NewClient(base string, opts ...Option) Client {
	c := Client{
		base:   strings.TrimSuffix(base, "/"),
		client: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		opt(&c)
	}

	return c
}

// Nonce implements comments.Service.
func (c Client) Nonce(ctx context.Context, address string) (string, error) {
	var resp NonceResponse

	err := c.post(ctx, c.base+NoncePath, NonceRequest{Address: address}, &resp)
	if err != nil {
		return "", xerrors.Errorf("couldn't get nonce: %v", err)
	}

	return resp.Nonce, nil
}

// Add implements comments.Service.
func (c Client) Add(ctx context.Context, network string, req AddRequest) error {
	endpoint := fmt.Sprintf("%s%s?network=%s", c.base, AddPath, url.QueryEscape(network))

	err := c.post(ctx, endpoint, req, nil)
	if err != nil {
		return xerrors.Errorf("couldn't add comments: %v", err)
	}

	return nil
}

// List returns the comments of the poll on the network.
func (c Client) List(ctx context.Context, network string, pollID types.PollID) ([]Entry, error) {
	endpoint := fmt.Sprintf("%s%s%d?network=%s", c.base, ListPath, pollID,
		url.QueryEscape(network))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, xerrors.Errorf("couldn't create request: %v", err)
	}

	entries := []Entry{}

	err = c.do(req, &entries)
	if err != nil {
		return nil, xerrors.Errorf("couldn't list comments: %v", err)
	}

	return entries, nil
}

func (c Client) post(ctx context.Context, endpoint string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return xerrors.Errorf("failed to marshal: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return xerrors.Errorf("couldn't create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c Client) do(req *http.Request, out interface{}) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return xerrors.Errorf("request failed: %v", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return xerrors.Errorf("unexpected status %d: %s", resp.StatusCode,
			strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return xerrors.Errorf("failed to decode response: %v", err)
	}

	return nil
}
