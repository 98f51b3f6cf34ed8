package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/signflow/internal/identity"
	"github.com/roach88/signflow/internal/model"
)

// DefaultTimeout bounds each HTTP request made by Client.
const DefaultTimeout = 10 * time.Second

// Client talks to the persistence service over HTTP/JSON.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Service = (*Client)(nil)

// CreateAgreement creates an empty agreement and returns its id.
func (c *Client) CreateAgreement(ctx context.Context, title string, pages int) (string, error) {
	var resp CreateResponse
	if err := c.do(ctx, http.MethodPost, "/agreements", CreateRequest{Title: title, Pages: pages}, &resp); err != nil {
		return "", fmt.Errorf("create agreement: %w", err)
	}
	return resp.ID, nil
}

// GetAgreement fetches the full agreement.
func (c *Client) GetAgreement(ctx context.Context, id string) (*Agreement, error) {
	var a Agreement
	if err := c.do(ctx, http.MethodGet, agreementPath(id, ""), nil, &a); err != nil {
		return nil, fmt.Errorf("get agreement %s: %w", id, err)
	}
	return &a, nil
}

// SyncSigners replaces the signer collection.
func (c *Client) SyncSigners(ctx context.Context, id string, signers []model.Signer) (identity.IDMap, error) {
	var resp IDsResponse
	if err := c.do(ctx, http.MethodPut, agreementPath(id, "signers"), nonNil(signers), &resp); err != nil {
		return nil, fmt.Errorf("sync signers %s: %w", id, err)
	}
	return resp.IDs, nil
}

// SyncInputFields replaces the field collection.
func (c *Client) SyncInputFields(ctx context.Context, id string, fields []model.FieldPlacement) (identity.IDMap, error) {
	var resp IDsResponse
	if err := c.do(ctx, http.MethodPut, agreementPath(id, "fields"), nonNil(fields), &resp); err != nil {
		return nil, fmt.Errorf("sync fields %s: %w", id, err)
	}
	return resp.IDs, nil
}

// UpdateAgreementTitle sets the title.
func (c *Client) UpdateAgreementTitle(ctx context.Context, id string, title string) error {
	if err := c.do(ctx, http.MethodPut, agreementPath(id, "title"), TitleRequest{Title: title}, nil); err != nil {
		return fmt.Errorf("update title %s: %w", id, err)
	}
	return nil
}

// UpdateAgreementDateSequence sets the deadlines.
func (c *Client) UpdateAgreementDateSequence(ctx context.Context, id string, dates model.DateSequence) error {
	if err := c.do(ctx, http.MethodPut, agreementPath(id, "dates"), dates, nil); err != nil {
		return fmt.Errorf("update dates %s: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Status: resp.StatusCode}
		var eb ErrorBody
		if err := json.NewDecoder(resp.Body).Decode(&eb); err == nil {
			se.Code, se.Message = eb.Error.Code, eb.Error.Message
		}
		return se
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func agreementPath(id, sub string) string {
	p := "/agreements/" + url.PathEscape(id)
	if sub != "" {
		p += "/" + sub
	}
	return p
}

// nonNil keeps empty collections encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
