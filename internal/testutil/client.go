package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

// Client is a thin HTTP client for exercising the API in integration tests.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new test client.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{},
	}
}

// GET performs a GET request.
func (c *Client) GET(path string) (*http.Response, error) {
	return c.HTTPClient.Get(c.BaseURL + path)
}

// POST performs a POST request with a JSON body. A nil body sends an empty
// request.
func (c *Client) POST(path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	return c.HTTPClient.Post(c.BaseURL+path, "application/json", reader)
}

// PostForm performs a form-encoded POST, the shape chat platforms use.
func (c *Client) PostForm(path string, values url.Values) (*http.Response, error) {
	return c.HTTPClient.Post(c.BaseURL+path,
		"application/x-www-form-urlencoded",
		strings.NewReader(values.Encode()))
}

// DecodeJSON decodes the response body into v and closes the body.
func DecodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
