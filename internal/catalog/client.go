package catalog

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

	"bookman/internal/model"

	"github.com/google/uuid"
)

// DefaultBaseURL is the endpoint used when none is configured.
const DefaultBaseURL = "http://localhost:8080/bookapi"

// DefaultTimeout bounds each request at the transport level.
const DefaultTimeout = 10 * time.Second

// RequestIDHeader carries a per-request identifier to the service.
const RequestIDHeader = "X-Request-ID"

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout sets the transport timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// Client talks to the remote book service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a client for the given base endpoint, e.g. http://host:8080/bookapi.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  "bookman",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListAll returns every book in service order.
func (c *Client) ListAll(ctx context.Context) ([]model.Book, error) {
	var books []model.Book
	if err := c.do(ctx, "list", http.MethodGet, "/all", nil, &books); err != nil {
		return nil, err
	}
	if books == nil {
		books = []model.Book{}
	}
	return books, nil
}

// Create persists a new book and returns the stored entry.
func (c *Client) Create(ctx context.Context, book model.Book) (model.Book, error) {
	created := book
	if err := c.do(ctx, "create", http.MethodPost, "/add", book, &created); err != nil {
		return model.Book{}, err
	}
	return created, nil
}

// Update replaces title, author and price of the book with the given ISBN.
func (c *Client) Update(ctx context.Context, isbn string, changes model.BookUpdate) (model.Book, error) {
	updated := model.Book{ISBN: isbn, Title: changes.Title, Author: changes.Author, Price: changes.Price}
	if err := c.do(ctx, "update", http.MethodPut, "/update/"+url.PathEscape(isbn), changes, &updated); err != nil {
		return model.Book{}, err
	}
	return updated, nil
}

// Remove deletes the book with the given ISBN.
func (c *Client) Remove(ctx context.Context, isbn string) error {
	return c.do(ctx, "delete", http.MethodDelete, "/delete/"+url.PathEscape(isbn), nil, nil)
}

// GetByKey fetches a single book. A missing key yields a *NotFoundError.
func (c *Client) GetByKey(ctx context.Context, isbn string) (model.Book, error) {
	if strings.TrimSpace(isbn) == "" {
		return model.Book{}, &NotFoundError{ISBN: isbn}
	}
	var book model.Book
	err := c.do(ctx, "get", http.MethodGet, "/get/"+url.PathEscape(isbn), nil, &book)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) && te.StatusCode == http.StatusNotFound {
			return model.Book{}, &NotFoundError{ISBN: isbn, Err: te}
		}
		return model.Book{}, err
	}
	return book, nil
}

// do sends one request. A nil out discards the response body; an empty body leaves out untouched.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	reqURL := c.baseURL + path
	fail := func(status int, body string, err error) error {
		return &TransportError{Op: op, Method: method, URL: reqURL, StatusCode: status, Body: body, Err: err}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fail(0, "", fmt.Errorf("encode request: %w", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fail(0, "", fmt.Errorf("request creation failed: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(0, "", fmt.Errorf("network error: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(resp.StatusCode, "", fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fail(resp.StatusCode, strings.TrimSpace(string(data)), fmt.Errorf("API error: status %d", resp.StatusCode))
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fail(resp.StatusCode, "", fmt.Errorf("JSON decode error: %w", err))
	}
	return nil
}
