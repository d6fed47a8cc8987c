// Package api is a typed client for the tour builder REST API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/demotours/tour-builder/internal/client/session"
)

const defaultTimeout = 30 * time.Second

// Error is a non-2xx response. Message is the server's text, unchanged, so
// it can be shown to the user as is.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsStatus reports whether err is an *Error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Client talks to one API server. The token is read from the session store on
// every call.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    session.Store
}

func NewClient(baseURL string, store session.Store) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		session:    store,
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// BaseURL returns the server origin the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Register creates an account and stores the returned token.
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", body, &out); err != nil {
		return nil, err
	}
	if out.Token != "" {
		if err := c.session.SetToken(out.Token); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// Login signs in and stores the returned token.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return nil, err
	}
	if err := c.session.SetToken(out.Token); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout forgets the stored token. Tokens are stateless so the server is not called.
func (c *Client) Logout() error {
	return c.session.ClearToken()
}

func (c *Client) ListTours(ctx context.Context) ([]Tour, error) {
	var out []Tour
	if err := c.do(ctx, http.MethodGet, "/api/tours", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTour(ctx context.Context, id string) (*Tour, error) {
	var out Tour
	if err := c.do(ctx, http.MethodGet, "/api/tours/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTour(ctx context.Context, in TourInput) (*Tour, error) {
	var out Tour
	if err := c.do(ctx, http.MethodPost, "/api/tours", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTour(ctx context.Context, id string, in TourInput) (*Tour, error) {
	var out Tour
	if err := c.do(ctx, http.MethodPut, "/api/tours/"+url.PathEscape(id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTour(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tours/"+url.PathEscape(id), nil, nil)
}

func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := c.do(ctx, http.MethodGet, "/api/tours/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PublicTour fetches a shared tour without credentials. viewerID may be empty.
func (c *Client) PublicTour(ctx context.Context, id, viewerID string) (*Tour, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/public/tours/"+url.PathEscape(id), nil, "")
	if err != nil {
		return nil, err
	}
	if viewerID != "" {
		req.Header.Set("X-Viewer-ID", viewerID)
	}
	var out Tour
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upload sends one file as multipart field "file" and returns its public URL.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(filename))
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := c.newRequest(ctx, http.MethodPost, "/api/tours/upload", pr, mw.FormDataContentType())
	if err != nil {
		_ = pr.Close()
		return "", err
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := c.send(req, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError reads the {"error": "..."} envelope, falling back to the
// status text when the body is not JSON.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var env struct {
		Error string `json:"error"`
		Msg   string `json:"msg"`
	}
	msg := ""
	if json.Unmarshal(raw, &env) == nil {
		msg = env.Error
		if msg == "" {
			msg = env.Msg
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &Error{Status: resp.StatusCode, Message: msg}
}
