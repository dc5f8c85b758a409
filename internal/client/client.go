// Package client is a Go client for the shramba HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/erazemk/shramba/internal/model"
)

// Client talks to one server with one session token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New returns a client for the server at baseURL. token may be empty for
// SignIn.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
	Field   string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s, http %d)", e.Message, e.Field, e.Status)
	}
	return fmt.Sprintf("%s (http %d)", e.Message, e.Status)
}

// SignInResult is the response to a sign-in.
type SignInResult struct {
	Token   string `json:"token"`
	GroupID string `json:"group_id"`
	Created bool   `json:"created"`
}

// Item is the input of an add or edit. ImageData, when set, is uploaded
// as a new image named ImageName.
type Item struct {
	Name        string
	Quantity    int
	Description string
	ImageName   string
	ImageData   []byte
}

// SignIn creates or joins a group.
func (c *Client) SignIn(ctx context.Context, groupID, passphrase string) (SignInResult, error) {
	return c.signIn(ctx, groupID, passphrase, "")
}

// CreateGroup creates a group. It fails with a 409 APIError if the group
// already exists.
func (c *Client) CreateGroup(ctx context.Context, groupID, passphrase string) (SignInResult, error) {
	return c.signIn(ctx, groupID, passphrase, "create")
}

// JoinGroup joins an existing group. It fails with a 404 APIError if the
// group does not exist.
func (c *Client) JoinGroup(ctx context.Context, groupID, passphrase string) (SignInResult, error) {
	return c.signIn(ctx, groupID, passphrase, "join")
}

func (c *Client) signIn(ctx context.Context, groupID, passphrase, mode string) (SignInResult, error) {
	var out SignInResult
	body := map[string]string{"group_id": groupID, "passphrase": passphrase}
	if mode != "" {
		body["mode"] = mode
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/session", body, &out)
	return out, err
}

// SignOut revokes the client's token.
func (c *Client) SignOut(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/session", nil, nil)
}

// Session returns the session of the client's token.
func (c *Client) Session(ctx context.Context) (model.Session, error) {
	var out model.Session
	err := c.doJSON(ctx, http.MethodGet, "/api/session", nil, &out)
	return out, err
}

// Items lists the group's items, newest first, filtered by name prefix.
func (c *Client) Items(ctx context.Context, query string) ([]model.Item, error) {
	path := "/api/items"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	var out []model.Item
	err := c.doJSON(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Get returns one item.
func (c *Client) Get(ctx context.Context, id string) (model.Item, error) {
	var out model.Item
	err := c.doJSON(ctx, http.MethodGet, "/api/items/"+url.PathEscape(id), nil, &out)
	return out, err
}

// Add creates an item and returns its ID.
func (c *Client) Add(ctx context.Context, item Item) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := c.sendItem(ctx, http.MethodPost, "/api/items", item, &out)
	return out.ID, err
}

// Update edits an item and returns "updated" or "deleted".
func (c *Client) Update(ctx context.Context, id string, item Item) (string, error) {
	var out struct {
		Outcome string `json:"outcome"`
	}
	err := c.sendItem(ctx, http.MethodPut, "/api/items/"+url.PathEscape(id), item, &out)
	return out.Outcome, err
}

// Decrement uses one unit and returns "updated" or "deleted".
func (c *Client) Decrement(ctx context.Context, id string) (string, error) {
	var out struct {
		Outcome string `json:"outcome"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/items/"+url.PathEscape(id)+"/decrement", nil, &out)
	return out.Outcome, err
}

// Delete removes an item and its image.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/items/"+url.PathEscape(id), nil, nil)
}

// Export writes a CSV or PDF export to w.
func (c *Client) Export(ctx context.Context, format, scope, query string, w io.Writer) error {
	params := url.Values{}
	params.Set("format", format)
	params.Set("scope", scope)
	if query != "" {
		params.Set("q", query)
	}

	resp, err := c.do(ctx, http.MethodGet, "/api/export?"+params.Encode(), "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("reading export: %w", err)
	}
	return nil
}

// Recipe asks for a recipe built from the given items.
func (c *Client) Recipe(ctx context.Context, ids []string) (string, error) {
	var out struct {
		Recipe string `json:"recipe"`
	}
	err := c.doJSON(ctx, http.MethodPost, "/api/recipe", map[string][]string{"item_ids": ids}, &out)
	return out.Recipe, err
}

func (c *Client) sendItem(ctx context.Context, method, path string, item Item, out any) error {
	if item.ImageData == nil {
		body := map[string]any{
			"name":        item.Name,
			"quantity":    item.Quantity,
			"description": item.Description,
		}
		return c.doJSON(ctx, method, path, body, out)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"name", item.Name},
		{"quantity", fmt.Sprint(item.Quantity)},
		{"description", item.Description},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("writing form: %w", err)
		}
	}
	fw, err := mw.CreateFormFile("image", item.ImageName)
	if err != nil {
		return fmt.Errorf("writing form: %w", err)
	}
	if _, err := fw.Write(item.ImageData); err != nil {
		return fmt.Errorf("writing form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("writing form: %w", err)
	}

	resp, err := c.do(ctx, method, path, mw.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, method, path, contentType, reader)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, out)
}

// do sends a request and returns the response if it is 2xx.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		var payload struct {
			Error string `json:"error"`
			Field string `json:"field"`
		}
		json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{Status: resp.StatusCode, Message: payload.Error, Field: payload.Field}
	}
	return resp, nil
}

func decode(resp *http.Response, out any) error {
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
