// Package dataservice talks to the remote form-data API that owns the
// deepened-design checklists: paginated entry queries in, generated files
// back out.
package dataservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// pageSize is the entries-per-request limit the API accepts.
const pageSize = 100

// Client is an HTTP client for the form-data service. Safe for concurrent
// use.
type Client struct {
	baseURL    string
	apiKey     string
	appID      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New builds a client for the given API endpoint and credentials.
func New(baseURL, apiKey, appID string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		appID:      appID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// listRequest is the wire format of an entry query.
type listRequest struct {
	AppID   string         `json:"app_id"`
	EntryID string         `json:"entry_id"`
	Limit   int            `json:"limit"`
	DataID  string         `json:"data_id,omitempty"`
	Filter  map[string]any `json:"filter,omitempty"`
}

// listResponse is the wire format of an entry query result.
type listResponse struct {
	Data []map[string]any `json:"data"`
}

// ListEntries fetches all entries of a form, following the data_id cursor
// until a short page arrives. Each entry is a raw key-value payload ready
// for the schema registry.
func (c *Client) ListEntries(ctx context.Context, entryID string, filter map[string]any) ([]map[string]any, error) {
	var all []map[string]any
	cursor := ""

	for {
		req := listRequest{
			AppID:   c.appID,
			EntryID: entryID,
			Limit:   pageSize,
			DataID:  cursor,
			Filter:  filter,
		}
		page, err := c.listPage(ctx, req)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)

		if len(page) < pageSize {
			return all, nil
		}
		last := page[len(page)-1]
		id, _ := last["_id"].(string)
		if id == "" {
			return nil, fmt.Errorf("entry page missing _id cursor")
		}
		cursor = id
	}
}

func (c *Client) listPage(ctx context.Context, reqBody listRequest) ([]map[string]any, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode list request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/entry/data/list", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setAuth(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("entry list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("entry list", resp)
	}

	var parsed listResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode entry list response: %w", err)
	}
	return parsed.Data, nil
}

// uploadResponse is the wire format of a file upload result.
type uploadResponse struct {
	FileID string `json:"file_id"`
}

// UploadFile transmits a generated export file and returns the remote file
// id.
func (c *Client) UploadFile(ctx context.Context, name string, r io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("failed to read upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/file/upload", &body)
	if err != nil {
		return "", err
	}
	c.setAuth(req)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("file upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", c.statusError("file upload", resp)
	}

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	return parsed.FileID, nil
}

func (c *Client) setAuth(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
}

func (c *Client) statusError(op string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s returned %d: %s", op, resp.StatusCode, bytes.TrimSpace(snippet))
}
