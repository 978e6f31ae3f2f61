// Package gateway is the desk's client for the REST API exposed by
// srv/api_gateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alimitedgroup/invdesk/common/messages"
)

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api gateway returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api gateway returned status %d: %s", e.StatusCode, e.Message)
}

// ServerMessage is the message as the server wrote it, possibly empty.
func (e *APIError) ServerMessage() string {
	return e.Message
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) FetchLocations(ctx context.Context) (messages.Locations, error) {
	var out messages.Locations
	err := c.do(ctx, http.MethodGet, "/locations", nil, &out)
	return out, err
}

func (c *Client) FetchEquipmentByLocation(ctx context.Context) (messages.LocationGroupedInventory, error) {
	var out messages.LocationGroupedInventory
	err := c.do(ctx, http.MethodGet, "/equipment/by-location", nil, &out)
	return out, err
}

func (c *Client) FetchEquipmentList(ctx context.Context) ([]messages.EquipmentCatalogEntry, error) {
	var out []messages.EquipmentCatalogEntry
	err := c.do(ctx, http.MethodGet, "/equipment", nil, &out)
	return out, err
}

func (c *Client) FetchToolList(ctx context.Context) ([]messages.EquipmentCatalogEntry, error) {
	var out []messages.EquipmentCatalogEntry
	err := c.do(ctx, http.MethodGet, "/tools", nil, &out)
	return out, err
}

func (c *Client) FetchUsersList(ctx context.Context) ([]messages.NamedRef, error) {
	var out []messages.NamedRef
	err := c.do(ctx, http.MethodGet, "/users", nil, &out)
	return out, err
}

func (c *Client) FetchSuppliers(ctx context.Context) ([]messages.Supplier, error) {
	var out []messages.Supplier
	err := c.do(ctx, http.MethodGet, "/suppliers", nil, &out)
	return out, err
}

func (c *Client) PostEquipmentMovement(ctx context.Context, draft messages.MovementDraft) (messages.Response, error) {
	var out messages.Response
	err := c.do(ctx, http.MethodPost, "/equipment-movements", draft, &out)
	return out, err
}

func (c *Client) CreateProcurement(ctx context.Context, draft messages.ProcurementDraft) (messages.Response, error) {
	var out messages.Response
	err := c.do(ctx, http.MethodPost, "/procurements", draft, &out)
	return out, err
}

// CreateCatalogItem posts to /equipment or /tools depending on item.Kind.
func (c *Client) CreateCatalogItem(ctx context.Context, item messages.CreateCatalogItem) (messages.Response, error) {
	path := "/equipment"
	if item.Kind == messages.KindTool {
		path = "/tools"
	}

	var out messages.Response
	err := c.do(ctx, http.MethodPost, path, item, &out)
	return out, err
}

func (c *Client) CreateSupplier(ctx context.Context, supplier messages.CreateSupplier) (messages.Response, error) {
	var out messages.Response
	err := c.do(ctx, http.MethodPost, "/suppliers", supplier, &out)
	return out, err
}

func (c *Client) CreateLocation(ctx context.Context, location messages.CreateLocation) (messages.Response, error) {
	var out messages.Response
	err := c.do(ctx, http.MethodPost, "/locations", location, &out)
	return out, err
}

// DownloadInventoryReport streams the inventory spreadsheet into w.
func (c *Client) DownloadInventoryReport(ctx context.Context, w io.Writer) error {
	resp, err := c.send(ctx, http.MethodGet, "/reports/inventory", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if _, err = io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to download inventory report: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request for %s: %w", path, err)
		}
		body = bytes.NewReader(buf)
	}

	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response from %s: %w", path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if err = json.Unmarshal(unwrap(raw), out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

// send performs the request and turns any non-2xx status into an *APIError.
func (c *Client) send(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, readError(resp)
	}
	return resp, nil
}

func readError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return apiErr
	}

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(unwrap(raw), &body) == nil {
		apiErr.Message = body.Message
		if apiErr.Message == "" {
			apiErr.Message = body.Error
		}
	}
	return apiErr
}

// unwrap strips a single {"data": ...} envelope. Bodies with any other shape
// are returned as they are.
func unwrap(raw []byte) []byte {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil || len(envelope) != 1 {
		return raw
	}
	if data, ok := envelope["data"]; ok {
		return data
	}
	return raw
}

// IsStatus reports whether err is an *APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
