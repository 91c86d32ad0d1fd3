// Package client talks to the CRM HTTP API the way a device sync adapter does.
package client

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

	"github.com/google/uuid"
	"github.com/ran-crm/crm/internal/models"
	"github.com/ran-crm/crm/internal/services"
	"github.com/ran-crm/crm/internal/types"
)

const defaultTimeout = 30 * time.Second

// callNamespace seeds deterministic call UUIDs so a re-exported call log
// produces the same identifiers.
var callNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("crm:call"))

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crm api returned status %d: %s", e.Status, e.Message)
}

type LoginResponse struct {
	Token string             `json:"token"`
	User  types.UserResponse `json:"user"`
}

type CallRecord struct {
	UUID        string    `json:"uuid,omitempty"`
	PhoneNumber string    `json:"phone_number"`
	Direction   string    `json:"direction"`
	StartTime   time.Time `json:"start_time"`
	Duration    int       `json:"duration"`
}

type pullCallsResponse struct {
	Calls      []models.Call `json:"calls"`
	ServerTime time.Time     `json:"server_time"`
}

type pullContactsResponse struct {
	Contacts   []models.Contact `json:"contacts"`
	ServerTime time.Time        `json:"server_time"`
}

type pushContactsResponse struct {
	Results []services.ContactSyncResult `json:"results"`
}

// New returns a client for the CRM API at baseURL
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpClient = h
	return c
}

func (c *Client) SetToken(token string) {
	c.token = token
}

// CallUUID derives a stable identifier from the call's natural key.
func CallUUID(phoneNumber string, start time.Time) string {
	key := strings.TrimSpace(phoneNumber) + "|" + services.NormalizeStartTime(start).Format(time.RFC3339Nano)
	return uuid.NewSHA1(callNamespace, []byte(key)).String()
}

// Login authenticates and keeps the token for later calls
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var resp LoginResponse

	if err := c.do(ctx, http.MethodPost, "/login", map[string]string{"email": email, "password": password}, &resp); err != nil {
		return nil, err
	}

	c.token = resp.Token
	return &resp, nil
}

// PushCalls fills in missing UUIDs before uploading. Records without a start
// time keep an empty UUID; the server stamps them and dedups on its own.
func (c *Client) PushCalls(ctx context.Context, calls []CallRecord) (*services.BulkResult, error) {
	payload := make([]CallRecord, len(calls))

	for i, call := range calls {
		if call.UUID == "" && !call.StartTime.IsZero() {
			call.UUID = CallUUID(call.PhoneNumber, call.StartTime)
		}
		payload[i] = call
	}

	var result services.BulkResult

	if err := c.do(ctx, http.MethodPost, "/sync/calls", map[string]any{"calls": payload}, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (c *Client) PushContacts(ctx context.Context, contacts []services.ContactInput) ([]services.ContactSyncResult, error) {
	var resp pushContactsResponse

	if err := c.do(ctx, http.MethodPost, "/sync/contacts", map[string]any{"contacts": contacts}, &resp); err != nil {
		return nil, err
	}

	return resp.Results, nil
}

// PullCalls returns calls after since and the server time to use as the next
// cursor.
func (c *Client) PullCalls(ctx context.Context, since *time.Time) ([]models.Call, time.Time, error) {
	var resp pullCallsResponse

	if err := c.do(ctx, http.MethodGet, withSince("/sync/calls", since), nil, &resp); err != nil {
		return nil, time.Time{}, err
	}

	return resp.Calls, resp.ServerTime, nil
}

func (c *Client) PullContacts(ctx context.Context, since *time.Time) ([]models.Contact, time.Time, error) {
	var resp pullContactsResponse

	if err := c.do(ctx, http.MethodGet, withSince("/sync/contacts", since), nil, &resp); err != nil {
		return nil, time.Time{}, err
	}

	return resp.Contacts, resp.ServerTime, nil
}

func withSince(path string, since *time.Time) string {
	if since == nil || since.IsZero() {
		return path
	}

	return path + "?since=" + url.QueryEscape(since.UTC().Format(time.RFC3339Nano))
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach crm api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}

	return nil
}
