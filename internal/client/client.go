package client

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
	"sync"
	"time"

	"github.com/todmy/stoneweight/pkg/models"
)

const (
	defaultBaseURL = "http://localhost:3001"
	defaultTimeout = 30 * time.Second
)

// ErrUnauthorized is returned when the server rejects the session token
var ErrUnauthorized = errors.New("unauthorized")

// APIError is a non-2xx response other than 401
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.Status, e.Message)
}

// Client talks to the stone weight REST API
type Client struct {
	httpClient *http.Client
	baseURL    string

	mu    sync.RWMutex
	token string
}

// ClientOption configures the Client
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithToken sets the bearer token sent with every request
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a new API client
func New(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: defaultBaseURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Token returns the current session token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the session token; an empty token logs out
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// LoginResponse is returned by Login
type LoginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login exchanges credentials for a token and keeps it for later calls
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var out LoginResponse
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out, false); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

func (c *Client) ListStones(ctx context.Context) ([]models.Stone, error) {
	var out []models.Stone
	err := c.do(ctx, http.MethodGet, "/api/stones", nil, &out, true)
	return out, err
}

func (c *Client) CreateStone(ctx context.Context, stone models.Stone) (*models.Stone, error) {
	var out models.Stone
	if err := c.do(ctx, http.MethodPost, "/api/stones", stone, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateStone(ctx context.Context, stone models.Stone) (*models.Stone, error) {
	var out models.Stone
	if err := c.do(ctx, http.MethodPut, "/api/stones/"+url.PathEscape(stone.ID), stone, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteStone(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/stones/"+url.PathEscape(id), nil, nil, true)
}

func (c *Client) ListModels(ctx context.Context) ([]models.Model, error) {
	var out []models.Model
	err := c.do(ctx, http.MethodGet, "/api/models", nil, &out, true)
	return out, err
}

func (c *Client) CreateModel(ctx context.Context, model models.Model) (*models.Model, error) {
	var out models.Model
	if err := c.do(ctx, http.MethodPost, "/api/models", model, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateModel(ctx context.Context, model models.Model) (*models.Model, error) {
	var out models.Model
	if err := c.do(ctx, http.MethodPut, "/api/models/"+url.PathEscape(model.ID), model, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteModel(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/models/"+url.PathEscape(id), nil, nil, true)
}

func (c *Client) ListStoneSets(ctx context.Context) ([]models.StoneSet, error) {
	var out []models.StoneSet
	err := c.do(ctx, http.MethodGet, "/api/stone-sets", nil, &out, true)
	return out, err
}

func (c *Client) CreateStoneSet(ctx context.Context, set models.StoneSet) (*models.StoneSet, error) {
	var out models.StoneSet
	if err := c.do(ctx, http.MethodPost, "/api/stone-sets", set, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateStoneSet(ctx context.Context, set models.StoneSet) (*models.StoneSet, error) {
	var out models.StoneSet
	if err := c.do(ctx, http.MethodPut, "/api/stone-sets/"+url.PathEscape(set.ID), set, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteStoneSet(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/stone-sets/"+url.PathEscape(id), nil, nil, true)
}

// CompanySettings fetches the shop identity
func (c *Client) CompanySettings(ctx context.Context) (*models.CompanySettings, error) {
	var out models.CompanySettings
	if err := c.do(ctx, http.MethodGet, "/api/company-settings", nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateCompanySettings saves the shop identity
func (c *Client) UpdateCompanySettings(ctx context.Context, settings models.CompanySettings) (*models.CompanySettings, error) {
	var out models.CompanySettings
	if err := c.do(ctx, http.MethodPut, "/api/company-settings", settings, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// MigrateResponse reports what a bulk import touched
type MigrateResponse struct {
	Stones    int `json:"stones"`
	Models    int `json:"models"`
	StoneSets int `json:"stoneSets"`
}

// Migrate uploads a full snapshot for a server-side upsert
func (c *Client) Migrate(ctx context.Context, snap models.Snapshot) (*MigrateResponse, error) {
	var out MigrateResponse
	if err := c.do(ctx, http.MethodPost, "/api/migrate", snap, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}, withAuth bool) error {
	var body io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); withAuth && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized && withAuth {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if out == nil || len(respBody) == 0 || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}
