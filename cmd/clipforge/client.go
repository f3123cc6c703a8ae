package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"clipforge/internal/api"
	"clipforge/internal/config"
	"clipforge/internal/daemon"
	"clipforge/internal/jobs"
	"clipforge/internal/services"
)

// apiClient talks to a running daemon over its HTTP API.
type apiClient struct {
	base  string
	token string
	http  *http.Client
}

func newAPIClient(cfg *config.Config) (*apiClient, error) {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, errors.New("paths.api_bind is not configured")
	}
	token := cfg.Paths.APIToken
	if token == "" && cfg.Auth.JWTSecret != "" {
		signed, err := daemon.IssueToken(cfg, "clipforge-cli", 5*time.Minute)
		if err != nil {
			return nil, err
		}
		token = signed
	}
	return &apiClient{
		base:  "http://" + bind,
		token: token,
		http:  &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// apiError reports a non-2xx API response.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// Unwrap maps the response status back onto the marker the daemon matched,
// so remote and local failures classify the same way.
func (e *apiError) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest:
		return services.ErrValidation
	case http.StatusNotFound:
		return services.ErrNotFound
	case http.StatusConflict:
		return services.ErrConflict
	case http.StatusServiceUnavailable:
		return services.ErrTransient
	case http.StatusGatewayTimeout:
		return services.ErrTimeout
	case http.StatusBadGateway:
		return services.ErrExternalTool
	}
	return nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact daemon at %s: %w", c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var payload api.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		if payload.Error == "" {
			payload.Error = http.StatusText(resp.StatusCode)
		}
		return &apiError{Status: resp.StatusCode, Message: payload.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func jobPath(id int64, suffix string) string {
	return "/api/jobs/" + strconv.FormatInt(id, 10) + suffix
}

func (c *apiClient) List(ctx context.Context, statuses []jobs.Status) ([]api.Job, error) {
	query := url.Values{}
	for _, status := range statuses {
		query.Add("status", string(status))
	}
	path := "/api/jobs"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var resp api.JobListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

func (c *apiClient) Describe(ctx context.Context, id int64) (api.Job, error) {
	var resp api.JobResponse
	err := c.do(ctx, http.MethodGet, jobPath(id, ""), nil, &resp)
	return resp.Job, err
}

func (c *apiClient) Create(ctx context.Context, req api.CreateJobRequest) (api.Job, error) {
	var resp api.JobResponse
	err := c.do(ctx, http.MethodPost, "/api/jobs", req, &resp)
	return resp.Job, err
}

func (c *apiClient) Update(ctx context.Context, id int64, req api.UpdateJobRequest) (api.Job, error) {
	var resp api.JobResponse
	err := c.do(ctx, http.MethodPatch, jobPath(id, ""), req, &resp)
	return resp.Job, err
}

func (c *apiClient) Delete(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, jobPath(id, ""), nil, nil)
}

func (c *apiClient) Reset(ctx context.Context, id int64) (api.Job, error) {
	var resp api.JobResponse
	err := c.do(ctx, http.MethodPost, jobPath(id, "/reset"), nil, &resp)
	return resp.Job, err
}

func (c *apiClient) Process(ctx context.Context, id int64) (api.Job, error) {
	var resp api.JobResponse
	err := c.do(ctx, http.MethodPost, jobPath(id, "/process"), nil, &resp)
	return resp.Job, err
}

func (c *apiClient) Events(ctx context.Context, id int64) (api.JobEventsResponse, error) {
	var resp api.JobEventsResponse
	err := c.do(ctx, http.MethodGet, jobPath(id, "/events"), nil, &resp)
	return resp, err
}

func (c *apiClient) Export(ctx context.Context, id int64) (api.Export, error) {
	var resp api.Export
	err := c.do(ctx, http.MethodGet, jobPath(id, "/export"), nil, &resp)
	return resp, err
}

func (c *apiClient) Status(ctx context.Context) (api.DaemonStatus, error) {
	var resp api.DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp)
	return resp, err
}

func (c *apiClient) Close() {}
