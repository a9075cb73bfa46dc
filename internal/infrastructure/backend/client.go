// Package backend is the REST client for the project-management API the
// portal fronts. Every call except Login carries the session's bearer token.
package backend

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

	"github.com/projecthub/portal/internal/api/metrics"
	"github.com/projecthub/portal/internal/core/domain"
	"github.com/projecthub/portal/internal/core/ports"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 64 << 10
)

// Config captures the settings for reaching the backend.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client implements ports.BackendClient over HTTP+JSON.
type Client struct {
	base *url.URL
	http *http.Client
}

var _ ports.BackendClient = (*Client)(nil)

// New builds a Client. BaseURL includes the API prefix, e.g.
// http://localhost:8000/api/v1.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend url %q: scheme and host are required", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{base: base, http: &http.Client{Timeout: timeout}}, nil
}

type loginRequest struct {
	Email      string  `json:"email"`
	Password   string  `json:"password"`
	SecretCode *string `json:"secret_code"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

type errorDetail struct {
	Detail json.RawMessage `json:"detail"`
}

// Login exchanges credentials for a bearer token. A non-2xx answer is an
// *domain.AuthenticationError carrying the backend's detail.
func (c *Client) Login(ctx context.Context, in ports.LoginInput) (string, error) {
	body := loginRequest{Email: in.Email, Password: in.Password}
	if in.SecretCode != "" {
		code := in.SecretCode
		body.SecretCode = &code
	}

	resp, err := c.do(ctx, http.MethodPost, "/auth/login", "/auth/login", nil, "", body)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &domain.AuthenticationError{Status: resp.StatusCode, Message: readDetail(resp.Body)}
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &domain.NetworkError{Endpoint: "/auth/login", Cause: fmt.Errorf("decode: %w", err)}
	}
	if out.AccessToken == "" {
		return "", &domain.NetworkError{Endpoint: "/auth/login", Cause: errors.New("response carried no access_token")}
	}
	return out.AccessToken, nil
}

// Me returns the user the token belongs to.
func (c *Client) Me(ctx context.Context, token string) (*domain.User, error) {
	var u domain.User
	if err := c.getJSON(ctx, "/auth/me", "/auth/me", nil, token, &u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, &domain.NetworkError{Endpoint: "/auth/me", Cause: errors.New("response carried no user id")}
	}
	return &u, nil
}

func (c *Client) StatsOverview(ctx context.Context, token string) (*domain.StatsOverview, error) {
	var s domain.StatsOverview
	if err := c.getJSON(ctx, "/stats/overview", "/stats/overview", nil, token, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) ListTeams(ctx context.Context, token string) ([]domain.Team, error) {
	var out []domain.Team
	if err := c.getJSON(ctx, "/teams/", "/teams/", nil, token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTeam(ctx context.Context, token string, in ports.TeamInput) (*domain.Team, error) {
	var out domain.Team
	if err := c.sendJSON(ctx, http.MethodPost, "/teams/", "/teams/", token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListProjects(ctx context.Context, token, statusFilter string) ([]domain.Project, error) {
	var out []domain.Project
	if err := c.getJSON(ctx, "/projects/", "/projects/", filterQuery(statusFilter), token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProject(ctx context.Context, token string, in ports.ProjectInput) (*domain.Project, error) {
	var out domain.Project
	if err := c.sendJSON(ctx, http.MethodPost, "/projects/", "/projects/", token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListTasks(ctx context.Context, token, statusFilter string) ([]domain.Task, error) {
	var out []domain.Task
	if err := c.getJSON(ctx, "/tasks/", "/tasks/", filterQuery(statusFilter), token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateTask(ctx context.Context, token, taskID string, in ports.TaskUpdateInput) (*domain.Task, error) {
	id, err := pathSegment("task", taskID)
	if err != nil {
		return nil, err
	}
	var out domain.Task
	path := "/tasks/" + id
	if err := c.sendJSON(ctx, http.MethodPut, path, "/tasks/{id}", token, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListComments(ctx context.Context, token, taskID string) ([]domain.Comment, error) {
	id, err := pathSegment("task", taskID)
	if err != nil {
		return nil, err
	}
	var out []domain.Comment
	path := "/comments/" + id
	if err := c.getJSON(ctx, path, "/comments/{task_id}", nil, token, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// pathSegment escapes id so it stays a single path segment. Ids that could
// only name another route are reported as missing.
func pathSegment(kind, id string) (string, error) {
	if id == "" || id == "." || id == ".." {
		return "", &domain.NotFoundError{Kind: kind, ID: id}
	}
	return url.PathEscape(id), nil
}

type commentRequest struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

func (c *Client) CreateComment(ctx context.Context, token, taskID, message string) (*domain.Comment, error) {
	var out domain.Comment
	if err := c.sendJSON(ctx, http.MethodPost, "/comments/", "/comments/", token, commentRequest{TaskID: taskID, Message: message}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ping checks the backend answers HTTP at all; any status counts.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/stats/overview", "ping", nil, "", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) getJSON(ctx context.Context, path, endpoint string, query url.Values, token string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, endpoint, query, token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, endpoint, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path, endpoint, token string, body, out any) error {
	resp, err := c.do(ctx, method, path, endpoint, nil, token, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(resp, endpoint, out)
}

func (c *Client) do(ctx context.Context, method, path, endpoint string, query url.Values, token string, body any) (*http.Response, error) {
	// path arrives escaped.
	u := *c.base
	u.RawPath = c.base.EscapedPath() + path
	unescaped, err := url.PathUnescape(u.RawPath)
	if err != nil {
		return nil, &domain.NetworkError{Endpoint: endpoint, Cause: err}
	}
	u.Path = unescaped
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", endpoint, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, &domain.NetworkError{Endpoint: endpoint, Cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.BackendRequestDuration.WithLabelValues(endpoint, "transport_error").Observe(time.Since(start).Seconds())
		return nil, &domain.NetworkError{Endpoint: endpoint, Cause: err}
	}
	metrics.BackendRequestDuration.WithLabelValues(endpoint, outcome(resp.StatusCode)).Observe(time.Since(start).Seconds())
	return resp, nil
}

// decode maps bearer-call statuses: 401 means the token is no longer good,
// any other non-2xx is a NetworkError.
func decode(resp *http.Response, endpoint string, out any) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", endpoint, domain.ErrSessionExpired)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &domain.NetworkError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Cause:    errors.New(readDetail(resp.Body)),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.NetworkError{Endpoint: endpoint, Cause: fmt.Errorf("decode: %w", err)}
	}
	return nil
}

// readDetail extracts FastAPI-style {"detail": ...}. The detail is either a
// string or a list of validation errors; lists are reported by their first
// message.
func readDetail(r io.Reader) string {
	var body errorDetail
	if err := json.NewDecoder(io.LimitReader(r, maxErrorBody)).Decode(&body); err != nil || len(body.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &items); err == nil && len(items) > 0 {
		return items[0].Msg
	}
	return ""
}

func filterQuery(statusFilter string) url.Values {
	if statusFilter == "" {
		return nil
	}
	return url.Values{"status_filter": []string{statusFilter}}
}

func outcome(status int) string {
	switch {
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "client_error"
	default:
		return "ok"
	}
}
