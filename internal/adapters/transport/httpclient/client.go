// Package httpclient talks to a remote sessiond server. It implements both
// the agent-facing registry and the operator-facing dashboard.
package httpclient

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

	"github.com/bnema/sessiond/internal/adapters/transport/httpapi"
	"github.com/bnema/sessiond/internal/domain"
	"github.com/bnema/sessiond/internal/ports"
)

const (
	maxResponseBytes      = 1 << 20
	defaultRequestTimeout = 10 * time.Second
)

type Client struct {
	BaseURL        string
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

var (
	_ ports.Registry  = (*Client)(nil)
	_ ports.Dashboard = (*Client)(nil)
)

func New(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) Register(ctx context.Context, appName, userID string) (domain.SessionID, error) {
	var out httpapi.CreateSessionResponse
	status, err := c.do(ctx, http.MethodPost, "/sessions", httpapi.CreateSessionRequest{AppName: appName, UserID: userID}, &out)
	if err != nil {
		return "", fmt.Errorf("register session: %w", err)
	}
	if status != http.StatusCreated && status != http.StatusOK {
		return "", fmt.Errorf("register session: unexpected status %d", status)
	}

	return domain.SessionID(out.SessionID), nil
}

func (c *Client) Remove(ctx context.Context, id domain.SessionID) (bool, error) {
	_, err := c.do(ctx, http.MethodDelete, sessionPath(id, ""), nil, nil)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("remove session: %w", err)
	}

	return true, nil
}

func (c *Client) Heartbeat(ctx context.Context, id domain.SessionID) (bool, error) {
	var out httpapi.HeartbeatResponse
	if _, err := c.do(ctx, http.MethodPost, sessionPath(id, "heartbeat"), nil, &out); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return false, err
		}
		return false, fmt.Errorf("heartbeat: %w", err)
	}

	return out.KillRequested, nil
}

func (c *Client) SetStatus(ctx context.Context, id domain.SessionID, status domain.Status, currentTask string) (bool, error) {
	body := httpapi.StatusRequest{Status: string(status), CurrentTask: currentTask}
	if _, err := c.do(ctx, http.MethodPut, sessionPath(id, "status"), body, nil); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("set session status: %w", err)
	}

	return true, nil
}

func (c *Client) List(ctx context.Context) ([]ports.SessionView, error) {
	var out httpapi.SessionList
	if _, err := c.do(ctx, http.MethodGet, "/sessions", nil, &out); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	views := make([]ports.SessionView, 0, len(out.Sessions))
	for _, session := range out.Sessions {
		views = append(views, session.ToView())
	}

	return views, nil
}

// SweepStale rounds evictionAge down to whole minutes, the API's unit.
// Anything under a minute asks for the server default.
func (c *Client) SweepStale(ctx context.Context, evictionAge time.Duration) (int, error) {
	minutes := int(evictionAge / time.Minute)
	path := "/sessions/stale"
	if minutes > 0 {
		path += "?older_than_minutes=" + strconv.Itoa(minutes)
	}

	var out httpapi.CleanupResponse
	if _, err := c.do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return 0, fmt.Errorf("sweep stale sessions: %w", err)
	}

	return out.DeletedCount, nil
}

func (c *Client) RequestKill(ctx context.Context, id domain.SessionID) (bool, error) {
	if _, err := c.do(ctx, http.MethodPost, sessionPath(id, "kill"), nil, nil); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("request kill: %w", err)
	}

	return true, nil
}

func (c *Client) RequestKillForApp(ctx context.Context, appName string) (int, error) {
	var out httpapi.AppKillResponse
	if _, err := c.do(ctx, http.MethodPost, "/apps/"+url.PathEscape(appName)+"/kill", nil, &out); err != nil {
		return 0, fmt.Errorf("request kill for app: %w", err)
	}

	return out.Affected, nil
}

// do sends one request. Transport failures, request timeouts and 5xx wrap
// ports.ErrRegistryUnavailable; 404 and 400 map to domain errors. When ctx
// itself is done its error is returned as is.
func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	requestCtx, cancel := c.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, method, c.BaseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		// The caller gave up; the registry may be fine.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, fmt.Errorf("%w: %w", ports.ErrRegistryUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	reader := io.LimitReader(resp.Body, maxResponseBytes)
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return resp.StatusCode, domain.ErrSessionNotFound
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return resp.StatusCode, badRequest(reader)
	case resp.StatusCode >= http.StatusInternalServerError:
		return resp.StatusCode, fmt.Errorf("%w: status %d", ports.ErrRegistryUnavailable, resp.StatusCode)
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		return resp.StatusCode, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(reader).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

func badRequest(body io.Reader) error {
	var payload httpapi.ErrorResponse
	_ = json.NewDecoder(body).Decode(&payload)

	if strings.Contains(payload.Detail, domain.ErrInvalidStatus.Error()) {
		return fmt.Errorf("%w: %s", domain.ErrInvalidStatus, payload.Detail)
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidSession, payload.Detail)
}

func sessionPath(id domain.SessionID, action string) string {
	path := "/sessions/" + url.PathEscape(string(id))
	if action != "" {
		path += "/" + action
	}
	return path
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := c.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	return context.WithTimeout(ctx, requestTimeout)
}
