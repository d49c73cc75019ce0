// Package gateway wraps the API gateway's admin control plane and data
// plane. The Client speaks the admin REST API (routes, plugins) with static
// header-key authentication; the Prober sends verification traffic through
// the proxy port.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Cybonto/violentutf-routesync/internal/models"
	svcErrs "github.com/Cybonto/violentutf-routesync/pkg/errors"
	"github.com/Cybonto/violentutf-routesync/pkg/retry"
)

const adminKeyHeader = "X-API-KEY"

type Client struct {
	adminURL   string
	adminKey   string
	httpClient *http.Client
	policy     retry.Policy
	log        *zap.SugaredLogger
}

func NewAdminClient(adminURL, adminKey string, policy retry.Policy) *Client {
	return &Client{
		adminURL:   adminURL,
		adminKey:   adminKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		policy:     policy,
		log:        zap.S().Named("gateway"),
	}
}

// do performs one admin request, retrying transport failures per the
// client's policy. Non-2xx responses are returned to the caller untouched:
// they are application errors and must not be retried.
func (c *Client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	return c.request(ctx, c.policy, method, path, body)
}

// doOnce performs a single attempt with no transport retries.
func (c *Client) doOnce(ctx context.Context, method, path string, body any) (int, []byte, error) {
	return c.request(ctx, retry.Policy{MaxAttempts: 1}, method, path, body)
}

func (c *Client) request(ctx context.Context, policy retry.Policy, method, path string, body any) (int, []byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	type response struct {
		status int
		body   []byte
	}

	resp, err := retry.Do(ctx, policy, func() (response, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.adminURL+path, bytes.NewReader(payload))
		if err != nil {
			return response{}, retry.Permanent(err)
		}
		req.Header.Set(adminKeyHeader, c.adminKey)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		res, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Debugw("admin request failed, retrying", "method", method, "path", path, "error", err)
			return response{}, err
		}
		defer res.Body.Close()

		data, err := io.ReadAll(res.Body)
		if err != nil {
			return response{}, err
		}
		return response{status: res.StatusCode, body: data}, nil
	})
	if err != nil {
		return 0, nil, err
	}
	return resp.status, resp.body, nil
}

// Ping checks basic admin-API connectivity with a single attempt. The
// readiness gate drives its own retry loop around it.
func (c *Client) Ping(ctx context.Context) error {
	status, body, err := c.doOnce(ctx, http.MethodGet, "/routes", nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return svcErrs.NewAdminUnauthorized()
	default:
		return svcErrs.NewAdminAPIError(status, string(body))
	}
}

// HasCapability probes the admin plugin endpoint. HTTP 200 means the named
// plugin is available on this gateway build.
func (c *Client) HasCapability(ctx context.Context, name string) (bool, error) {
	status, body, err := c.doOnce(ctx, http.MethodGet, "/plugins/"+name, nil)
	if err != nil {
		return false, err
	}
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	case http.StatusUnauthorized:
		return false, svcErrs.NewAdminUnauthorized()
	default:
		return false, svcErrs.NewAdminAPIError(status, string(body))
	}
}

// List fetches the live route snapshot.
func (c *Client) List(ctx context.Context) ([]models.DiscoveredRoute, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/routes", nil)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return nil, svcErrs.NewAdminUnauthorized()
	default:
		return nil, svcErrs.NewAdminAPIError(status, string(body))
	}

	var list routeListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("failed to decode route list: %w", err)
	}

	routes := make([]models.DiscoveredRoute, 0, len(list.List))
	for _, entry := range list.List {
		routes = append(routes, discoveredFromEntry(entry))
	}
	return routes, nil
}

// Get fetches one stored route document by id.
func (c *Client) Get(ctx context.Context, routeID string) (*RouteDoc, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/routes/"+routeID, nil)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, svcErrs.NewRouteNotFound(routeID)
	case http.StatusUnauthorized:
		return nil, svcErrs.NewAdminUnauthorized()
	default:
		return nil, svcErrs.NewAdminAPIError(status, string(body))
	}

	var entry routeEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode route %s: %w", routeID, err)
	}
	return &entry.Value, nil
}

// Upsert stores the complete route document under the spec's id.
// PUT-by-id is a full replace: stale plugin keys from a previous spec do
// not survive.
func (c *Client) Upsert(ctx context.Context, spec models.RouteSpec) error {
	doc := RenderRouteDoc(spec)
	status, body, err := c.do(ctx, http.MethodPut, "/routes/"+spec.RouteID, doc)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK, http.StatusCreated:
		c.log.Debugw("route upserted", "routeId", spec.RouteID, "uri", spec.URI)
		return nil
	case http.StatusUnauthorized:
		return svcErrs.NewAdminUnauthorized()
	default:
		return svcErrs.NewAdminAPIError(status, string(body))
	}
}

// Delete removes a route by id. The reconciler never calls this for extra
// routes; it exists for operator-driven cleanup.
func (c *Client) Delete(ctx context.Context, routeID string) error {
	status, body, err := c.do(ctx, http.MethodDelete, "/routes/"+routeID, nil)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return svcErrs.NewRouteNotFound(routeID)
	case http.StatusUnauthorized:
		return svcErrs.NewAdminUnauthorized()
	default:
		return svcErrs.NewAdminAPIError(status, string(body))
	}
}
