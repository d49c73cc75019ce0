package services

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Cybonto/violentutf-routesync/internal/models"
	"github.com/Cybonto/violentutf-routesync/pkg/workpool"
)

// RouteProber sends read-only data-plane traffic.
type RouteProber interface {
	Probe(ctx context.Context, uri string) (int, error)
	ProbeChat(ctx context.Context, uri, model string) (int, error)
}

// Verifier probes routes through the data plane and classifies
// reachability. It never mutates gateway state and never fails a run; an
// unreachable route is a classification, not an error.
type Verifier struct {
	prober RouteProber
	pool   *workpool.Pool
	log    *zap.SugaredLogger
}

func NewVerifier(prober RouteProber, pool *workpool.Pool) *Verifier {
	return &Verifier{
		prober: prober,
		pool:   pool,
		log:    zap.S().Named("verifier"),
	}
}

// Verify probes every route in parallel through the bounded pool and
// returns results in catalog order.
func (v *Verifier) Verify(ctx context.Context, routes []models.RouteSpec) []models.VerificationResult {
	futures := make([]*workpool.Future[workpool.Result[any]], len(routes))
	for i, spec := range routes {
		futures[i] = v.pool.Submit(func(taskCtx context.Context) (any, error) {
			return v.probe(taskCtx, spec), nil
		})
	}

	results := make([]models.VerificationResult, 0, len(routes))
	for i, future := range futures {
		select {
		case r := <-future.C():
			if vr, ok := r.Data.(models.VerificationResult); ok {
				results = append(results, vr)
				continue
			}
			results = append(results, models.VerificationResult{
				RouteID: routes[i].RouteID, URI: routes[i].URI,
				Provider: routes[i].Provider,
				Detail:   fmt.Sprintf("probe did not complete: %v", r.Err),
			})
		case <-ctx.Done():
			future.Stop()
			results = append(results, models.VerificationResult{
				RouteID: routes[i].RouteID, URI: routes[i].URI,
				Provider: routes[i].Provider,
				Detail:   "probe cancelled",
			})
		}
	}
	return results
}

func (v *Verifier) probe(ctx context.Context, spec models.RouteSpec) models.VerificationResult {
	var (
		status int
		err    error
	)
	switch spec.Kind {
	case models.RouteKindChat, models.RouteKindModel:
		status, err = v.prober.ProbeChat(ctx, spec.URI, spec.Model)
	default:
		status, err = v.prober.Probe(ctx, spec.URI)
	}

	result := models.VerificationResult{
		RouteID:    spec.RouteID,
		URI:        spec.URI,
		Provider:   spec.Provider,
		StatusCode: status,
	}
	result.Reachable, result.Detail = classify(status, err)

	v.log.Debugw("route probed",
		"routeId", spec.RouteID, "uri", spec.URI,
		"status", status, "reachable", result.Reachable)
	return result
}

// classify maps a probe outcome to reachability. Any HTTP response outside
// {404, 502, 503} proves the route is wired: a 401 or 429 from the upstream
// means the proxy path and auth enforcement work, it is not a failure.
func classify(status int, err error) (bool, string) {
	if err != nil {
		return false, fmt.Sprintf("connection failed: %v", err)
	}
	switch status {
	case http.StatusNotFound:
		return false, "gateway has no matching route"
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return false, "backend unavailable"
	case http.StatusUnauthorized, http.StatusForbidden:
		return true, "proxy wired, upstream requires auth"
	case http.StatusTooManyRequests:
		return true, "proxy wired, upstream rate limited"
	default:
		return true, ""
	}
}
