package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/Cybonto/violentutf-routesync/internal/models"
	svcErrs "github.com/Cybonto/violentutf-routesync/pkg/errors"
)

// AdminClient is the gateway surface the reconciler drives.
type AdminClient interface {
	List(ctx context.Context) ([]models.DiscoveredRoute, error)
	Upsert(ctx context.Context, spec models.RouteSpec) error
}

// Session owns one reconciliation pass: the expected catalog, the
// discovered snapshot and every per-route state live here, never in
// package-level state.
type Session struct {
	client AdminClient
	log    *zap.SugaredLogger
}

func NewSession(client AdminClient) *Session {
	return &Session{
		client: client,
		log:    zap.S().Named("reconciler"),
	}
}

// Plan computes the diff between the catalog and the gateway's live state
// without writing anything.
func (s *Session) Plan(ctx context.Context, catalog []models.RouteSpec) (*models.ReconciliationResult, error) {
	discovered, err := s.client.List(ctx)
	if err != nil {
		return nil, err
	}
	result := s.diff(catalog, discovered)
	s.finalize(result, catalog)
	return result, nil
}

// Reconcile drives convergence: snapshot, wildcard-aware diff, sequential
// upserts of the missing entries, then a post-upsert re-fetch to confirm
// convergence. A single failed upsert never aborts the pass; rejected admin
// credentials do.
func (s *Session) Reconcile(ctx context.Context, catalog []models.RouteSpec) (*models.ReconciliationResult, error) {
	discovered, err := s.client.List(ctx)
	if err != nil {
		return nil, err
	}
	result := s.diff(catalog, discovered)

	for _, spec := range result.Missing {
		if err := s.client.Upsert(ctx, spec); err != nil {
			if svcErrs.IsAdminUnauthorizedError(err) {
				return nil, err
			}
			s.log.Warnw("route upsert failed",
				"routeId", spec.RouteID, "uri", spec.URI, "error", err)
			result.States[spec.RouteID] = models.RouteStateUpsertFailed
			result.UpsertFailures = append(result.UpsertFailures, models.UpsertFailure{
				Spec:   spec,
				Reason: svcErrs.NewUpsertFailed(spec.RouteID, spec.URI, err).Error(),
			})
			continue
		}
		result.States[spec.RouteID] = models.RouteStateUpserted
		result.Upserted = append(result.Upserted, spec)
	}

	// Re-fetch to confirm convergence; extra routes are recomputed from the
	// fresh snapshot so newly upserted routes don't show up as drift.
	confirmed, err := s.client.List(ctx)
	if err == nil {
		result.DiscoveredCount = len(confirmed)
		result.Extra = extraRoutes(catalog, confirmed)
	} else {
		s.log.Warnw("post-upsert snapshot failed, keeping initial counts", "error", err)
	}

	s.finalize(result, catalog)
	return result, nil
}

// diff matches every expected route against the discovered snapshot.
// Expected URIs ending in `*` match any discovered URI sharing the literal
// prefix; non-wildcard URIs require exact equality.
func (s *Session) diff(catalog []models.RouteSpec, discovered []models.DiscoveredRoute) *models.ReconciliationResult {
	result := &models.ReconciliationResult{
		ExpectedCount:   len(catalog),
		DiscoveredCount: len(discovered),
		States:          make(map[string]models.RouteState, len(catalog)),
	}

	claimed := make([]bool, len(discovered))
	for _, spec := range catalog {
		result.CatalogOrder = append(result.CatalogOrder, spec.RouteID)
		result.States[spec.RouteID] = models.RouteStateUnknown

		matched := false
		for i, d := range discovered {
			if spec.MatchesURI(d.URI) {
				claimed[i] = true
				matched = true
			}
		}
		if matched {
			result.States[spec.RouteID] = models.RouteStateMatched
			result.Matched = append(result.Matched, spec)
		} else {
			result.States[spec.RouteID] = models.RouteStateMissing
			result.Missing = append(result.Missing, spec)
		}
	}

	for i, d := range discovered {
		if !claimed[i] {
			result.Extra = append(result.Extra, d)
		}
	}
	return result
}

// extraRoutes lists discovered routes no catalog entry accounts for. They
// are reported only: the reconciler never deletes a route it did not
// declare, so operator-added routes survive every run.
func extraRoutes(catalog []models.RouteSpec, discovered []models.DiscoveredRoute) []models.DiscoveredRoute {
	var extra []models.DiscoveredRoute
	for _, d := range discovered {
		matched := false
		for _, spec := range catalog {
			if spec.MatchesURI(d.URI) {
				matched = true
				break
			}
		}
		if !matched {
			extra = append(extra, d)
		}
	}
	return extra
}

func (s *Session) finalize(result *models.ReconciliationResult, catalog []models.RouteSpec) {
	if len(catalog) == 0 {
		result.Coverage = 1
	} else {
		result.Coverage = float64(len(result.Matched)+len(result.Upserted)) / float64(len(catalog))
	}
	result.Verdict = models.VerdictForCoverage(result.Coverage)

	s.log.Infow("reconciliation pass complete",
		"expected", result.ExpectedCount,
		"discovered", result.DiscoveredCount,
		"matched", len(result.Matched),
		"missing", len(result.Missing),
		"extra", len(result.Extra),
		"upserted", len(result.Upserted),
		"failed", len(result.UpsertFailures),
		"coverage", result.Coverage,
		"verdict", result.Verdict,
	)
}
