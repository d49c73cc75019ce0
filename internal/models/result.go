package models

type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictWarn Verdict = "warn"
	VerdictFail Verdict = "fail"
	// VerdictAborted is used when the run never reached route work
	// (readiness failure or rejected admin credentials).
	VerdictAborted Verdict = "aborted"
)

const (
	coveragePass = 0.90
	coverageWarn = 0.75
)

func VerdictForCoverage(coverage float64) Verdict {
	switch {
	case coverage >= coveragePass:
		return VerdictPass
	case coverage >= coverageWarn:
		return VerdictWarn
	default:
		return VerdictFail
	}
}

type UpsertFailure struct {
	Spec   RouteSpec `json:"spec"`
	Reason string    `json:"reason"`
}

// ReconciliationResult is the outcome of one convergence pass: the diff
// between the expected catalog and the gateway's discovered state, the
// upserts attempted and their failures, and the resulting coverage.
type ReconciliationResult struct {
	ExpectedCount   int               `json:"expectedCount"`
	DiscoveredCount int               `json:"discoveredCount"`
	Matched         []RouteSpec       `json:"matched"`
	Missing         []RouteSpec       `json:"missing"`
	Extra           []DiscoveredRoute `json:"extra"`
	Upserted        []RouteSpec       `json:"upserted"`
	UpsertFailures  []UpsertFailure   `json:"upsertFailures"`
	Coverage        float64           `json:"coverage"`
	Verdict         Verdict           `json:"verdict"`
	// States holds the terminal per-route state keyed by route id;
	// CatalogOrder preserves catalog iteration order for rendering.
	States       map[string]RouteState `json:"states"`
	CatalogOrder []string              `json:"-"`
}

// Converged returns the routes known to be live after the pass: matched
// plus successfully upserted. These are the verification targets.
func (r *ReconciliationResult) Converged() []RouteSpec {
	out := make([]RouteSpec, 0, len(r.Matched)+len(r.Upserted))
	out = append(out, r.Matched...)
	out = append(out, r.Upserted...)
	return out
}

type VerificationResult struct {
	RouteID    string `json:"routeId"`
	URI        string `json:"uri"`
	Provider   string `json:"provider,omitempty"`
	Reachable  bool   `json:"reachable"`
	StatusCode int    `json:"statusCode,omitempty"`
	Detail     string `json:"detail,omitempty"`
}
