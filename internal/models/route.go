package models

import (
	"fmt"
	"strings"
)

type RouteKind string

const (
	RouteKindSystem RouteKind = "system"
	// RouteKindModel is a built-in provider's per-model route.
	RouteKindModel RouteKind = "model"
	// RouteKindChat and RouteKindModels are the fixed pair a generic
	// provider gets.
	RouteKindChat   RouteKind = "chat"
	RouteKindModels RouteKind = "models"
)

type Upstream struct {
	Scheme      string `json:"scheme"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	PathRewrite string `json:"pathRewrite,omitempty"`
}

func (u Upstream) Address() string {
	return fmt.Sprintf("%s:%d", u.Host, u.Port)
}

// AuthHeader is the single outbound header a route injects toward its
// upstream. Value carries the rendered credential.
type AuthHeader struct {
	Name  string `json:"name"`
	Value string `json:"-"`
}

type RateLimit struct {
	Count         int `json:"count"`
	WindowSeconds int `json:"windowSeconds"`
}

// RouteSpec is one fully-compiled desired route. Specs are compiled fresh
// every run and never persisted.
type RouteSpec struct {
	RouteID     string      `json:"routeId"`
	Name        string      `json:"name"`
	URI         string      `json:"uri"`
	Methods     []string    `json:"methods"`
	Upstream    Upstream    `json:"upstream"`
	AuthHeader  *AuthHeader `json:"authHeader,omitempty"`
	CORSOrigins []string    `json:"corsOrigins,omitempty"`
	RateLimit   *RateLimit  `json:"rateLimit,omitempty"`
	Priority    int         `json:"priority"`
	Provider    string      `json:"provider,omitempty"`
	Model       string      `json:"model,omitempty"`
	Kind        RouteKind   `json:"kind"`
}

// MatchesURI reports whether a discovered URI satisfies this spec. A spec
// URI ending in `*` matches any URI sharing the literal prefix; otherwise
// exact equality is required.
func (s RouteSpec) MatchesURI(discovered string) bool {
	if strings.HasSuffix(s.URI, "*") {
		return strings.HasPrefix(discovered, strings.TrimSuffix(s.URI, "*"))
	}
	return discovered == s.URI
}

// DiscoveredRoute is a live snapshot entry from the gateway's admin API.
type DiscoveredRoute struct {
	RouteID string   `json:"routeId"`
	URI     string   `json:"uri"`
	Methods []string `json:"methods"`
	Plugins []string `json:"plugins"`
}

// RouteState tracks one expected route through a reconciliation pass.
type RouteState string

const (
	RouteStateUnknown      RouteState = "unknown"
	RouteStateMatched      RouteState = "matched"
	RouteStateMissing      RouteState = "missing"
	RouteStateUpserted     RouteState = "upserted"
	RouteStateUpsertFailed RouteState = "upsert_failed"
)
