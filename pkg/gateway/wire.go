package gateway

import (
	"regexp"
	"slices"
	"strings"

	"github.com/Cybonto/violentutf-routesync/internal/models"
)

// UpstreamDoc is the admin API's upstream object.
type UpstreamDoc struct {
	Type   string         `json:"type"`
	Scheme string         `json:"scheme,omitempty"`
	Nodes  map[string]int `json:"nodes"`
}

// RouteDoc is the admin API's route document. Upserts send the complete
// document, so a replace drops every key of the previous spec.
type RouteDoc struct {
	Name     string         `json:"name,omitempty"`
	Desc     string         `json:"desc,omitempty"`
	URI      string         `json:"uri"`
	Methods  []string       `json:"methods,omitempty"`
	Priority int            `json:"priority,omitempty"`
	Upstream *UpstreamDoc   `json:"upstream,omitempty"`
	Plugins  map[string]any `json:"plugins,omitempty"`
}

type routeEntry struct {
	Key   string   `json:"key"`
	Value RouteDoc `json:"value"`
}

type routeListResponse struct {
	List  []routeEntry `json:"list"`
	Total int          `json:"total"`
}

// RenderRouteDoc turns a compiled spec into its canonical wire document.
// The rendering is deterministic (sorted method set, map keys sorted by the
// JSON encoder), so upserting an identical spec twice stores a
// byte-identical document.
func RenderRouteDoc(spec models.RouteSpec) RouteDoc {
	methods := slices.Clone(spec.Methods)
	slices.Sort(methods)

	doc := RouteDoc{
		Name:     spec.Name,
		URI:      spec.URI,
		Methods:  methods,
		Priority: spec.Priority,
		Upstream: &UpstreamDoc{
			Type:   "roundrobin",
			Scheme: spec.Upstream.Scheme,
			Nodes:  map[string]int{spec.Upstream.Address(): 1},
		},
		Plugins: map[string]any{},
	}

	rewrite := map[string]any{}
	if spec.Upstream.PathRewrite != "" {
		if strings.HasSuffix(spec.URI, "*") {
			prefix := strings.TrimSuffix(spec.URI, "*")
			rewrite["regex_uri"] = []string{
				"^" + regexp.QuoteMeta(prefix) + "(.*)",
				strings.TrimSuffix(spec.Upstream.PathRewrite, "/") + "/$1",
			}
		} else {
			rewrite["uri"] = spec.Upstream.PathRewrite
		}
	}
	if spec.AuthHeader != nil {
		rewrite["headers"] = map[string]any{
			"set": map[string]any{spec.AuthHeader.Name: spec.AuthHeader.Value},
		}
	}
	if len(rewrite) > 0 {
		doc.Plugins["proxy-rewrite"] = rewrite
	}

	if len(spec.CORSOrigins) > 0 {
		doc.Plugins["cors"] = map[string]any{
			"allow_origins": strings.Join(spec.CORSOrigins, ","),
			"allow_methods": "*",
			"allow_headers": "*",
		}
	}

	if spec.RateLimit != nil {
		doc.Plugins["limit-count"] = map[string]any{
			"count":         spec.RateLimit.Count,
			"time_window":   spec.RateLimit.WindowSeconds,
			"rejected_code": 429,
			"policy":        "local",
		}
	}

	return doc
}

// discoveredFromEntry flattens an admin list entry into the snapshot shape
// the reconciler diffs against.
func discoveredFromEntry(e routeEntry) models.DiscoveredRoute {
	plugins := make([]string, 0, len(e.Value.Plugins))
	for name := range e.Value.Plugins {
		plugins = append(plugins, name)
	}
	slices.Sort(plugins)

	methods := slices.Clone(e.Value.Methods)
	slices.Sort(methods)

	return models.DiscoveredRoute{
		RouteID: routeIDFromKey(e.Key),
		URI:     e.Value.URI,
		Methods: methods,
		Plugins: plugins,
	}
}

// routeIDFromKey strips the admin store prefix, e.g.
// "/apisix/routes/openai-gpt4" -> "openai-gpt4".
func routeIDFromKey(key string) string {
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		return key[idx+1:]
	}
	return key
}
