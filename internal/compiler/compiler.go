// Package compiler turns enabled-provider configuration into the expected
// route catalog: static system routes plus one route per built-in
// provider/model pair and a chat/models route pair per generic provider.
// Compilation is deterministic and side-effect-free; the only external
// lookup is read-only network inspection through the injected resolver.
package compiler

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/Cybonto/violentutf-routesync/internal/models"
	svcErrs "github.com/Cybonto/violentutf-routesync/pkg/errors"
)

// Generic providers draw route ids from reserved numeric bands keyed by
// their block ordinal, so chat and models routes of different providers can
// never collide.
const (
	chatRouteIDBase   = 3000
	modelsRouteIDBase = 4000
)

const (
	systemRoutePriority   = 0
	providerRoutePriority = 10
)

// Provider routes share one modest local rate limit.
var providerRateLimit = models.RateLimit{Count: 60, WindowSeconds: 60}

// AddressResolver rewrites a localhost:port target into an address valid
// from inside the gateway's container network. A nil resolver leaves
// localhost targets untouched.
type AddressResolver interface {
	ResolveLocalhost(ctx context.Context, port int) (string, int, error)
}

type Compiler struct {
	resolver      AddressResolver
	corsOrigins   []string
	apiServiceURL string
	log           *zap.SugaredLogger
}

func New(resolver AddressResolver, corsOrigins []string, apiServiceURL string) *Compiler {
	return &Compiler{
		resolver:      resolver,
		corsOrigins:   corsOrigins,
		apiServiceURL: apiServiceURL,
		log:           zap.S().Named("compiler"),
	}
}

// Result is a compiled catalog plus the provider/model entries that were
// skipped as invalid. Skips never abort compilation.
type Result struct {
	Catalog []models.RouteSpec
	Skipped []models.SkippedProvider
}

// Compile builds the full expected catalog for one run. Disabled providers
// contribute nothing; invalid entries are skipped with a warning.
func (c *Compiler) Compile(ctx context.Context, providers []models.ProviderConfig) Result {
	var result Result

	c.appendSystemRoutes(&result)

	for _, provider := range providers {
		if !provider.Enabled {
			continue
		}
		c.compileProvider(ctx, provider, &result)
	}

	return dedupe(result, c.log)
}

func (c *Compiler) compileProvider(ctx context.Context, p models.ProviderConfig, result *Result) {
	if p.ID == "" || p.BaseURL == "" {
		err := svcErrs.NewSpecInvalid(p.ID, "", "missing provider id or base_url")
		c.log.Warnw("skipping provider", "provider", p.Name, "error", err)
		result.Skipped = append(result.Skipped, models.SkippedProvider{
			Provider: firstNonEmpty(p.ID, p.Name), Reason: err.Error(),
		})
		return
	}

	upstream, err := c.compileUpstream(ctx, p.BaseURL)
	if err != nil {
		c.log.Warnw("skipping provider", "provider", p.ID, "error", err)
		result.Skipped = append(result.Skipped, models.SkippedProvider{
			Provider: p.ID, Reason: err.Error(),
		})
		return
	}

	auth := c.authHeaderFor(p)

	switch p.Kind {
	case models.ProviderKindGeneric:
		result.Catalog = append(result.Catalog,
			c.genericRoute(p, upstream, auth, models.RouteKindChat),
			c.genericRoute(p, upstream, auth, models.RouteKindModels),
		)
	default:
		for _, model := range p.Models {
			spec, err := c.modelRoute(p, model, upstream, auth)
			if err != nil {
				c.log.Warnw("skipping model", "provider", p.ID, "model", model, "error", err)
				result.Skipped = append(result.Skipped, models.SkippedProvider{
					Provider: p.ID, Model: model, Reason: err.Error(),
				})
				continue
			}
			result.Catalog = append(result.Catalog, spec)
		}
	}
}

// modelRoute compiles a built-in provider's per-model route:
// /ai/{provider}/{slug} with route id {provider}-{slug}.
func (c *Compiler) modelRoute(p models.ProviderConfig, model string, upstream models.Upstream, auth *models.AuthHeader) (models.RouteSpec, error) {
	slug := Slug(model)
	if slug == "" {
		return models.RouteSpec{}, svcErrs.NewSpecInvalid(p.ID, model, "model name yields an empty slug")
	}

	up := upstream
	up.PathRewrite = joinPath(up.PathRewrite, "chat/completions")

	rl := providerRateLimit
	return models.RouteSpec{
		RouteID:     fmt.Sprintf("%s-%s", p.ID, slug),
		Name:        fmt.Sprintf("%s %s", p.Name, model),
		URI:         fmt.Sprintf("/ai/%s/%s", p.ID, slug),
		Methods:     []string{"POST"},
		Upstream:    up,
		AuthHeader:  auth,
		CORSOrigins: c.corsOrigins,
		RateLimit:   &rl,
		Priority:    providerRoutePriority,
		Provider:    p.ID,
		Model:       model,
		Kind:        models.RouteKindModel,
	}, nil
}

// genericRoute compiles one half of a generic provider's fixed route pair.
func (c *Compiler) genericRoute(p models.ProviderConfig, upstream models.Upstream, auth *models.AuthHeader, kind models.RouteKind) models.RouteSpec {
	var (
		id      int
		suffix  string
		methods []string
	)
	if kind == models.RouteKindModels {
		id = modelsRouteIDBase + p.Ordinal
		suffix = "models"
		methods = []string{"GET"}
	} else {
		id = chatRouteIDBase + p.Ordinal
		suffix = "chat/completions"
		methods = []string{"POST"}
	}

	up := upstream
	up.PathRewrite = joinPath(up.PathRewrite, suffix)

	rl := providerRateLimit
	return models.RouteSpec{
		RouteID:     strconv.Itoa(id),
		Name:        fmt.Sprintf("%s %s", firstNonEmpty(p.Name, p.ID), suffix),
		URI:         fmt.Sprintf("/ai/%s/%s", p.ID, suffix),
		Methods:     methods,
		Upstream:    up,
		AuthHeader:  auth,
		CORSOrigins: c.corsOrigins,
		RateLimit:   &rl,
		Priority:    providerRoutePriority,
		Provider:    p.ID,
		Kind:        kind,
	}
}

// compileUpstream parses a provider base URL into an upstream target,
// rewriting localhost hosts through the topology resolver when one is
// configured.
func (c *Compiler) compileUpstream(ctx context.Context, baseURL string) (models.Upstream, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return models.Upstream{}, svcErrs.NewSpecInvalid("", "", fmt.Sprintf("unparseable base_url %q", baseURL))
	}

	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}

	host := strings.ToLower(u.Hostname())
	port := defaultPort(scheme)
	if p := u.Port(); p != "" {
		port, _ = strconv.Atoi(p)
	}

	if c.resolver != nil && isLocalhost(host) {
		resolvedHost, resolvedPort, err := c.resolver.ResolveLocalhost(ctx, port)
		if err != nil {
			return models.Upstream{}, fmt.Errorf("failed to resolve localhost upstream: %w", err)
		}
		host, port = resolvedHost, resolvedPort
	}

	return models.Upstream{
		Scheme:      scheme,
		Host:        host,
		Port:        port,
		PathRewrite: strings.TrimSuffix(u.Path, "/"),
	}, nil
}

// authHeaderFor maps the provider's auth scheme to the single header its
// routes inject. Unknown schemes fall back to bearer with a warning rather
// than being silently dropped. An empty credential compiles to no header at
// all: injecting "Bearer " with nothing behind it would only mask the
// missing configuration behind upstream 401s.
func (c *Compiler) authHeaderFor(p models.ProviderConfig) *models.AuthHeader {
	if strings.TrimSpace(p.AuthToken) == "" {
		if p.AuthType != models.AuthTypeNone {
			c.log.Warnw("no credential configured, omitting auth header",
				"provider", p.ID, "authType", string(p.AuthType))
		}
		return nil
	}

	switch p.AuthType {
	case models.AuthTypeNone:
		return nil
	case models.AuthTypeBearer:
		return &models.AuthHeader{Name: "Authorization", Value: "Bearer " + p.AuthToken}
	case models.AuthTypeAPIKey:
		return &models.AuthHeader{Name: "X-API-Key", Value: p.AuthToken}
	case models.AuthTypeBasic:
		// Token is pre-encoded by the caller.
		return &models.AuthHeader{Name: "Authorization", Value: "Basic " + p.AuthToken}
	default:
		c.log.Warnw("unknown auth type, falling back to bearer",
			"provider", p.ID, "authType", string(p.AuthType), "token", p.TokenPrefix())
		return &models.AuthHeader{Name: "Authorization", Value: "Bearer " + p.AuthToken}
	}
}

// appendSystemRoutes adds the static platform routes the installer always
// provisions: the API service, its docs, and the health endpoint.
func (c *Compiler) appendSystemRoutes(result *Result) {
	upstream, err := c.compileUpstream(context.Background(), c.apiServiceURL)
	if err != nil {
		c.log.Warnw("skipping system routes", "apiServiceUrl", c.apiServiceURL, "error", err)
		result.Skipped = append(result.Skipped, models.SkippedProvider{
			Provider: "system", Reason: err.Error(),
		})
		return
	}

	system := func(id, uri string, methods []string) models.RouteSpec {
		return models.RouteSpec{
			RouteID:     id,
			Name:        id,
			URI:         uri,
			Methods:     methods,
			Upstream:    upstream,
			CORSOrigins: c.corsOrigins,
			Priority:    systemRoutePriority,
			Kind:        models.RouteKindSystem,
		}
	}

	result.Catalog = append(result.Catalog,
		system("violentutf-api", "/api/*", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		system("violentutf-docs", "/docs/*", []string{"GET"}),
		system("violentutf-health", "/health", []string{"GET"}),
	)
}

// Slug normalises a model name into its URI segment: lowercase with every
// non-alphanumeric rune dropped ("gpt-4" -> "gpt4").
func Slug(model string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(model) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// dedupe enforces the unique-route-id invariant: a later entry colliding
// with an earlier one is skipped, not silently overwritten.
func dedupe(result Result, log *zap.SugaredLogger) Result {
	seen := make(map[string]struct{}, len(result.Catalog))
	kept := result.Catalog[:0]
	for _, spec := range result.Catalog {
		if _, dup := seen[spec.RouteID]; dup {
			log.Warnw("duplicate route id in catalog, skipping", "routeId", spec.RouteID, "uri", spec.URI)
			result.Skipped = append(result.Skipped, models.SkippedProvider{
				Provider: spec.Provider, Model: spec.Model,
				Reason: fmt.Sprintf("duplicate route id %s", spec.RouteID),
			})
			continue
		}
		seen[spec.RouteID] = struct{}{}
		kept = append(kept, spec)
	}
	result.Catalog = kept
	return result
}

func defaultPort(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}

func isLocalhost(host string) bool {
	return host == "localhost" || host == "127.0.0.1"
}

func joinPath(base, suffix string) string {
	return strings.TrimSuffix(base, "/") + "/" + suffix
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
