package main

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/Cybonto/violentutf-routesync/internal/models"
	"github.com/Cybonto/violentutf-routesync/pkg/errors"
	"github.com/Cybonto/violentutf-routesync/pkg/gateway"
	"github.com/Cybonto/violentutf-routesync/pkg/retry"
)

// Every route written by this suite carries the "e2e-" id prefix so a
// run against a shared gateway can be cleaned up without touching
// operator routes.
const routeIDPrefix = "e2e-"

func e2eRoute(id string) models.RouteSpec {
	return models.RouteSpec{
		RouteID:  routeIDPrefix + id,
		Name:     routeIDPrefix + id,
		URI:      fmt.Sprintf("/%s%s/*", routeIDPrefix, id),
		Methods:  []string{"GET"},
		Kind:     models.RouteKindSystem,
		Priority: 0,
		Upstream: models.Upstream{
			Scheme: "http",
			Host:   "violentutf-api",
			Port:   8000,
		},
	}
}

var _ = Describe("Gateway admin API", Ordered, func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		client *gateway.Client
		prober *gateway.Prober
		specs  []models.RouteSpec
	)

	BeforeAll(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Minute)
		client = gateway.NewAdminClient(cfg.AdminURL, cfg.AdminKey, retry.Policy{MaxAttempts: 3, Interval: time.Second})
		prober = gateway.NewProber(cfg.DataPlaneURL, 10*time.Second)
	})

	AfterAll(func() {
		if cfg.KeepRoutes {
			zap.S().Infow("keeping e2e routes", "count", len(specs))
		} else {
			for _, spec := range specs {
				if err := client.Delete(ctx, spec.RouteID); err != nil {
					zap.S().Warnw("failed to delete e2e route", "id", spec.RouteID, "error", err)
				}
			}
		}
		cancel()
	})

	It("should answer the readiness ping", func() {
		// Given a running gateway
		// When the admin API is pinged with the configured key
		// Then no error is returned
		Expect(client.Ping(ctx)).To(Succeed())
	})

	It("should report the required plugin capability", func() {
		// Given a gateway provisioned for AI traffic
		// When the capability endpoint is queried
		// Then the required plugin is present
		ok, err := client.HasCapability(ctx, cfg.PluginName)
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeTrue())
	})

	It("should create a route and find it in the listing", func() {
		// Given a route spec that does not exist yet
		spec := e2eRoute("listing")
		specs = append(specs, spec)

		// When it is upserted
		Expect(client.Upsert(ctx, spec)).To(Succeed())

		// Then the admin listing contains it
		discovered, err := client.List(ctx)
		Expect(err).ToNot(HaveOccurred())
		ids := make([]string, 0, len(discovered))
		for _, d := range discovered {
			ids = append(ids, d.RouteID)
		}
		Expect(ids).To(ContainElement(spec.RouteID))
	})

	It("should upsert idempotently", func() {
		// Given a route that already exists
		spec := e2eRoute("idempotent")
		specs = append(specs, spec)
		Expect(client.Upsert(ctx, spec)).To(Succeed())
		before, err := client.Get(ctx, spec.RouteID)
		Expect(err).ToNot(HaveOccurred())

		// When the same spec is upserted again
		Expect(client.Upsert(ctx, spec)).To(Succeed())

		// Then the stored route is unchanged
		after, err := client.Get(ctx, spec.RouteID)
		Expect(err).ToNot(HaveOccurred())
		Expect(after).To(Equal(before))
	})

	It("should serve the route through the data plane", func() {
		// Given an upserted route
		spec := e2eRoute("probe")
		specs = append(specs, spec)
		Expect(client.Upsert(ctx, spec)).To(Succeed())

		// When the data plane is probed on the route URI
		status, err := prober.Probe(ctx, spec.URI)

		// Then the gateway routed the request: any status but the
		// gateway's own 404 means the route is wired
		Expect(err).ToNot(HaveOccurred())
		Expect(status).ToNot(Equal(404))
	})

	It("should return a typed error for a missing route", func() {
		// Given an id that was never created
		// When it is fetched
		_, err := client.Get(ctx, routeIDPrefix+"never-created")

		// Then a route-not-found error is returned
		Expect(errors.IsRouteNotFoundError(err)).To(BeTrue())
	})

	It("should reject a wrong admin key", func() {
		// Given a client with a bad key
		bad := gateway.NewAdminClient(cfg.AdminURL, "wrong-key", retry.Policy{MaxAttempts: 1, Interval: time.Second})

		// When the gateway is pinged
		err := bad.Ping(ctx)

		// Then an unauthorized error is returned
		Expect(errors.IsAdminUnauthorizedError(err)).To(BeTrue())
	})
})
