package services_test

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Cybonto/violentutf-routesync/internal/gatewaytest"
	"github.com/Cybonto/violentutf-routesync/internal/models"
	"github.com/Cybonto/violentutf-routesync/internal/services"
	"github.com/Cybonto/violentutf-routesync/pkg/gateway"
	"github.com/Cybonto/violentutf-routesync/pkg/workpool"
)

var _ = Describe("Verifier", func() {
	var (
		ctx      context.Context
		fake     *gatewaytest.Fake
		pool     *workpool.Pool
		verifier *services.Verifier
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = gatewaytest.New(adminKey)
		pool = workpool.New(4)
		prober := gateway.NewProber(fake.DataURL(), 2*time.Second)
		verifier = services.NewVerifier(prober, pool)
	})

	AfterEach(func() {
		pool.Close()
		fake.Close()
	})

	chatSpec := func(id, uri string) models.RouteSpec {
		return models.RouteSpec{
			RouteID: id, URI: uri, Methods: []string{"POST"},
			Provider: "openai", Model: "gpt-4", Kind: models.RouteKindModel,
		}
	}

	It("should classify a responding route as reachable", func() {
		fake.Seed("openai-gpt4", gateway.RouteDoc{URI: "/ai/openai/gpt4", Methods: []string{"POST"}})

		results := verifier.Verify(ctx, []models.RouteSpec{chatSpec("openai-gpt4", "/ai/openai/gpt4")})
		Expect(results).To(HaveLen(1))
		Expect(results[0].Reachable).To(BeTrue())
		Expect(results[0].StatusCode).To(Equal(http.StatusOK))
	})

	// Given a chat route whose upstream rejects the probe with 401
	// When the route is verified
	// Then it is classified reachable: the proxy path and auth enforcement
	// are provably wired
	It("should classify an auth rejection as reachable", func() {
		fake.Seed("openai-gpt4", gateway.RouteDoc{URI: "/ai/openai/gpt4", Methods: []string{"POST"}})
		fake.SetDataStatus("/ai/openai/gpt4", http.StatusUnauthorized)

		results := verifier.Verify(ctx, []models.RouteSpec{chatSpec("openai-gpt4", "/ai/openai/gpt4")})
		Expect(results[0].Reachable).To(BeTrue())
		Expect(results[0].StatusCode).To(Equal(http.StatusUnauthorized))
		Expect(results[0].Detail).To(ContainSubstring("auth"))
	})

	It("should classify a missing route as unreachable", func() {
		results := verifier.Verify(ctx, []models.RouteSpec{chatSpec("ghost", "/ai/ghost/chat")})
		Expect(results[0].Reachable).To(BeFalse())
		Expect(results[0].StatusCode).To(Equal(http.StatusNotFound))
	})

	It("should classify a failing backend as unreachable", func() {
		fake.Seed("flaky", gateway.RouteDoc{URI: "/ai/flaky/chat", Methods: []string{"POST"}})
		fake.SetDataStatus("/ai/flaky/chat", http.StatusServiceUnavailable)

		results := verifier.Verify(ctx, []models.RouteSpec{chatSpec("flaky", "/ai/flaky/chat")})
		Expect(results[0].Reachable).To(BeFalse())
	})

	It("should classify a connection failure as unreachable", func() {
		deadProber := gateway.NewProber("http://127.0.0.1:1", 200*time.Millisecond)
		deadVerifier := services.NewVerifier(deadProber, pool)

		results := deadVerifier.Verify(ctx, []models.RouteSpec{chatSpec("dead", "/ai/dead/chat")})
		Expect(results[0].Reachable).To(BeFalse())
		Expect(results[0].Detail).To(ContainSubstring("connection failed"))
	})

	It("should substitute wildcard segments before probing", func() {
		fake.Seed("violentutf-docs", gateway.RouteDoc{URI: "/docs/*", Methods: []string{"GET"}})

		results := verifier.Verify(ctx, []models.RouteSpec{{
			RouteID: "violentutf-docs", URI: "/docs/*",
			Methods: []string{"GET"}, Kind: models.RouteKindSystem,
		}})
		Expect(results[0].Reachable).To(BeTrue())
	})

	It("should return results in catalog order under parallel probing", func() {
		specs := []models.RouteSpec{}
		for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
			uri := "/ai/" + id + "/chat"
			fake.Seed(id, gateway.RouteDoc{URI: uri, Methods: []string{"POST"}})
			specs = append(specs, chatSpec(id, uri))
		}

		results := verifier.Verify(ctx, specs)
		Expect(results).To(HaveLen(6))
		for i, spec := range specs {
			Expect(results[i].RouteID).To(Equal(spec.RouteID))
		}
	})
})
