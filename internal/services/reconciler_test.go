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
	"github.com/Cybonto/violentutf-routesync/pkg/retry"
)

func providerRoute(id, uri string) models.RouteSpec {
	return models.RouteSpec{
		RouteID: id,
		Name:    id,
		URI:     uri,
		Methods: []string{"POST"},
		Upstream: models.Upstream{
			Scheme: "https", Host: "api.example.com", Port: 443,
			PathRewrite: "/v1/chat/completions",
		},
		AuthHeader: &models.AuthHeader{Name: "Authorization", Value: "Bearer tok"},
		Priority:   10,
		Provider:   "example",
		Kind:       models.RouteKindModel,
	}
}

var _ = Describe("Session", func() {
	var (
		ctx     context.Context
		fake    *gatewaytest.Fake
		client  *gateway.Client
		session *services.Session
	)

	BeforeEach(func() {
		ctx = context.Background()
		fake = gatewaytest.New(adminKey)
		client = gateway.NewAdminClient(fake.AdminURL(), adminKey,
			retry.Policy{MaxAttempts: 2, Interval: 10 * time.Millisecond})
		session = services.NewSession(client)
	})

	AfterEach(func() {
		fake.Close()
	})

	Describe("Reconcile", func() {
		// Given two enabled providers compiling to 3 routes and an empty gateway
		// When the session reconciles
		// Then exactly 3 routes are created and coverage is 100%
		It("should create every missing route against an empty gateway", func() {
			catalog := []models.RouteSpec{
				providerRoute("openai-gpt4", "/ai/openai/gpt4"),
				providerRoute("openai-gpt35turbo", "/ai/openai/gpt35turbo"),
				providerRoute("anthropic-claude3haiku", "/ai/anthropic/claude3haiku"),
			}

			result, err := session.Reconcile(ctx, catalog)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Missing).To(HaveLen(3))
			Expect(result.Upserted).To(HaveLen(3))
			Expect(result.UpsertFailures).To(BeEmpty())
			Expect(result.Coverage).To(BeNumerically("==", 1.0))
			Expect(result.Verdict).To(Equal(models.VerdictPass))
			Expect(fake.RouteCount()).To(Equal(3))
			Expect(result.States["openai-gpt4"]).To(Equal(models.RouteStateUpserted))
		})

		It("should match wildcard URIs by literal prefix", func() {
			fake.Seed("auth", gateway.RouteDoc{URI: "/api/v1/auth/token", Methods: []string{"GET"}})
			fake.Seed("authx", gateway.RouteDoc{URI: "/api/v1/authx", Methods: []string{"GET"}})

			spec := providerRoute("api-auth", "/api/v1/auth/*")
			result, err := session.Reconcile(ctx, []models.RouteSpec{spec})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Matched).To(HaveLen(1))
			Expect(result.States["api-auth"]).To(Equal(models.RouteStateMatched))
			// /api/v1/authx does not share the /api/v1/auth/ prefix.
			Expect(result.Extra).To(HaveLen(1))
			Expect(result.Extra[0].URI).To(Equal("/api/v1/authx"))
		})

		// Given one route whose upsert returns HTTP 500
		// When the session reconciles
		// Then the remaining routes are still attempted
		It("should continue past individual upsert failures", func() {
			fake.FailUpsert("openai-gpt4", http.StatusInternalServerError)

			catalog := []models.RouteSpec{
				providerRoute("openai-gpt4", "/ai/openai/gpt4"),
				providerRoute("openai-gpt35turbo", "/ai/openai/gpt35turbo"),
				providerRoute("anthropic-claude3haiku", "/ai/anthropic/claude3haiku"),
			}

			result, err := session.Reconcile(ctx, catalog)
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Upserted).To(HaveLen(2))
			Expect(result.UpsertFailures).To(HaveLen(1))
			Expect(result.UpsertFailures[0].Spec.RouteID).To(Equal("openai-gpt4"))
			Expect(result.States["openai-gpt4"]).To(Equal(models.RouteStateUpsertFailed))
			Expect(result.Coverage).To(BeNumerically("~", 2.0/3.0, 0.001))
		})

		// Given a discovered route that is not in the expected catalog
		// When the session reconciles
		// Then the route is reported as extra and never deleted
		It("should report extra routes without deleting them", func() {
			fake.Seed("operator-route", gateway.RouteDoc{URI: "/custom/path", Methods: []string{"GET"}})

			result, err := session.Reconcile(ctx, []models.RouteSpec{
				providerRoute("openai-gpt4", "/ai/openai/gpt4"),
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Extra).To(HaveLen(1))
			Expect(result.Extra[0].RouteID).To(Equal("operator-route"))
			// Still stored: the reconciler must not have deleted it.
			_, stillThere := fake.StoredDocument("operator-route")
			Expect(stillThere).To(BeTrue())
		})

		It("should not decrease coverage when the discovered set grows", func() {
			catalog := []models.RouteSpec{
				providerRoute("openai-gpt4", "/ai/openai/gpt4"),
				providerRoute("openai-gpt35turbo", "/ai/openai/gpt35turbo"),
			}

			first, err := session.Reconcile(ctx, catalog)
			Expect(err).NotTo(HaveOccurred())

			fake.Seed("unrelated", gateway.RouteDoc{URI: "/unrelated", Methods: []string{"GET"}})

			second, err := session.Reconcile(ctx, catalog)
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Coverage).To(BeNumerically(">=", first.Coverage))
		})

		It("should report full coverage for an empty catalog", func() {
			result, err := session.Reconcile(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Coverage).To(BeNumerically("==", 1.0))
		})
	})

	Describe("Plan", func() {
		It("should compute the diff without writing", func() {
			fake.Seed("existing", gateway.RouteDoc{URI: "/ai/openai/gpt4", Methods: []string{"POST"}})

			result, err := session.Plan(ctx, []models.RouteSpec{
				providerRoute("openai-gpt4", "/ai/openai/gpt4"),
				providerRoute("openai-gpt35turbo", "/ai/openai/gpt35turbo"),
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(result.Matched).To(HaveLen(1))
			Expect(result.Missing).To(HaveLen(1))
			Expect(result.Upserted).To(BeEmpty())
			Expect(fake.RouteCount()).To(Equal(1))
		})
	})
})
