package services_test

import (
	"context"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Cybonto/violentutf-routesync/internal/compiler"
	"github.com/Cybonto/violentutf-routesync/internal/config"
	"github.com/Cybonto/violentutf-routesync/internal/gatewaytest"
	"github.com/Cybonto/violentutf-routesync/internal/models"
	"github.com/Cybonto/violentutf-routesync/internal/services"
	svcErrs "github.com/Cybonto/violentutf-routesync/pkg/errors"
	"github.com/Cybonto/violentutf-routesync/pkg/gateway"
	"github.com/Cybonto/violentutf-routesync/pkg/retry"
	"github.com/Cybonto/violentutf-routesync/pkg/workpool"
)

var _ = Describe("Engine", func() {
	var (
		ctx  context.Context
		fake *gatewaytest.Fake
		pool *workpool.Pool
	)

	policy := func(attempts uint) retry.Policy {
		return retry.Policy{MaxAttempts: attempts, Interval: 10 * time.Millisecond}
	}

	// One OpenAI provider with two models; the compiler adds the three
	// static system routes, so the expected catalog holds five routes.
	providers := []models.ProviderConfig{{
		ID: "openai", Name: "OpenAI", Kind: models.ProviderKindBuiltin,
		Enabled: true, BaseURL: "https://api.openai.com/v1",
		AuthType: models.AuthTypeBearer, AuthToken: "sk-test",
		Models: []string{"gpt-4", "gpt-3.5-turbo"},
	}}

	newEngine := func(key string) *services.Engine {
		client := gateway.NewAdminClient(fake.AdminURL(), key, policy(2))
		gate := services.NewReadinessGate(client, nil, "apisix", "ai-proxy",
			policy(3), policy(2))
		comp := compiler.New(nil, []string{"http://localhost:3000"}, "http://violentutf-api:8000")
		session := services.NewSession(client)
		prober := gateway.NewProber(fake.DataURL(), 2*time.Second)
		verifier := services.NewVerifier(prober, pool)
		cfg := &config.Configuration{Gateway: config.Gateway{AdminURL: fake.AdminURL()}}
		return services.NewEngine(cfg, providers, gate, comp, session, verifier)
	}

	BeforeEach(func() {
		ctx = context.Background()
		fake = gatewaytest.New(adminKey)
		fake.SetPlugin("ai-proxy", true)
		pool = workpool.New(4)
	})

	AfterEach(func() {
		pool.Close()
		fake.Close()
	})

	// Given a ready gateway with an empty route table
	// When a full run executes
	// Then every catalog route is upserted, verified reachable and the run
	// passes
	It("should drive the full pipeline to a passing report", func() {
		report, err := newEngine(adminKey).Run(ctx, false)
		Expect(err).NotTo(HaveOccurred())

		Expect(report.Verdict).To(Equal(models.VerdictPass))
		Expect(report.Reconciliation.Upserted).To(HaveLen(5))
		Expect(report.Verifications).To(HaveLen(5))
		for _, v := range report.Verifications {
			Expect(v.Reachable).To(BeTrue(), v.RouteID)
		}
		Expect(fake.RouteCount()).To(Equal(5))

		byProvider := map[string]models.ProviderSummary{}
		for _, s := range report.Providers {
			byProvider[s.Provider] = s
		}
		Expect(byProvider["openai"].Upserted).To(Equal(2))
		Expect(byProvider["system"].Upserted).To(Equal(3))
	})

	// Given a gateway that never answers the connectivity poll
	// When the run executes
	// Then it aborts before any route work: nothing compiled is written
	It("should abort before route work when the gateway never becomes ready", func() {
		fake.RefuseConnections(100)

		report, err := newEngine(adminKey).Run(ctx, false)
		Expect(err).To(HaveOccurred())

		Expect(report.Verdict).To(Equal(models.VerdictAborted))
		Expect(report.Error).NotTo(BeEmpty())
		Expect(report.Reconciliation).To(BeNil())
		Expect(report.Verifications).To(BeEmpty())
		Expect(fake.RouteCount()).To(BeZero())
	})

	It("should abort before route work on rejected admin credentials", func() {
		report, err := newEngine("wrong-key").Run(ctx, false)
		Expect(svcErrs.IsAdminUnauthorizedError(err)).To(BeTrue())

		Expect(report.Verdict).To(Equal(models.VerdictAborted))
		Expect(fake.RouteCount()).To(BeZero())
	})

	// Given one route whose upsert fails with HTTP 500
	// When the run executes
	// Then it still verifies the four routes that converged and closes with
	// a warn verdict at 4/5 coverage
	It("should proceed to verification for the routes that converged", func() {
		fake.FailUpsert("openai-gpt4", http.StatusInternalServerError)

		report, err := newEngine(adminKey).Run(ctx, false)
		Expect(err).NotTo(HaveOccurred())

		Expect(report.Reconciliation.Upserted).To(HaveLen(4))
		Expect(report.Reconciliation.UpsertFailures).To(HaveLen(1))
		Expect(report.Reconciliation.Coverage).To(BeNumerically("~", 0.8, 0.001))
		Expect(report.Verdict).To(Equal(models.VerdictWarn))

		Expect(report.Verifications).To(HaveLen(4))
		for _, v := range report.Verifications {
			Expect(v.RouteID).NotTo(Equal("openai-gpt4"))
		}
	})

	// Given dry-run mode
	// When the run executes
	// Then the diff is computed but nothing is written and nothing probed
	It("should neither write nor probe in dry-run mode", func() {
		report, err := newEngine(adminKey).Run(ctx, true)
		Expect(err).NotTo(HaveOccurred())

		Expect(report.Reconciliation.Missing).To(HaveLen(5))
		Expect(report.Reconciliation.Upserted).To(BeEmpty())
		Expect(report.Verifications).To(BeEmpty())
		Expect(fake.RouteCount()).To(BeZero())
	})

	It("should verify only the already-present catalog routes in VerifyOnly", func() {
		fake.Seed("openai-gpt4", gateway.RouteDoc{URI: "/ai/openai/gpt4", Methods: []string{"POST"}})

		report, err := newEngine(adminKey).VerifyOnly(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(report.Reconciliation.Matched).To(HaveLen(1))
		Expect(report.Verifications).To(HaveLen(1))
		Expect(report.Verifications[0].RouteID).To(Equal("openai-gpt4"))
		Expect(fake.RouteCount()).To(Equal(1))
	})
})
