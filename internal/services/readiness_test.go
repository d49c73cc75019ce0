package services_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/Cybonto/violentutf-routesync/internal/gatewaytest"
	"github.com/Cybonto/violentutf-routesync/internal/services"
	svcErrs "github.com/Cybonto/violentutf-routesync/pkg/errors"
	"github.com/Cybonto/violentutf-routesync/pkg/gateway"
	"github.com/Cybonto/violentutf-routesync/pkg/retry"
)

const adminKey = "test-admin-key"

// fakeRestarter records recovery restarts and flips the plugin on.
type fakeRestarter struct {
	fake     *gatewaytest.Fake
	plugin   string
	restarts int
	heal     bool
}

func (r *fakeRestarter) RestartContainer(_ context.Context, _ string) error {
	r.restarts++
	if r.heal {
		r.fake.SetPlugin(r.plugin, true)
	}
	return nil
}

var _ = Describe("ReadinessGate", func() {
	var (
		ctx    context.Context
		fake   *gatewaytest.Fake
		client *gateway.Client
	)

	fastPolicy := func(attempts uint) retry.Policy {
		return retry.Policy{MaxAttempts: attempts, Interval: 10 * time.Millisecond}
	}

	BeforeEach(func() {
		ctx = context.Background()
		fake = gatewaytest.New(adminKey)
		client = gateway.NewAdminClient(fake.AdminURL(), adminKey, fastPolicy(1))
	})

	AfterEach(func() {
		fake.Close()
	})

	// Given an admin API that refuses the first 3 connectivity polls
	// When the gate awaits readiness
	// Then it becomes Ready on the 4th poll without invoking recovery
	It("should survive initial connection refusals without recovery", func() {
		fake.SetPlugin("ai-proxy", true)
		fake.RefuseConnections(3)
		restarter := &fakeRestarter{fake: fake, plugin: "ai-proxy"}

		gate := services.NewReadinessGate(client, restarter, "apisix", "ai-proxy",
			fastPolicy(10), fastPolicy(3))

		Expect(gate.Await(ctx)).To(Succeed())
		Expect(restarter.restarts).To(BeZero())
	})

	It("should fail after exhausting the connectivity budget", func() {
		fake.SetPlugin("ai-proxy", true)
		fake.RefuseConnections(100)

		gate := services.NewReadinessGate(client, nil, "apisix", "ai-proxy",
			fastPolicy(3), fastPolicy(3))

		Expect(gate.Await(ctx)).To(HaveOccurred())
	})

	// Given a gateway whose plugin only appears after a restart
	// When the capability budget is exhausted
	// Then the gate restarts the container exactly once and becomes Ready
	It("should recover a missing capability with a single restart", func() {
		restarter := &fakeRestarter{fake: fake, plugin: "ai-proxy", heal: true}

		gate := services.NewReadinessGate(client, restarter, "apisix", "ai-proxy",
			fastPolicy(5), fastPolicy(2))

		Expect(gate.Await(ctx)).To(Succeed())
		Expect(restarter.restarts).To(Equal(1))
	})

	It("should declare terminal failure when the capability never appears", func() {
		restarter := &fakeRestarter{fake: fake, plugin: "ai-proxy", heal: false}

		gate := services.NewReadinessGate(client, restarter, "apisix", "ai-proxy",
			fastPolicy(5), fastPolicy(2))

		err := gate.Await(ctx)
		Expect(err).To(HaveOccurred())
		Expect(svcErrs.IsCapabilityMissingError(err)).To(BeTrue())
		Expect(restarter.restarts).To(Equal(1))
	})

	It("should abort immediately on rejected admin credentials", func() {
		badClient := gateway.NewAdminClient(fake.AdminURL(), "wrong-key", fastPolicy(1))
		restarter := &fakeRestarter{fake: fake, plugin: "ai-proxy"}

		gate := services.NewReadinessGate(badClient, restarter, "apisix", "ai-proxy",
			fastPolicy(10), fastPolicy(3))

		err := gate.Await(ctx)
		Expect(svcErrs.IsAdminUnauthorizedError(err)).To(BeTrue())
		Expect(restarter.restarts).To(BeZero())
	})
})
