package topology

import (
	"context"
	"errors"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestTopology(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Topology Suite")
}

type fakeRuntime struct {
	members    []Container
	gateway    string
	listErr    error
	gatewayErr error

	listCalls    int
	gatewayCalls int
	restarted    []string
}

func (f *fakeRuntime) ListNetworkContainers(_ context.Context, _ string) ([]Container, error) {
	f.listCalls++
	return f.members, f.listErr
}

func (f *fakeRuntime) NetworkGateway(_ context.Context, _ string) (string, error) {
	f.gatewayCalls++
	return f.gateway, f.gatewayErr
}

func (f *fakeRuntime) RestartContainer(_ context.Context, name string) error {
	f.restarted = append(f.restarted, name)
	return nil
}

var _ = Describe("Resolver", func() {
	var (
		ctx      context.Context
		runtime  *fakeRuntime
		resolver *Resolver
	)

	BeforeEach(func() {
		ctx = context.Background()
		runtime = &fakeRuntime{
			members: []Container{
				{Name: "ollama", Ports: []PortMapping{{Host: 11434, Container: 11434}}},
				{Name: "violentutf-api", Ports: []PortMapping{{Host: 8000, Container: 8080}}},
			},
			gateway: "10.89.0.1",
		}
		resolver = NewResolver(runtime, "vutf-network")
	})

	It("should resolve to a sibling that publishes the host port", func() {
		// Given a sibling container publishing host port 8000
		// When a localhost:8000 target is resolved
		host, port, err := resolver.ResolveLocalhost(ctx, 8000)

		// Then the sibling's name and in-network port are returned
		Expect(err).ToNot(HaveOccurred())
		Expect(host).To(Equal("violentutf-api"))
		Expect(port).To(Equal(8080))
	})

	It("should fall back to the bridge gateway when no sibling matches", func() {
		// Given no container publishing port 5432
		// When a localhost:5432 target is resolved
		host, port, err := resolver.ResolveLocalhost(ctx, 5432)

		// Then the gateway address is returned with the port unchanged
		Expect(err).ToNot(HaveOccurred())
		Expect(host).To(Equal("10.89.0.1"))
		Expect(port).To(Equal(5432))
	})

	It("should memoise lookups per port", func() {
		// Given a port that has been resolved once
		_, _, err := resolver.ResolveLocalhost(ctx, 11434)
		Expect(err).ToNot(HaveOccurred())

		// When the same port is resolved again
		host, port, err := resolver.ResolveLocalhost(ctx, 11434)

		// Then the runtime is not queried a second time
		Expect(err).ToNot(HaveOccurred())
		Expect(host).To(Equal("ollama"))
		Expect(port).To(Equal(11434))
		Expect(runtime.listCalls).To(Equal(1))
	})

	It("should not cache failed lookups", func() {
		// Given a runtime that fails to list containers
		runtime.listErr = errors.New("socket closed")

		// When resolution fails
		_, _, err := resolver.ResolveLocalhost(ctx, 8000)
		Expect(err).To(HaveOccurred())

		// Then a later attempt queries the runtime again
		runtime.listErr = nil
		host, _, err := resolver.ResolveLocalhost(ctx, 8000)
		Expect(err).ToNot(HaveOccurred())
		Expect(host).To(Equal("violentutf-api"))
		Expect(runtime.listCalls).To(Equal(2))
	})

	It("should surface a gateway lookup failure", func() {
		// Given no matching sibling and a broken gateway lookup
		runtime.gatewayErr = errors.New("network not found")

		// When an unmatched port is resolved
		_, _, err := resolver.ResolveLocalhost(ctx, 5432)

		// Then the error is returned
		Expect(err).To(HaveOccurred())
	})
})
