// Package topology resolves "localhost" upstream targets into addresses
// that are valid from inside the gateway's container network, and carries
// the one recovery action the readiness gate may take (restarting the
// gateway container). All inspection is read-only.
package topology

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// PortMapping is one published port of a container: the host side and the
// in-network container side.
type PortMapping struct {
	Host      int
	Container int
}

// Container is a member of the shared container network.
type Container struct {
	Name  string
	Ports []PortMapping
}

// Runtime is the container-engine surface the resolver needs. The podman
// implementation backs production; tests inject a fake.
type Runtime interface {
	ListNetworkContainers(ctx context.Context, network string) ([]Container, error)
	NetworkGateway(ctx context.Context, network string) (string, error)
	RestartContainer(ctx context.Context, name string) error
}

// Resolver rewrites localhost upstream targets for a single container
// network. Lookups are memoised per run; resolution never mutates the
// runtime.
type Resolver struct {
	runtime Runtime
	network string
	log     *zap.SugaredLogger

	mu    sync.Mutex
	cache map[int]resolved
}

type resolved struct {
	host string
	port int
}

func NewResolver(runtime Runtime, network string) *Resolver {
	return &Resolver{
		runtime: runtime,
		network: network,
		log:     zap.S().Named("topology"),
		cache:   make(map[int]resolved),
	}
}

// ResolveLocalhost maps a localhost:port target to an address reachable
// from the gateway container. A sibling container publishing that host port
// wins and is addressed by name on its in-network port; otherwise the
// network's bridge gateway address is used with the port unchanged.
func (r *Resolver) ResolveLocalhost(ctx context.Context, port int) (string, int, error) {
	r.mu.Lock()
	if hit, ok := r.cache[port]; ok {
		r.mu.Unlock()
		return hit.host, hit.port, nil
	}
	r.mu.Unlock()

	host, mapped, err := r.resolve(ctx, port)
	if err != nil {
		return "", 0, err
	}

	r.mu.Lock()
	r.cache[port] = resolved{host: host, port: mapped}
	r.mu.Unlock()
	return host, mapped, nil
}

func (r *Resolver) resolve(ctx context.Context, port int) (string, int, error) {
	members, err := r.runtime.ListNetworkContainers(ctx, r.network)
	if err != nil {
		return "", 0, err
	}

	for _, member := range members {
		for _, mapping := range member.Ports {
			if mapping.Host == port {
				r.log.Debugw("resolved localhost upstream to sibling container",
					"network", r.network, "port", port,
					"container", member.Name, "containerPort", mapping.Container)
				return member.Name, mapping.Container, nil
			}
		}
	}

	gw, err := r.runtime.NetworkGateway(ctx, r.network)
	if err != nil {
		return "", 0, err
	}
	r.log.Debugw("no sibling publishes port, using bridge gateway",
		"network", r.network, "port", port, "gateway", gw)
	return gw, port, nil
}
