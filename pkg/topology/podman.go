package topology

import (
	"context"
	"fmt"

	"github.com/containers/podman/v5/pkg/bindings"
	"github.com/containers/podman/v5/pkg/bindings/containers"
	"github.com/containers/podman/v5/pkg/bindings/network"
)

// PodmanRuntime implements Runtime over the podman REST socket.
type PodmanRuntime struct {
	conn context.Context
}

// NewPodmanRuntime connects to the podman service, e.g.
// "unix:///run/user/1000/podman/podman.sock".
func NewPodmanRuntime(ctx context.Context, socket string) (*PodmanRuntime, error) {
	conn, err := bindings.NewConnection(ctx, socket)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to podman socket %s: %w", socket, err)
	}
	return &PodmanRuntime{conn: conn}, nil
}

func (p *PodmanRuntime) ListNetworkContainers(_ context.Context, networkName string) ([]Container, error) {
	all := true
	list, err := containers.List(p.conn, &containers.ListOptions{
		All:     &all,
		Filters: map[string][]string{"network": {networkName}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers on network %s: %w", networkName, err)
	}

	members := make([]Container, 0, len(list))
	for _, item := range list {
		if len(item.Names) == 0 {
			continue
		}
		member := Container{Name: item.Names[0]}
		for _, port := range item.Ports {
			member.Ports = append(member.Ports, PortMapping{
				Host:      int(port.HostPort),
				Container: int(port.ContainerPort),
			})
		}
		members = append(members, member)
	}
	return members, nil
}

func (p *PodmanRuntime) NetworkGateway(_ context.Context, networkName string) (string, error) {
	net, err := network.Inspect(p.conn, networkName, nil)
	if err != nil {
		return "", fmt.Errorf("failed to inspect network %s: %w", networkName, err)
	}
	for _, subnet := range net.Subnets {
		if subnet.Gateway != nil {
			return subnet.Gateway.String(), nil
		}
	}
	return "", fmt.Errorf("network %s has no gateway address", networkName)
}

func (p *PodmanRuntime) RestartContainer(_ context.Context, name string) error {
	if err := containers.Restart(p.conn, name, nil); err != nil {
		return fmt.Errorf("failed to restart container %s: %w", name, err)
	}
	return nil
}
