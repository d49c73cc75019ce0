package services

import (
	"context"

	"go.uber.org/zap"

	svcErrs "github.com/Cybonto/violentutf-routesync/pkg/errors"
	"github.com/Cybonto/violentutf-routesync/pkg/retry"
)

// AdminPinger is the slice of the gateway client the readiness gate needs.
type AdminPinger interface {
	Ping(ctx context.Context) error
	HasCapability(ctx context.Context, name string) (bool, error)
}

// GatewayRestarter performs the gate's single recovery action. A nil
// restarter skips recovery and fails terminally instead.
type GatewayRestarter interface {
	RestartContainer(ctx context.Context, name string) error
}

// ReadinessGate blocks until the admin API is reachable and the required
// plugin is available. It either returns nil (fully ready) or an error that
// aborts the run; there is no partial success.
type ReadinessGate struct {
	client           AdminPinger
	restarter        GatewayRestarter
	containerName    string
	requiredPlugin   string
	connectPolicy    retry.Policy
	capabilityPolicy retry.Policy
	log              *zap.SugaredLogger
}

func NewReadinessGate(client AdminPinger, restarter GatewayRestarter, containerName, requiredPlugin string, connect, capability retry.Policy) *ReadinessGate {
	return &ReadinessGate{
		client:           client,
		restarter:        restarter,
		containerName:    containerName,
		requiredPlugin:   requiredPlugin,
		connectPolicy:    connect,
		capabilityPolicy: capability,
		log:              zap.S().Named("readiness"),
	}
}

// Await polls connectivity, then the required capability. If the capability
// never appears within its budget the gate restarts the gateway container
// exactly once and re-polls one more round before declaring terminal
// failure. Rejected admin credentials abort immediately.
func (g *ReadinessGate) Await(ctx context.Context) error {
	if err := g.awaitConnectivity(ctx); err != nil {
		return err
	}

	err := g.awaitCapability(ctx)
	if err == nil {
		return nil
	}
	if !svcErrs.IsCapabilityMissingError(err) {
		return err
	}

	if g.restarter == nil {
		g.log.Warnw("capability missing and no runtime configured for recovery", "plugin", g.requiredPlugin)
		return err
	}

	g.log.Warnw("capability missing, restarting gateway container once",
		"plugin", g.requiredPlugin, "container", g.containerName)
	if restartErr := g.restarter.RestartContainer(ctx, g.containerName); restartErr != nil {
		g.log.Errorw("gateway restart failed", "container", g.containerName, "error", restartErr)
		return err
	}

	if err := g.awaitConnectivity(ctx); err != nil {
		return err
	}
	return g.awaitCapability(ctx)
}

func (g *ReadinessGate) awaitConnectivity(ctx context.Context) error {
	attempt := 0
	_, err := retry.Do(ctx, g.connectPolicy, func() (struct{}, error) {
		attempt++
		if err := g.client.Ping(ctx); err != nil {
			if svcErrs.IsAdminUnauthorizedError(err) {
				return struct{}{}, retry.Permanent(err)
			}
			g.log.Debugw("admin API not reachable yet", "attempt", attempt, "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		g.log.Errorw("admin API never became reachable", "attempts", attempt, "error", err)
		return err
	}
	g.log.Infow("admin API reachable", "attempts", attempt)
	return nil
}

func (g *ReadinessGate) awaitCapability(ctx context.Context) error {
	attempt := 0
	_, err := retry.Do(ctx, g.capabilityPolicy, func() (struct{}, error) {
		attempt++
		ok, err := g.client.HasCapability(ctx, g.requiredPlugin)
		if err != nil {
			if svcErrs.IsAdminUnauthorizedError(err) {
				return struct{}{}, retry.Permanent(err)
			}
			return struct{}{}, err
		}
		if !ok {
			g.log.Debugw("capability not available yet", "plugin", g.requiredPlugin, "attempt", attempt)
			return struct{}{}, svcErrs.NewCapabilityMissing(g.requiredPlugin)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}
	g.log.Infow("required capability available", "plugin", g.requiredPlugin, "attempts", attempt)
	return nil
}
