package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agrilot/api/internal/platform/config"
	"github.com/agrilot/api/internal/repositories"
	"github.com/agrilot/api/internal/services"
)

// BuildInfo carries release metadata surfaced on the readiness endpoint.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Orders      services.OrderService
	Provisioner services.ProvisioningService
	System      services.SystemService
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

type containerOptions struct {
	events services.OrderEventPublisher
	logger func(ctx context.Context, event string, fields map[string]any)
	build  BuildInfo
	clock  func() time.Time
}

// ContainerOption customises container assembly.
type ContainerOption func(*containerOptions)

// WithEventPublisher wires the order event publisher used by services.
func WithEventPublisher(events services.OrderEventPublisher) ContainerOption {
	return func(o *containerOptions) {
		o.events = events
	}
}

// WithServiceLogger injects the structured event logger handed to services.
func WithServiceLogger(logger func(ctx context.Context, event string, fields map[string]any)) ContainerOption {
	return func(o *containerOptions) {
		o.logger = logger
	}
}

// WithBuildInfo attaches release metadata to the system service.
func WithBuildInfo(build BuildInfo) ContainerOption {
	return func(o *containerOptions) {
		o.build = build
	}
}

// WithClock overrides the time source, primarily for testing.
func WithClock(clock func() time.Time) ContainerOption {
	return func(o *containerOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// NewContainer constructs the runtime dependencies. Production wiring provides the
// Firestore-backed registry, while tests can supply in-memory implementations.
func NewContainer(cfg config.Config, reg repositories.Registry, opts ...ContainerOption) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	options := containerOptions{
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	svc, err := buildServices(cfg, reg, options)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(cfg config.Config, reg repositories.Registry, options containerOptions) (Services, error) {
	var svc Services

	provisioner, err := services.NewProvisioningService(services.ProvisioningServiceDeps{
		Orders:             reg.Orders(),
		ProductionLots:     reg.ProductionLots(),
		QualitySharedLots:  reg.QualitySharedLots(),
		QualityControlLots: reg.QualityControlLots(),
		WasteTrackingLots:  reg.WasteTrackingLots(),
		IntakeLots:         reg.IntakeLots(),
		LegacyRecords:      reg.LegacyQualityRecords(),
		ProvisionLogs:      reg.ProvisionLogs(),
		Events:             options.events,
		Clock:              options.clock,
		StepTimeout:        cfg.Provisioning.StepTimeout,
		Logger:             options.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build provisioning service: %w", err)
	}
	svc.Provisioner = provisioner

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:      reg.Orders(),
		Provisioner: provisioner,
		Events:      options.events,
		Clock:       options.clock,
		PassTimeout: cfg.Provisioning.PassTimeout,
		Logger:      options.logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	if healthRepo := reg.Health(); healthRepo != nil {
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			Health:      healthRepo,
			Version:     options.build.Version,
			CommitSHA:   options.build.CommitSHA,
			Environment: options.build.Environment,
			StartedAt:   options.build.StartedAt,
			Clock:       options.clock,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}
