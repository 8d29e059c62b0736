package app

import (
	"context"
	"fmt"

	"quadsync/internal/config"
	"quadsync/internal/reconciler"
	"quadsync/internal/systemd"
	"quadsync/pkg/logging"
)

// newServiceManager is a variable to allow substituting the host service
// manager in tests.
var newServiceManager = systemd.NewManager

// Services holds the components shared by every mode.
type Services struct {
	// Manager talks to the host service manager.
	Manager systemd.Manager

	// Reconciler runs convergence passes over Layout.
	Reconciler *reconciler.Reconciler

	// Metrics accumulates pass counters for the shutdown summary.
	Metrics *reconciler.Metrics

	Layout reconciler.Layout
}

// InitializeServices connects to the service manager and wires the
// reconciler for cfg. A backend that cannot be reached is a configuration
// error.
func InitializeServices(ctx context.Context, cfg config.Config) (*Services, error) {
	manager, err := newServiceManager(ctx, cfg.ServiceManager)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize %s service manager", cfg.ServiceManager.Backend)
		return nil, config.NewConfigurationError("serviceManager", cfg.ServiceManager.Backend,
			"cannot initialize service manager", err)
	}

	layout := reconciler.LayoutFromConfig(cfg)
	metrics := reconciler.NewMetrics()
	rec := reconciler.New(layout, manager, reconciler.WithMetrics(metrics))

	logging.Debug("Bootstrap", "Services initialized (backend=%s, user=%t, roots=%v, target=%s)",
		cfg.ServiceManager.Backend, cfg.ServiceManager.User, rec.Sources().Roots(), rec.Targets().TargetDir())

	return &Services{
		Manager:    manager,
		Reconciler: rec,
		Metrics:    metrics,
		Layout:     layout,
	}, nil
}

// Close releases the service manager connection.
func (s *Services) Close() error {
	if s == nil || s.Manager == nil {
		return nil
	}
	if err := s.Manager.Close(); err != nil {
		return fmt.Errorf("close service manager: %w", err)
	}
	return nil
}
