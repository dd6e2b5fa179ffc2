package health

import (
	"context"
	"fmt"
	"sync"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Checker is a single health check for one dependency
type Checker interface {
	Name() string
	IsCritical() bool
	HealthCheck(ctx context.Context) error
}

// Manager runs the registered health checks
type Manager struct {
	checkers []Checker
	logger   *zap.Logger
	mu       sync.RWMutex
}

// NewManager creates a new health manager
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		checkers: make([]Checker, 0),
		logger:   logger,
	}
}

// AddChecker adds a health checker to the manager
func (m *Manager) AddChecker(checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, checker)
}

// StartupHealthCheck performs critical health checks that must pass for startup
func (m *Manager) StartupHealthCheck(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var criticalFailures []error

	for _, checker := range m.checkers {
		err := checker.HealthCheck(ctx)
		if err == nil {
			continue
		}
		if checker.IsCritical() {
			criticalFailures = append(criticalFailures, fmt.Errorf("%s: %w", checker.Name(), err))
			m.logger.Error("Critical service health check failed",
				zap.String("service", checker.Name()),
				zap.Error(err))
		} else {
			m.logger.Warn("Non-critical service health check failed",
				zap.String("service", checker.Name()),
				zap.Error(err))
		}
	}

	if len(criticalFailures) > 0 {
		return fmt.Errorf("critical services failed health check: %v", criticalFailures)
	}

	return nil
}

// RuntimeHealthCheck performs health checks during runtime
func (m *Manager) RuntimeHealthCheck(ctx context.Context) map[string]error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make(map[string]error)
	for _, checker := range m.checkers {
		results[checker.Name()] = checker.HealthCheck(ctx)
	}

	return results
}

// DatabaseChecker checks database connectivity
type DatabaseChecker struct {
	db *bun.DB
}

// NewDatabaseChecker creates a database health checker
func NewDatabaseChecker(db *bun.DB) *DatabaseChecker {
	return &DatabaseChecker{db: db}
}

func (d *DatabaseChecker) HealthCheck(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *DatabaseChecker) IsCritical() bool {
	return true
}

func (d *DatabaseChecker) Name() string {
	return "database"
}

// ConfigChecker checks configuration validity
type ConfigChecker struct {
	config interface{}
}

// NewConfigChecker creates a config health checker
func NewConfigChecker(config interface{}) *ConfigChecker {
	return &ConfigChecker{config: config}
}

func (c *ConfigChecker) HealthCheck(ctx context.Context) error {
	if c.config == nil {
		return fmt.Errorf("configuration is nil")
	}
	return nil
}

func (c *ConfigChecker) IsCritical() bool {
	return true
}

func (c *ConfigChecker) Name() string {
	return "configuration"
}
