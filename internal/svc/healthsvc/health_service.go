package healthsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/mkrupp/postboard/internal/domain"
	"github.com/mkrupp/postboard/internal/infra/logging"
)

// ServiceName is reported by the health probe.
const ServiceName = "postboard-postsvc"

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusReady     = "ready"
	StatusNotReady  = "not ready"

	DatabaseConnected    = "connected"
	DatabaseDisconnected = "disconnected"
)

// Pinger is a store that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService reports liveness and readiness from the state of the store.
type HealthService struct {
	Store Pinger
	Log   logging.Logger
	Now   func() time.Time
}

// NewHealthService creates a HealthService probing store.
func NewHealthService(store Pinger) *HealthService {
	return &HealthService{
		Store: store,
		Log:   logging.GetLogger("svc.healthsvc.health_service"),
		Now:   time.Now,
	}
}

func (s *HealthService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}

	return s.Now().UTC()
}

// Health pings the store. On failure the status is still returned, together with the error.
func (s *HealthService) Health(ctx context.Context) (domain.HealthStatus, error) {
	if err := s.Store.Ping(ctx); err != nil {
		s.Log.ErrorContext(ctx, "health check failed", "error", err)

		//nolint:exhaustruct
		return domain.HealthStatus{
			Status:    StatusUnhealthy,
			Database:  DatabaseDisconnected,
			Error:     err.Error(),
			Timestamp: s.now(),
		}, fmt.Errorf("ping store: %w", err)
	}

	//nolint:exhaustruct
	return domain.HealthStatus{
		Status:    StatusHealthy,
		Database:  DatabaseConnected,
		Timestamp: s.now(),
		Service:   ServiceName,
	}, nil
}

// Ready is Health with readiness wording and without the service name.
func (s *HealthService) Ready(ctx context.Context) (domain.HealthStatus, error) {
	if err := s.Store.Ping(ctx); err != nil {
		s.Log.ErrorContext(ctx, "readiness check failed", "error", err)

		//nolint:exhaustruct
		return domain.HealthStatus{
			Status:    StatusNotReady,
			Database:  DatabaseDisconnected,
			Error:     err.Error(),
			Timestamp: s.now(),
		}, fmt.Errorf("ping store: %w", err)
	}

	//nolint:exhaustruct
	return domain.HealthStatus{
		Status:    StatusReady,
		Database:  DatabaseConnected,
		Timestamp: s.now(),
	}, nil
}
