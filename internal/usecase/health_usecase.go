package usecase

import (
	"context"
	"time"
)

// HealthChecker pings one dependency.
type HealthChecker func(ctx context.Context) error

type HealthUsecase interface {
	Check(ctx context.Context) (map[string]string, bool)
}

type healthUsecase struct {
	checks map[string]HealthChecker
}

func NewHealthUsecase(checks map[string]HealthChecker) HealthUsecase {
	return &healthUsecase{checks: checks}
}

// Check reports each dependency as "ok" or "down"; the bool is false when
// any dependency is down.
func (u *healthUsecase) Check(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	healthy := true
	status := map[string]string{"status": "ok"}
	for name, check := range u.checks {
		if err := check(ctx); err != nil {
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		status["status"] = "degraded"
	}
	return status, healthy
}
