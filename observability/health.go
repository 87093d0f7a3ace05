package observability

import "context"

// HealthStatus is the health of a gateway or client.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes one component.
type Health struct {
	Name       string            `json:"name"`
	Status     HealthStatus      `json:"status"`
	Message    string            `json:"message,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	Components []Health          `json:"components,omitempty"`
}

// HealthChecker is implemented by gateways that can report their health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) Health
}

// Aggregate builds a health whose status is the worst of its components.
func Aggregate(name string, components ...Health) Health {
	h := Health{Name: name, Status: HealthStatusUp, Components: components}
	for _, c := range components {
		switch c.Status {
		case HealthStatusDown:
			h.Status = HealthStatusDown
		case HealthStatusDegraded:
			if h.Status != HealthStatusDown {
				h.Status = HealthStatusDegraded
			}
		}
	}
	return h
}
