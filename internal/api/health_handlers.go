package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"database": s.checkDatabase(ctx),
		"kv":       s.checkKV(),
		"search":   s.checkSearchIndex(),
	}

	overall := statusHealthy
	for _, c := range components {
		switch {
		case c.Status == statusUnhealthy:
			overall = statusUnhealthy
		case c.Status == statusDegraded && overall == statusHealthy:
			overall = statusDegraded
		}
	}

	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: components,
		},
	}, nil
}

// checkDatabase verifies SQLite answers a ping.
func (s *Server) checkDatabase(ctx context.Context) ComponentHealth {
	if s.backends.Records == nil {
		return ComponentHealth{Status: statusDegraded, Message: "database not configured"}
	}
	return timed(func() error { return s.backends.Records.Ping(ctx) }, "database ping failed")
}

// checkKV verifies Badger is open and readable.
func (s *Server) checkKV() ComponentHealth {
	if s.backends.KV == nil {
		return ComponentHealth{Status: statusDegraded, Message: "kv store not configured"}
	}
	return timed(s.backends.KV.Ping, "kv store read failed")
}

// checkSearchIndex verifies the candidate index is accessible.
// An empty index only degrades duplicate checks, so it is not fatal.
func (s *Server) checkSearchIndex() ComponentHealth {
	if s.backends.Index == nil {
		return ComponentHealth{Status: statusDegraded, Message: "candidate index not configured"}
	}

	start := time.Now()
	docCount, err := s.backends.Index.DocumentCount()
	latency := time.Since(start)

	if err != nil {
		return ComponentHealth{Status: statusUnhealthy, Latency: latency.String(), Message: "candidate index unreachable"}
	}
	if docCount == 0 {
		return ComponentHealth{Status: statusDegraded, Latency: latency.String(), Message: "candidate index empty"}
	}
	return ComponentHealth{Status: statusHealthy, Latency: latency.String()}
}

func timed(check func() error, failure string) ComponentHealth {
	start := time.Now()
	err := check()
	latency := time.Since(start)
	if err != nil {
		return ComponentHealth{Status: statusUnhealthy, Latency: latency.String(), Message: failure}
	}
	return ComponentHealth{Status: statusHealthy, Latency: latency.String()}
}
