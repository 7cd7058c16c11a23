package health

import (
	"context"
	"sync/atomic"
)

// Status represents the aggregated health status.
type Status string

const (
	// StatusOK indicates the service can serve match requests.
	StatusOK Status = "ok"
	// StatusLoading indicates startup checks have not passed yet.
	StatusLoading Status = "loading"
	// StatusError indicates a dependency check is failing.
	StatusError Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results plus the catalog size.
type Report struct {
	Status  Status
	Careers int
	Checks  map[string]CheckResult
}

// Service coordinates health checks. Readiness is flipped once by the
// startup probe; live dependency checks run per health request.
type Service struct {
	store     Pinger
	embedding EmbeddingChecker
	careers   int
	ready     atomic.Bool
}

// New creates a Service. store and embedding can be nil.
func New(store Pinger, embedding EmbeddingChecker, careers int) *Service {
	return &Service{store: store, embedding: embedding, careers: careers}
}

// SetReady marks startup checks as passed (or failed again).
func (s *Service) SetReady(v bool) {
	s.ready.Store(v)
}

// Ready reports whether the service may serve match requests.
func (s *Service) Ready() bool {
	return s.ready.Load() && s.careers > 0
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			checks["vector_store"] = CheckError
		} else {
			checks["vector_store"] = CheckOK
		}
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	status := StatusOK
	for _, v := range checks {
		if v == CheckError {
			status = StatusError
			break
		}
	}
	if status == StatusOK && !s.Ready() {
		status = StatusLoading
	}

	return Report{Status: status, Careers: s.careers, Checks: checks}
}
