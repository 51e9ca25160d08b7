package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckPending marks a lazily loaded component that has not been loaded yet.
	CheckPending CheckResult = "not_loaded"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	corpus    CorpusState
	db        DBPinger
	embedding EmbeddingChecker
}

// New creates a Service. db and embedding can be nil.
func New(corpus CorpusState, db DBPinger, embedding EmbeddingChecker) *Service {
	return &Service{corpus: corpus, db: db, embedding: embedding}
}

// Check runs health checks against all components.
// An unloaded corpus is reported but does not degrade the service: the first
// search loads it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.corpus.IsLoaded() {
		checks["corpus"] = CheckOK
	} else {
		checks["corpus"] = CheckPending
	}

	if s.db != nil {
		checks["cache"] = result(s.db.Ping(ctx))
	}
	if s.embedding != nil {
		checks["embedding"] = result(s.embedding.HealthCheck(ctx))
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
