package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	healthy   = "healthy"
	unhealthy = "unhealthy"
)

// HealthChecker reports whether one dependency is reachable.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// backendNamer is implemented by checkers that can say what sits behind them.
type backendNamer interface {
	Backend() string
}

// StoreChecker pings the record store. DB is nil for the in-memory store,
// which is always reachable.
type StoreChecker struct {
	DB     *sql.DB
	Driver string
}

func (s *StoreChecker) Check(ctx context.Context) error {
	if s.DB == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("%s ping: %w", s.Driver, err)
	}
	return nil
}

func (s *StoreChecker) Backend() string { return s.Driver }

// HealthReport is the /healthz body.
type HealthReport struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status    string `json:"status"`
	Backend   string `json:"backend,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	Message   string `json:"message,omitempty"`
}

// HealthHandler runs every checker in parallel and answers 503 if any fails.
func HealthHandler(checkers map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		report := HealthReport{
			Status:    healthy,
			Timestamp: time.Now().UTC(),
			Checks:    make(map[string]CheckResult, len(checkers)),
		}

		var (
			mu sync.Mutex
			g  errgroup.Group
		)
		for name, checker := range checkers {
			g.Go(func() error {
				res := runCheck(ctx, checker)
				mu.Lock()
				defer mu.Unlock()
				report.Checks[name] = res
				if res.Status != healthy {
					report.Status = unhealthy
				}
				return nil
			})
		}
		_ = g.Wait()

		statusCode := http.StatusOK
		if report.Status != healthy {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(report)
	}
}

func runCheck(ctx context.Context, c HealthChecker) CheckResult {
	res := CheckResult{Status: healthy}
	if n, ok := c.(backendNamer); ok {
		res.Backend = n.Backend()
	}
	start := time.Now()
	err := c.Check(ctx)
	res.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		res.Status = unhealthy
		res.Message = err.Error()
	}
	return res
}

// LivenessHandler answers as long as the process serves HTTP.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
