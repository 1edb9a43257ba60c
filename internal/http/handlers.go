package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mywallet/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(health)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if err := s.repo.Ping(ctx); err != nil {
		checks["database"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if stats, err := s.repo.GetExportQueueStats(ctx); err != nil {
		checks["export_queue"] = fmt.Sprintf("failed: %v", err)
	} else {
		checks["export_queue"] = map[string]any{
			"pending": stats.Pending,
			"failed":  stats.Failed,
		}
	}

	checks["cache"] = map[string]any{
		"balance_entries": s.svc.BalanceCache.Size(),
		"status":          "ok",
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	response := map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	}

	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(response)
}

// handleMetrics provides application and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	securityMetrics := s.detector.GetMetrics()
	rateLimitMetrics := s.limiter.GetMetrics()
	traceMetrics := s.tracer.GetMetrics()
	stats, err := s.repo.GetExportQueueStats(r.Context())
	if err != nil {
		s.logger.WarnContext(r.Context(), "Export queue stats unavailable", log.FieldError, err)
	}

	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "# HELP http_requests_total Total number of HTTP requests\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", traceMetrics.TotalRequests)

	fmt.Fprintf(w, "# HELP http_server_errors_total Responses with a 5xx status\n")
	fmt.Fprintf(w, "# TYPE http_server_errors_total counter\n")
	fmt.Fprintf(w, "http_server_errors_total %d\n\n", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP http_response_time_avg_ms Mean response time\n")
	fmt.Fprintf(w, "# TYPE http_response_time_avg_ms gauge\n")
	fmt.Fprintf(w, "http_response_time_avg_ms %.3f\n\n", float64(traceMetrics.AverageResponseTime().Microseconds())/1000)

	fmt.Fprintf(w, "# HELP cache_entries Current cache entries\n")
	fmt.Fprintf(w, "# TYPE cache_entries gauge\n")
	fmt.Fprintf(w, "cache_entries{type=\"balance\"} %d\n\n", s.svc.BalanceCache.Size())

	cacheStats := s.svc.BalanceCache.Stats()
	fmt.Fprintf(w, "# HELP cache_lookups_total Cache lookups by outcome\n")
	fmt.Fprintf(w, "# TYPE cache_lookups_total counter\n")
	fmt.Fprintf(w, "cache_lookups_total{type=\"balance\",result=\"hit\"} %d\n", cacheStats.Hits)
	fmt.Fprintf(w, "cache_lookups_total{type=\"balance\",result=\"miss\"} %d\n\n", cacheStats.Misses)

	fmt.Fprintf(w, "# HELP cache_removals_total Cache entries removed by capacity or age\n")
	fmt.Fprintf(w, "# TYPE cache_removals_total counter\n")
	fmt.Fprintf(w, "cache_removals_total{type=\"balance\",reason=\"evicted\"} %d\n", cacheStats.Evictions)
	fmt.Fprintf(w, "cache_removals_total{type=\"balance\",reason=\"expired\"} %d\n\n", cacheStats.Expired)

	fmt.Fprintf(w, "# HELP export_queue_items Ledger export outbox items by status\n")
	fmt.Fprintf(w, "# TYPE export_queue_items gauge\n")
	fmt.Fprintf(w, "export_queue_items{status=\"pending\"} %d\n", stats.Pending)
	fmt.Fprintf(w, "export_queue_items{status=\"processing\"} %d\n", stats.Processing)
	fmt.Fprintf(w, "export_queue_items{status=\"completed\"} %d\n", stats.Completed)
	fmt.Fprintf(w, "export_queue_items{status=\"failed\"} %d\n\n", stats.Failed)

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Total rate limit hits\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	fmt.Fprintf(w, "rate_limit_hits_total %d\n\n", rateLimitMetrics.TotalHits)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", securityMetrics.SuspiciousRequests)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	fmt.Fprintf(w, "active_rate_limit_clients %d\n\n", rateLimitMetrics.ClientCount)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n\n", time.Since(s.started).Seconds())
}
