package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"bazario-admin/internal/session"
)

// Health returns basic health check
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
	})
}

// HealthCheckResult represents the result of a single dependency check
type HealthCheckResult struct {
	Status    string                 `json:"status"`
	LatencyMs int64                  `json:"latency_ms,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// RelayChecker is satisfied by the event relay; a closed AMQP connection
// flips readiness.
type RelayChecker interface {
	IsClosed() bool
}

// Ready reports readiness with dependency detail. The archive database and
// the relay are optional; a nil dependency reports "disabled" and does not
// affect readiness.
func Ready(db *sql.DB, relay RelayChecker, sess *session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		dbResult := make(chan HealthCheckResult, 1)
		relayResult := make(chan HealthCheckResult, 1)

		go func() {
			dbResult <- checkDatabase(ctx, db)
		}()

		go func() {
			relayResult <- checkRelay(relay)
		}()

		dbCheck := <-dbResult
		relayCheck := <-relayResult
		sessionCheck := checkSession(sess)

		response := map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
			"checks": map[string]HealthCheckResult{
				"database": dbCheck,
				"relay":    relayCheck,
				"session":  sessionCheck,
			},
		}

		ready := dbCheck.Status != "down" &&
			relayCheck.Status != "down" &&
			sessionCheck.Status == "up"

		w.Header().Set("Content-Type", "application/json")
		if ready {
			response["status"] = "ready"
			w.WriteHeader(http.StatusOK)
		} else {
			response["status"] = "not_ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		json.NewEncoder(w).Encode(response)
	}
}

func checkDatabase(ctx context.Context, db *sql.DB) HealthCheckResult {
	if db == nil {
		return HealthCheckResult{Status: "disabled"}
	}

	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	if err != nil {
		return HealthCheckResult{
			Status:    "down",
			LatencyMs: latency.Milliseconds(),
			Error:     err.Error(),
		}
	}

	stats := db.Stats()
	return HealthCheckResult{
		Status:    "up",
		LatencyMs: latency.Milliseconds(),
		Metadata: map[string]interface{}{
			"connections_open":   stats.OpenConnections,
			"connections_in_use": stats.InUse,
		},
	}
}

func checkRelay(relay RelayChecker) HealthCheckResult {
	if relay == nil {
		return HealthCheckResult{Status: "disabled"}
	}
	if relay.IsClosed() {
		return HealthCheckResult{
			Status: "down",
			Error:  "connection closed",
		}
	}
	return HealthCheckResult{Status: "up"}
}

func checkSession(sess *session.Store) HealthCheckResult {
	if sess.IsLogged() {
		return HealthCheckResult{Status: "up"}
	}
	return HealthCheckResult{
		Status: "down",
		Error:  "no active session",
	}
}
