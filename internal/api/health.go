package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/SamSjosten/FitChallenge-sub003/internal/models/entities"
)

// Pinger checks one backing service
type Pinger func(ctx context.Context) error

// HealthCheckHandler handles GET /healthCheck
//
// Postgres is always checked. extra adds named checks such as redis.
func HealthCheckHandler(db *sqlx.DB, providerMode string, upSince time.Time, extra map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		services := make(map[string]entities.ServiceStatus)
		services["postgres"] = checkService(ctx, "Postgres Connected", db.PingContext)

		names := make([]string, 0, len(extra))
		for name := range extra {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			services[name] = checkService(ctx, name+" reachable", extra[name])
		}

		overallStatus := "ok"
		for _, svc := range services {
			if svc.Status != "ok" {
				overallStatus = "down"
				break
			}
		}

		resp := entities.HealthCheckResponse{
			Services:     services,
			Status:       overallStatus,
			ProviderMode: providerMode,
			UpSince:      upSince.UTC(),
			Uptime:       time.Since(upSince).Round(time.Second).String(),
		}

		statusCode := http.StatusOK
		if overallStatus != "ok" {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func checkService(ctx context.Context, okDetails string, ping Pinger) entities.ServiceStatus {
	if err := ping(ctx); err != nil {
		return entities.ServiceStatus{Status: "down", Details: err.Error()}
	}
	return entities.ServiceStatus{Status: "ok", Details: okDetails}
}
