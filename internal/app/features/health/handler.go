package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/shipyard/internal/app/system/timeouts"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Check is one dependency probed by the health endpoint.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// MongoCheck pings the primary.
func MongoCheck(client *mongo.Client) Check {
	return Check{
		Name: "database",
		Ping: func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
	}
}

// RedisCheck pings the token blocklist's Redis server.
func RedisCheck(client *redis.Client) Check {
	return Check{
		Name: "redis",
		Ping: func(ctx context.Context) error { return client.Ping(ctx).Err() },
	}
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Checks []Check
	Log    *zap.Logger
}

// NewHandler constructs a health Handler probing checks in order.
func NewHandler(logger *zap.Logger, checks ...Check) *Handler {
	return &Handler{
		Checks: checks,
		Log:    logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "checks":{"database":"connected","redis":"connected"} }
//
// When any check fails: 503 and
//
//	{ "status":"error", "checks":{"database":"disconnected"}, "message":"database unavailable", "error":"…"}
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status: "ok",
		Checks: make(map[string]string, len(h.Checks)),
	}

	for _, c := range h.Checks {
		if err := c.Ping(ctx); err != nil {
			h.Log.Error("health-check: ping failed", zap.String("check", c.Name), zap.Error(err))
			resp.Checks[c.Name] = "disconnected"
			if resp.Status == "ok" {
				resp.Status = "error"
				resp.Message = c.Name + " unavailable"
				resp.Error = err.Error()
			}
			continue
		}
		resp.Checks[c.Name] = "connected"
	}

	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
