package health

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/pizzeria-api/internal/common"
)

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady toggles readiness, e.g. to drain traffic before shutdown.
func SetReady(v bool) {
	ready.Store(v)
}

// Probe checks one dependency.
type Probe func(ctx context.Context) error

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Probes  map[string]Probe
	Timeout time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every probe concurrently and reports 503 if any fails.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting down"})
		return
	}
	if len(h.Probes) == 0 {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "dependencies unavailable"})
		return
	}
	names := make([]string, 0, len(h.Probes))
	for name := range h.Probes {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]string, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, probe Probe) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(r.Context(), h.timeout())
			defer cancel()
			results[i] = "ok"
			if err := probe(ctx); err != nil {
				results[i] = err.Error()
			}
		}(i, h.Probes[name])
	}
	wg.Wait()

	status := make(map[string]string, len(names))
	code := http.StatusOK
	for i, name := range names {
		status[name] = results[i]
		if results[i] != "ok" {
			code = http.StatusServiceUnavailable
		}
	}
	common.JSON(w, code, status)
}

func (h Handler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return 500 * time.Millisecond
	}
	return h.Timeout
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Postgres probes the connection pool.
func Postgres(db pinger) Probe {
	return func(ctx context.Context) error {
		if db == nil {
			return errors.New("db not configured")
		}
		return db.Ping(ctx)
	}
}

// Redis probes the redis client.
func Redis(client *redis.Client) Probe {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis not configured")
		}
		return client.Ping(ctx).Err()
	}
}

type rowQueryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Catalog fails until at least one active size exists, since no pizza can be
// priced without one.
func Catalog(db rowQueryer) Probe {
	return func(ctx context.Context) error {
		if db == nil {
			return errors.New("db not configured")
		}
		var n int
		if err := db.QueryRow(ctx, `SELECT count(*) FROM sizes WHERE is_active`).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			return errors.New("catalog has no active sizes")
		}
		return nil
	}
}
