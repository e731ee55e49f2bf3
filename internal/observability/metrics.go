package observability

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/estrella-backend/internal/pkg/logger"
)

// Metrics is a small Prometheus text exposition of the storefront's
// counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqTotal *Counter
	apiReqError *Counter

	orderSubmissions   *CounterVec
	orderSubmitLatency *HistogramVec
	serviceRequests    *CounterVec
	assistantRequests  *CounterVec
	assistantLatency   *HistogramVec
	assistantToolCalls *CounterVec
	catalogRefreshes   *CounterVec
	sseClients         *Gauge

	dbStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("estrella_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"estrella_api_request_duration_seconds",
			"API request latency in seconds by method/route.",
			[]string{"method", "route"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		),
		apiInflight: NewGauge("estrella_api_inflight_requests", "In-flight API requests."),
		apiReqTotal: NewCounter("estrella_api_requests_total_all", "Total API requests (all)."),
		apiReqError: NewCounter("estrella_api_requests_error_total", "API requests answered with a 5xx."),

		orderSubmissions: NewCounterVec("estrella_order_submissions_total", "Order submissions by outcome.", []string{"outcome"}),
		orderSubmitLatency: NewHistogramVec(
			"estrella_order_submit_duration_seconds",
			"Order intake round trip in seconds by outcome.",
			[]string{"outcome"},
			[]float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		serviceRequests:   NewCounterVec("estrella_service_requests_total", "Service request submissions by tariff/outcome.", []string{"tariff", "outcome"}),
		assistantRequests: NewCounterVec("estrella_assistant_requests_total", "Support assistant turns by outcome.", []string{"outcome"}),
		assistantLatency: NewHistogramVec(
			"estrella_assistant_duration_seconds",
			"Support assistant turn latency in seconds.",
			[]string{"outcome"},
			[]float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		),
		assistantToolCalls: NewCounterVec("estrella_assistant_tool_calls_total", "Assistant function calls by name/status.", []string{"name", "status"}),
		catalogRefreshes:   NewCounterVec("estrella_catalog_refresh_total", "Catalog cache reloads by outcome.", []string{"outcome"}),
		sseClients:         NewGauge("estrella_sse_clients", "Connected SSE clients."),

		dbStats:   NewGaugeVec("estrella_db_pool", "database/sql pool stats.", []string{"stat"}),
		redisUp:   NewGauge("estrella_redis_up", "1 when the last redis ping succeeded."),
		redisPing: NewGauge("estrella_redis_ping_seconds", "Latency of the last redis ping."),
	}
}

// Init returns nil unless METRICS_ENABLED is set.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("Metrics enabled")
		}
	})
	return instance
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, pw := range []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqTotal, m.apiReqError,
		m.orderSubmissions, m.orderSubmitLatency, m.serviceRequests,
		m.assistantRequests, m.assistantLatency, m.assistantToolCalls,
		m.catalogRefreshes, m.sseClients,
		m.dbStats, m.redisUp, m.redisPing,
	} {
		if err := pw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
	m.apiReqTotal.Inc()
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func outcome(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

func (m *Metrics) ObserveOrderSubmission(dur time.Duration, err error) {
	if m == nil {
		return
	}
	o := outcome(err)
	m.orderSubmissions.Inc(o)
	m.orderSubmitLatency.Observe(dur.Seconds(), o)
}

// IncOrderRejected counts submissions stopped before the intake call.
func (m *Metrics) IncOrderRejected(reason string) {
	if m == nil {
		return
	}
	m.orderSubmissions.Inc("rejected_" + reason)
}

func (m *Metrics) IncServiceRequest(tariff string, err error) {
	if m == nil {
		return
	}
	if tariff == "" {
		tariff = "unknown"
	}
	m.serviceRequests.Inc(tariff, outcome(err))
}

func (m *Metrics) ObserveAssistant(dur time.Duration, err error) {
	if m == nil {
		return
	}
	o := outcome(err)
	m.assistantRequests.Inc(o)
	m.assistantLatency.Observe(dur.Seconds(), o)
}

func (m *Metrics) IncAssistantToolCall(name, status string) {
	if m == nil {
		return
	}
	m.assistantToolCalls.Inc(name, status)
}

func (m *Metrics) IncCatalogRefresh(err error) {
	if m == nil {
		return
	}
	m.catalogRefreshes.Inc(outcome(err))
}

func (m *Metrics) SetSSEClients(n int) {
	if m == nil {
		return
	}
	m.sseClients.Set(float64(n))
}

func (m *Metrics) StartDBCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.dbStats.Set(float64(stats.OpenConnections), "open_connections")
				m.dbStats.Set(float64(stats.InUse), "in_use")
				m.dbStats.Set(float64(stats.Idle), "idle")
				m.dbStats.Set(float64(stats.WaitCount), "wait_count")
				m.dbStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.dbStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

// StartRedisCollector pings the shared client; it does not own or close it.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
