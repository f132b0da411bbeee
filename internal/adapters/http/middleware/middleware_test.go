package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotenest/internal/adapters/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// syncBuffer is a bytes.Buffer safe for concurrent slog writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

// records decodes one JSON object per logged line.
func (b *syncBuffer) records(t *testing.T) []map[string]any {
	t.Helper()

	b.mu.Lock()
	defer b.mu.Unlock()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}

		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}

	return out
}

func newCaptureLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

func perform(router *gin.Engine, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestIDMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		middleware gin.HandlerFunc
		header     string
		get        func(*gin.Context) string
		inbound    string
		wantEcho   bool
	}{
		{"request id generated", RequestID(), HeaderRequestID, GetRequestID, "", false},
		{"request id propagated", RequestID(), HeaderRequestID, GetRequestID, "req-123", true},
		{"request id too long", RequestID(), HeaderRequestID, GetRequestID, strings.Repeat("x", maxIDLength+1), false},
		{"correlation id generated", CorrelationID(), HeaderCorrelationID, GetCorrelationID, "", false},
		{"correlation id propagated", CorrelationID(), HeaderCorrelationID, GetCorrelationID, "corr-456", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var captured string

			router := gin.New()
			router.Use(tt.middleware)
			router.GET("/api/quotes", func(c *gin.Context) {
				captured = tt.get(c)
				c.Status(http.StatusOK)
			})

			header := http.Header{}
			if tt.inbound != "" {
				header.Set(tt.header, tt.inbound)
			}

			w := perform(router, http.MethodGet, "/api/quotes", header)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, captured, w.Header().Get(tt.header))

			if tt.wantEcho {
				assert.Equal(t, tt.inbound, captured)
				return
			}

			_, err := uuid.Parse(captured)
			assert.NoError(t, err, "expected a generated UUID, got %q", captured)
		})
	}
}

func TestGetIDs_WithoutMiddleware(t *testing.T) {
	t.Parallel()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.Empty(t, GetRequestID(c))
	assert.Empty(t, GetCorrelationID(c))
}

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		target    string
		status    int
		wantLevel string
		wantLog   bool
	}{
		{"success at info", "/api/quotes?page=2", http.StatusOK, "INFO", true},
		{"client error at warn", "/api/quotes", http.StatusBadRequest, "WARN", true},
		{"server error at error", "/api/quotes", http.StatusInternalServerError, "ERROR", true},
		{"health probes skipped", "/-/live", http.StatusOK, "", false},
		{"custom prefix skipped", "/favicon.ico", http.StatusOK, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, buf := newCaptureLogger()

			router := gin.New()
			router.Use(Logging(logger, "/favicon"))
			router.NoRoute(func(c *gin.Context) { c.Status(tt.status) })

			perform(router, http.MethodGet, tt.target, nil)

			recs := buf.records(t)
			if !tt.wantLog {
				assert.Empty(t, recs)
				return
			}

			require.Len(t, recs, 1)
			assert.Equal(t, "request completed", recs[0]["msg"])
			assert.Equal(t, tt.wantLevel, recs[0]["level"])
			assert.Equal(t, float64(tt.status), recs[0]["status"])
			assert.Equal(t, "/api/quotes", recs[0]["path"])
		})
	}
}

func TestLogging_IncludesQueryRouteAndErrors(t *testing.T) {
	t.Parallel()

	logger, buf := newCaptureLogger()

	router := gin.New()
	router.Use(Logging(logger))
	router.GET("/api/quotes/:id", func(c *gin.Context) {
		_ = c.Error(assert.AnError)
		c.Status(http.StatusNotFound)
	})

	perform(router, http.MethodGet, "/api/quotes/abc?verbose=1", nil)

	recs := buf.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, "/api/quotes/:id", recs[0]["route"])
	assert.Equal(t, "verbose=1", recs[0]["query"])
	assert.Contains(t, recs[0]["error"], assert.AnError.Error())
}

func TestContextLogger_CarriesRequestIDs(t *testing.T) {
	t.Parallel()

	logger, buf := newCaptureLogger()

	router := gin.New()
	router.Use(ContextLogger(logger), RequestID(), CorrelationID(), Logging(nil))
	router.GET("/api/quotes", func(c *gin.Context) { c.Status(http.StatusOK) })

	header := http.Header{}
	header.Set(HeaderRequestID, "req-1")
	header.Set(HeaderCorrelationID, "corr-1")

	perform(router, http.MethodGet, "/api/quotes", header)

	recs := buf.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, "req-1", recs[0]["request_id"])
	assert.Equal(t, "corr-1", recs[0]["correlation_id"])
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	t.Run("panic becomes internal error", func(t *testing.T) {
		t.Parallel()

		logger, buf := newCaptureLogger()

		router := gin.New()
		router.Use(Recovery(logger))
		router.GET("/api/quotes", func(_ *gin.Context) {
			panic("boom")
		})

		header := http.Header{}
		header.Set(HeaderRequestID, "req-panic")

		w := perform(router, http.MethodGet, "/api/quotes", header)

		require.Equal(t, http.StatusInternalServerError, w.Code)

		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrorCodeInternal, resp.Error.Code)
		assert.Equal(t, dto.MessageInternal, resp.Error.Message)
		assert.Equal(t, "req-panic", resp.TraceID)
		assert.NotContains(t, w.Body.String(), "boom")

		recs := buf.records(t)
		require.Len(t, recs, 1)
		assert.Equal(t, "panic recovered", recs[0]["msg"])
		assert.Equal(t, "boom", recs[0]["error"])
		assert.NotEmpty(t, recs[0]["stack"])
	})

	t.Run("panic after write keeps status", func(t *testing.T) {
		t.Parallel()

		logger, _ := newCaptureLogger()

		router := gin.New()
		router.Use(Recovery(logger))
		router.GET("/api/quotes", func(c *gin.Context) {
			c.String(http.StatusOK, "partial")
			panic("late")
		})

		w := perform(router, http.MethodGet, "/api/quotes", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "partial", w.Body.String())
	})

	t.Run("no panic passes through", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery(nil))
		router.GET("/api/quotes", func(c *gin.Context) { c.Status(http.StatusNoContent) })

		assert.Equal(t, http.StatusNoContent, perform(router, http.MethodGet, "/api/quotes", nil).Code)
	})
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	t.Run("sets deadline", func(t *testing.T) {
		t.Parallel()

		var (
			deadline time.Time
			ok       bool
		)

		router := gin.New()
		router.Use(Timeout(time.Minute))
		router.GET("/api/quotes", func(c *gin.Context) {
			deadline, ok = c.Request.Context().Deadline()
			c.Status(http.StatusOK)
		})

		perform(router, http.MethodGet, "/api/quotes", nil)

		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
	})

	t.Run("disabled when zero", func(t *testing.T) {
		t.Parallel()

		var ok bool

		router := gin.New()
		router.Use(Timeout(0))
		router.GET("/api/quotes", func(c *gin.Context) {
			_, ok = c.Request.Context().Deadline()
			c.Status(http.StatusOK)
		})

		perform(router, http.MethodGet, "/api/quotes", nil)

		assert.False(t, ok)
	})

	t.Run("expired deadline maps to timeout", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Timeout(time.Millisecond))
		router.GET("/api/quotes", func(c *gin.Context) {
			<-c.Request.Context().Done()
			dto.HandleError(c, c.Request.Context().Err())
		})

		w := perform(router, http.MethodGet, "/api/quotes", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrorCodeTimeout)
	})
}

func TestRateLimiter_Allow(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, 2, time.Hour)
	t.Cleanup(rl.Stop)

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, rl.Allow("10.0.0.2"), "keys are independent")

	clock = clock.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"), "one token refilled")
	assert.Equal(t, 2, rl.Len())
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(1, 1, time.Hour)
	t.Cleanup(rl.Stop)

	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	rl.Allow("stale")
	clock = clock.Add(45 * time.Minute)
	rl.Allow("fresh")
	clock = clock.Add(30 * time.Minute)

	rl.evictIdle()

	assert.Equal(t, 1, rl.Len())

	rl.Stop()
	rl.Stop()
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	t.Run("rejects after burst", func(t *testing.T) {
		t.Parallel()

		rl := NewRateLimiter(0.001, 1, time.Hour)
		t.Cleanup(rl.Stop)

		logger, buf := newCaptureLogger()

		router := gin.New()
		router.Use(RateLimit(rl, logger))
		router.GET("/api/quotes", func(c *gin.Context) { c.Status(http.StatusOK) })

		assert.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/api/quotes", nil).Code)

		w := perform(router, http.MethodGet, "/api/quotes", nil)

		require.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))

		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrorCodeRateLimited, resp.Error.Code)
		assert.Equal(t, MessageRateLimited, resp.Error.Message)

		recs := buf.records(t)
		require.Len(t, recs, 1)
		assert.Equal(t, "rate limit exceeded", recs[0]["msg"])
	})

	t.Run("nil limiter disabled", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(RateLimit(nil, nil))
		router.GET("/api/quotes", func(c *gin.Context) { c.Status(http.StatusOK) })

		for range 5 {
			assert.Equal(t, http.StatusOK, perform(router, http.MethodGet, "/api/quotes", nil).Code)
		}
	})
}
