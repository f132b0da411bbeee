package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotenest/internal/adapters/store/badgerstore"
	"github.com/jsamuelsen/quotenest/internal/domain"
	"github.com/jsamuelsen/quotenest/internal/mocks"
	"github.com/jsamuelsen/quotenest/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func openBadger(t *testing.T) *badgerstore.Store {
	t.Helper()

	s, err := badgerstore.New(badgerstore.Config{InMemory: true}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestNewBuildInfo(t *testing.T) {
	bi := NewBuildInfo("1.0.0", "abc123", "2024-01-15T10:00:00Z")

	assert.Equal(t, "1.0.0", bi.Version)
	assert.Equal(t, "abc123", bi.Commit)
	assert.Equal(t, "2024-01-15T10:00:00Z", bi.BuildTime)
	assert.Equal(t, runtime.Version(), bi.GoVersion)
	assert.Empty(t, bi.StoreDriver)
}

func TestHealthHandler_LivenessSkipsStore(t *testing.T) {
	// The mock fails the test if CheckAll is reached.
	handler := NewHealthHandler(mocks.NewMockHealthRegistry(t), BuildInfo{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/-/live", http.NoBody)

	handler.Liveness(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHealthHandler_ReadinessReflectsStore(t *testing.T) {
	tests := []struct {
		name        string
		checkers    func(t *testing.T) []ports.HealthChecker
		deadline    time.Duration
		wantStatus  int
		wantOverall ports.HealthStatus
		wantMessage string
	}{
		{
			name: "open badger store",
			checkers: func(t *testing.T) []ports.HealthChecker {
				return []ports.HealthChecker{openBadger(t)}
			},
			wantStatus:  http.StatusOK,
			wantOverall: ports.HealthStatusHealthy,
		},
		{
			name: "closed badger store",
			checkers: func(t *testing.T) []ports.HealthChecker {
				s := openBadger(t)
				require.NoError(t, s.Close())

				return []ports.HealthChecker{s}
			},
			wantStatus:  http.StatusServiceUnavailable,
			wantOverall: ports.HealthStatusUnhealthy,
			wantMessage: "store ping: database is closed",
		},
		{
			name: "store ping outlives the request",
			checkers: func(*testing.T) []ports.HealthChecker {
				return []ports.HealthChecker{ports.CheckerFunc{
					CheckName: badgerstore.Name,
					Fn: func(ctx context.Context) error {
						<-ctx.Done()
						return domain.NewStoreError("ping", ctx.Err())
					},
				}}
			},
			deadline:    20 * time.Millisecond,
			wantStatus:  http.StatusServiceUnavailable,
			wantOverall: ports.HealthStatusUnhealthy,
			wantMessage: "store ping: context deadline exceeded",
		},
		{
			name:        "no store registered yet",
			checkers:    func(*testing.T) []ports.HealthChecker { return nil },
			wantStatus:  http.StatusOK,
			wantOverall: ports.HealthStatusHealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := ports.NewHealthRegistry()
			for _, checker := range tt.checkers(t) {
				require.NoError(t, registry.Register(checker))
			}

			ctx := context.Background()
			if tt.deadline > 0 {
				var cancel context.CancelFunc

				ctx, cancel = context.WithTimeout(ctx, tt.deadline)
				defer cancel()
			}

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequestWithContext(ctx, http.MethodGet, "/-/ready", http.NoBody)

			NewHealthHandler(registry, BuildInfo{}).Readiness(c)

			require.Equal(t, tt.wantStatus, w.Code)

			var resp readinessResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, string(tt.wantOverall), resp.Status)

			if tt.wantMessage != "" {
				require.Contains(t, resp.Checks, badgerstore.Name)
				assert.Equal(t, ports.HealthStatusUnhealthy, resp.Checks[badgerstore.Name].Status)
				assert.Equal(t, tt.wantMessage, resp.Checks[badgerstore.Name].Message)
			}
		})
	}
}

func TestHealthHandler_BuildInfoHandler(t *testing.T) {
	tests := []struct {
		name     string
		info     BuildInfo
		wantJSON string
	}{
		{
			name: "reports the selected store",
			info: BuildInfo{Version: "1.2.3", Commit: "def456", GoVersion: "go1.25.7"}.WithStoreDriver("postgres"),
			wantJSON: `{"version":"1.2.3","commit":"def456","buildTime":"","goVersion":"go1.25.7",
				"storeDriver":"postgres"}`,
		},
		{
			name:     "omits an unset store",
			info:     BuildInfo{Version: "dev"},
			wantJSON: `{"version":"dev","commit":"","buildTime":"","goVersion":""}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/-/build", http.NoBody)

			NewHealthHandler(ports.NewHealthRegistry(), tt.info).BuildInfoHandler(c)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, tt.wantJSON, w.Body.String())
		})
	}
}

func TestBuildInfo_WithStoreDriverCopies(t *testing.T) {
	base := NewBuildInfo("1.0.0", "abc123", "")

	bi := base.WithStoreDriver(badgerstore.Name)

	assert.Equal(t, badgerstore.Name, bi.StoreDriver)
	assert.Empty(t, base.StoreDriver)
	assert.Equal(t, base.Version, bi.Version)
}

func TestHealthHandler_RegisterHealthRoutesOnEngine(t *testing.T) {
	registry := ports.NewHealthRegistry()
	require.NoError(t, registry.Register(openBadger(t)))

	router := gin.New()
	NewHealthHandler(registry, NewBuildInfo("test", "", "")).RegisterHealthRoutesOnEngine(router)

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/-/live", "application/json", `"ok"`},
		{"/-/ready", "application/json", `"badger"`},
		{"/-/build", "application/json", `"test"`},
		{"/-/metrics", "text/plain", "go_goroutines"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), tt.contentType)
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
}
