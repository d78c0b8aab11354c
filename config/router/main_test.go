package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akeren/waitlist-signup/internal/log"
	"github.com/akeren/waitlist-signup/pkg/ratelimit"
)

func mountTestController(rs *RouterService) {
	ctrl := NewRESTController("TestController", "/", func(rs *RouterService, c *RESTController) {
		rs.AddGetHandler(c, nil, "ip", func(ctx *RequestContext) *ServiceResult {
			return OKResult(ctx.ClientIP(), "ok")
		})

		rs.AddPostHandler(c, nil, "echo", func(ctx *RequestContext) *ServiceResult {
			var payload map[string]any
			if err := ctx.ShouldBindJSON(&payload); err != nil {
				return BadRequestResult("bad", nil)
			}
			return OKResult(payload, "ok")
		})
	})

	rs.MountController(ctrl)
}

func newTestRouterService(t *testing.T) *RouterService {
	t.Helper()

	logger := log.NewNopLogger()
	return CreateRouterService(logger, nil, &RouterConfig{
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
	})
}

func TestClientIP_HonoursTrustedProxies(t *testing.T) {
	cases := map[string]struct {
		trusted string
		want    string
	}{
		"disabled by default":   {"", "10.0.0.2"},
		"star trusts forwarded": {"*", "1.1.1.1"},
		"matching cidr":         {"10.0.0.0/8", "1.1.1.1"},
		"non matching cidr":     {"192.168.0.0/16", "10.0.0.2"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("TRUSTED_PROXIES", tc.trusted)

			rs := newTestRouterService(t)
			mountTestController(rs)

			req := httptest.NewRequest(http.MethodGet, "/ip", nil)
			req.RemoteAddr = "10.0.0.2:1234"
			req.Header.Set("X-Forwarded-For", "1.1.1.1")
			w := httptest.NewRecorder()
			rs.GetEngine().ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var resp struct {
				Data string `json:"data"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.want, resp.Data)
		})
	}
}

func TestMaxBodySize_Returns413(t *testing.T) {
	t.Setenv("MAX_REQUEST_BODY_BYTES", "10")

	rs := newTestRouterService(t)
	mountTestController(rs)

	body := bytes.Repeat([]byte{'a'}, 50)
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "Request payload too large")
}

func TestRawResult_SkipsEnvelope(t *testing.T) {
	rs := newTestRouterService(t)
	rs.MountController(NewRESTController("Raw", "/api", func(rs *RouterService, c *RESTController) {
		rs.AddGetHandler(c, nil, "count", func(*RequestContext) *ServiceResult {
			return RawResult(http.StatusOK, map[string]int{"count": 3})
		})
	}))

	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/count", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"count":3}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestAttachmentResult_SetsDisposition(t *testing.T) {
	rs := newTestRouterService(t)
	rs.MountController(NewRESTController("File", "/api", func(rs *RouterService, c *RESTController) {
		rs.AddGetHandler(c, nil, "file", func(*RequestContext) *ServiceResult {
			return AttachmentResult("signups.csv", "text/csv; charset=utf-8", []byte("a,b\n"))
		})
	}))

	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/file", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename=signups.csv`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "a,b\n", w.Body.String())
}

func TestHandlerRateLimitOverride_Returns429(t *testing.T) {
	rs := newTestRouterService(t)
	limiter := ratelimit.NewInMemoryRateLimiter(2, time.Hour)
	rs.MountController(NewRESTController("Limited", "/api", func(rs *RouterService, c *RESTController) {
		rs.AddPostHandler(c, limiter, "signup", func(*RequestContext) *ServiceResult {
			return RawResult(http.StatusOK, map[string]bool{"success": true})
		})
		rs.AddGetHandler(c, nil, "free", func(*RequestContext) *ServiceResult {
			return RawResult(http.StatusOK, map[string]bool{"ok": true})
		})
	}))

	do := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.RemoteAddr = "10.0.0.9:5555"
		w := httptest.NewRecorder()
		rs.GetEngine().ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/api/signup").Code)
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/api/signup").Code)

	w := do(http.MethodPost, "/api/signup")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/free").Code)
}

func TestUnlimitedOverride_BypassesGlobalLimiter(t *testing.T) {
	rs := CreateRouterService(log.NewNopLogger(), nil, &RouterConfig{
		RateLimitRequests: 2,
		RateLimitWindow:   time.Hour,
		RequestTimeout:    5 * time.Second,
	})
	rs.MountController(NewRESTController("Mixed", "/api", func(rs *RouterService, c *RESTController) {
		rs.AddGetHandler(c, ratelimit.Unlimited{}, "count", func(*RequestContext) *ServiceResult {
			return RawResult(http.StatusOK, map[string]int{"count": 0})
		})
		rs.AddGetHandler(c, nil, "global", func(*RequestContext) *ServiceResult {
			return RawResult(http.StatusOK, map[string]bool{"ok": true})
		})
	}))

	do := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.0.0.7:5555"
		w := httptest.NewRecorder()
		rs.GetEngine().ServeHTTP(w, req)
		return w
	}

	for i := 0; i < 5; i++ {
		w := do("/api/count")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
	}

	assert.Equal(t, http.StatusOK, do("/api/global").Code)
	assert.Equal(t, http.StatusOK, do("/api/global").Code)
	assert.Equal(t, http.StatusTooManyRequests, do("/api/global").Code)

	assert.Equal(t, http.StatusOK, do("/api/count").Code)
}

func TestMetricsRegisterer(t *testing.T) {
	rs := newTestRouterService(t)
	reg := rs.MetricsRegisterer()
	require.NotNil(t, reg)

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_total", Help: "test"})
	require.NoError(t, reg.Register(counter))
	counter.Inc()

	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "test_total 1")

	t.Setenv("METRICS_ENABLED", "false")
	assert.Nil(t, newTestRouterService(t).MetricsRegisterer())
}

func TestResolvePort(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("APP_PORT", "")
	assert.Equal(t, "3001", resolvePort(""))

	t.Setenv("APP_PORT", "8080")
	assert.Equal(t, "8080", resolvePort(""))

	t.Setenv("PORT", "9000")
	assert.Equal(t, "9000", resolvePort(""))
	assert.Equal(t, "7000", resolvePort("7000"))
}

func TestCORS_PreflightForAllowedOrigin(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGIN", "https://waitlist.example.com, https://admin.example.com")

	rs := newTestRouterService(t)
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodOptions, "/echo", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")

	req = httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHSTS_OnlyOverHTTPS(t *testing.T) {
	t.Setenv("HSTS_ENABLED", "true")
	t.Setenv("HSTS_MAX_AGE", "600")
	t.Setenv("HSTS_INCLUDE_SUBDOMAINS", "false")

	rs := newTestRouterService(t)
	mountTestController(rs)

	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ip", nil))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, req)
	assert.Equal(t, "max-age=600", w.Header().Get("Strict-Transport-Security"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestCorrelationID_EchoesSafeIDsOnly(t *testing.T) {
	rs := newTestRouterService(t)
	mountTestController(rs)

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Correlation-ID", "req-123")
	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Correlation-ID"))

	req = httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Correlation-ID", "bad id\nwith newline")
	w = httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, req)
	got := w.Header().Get("X-Correlation-ID")
	assert.NotEmpty(t, got)
	assert.NotEqual(t, "bad id\nwith newline", got)
}

func TestUnknownRoute_Returns404Envelope(t *testing.T) {
	rs := newTestRouterService(t)
	mountTestController(rs)

	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"code":404,"data":null,"message":"Route not found"}`, w.Body.String())
}

func TestDuplicateHandler_Panics(t *testing.T) {
	rs := newTestRouterService(t)
	handler := func(*RequestContext) *ServiceResult { return OKResult(nil, "ok") }

	assert.Panics(t, func() {
		rs.MountController(NewRESTController("Dup", "/api", func(rs *RouterService, c *RESTController) {
			rs.AddGetHandler(c, nil, "health", handler)
			rs.AddGetHandler(c, nil, "/health/", handler)
		}))
	})
}

func TestLoadHTTPPolicy(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", " 10.0.0.0/8 , ,192.168.1.1 ")
	t.Setenv("CORS_ALLOWED_ORIGIN", "")
	t.Setenv("MAX_REQUEST_BODY_BYTES", "abc")
	t.Setenv("APP_ENV", "production")
	t.Setenv("HSTS_ENABLED", "")
	t.Setenv("HSTS_MAX_AGE", "")
	t.Setenv("HSTS_INCLUDE_SUBDOMAINS", "")

	p := LoadHTTPPolicy()
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.1"}, p.TrustedProxies)
	assert.Nil(t, p.CORSOrigins)
	assert.Equal(t, defaultMaxBodyBytes, p.MaxBodyBytes)
	assert.Equal(t, "max-age=31536000; includeSubDomains", p.HSTS)
	assert.False(t, p.allowsOrigin("https://x.example.com"))
}
