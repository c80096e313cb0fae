package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// slowRate refills far slower than any test runs
const slowRate = 0.001

func newTestLimiter(t *testing.T, rps float64, burst int) *RateLimiter {
	t.Helper()
	limiter := NewRateLimiter(rps, burst, time.Minute)
	t.Cleanup(limiter.Stop)
	return limiter
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows a full burst", func(t *testing.T) {
		limiter := newTestLimiter(t, slowRate, 5)

		for i := 0; i < 5; i++ {
			assert.True(t, limiter.Allow("client1"), "request %d should be allowed", i+1)
		}
		assert.False(t, limiter.Allow("client1"))
	})

	t.Run("separate buckets per key", func(t *testing.T) {
		limiter := newTestLimiter(t, slowRate, 2)

		assert.True(t, limiter.Allow("clientA"))
		assert.True(t, limiter.Allow("clientA"))
		assert.False(t, limiter.Allow("clientA"))
		assert.True(t, limiter.Allow("clientB"))
	})

	t.Run("refills over time", func(t *testing.T) {
		limiter := newTestLimiter(t, 1, 1)
		now := time.Now()
		limiter.now = func() time.Time { return now }

		assert.True(t, limiter.Allow("client"))
		assert.False(t, limiter.Allow("client"))

		now = now.Add(time.Second)
		assert.True(t, limiter.Allow("client"))
	})

	t.Run("remaining tracks the bucket", func(t *testing.T) {
		limiter := newTestLimiter(t, slowRate, 3)

		assert.Equal(t, 3, limiter.Remaining("fresh"))
		limiter.Allow("used")
		assert.Equal(t, 2, limiter.Remaining("used"))
	})

	t.Run("cleanup drops idle keys", func(t *testing.T) {
		limiter := newTestLimiter(t, slowRate, 1)
		now := time.Now()
		limiter.now = func() time.Time { return now }

		limiter.Allow("idle")
		now = now.Add(2 * time.Minute)
		limiter.cleanup()

		assert.Equal(t, 1, limiter.Remaining("idle"))
		assert.True(t, limiter.Allow("idle"))
	})

	t.Run("concurrent callers share the budget", func(t *testing.T) {
		limiter := newTestLimiter(t, slowRate, 100)

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			allowed int
		)
		for i := 0; i < 150; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if limiter.Allow("shared") {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 100, allowed)
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		limiter := NewRateLimiter(1, 1, time.Minute)
		limiter.Stop()
		assert.NotPanics(t, limiter.Stop)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(limiter *RateLimiter) *gin.Engine {
		router := gin.New()
		router.Use(RequestID(), RateLimit(limiter))
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
		return router
	}

	get := func(router *gin.Engine, branch string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.RemoteAddr = "192.168.1.100:12345"
		if branch != "" {
			req.Header.Set(HeaderBranchID, branch)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("sets rate limit headers", func(t *testing.T) {
		router := newRouter(newTestLimiter(t, slowRate, 3))

		w := get(router, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("returns 429 in the error envelope", func(t *testing.T) {
		router := newRouter(newTestLimiter(t, slowRate, 2))

		for i := 0; i < 2; i++ {
			assert.Equal(t, http.StatusOK, get(router, "").Code)
		}

		w := get(router, "")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "ERR_RATE_LIMITED")
		assert.Contains(t, w.Body.String(), `"request_id"`)
	})

	t.Run("branches get their own budget", func(t *testing.T) {
		router := newRouter(newTestLimiter(t, slowRate, 1))

		assert.Equal(t, http.StatusOK, get(router, "branch-1").Code)
		assert.Equal(t, http.StatusTooManyRequests, get(router, "branch-1").Code)
		assert.Equal(t, http.StatusOK, get(router, "branch-2").Code)
		assert.Equal(t, http.StatusOK, get(router, "").Code)
	})
}

func TestRateLimitByKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	limiter := newTestLimiter(t, slowRate, 1)
	router := gin.New()
	router.Use(RateLimitByKey(limiter, func(c *gin.Context) string {
		return c.GetHeader(HeaderIdempotencyKey)
	}))
	router.POST("/payments", func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	post := func(key string) int {
		req := httptest.NewRequest(http.MethodPost, "/payments", nil)
		req.Header.Set(HeaderIdempotencyKey, key)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusCreated, post("k1"))
	assert.Equal(t, http.StatusTooManyRequests, post("k1"))
	assert.Equal(t, http.StatusCreated, post("k2"))
}
