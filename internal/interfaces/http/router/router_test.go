package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Equal(t, "/api/v1", r.APIPrefix())
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "/api/v2", r.APIPrefix())
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	ledger := NewDomainGroup("ledger", "/ledger")
	ledger.GET("/summaries", func(c *gin.Context) { c.String(http.StatusOK, "summaries") })
	health := NewDomainGroup("health", "/health")
	health.GET("", func(c *gin.Context) { c.String(http.StatusOK, "up") })

	r.Register(ledger).RegisterRoot(health)
	r.Setup()

	w := serve(engine, http.MethodGet, "/api/v1/ledger/summaries")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "summaries", w.Body.String())

	w = serve(engine, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "up", w.Body.String())

	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/ledger/summaries").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/api/v1/health").Code)
}

func TestRouterAPIMiddleware(t *testing.T) {
	engine := gin.New()
	var apiHits int
	r := NewRouter(engine, WithAPIMiddleware(func(c *gin.Context) {
		apiHits++
		c.Next()
	}))

	api := NewDomainGroup("ledger", "/ledger")
	api.GET("/payments", func(c *gin.Context) { c.Status(http.StatusOK) })
	root := NewDomainGroup("health", "/health")
	root.GET("", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.Register(api).RegisterRoot(root)
	r.Setup()

	serve(engine, http.MethodGet, "/health")
	assert.Equal(t, 0, apiHits)

	serve(engine, http.MethodGet, "/api/v1/ledger/payments")
	assert.Equal(t, 1, apiHits)
}

func TestDomainGroup_Methods(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("payments", "/payments")
	ok := func(c *gin.Context) { c.String(http.StatusOK, c.Request.Method) }
	g.GET("/:id", ok).POST("", ok).PUT("/:id", ok).PATCH("/:id", ok).DELETE("/:id", ok)
	g.RegisterRoutes(engine.Group("/api/v1"))

	tests := []struct {
		method string
		target string
	}{
		{http.MethodGet, "/api/v1/payments/1"},
		{http.MethodPost, "/api/v1/payments"},
		{http.MethodPut, "/api/v1/payments/1"},
		{http.MethodPatch, "/api/v1/payments/1"},
		{http.MethodDelete, "/api/v1/payments/1"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			w := serve(engine, tt.method, tt.target)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.method, w.Body.String())
		})
	}
}

func TestDomainGroup_Middleware(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("ledger", "/ledger")
	g.Use(func(c *gin.Context) {
		c.Header("X-Group", "ledger")
		c.Next()
	})
	g.GET("/orders/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	g.RegisterRoutes(engine.Group("/api/v1"))

	w := serve(engine, http.MethodGet, "/api/v1/ledger/orders/42")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ledger", w.Header().Get("X-Group"))
}

func TestDomainGroup_Subgroups(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("ledger", "/ledger")
	customers := g.Group("customers", "/customers")
	customers.GET("/:id/summary", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) })
	g.RegisterRoutes(engine.Group("/api/v1"))

	w := serve(engine, http.MethodGet, "/api/v1/ledger/customers/c1/summary")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c1", w.Body.String())
}

func TestDomainGroup_Routes(t *testing.T) {
	g := NewDomainGroup("ledger", "/ledger")
	g.POST("/orders", nil)
	g.Group("payments", "/payments").DELETE("/:id", nil)

	routes := g.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, RouteInfo{Group: "ledger", Method: http.MethodPost, Path: "/ledger/orders"}, routes[0])
	assert.Equal(t, RouteInfo{Group: "payments", Method: http.MethodDelete, Path: "/ledger/payments/:id"}, routes[1])
}
