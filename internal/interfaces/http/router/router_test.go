package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func textHandler(status int, body string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(status, body)
	}
}

func TestNewRouterDefaultsToV1(t *testing.T) {
	engine := gin.New()

	r := NewRouter(engine)
	r.Register(NewDomainGroup("orders", "/orders").GET("", textHandler(http.StatusOK, "orders")))
	r.Setup()

	assert.Equal(t, http.StatusOK, serve(engine, "GET", "/api/v1/orders").Code)
}

func TestRouterWithAPIVersion(t *testing.T) {
	engine := gin.New()

	r := NewRouter(engine, WithAPIVersion("v2"))
	r.Register(NewDomainGroup("orders", "/orders").GET("", textHandler(http.StatusOK, "orders")))
	r.Setup()

	assert.Equal(t, http.StatusOK, serve(engine, "GET", "/api/v2/orders").Code)
	assert.Equal(t, http.StatusNotFound, serve(engine, "GET", "/api/v1/orders").Code)
}

func TestRouterMiddlewareAppliesToAllRoutes(t *testing.T) {
	engine := gin.New()

	r := NewRouter(engine)
	r.Use(func(c *gin.Context) {
		c.Header("X-Router-Middleware", "applied")
		c.Next()
	})
	r.Register(NewDomainGroup("orders", "/orders").GET("", textHandler(http.StatusOK, "orders")))
	r.Setup()

	w := serve(engine, "GET", "/api/v1/orders")
	assert.Equal(t, "applied", w.Header().Get("X-Router-Middleware"))
}

func TestDomainGroupMethods(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("order-edits", "/order-edits")
	g.GET("/:editId", textHandler(http.StatusOK, "edit")).
		POST("/:editId/commit", textHandler(http.StatusOK, "committed")).
		PUT("/:editId/quantities", textHandler(http.StatusOK, "updated")).
		PATCH("/:editId/note", textHandler(http.StatusOK, "patched")).
		DELETE("/:editId/items/:itemId", textHandler(http.StatusNoContent, ""))

	g.RegisterRoutes(engine.Group("/api/v1"))

	tests := []struct {
		method string
		path   string
		status int
	}{
		{"GET", "/api/v1/order-edits/e1", http.StatusOK},
		{"POST", "/api/v1/order-edits/e1/commit", http.StatusOK},
		{"PUT", "/api/v1/order-edits/e1/quantities", http.StatusOK},
		{"PATCH", "/api/v1/order-edits/e1/note", http.StatusOK},
		{"DELETE", "/api/v1/order-edits/e1/items/i1", http.StatusNoContent},
		{"DELETE", "/api/v1/order-edits/e1", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := serve(engine, tt.method, tt.path)
		assert.Equal(t, tt.status, w.Code, "%s %s", tt.method, tt.path)
	}
}

func TestDomainGroupAccessors(t *testing.T) {
	g := NewDomainGroup("orders", "/orders")

	assert.Equal(t, "orders", g.Name())
	assert.Equal(t, "/orders", g.Prefix())
}

func TestDomainGroupMiddleware(t *testing.T) {
	engine := gin.New()

	scoped := NewDomainGroup("orders", "/orders")
	scoped.Use(func(c *gin.Context) {
		c.Header("X-Group-Middleware", "applied")
		c.Next()
	})
	scoped.GET("", textHandler(http.StatusOK, "orders"))

	other := NewDomainGroup("system", "/system")
	other.GET("/ping", textHandler(http.StatusOK, "pong"))

	api := engine.Group("/api/v1")
	scoped.RegisterRoutes(api)
	other.RegisterRoutes(api)

	assert.Equal(t, "applied", serve(engine, "GET", "/api/v1/orders").Header().Get("X-Group-Middleware"))
	assert.Empty(t, serve(engine, "GET", "/api/v1/system/ping").Header().Get("X-Group-Middleware"))
}

func TestDomainGroupSubgroups(t *testing.T) {
	engine := gin.New()

	orders := NewDomainGroup("orders", "/orders")
	refunds := orders.Group("refunds", "/:id/refunds")
	refunds.GET("", textHandler(http.StatusOK, "refund list"))
	refunds.POST("/suggest", textHandler(http.StatusOK, "suggestion"))

	orders.RegisterRoutes(engine.Group("/api/v1"))

	w := serve(engine, "GET", "/api/v1/orders/o1/refunds")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "refund list", w.Body.String())

	assert.Equal(t, http.StatusOK, serve(engine, "POST", "/api/v1/orders/o1/refunds/suggest").Code)
}

func TestMultipleDomainGroups(t *testing.T) {
	engine := gin.New()

	r := NewRouter(engine)
	r.Register(NewDomainGroup("orders", "/orders").GET("", textHandler(http.StatusOK, "orders"))).
		Register(NewDomainGroup("system", "/system").GET("/info", textHandler(http.StatusOK, "info")))
	r.Setup()

	assert.Equal(t, "orders", serve(engine, "GET", "/api/v1/orders").Body.String())
	assert.Equal(t, "info", serve(engine, "GET", "/api/v1/system/info").Body.String())
}
