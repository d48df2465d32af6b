package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "classifieds_backend/internal/http"
	"classifieds_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type testRouterConfig struct{}

func (testRouterConfig) GetHTTPAddr() string        { return ":0" }
func (testRouterConfig) GetCORSAllowAll() bool      { return false }
func (testRouterConfig) GetCORSOrigins() []string   { return []string{"http://localhost:4200"} }
func (testRouterConfig) GetCORSAllowCreds() bool    { return false }
func (testRouterConfig) GetJWTAccessSecret() string { return "secret" }

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type probeModule struct{}

func (probeModule) Name() string { return "probe" }

func (probeModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/probe", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	ctx.Protected.GET("/probe/private", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func newTestRouter(health apphttp.HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return New(&apphttp.App{
		Config:  testRouterConfig{},
		Logger:  logger.New("test"),
		Health:  health,
		Modules: []apphttp.Module{probeModule{}},
	})
}

func get(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthAndReadiness(t *testing.T) {
	healthy := newTestRouter(pingFunc(func(context.Context) error { return nil }))
	if rec := get(healthy, "/api/health"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", rec.Code)
	}
	if rec := get(healthy, "/api/ready"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from ready, got %d", rec.Code)
	}

	down := newTestRouter(pingFunc(func(context.Context) error { return errors.New("db down") }))
	if rec := get(down, "/api/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when ping fails, got %d", rec.Code)
	}
}

func TestModuleRoutesAreMountedWithAuth(t *testing.T) {
	engine := newTestRouter(nil)

	if rec := get(engine, "/api/v1/probe"); rec.Code != http.StatusNoContent {
		t.Fatalf("expected public route to respond 204, got %d", rec.Code)
	}
	if rec := get(engine, "/api/v1/probe/private"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected protected route to require auth, got %d", rec.Code)
	}

	rec := get(engine, "/api/health")
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("expected security headers on every response")
	}
}
