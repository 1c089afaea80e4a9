package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zaymart/zaymart-backend/pkg/config"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error { return f.err }

func healthConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test"}}
}

func TestHealthLive(t *testing.T) {
	resp := httptest.NewRecorder()
	HealthLive(healthConfig()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-Zaymart-Env") != "test" {
		t.Fatal("env header missing")
	}
}

func TestHealthReadyAllUp(t *testing.T) {
	resp := httptest.NewRecorder()
	handler := HealthReady(healthConfig(), nil, &fakePinger{}, &fakePinger{})
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestHealthReadyDegradedOnRedisFailure(t *testing.T) {
	resp := httptest.NewRecorder()
	handler := HealthReady(healthConfig(), nil, &fakePinger{}, &fakePinger{err: errors.New("connection refused")})
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "degraded") {
		t.Fatalf("expected degraded body, got %s", resp.Body.String())
	}
}
