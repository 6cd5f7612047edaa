package core

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"streetcrime/internal/types"
)

func mountTestServer(t *testing.T, registrar func(chi.Router)) *Server {
	t.Helper()
	srv := newTestServer(t)
	if registrar != nil {
		srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, registrar)
	}
	srv.MountRoutes()
	return srv
}

func TestMountRoutes_HealthEndpoint(t *testing.T) {
	srv := mountTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"healthy"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestMountRoutes_MetricsEndpointOnlyWhenConfigured(t *testing.T) {
	srv := mountTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a metrics handler, got %d", rec.Code)
	}

	srv = newTestServer(t)
	srv.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "streetcrime_http_requests_total 1\n")
	})
	srv.MountRoutes()
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMountRoutes_V1Group(t *testing.T) {
	srv := mountTestServer(t, func(r chi.Router) {
		r.Get("/forces", func(w http.ResponseWriter, r *http.Request) {
			JSON(w, r, http.StatusOK, map[string]string{"ok": "yes"})
		})
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/forces", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown route, got %d", rec.Code)
	}
}

func TestMountRoutes_SecurityHeaders(t *testing.T) {
	srv := mountTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestRequestIDMiddleware_Generation(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = types.GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if len(seen) != 36 {
		t.Errorf("expected a UUID request ID, got %q", seen)
	}
	if rec.Header().Get("X-Request-Id") != seen {
		t.Errorf("response header %q does not match context %q", rec.Header().Get("X-Request-Id"), seen)
	}
}

func TestRequestIDMiddleware_Propagation(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = types.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-abc-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "req-abc-123" {
		t.Errorf("expected propagated request ID, got %q", seen)
	}
}

func TestContextTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var deadline time.Time
	var ok bool
	handler := ContextTimeoutMiddleware(50 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok = r.Context().Deadline()
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !ok {
		t.Fatal("expected a deadline on the request context")
	}
	if time.Until(deadline) > 50*time.Millisecond {
		t.Errorf("deadline too far in the future: %v", deadline)
	}
}

func TestRequestTimeout_FromConfig(t *testing.T) {
	srv := newTestServer(t)
	if got := srv.requestTimeout(); got != defaultRequestTimeout {
		t.Errorf("expected default timeout, got %v", got)
	}
	srv.Config.Server.RequestTimeout = 5 * time.Second
	if got := srv.requestTimeout(); got != 5*time.Second {
		t.Errorf("expected configured timeout, got %v", got)
	}
}

func TestMountRoutes_RecovererCatchesPanics(t *testing.T) {
	srv := mountTestServer(t, func(r chi.Router) {
		r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("kaboom") })
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected request ID on the panic response")
	}
}

func TestMountRoutes_CompressesWhenAccepted(t *testing.T) {
	payload := strings.Repeat(`{"category":"Burglary","location":"On or near High Street"},`, 200)
	srv := mountTestServer(t, func(r chi.Router) {
		r.Get("/crimes", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, "["+payload+"{}]")
		})
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/crimes", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip response, headers: %v", rec.Header())
	}
	zr, err := gzip.NewReader(rec.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	body, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("reading gzip body: %v", err)
	}
	if !strings.Contains(string(body), "On or near High Street") {
		t.Error("decompressed body missing payload")
	}
}

func TestCompressMiddleware_PlainWithoutAcceptEncoding(t *testing.T) {
	payload := strings.Repeat("On or near High Street,", 200)
	h := CompressMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, payload)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/crimes", nil))

	if enc := rec.Header().Get("Content-Encoding"); enc != "" {
		t.Errorf("Content-Encoding = %q, want none", enc)
	}
	if rec.Body.String() != payload {
		t.Error("body altered without Accept-Encoding")
	}
}

func TestMountRoutes_MetricsUseRoutePattern(t *testing.T) {
	metrics := &mockMetricsCollector{}
	srv := newTestServer(t)
	srv.Metrics = metrics
	srv.V1RouteRegistrars = []func(chi.Router){func(r chi.Router) {
		r.Get("/crimes", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
	}}
	srv.MountRoutes()

	srv.Handler().ServeHTTP(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodGet, "/v1/crimes?force=Avon&period=2023-05", nil))

	if len(metrics.calls) != 1 {
		t.Fatalf("expected 1 metrics call, got %d", len(metrics.calls))
	}
	call := metrics.calls[0]
	if call.endpoint != "/v1/crimes" {
		t.Errorf("expected route pattern endpoint, got %q", call.endpoint)
	}
	if call.status != "502" {
		t.Errorf("expected status 502, got %q", call.status)
	}
}
