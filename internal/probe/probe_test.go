package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCheck_Healthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"UP","service":"auth"}`))
	}))
	defer srv.Close()

	p := New(2 * time.Second)
	res := p.Check(context.Background(), srv.URL+"/health")
	if res.Class != ClassHealthy {
		t.Fatalf("class = %s, want healthy", res.Class)
	}
	if res.StatusCode != 200 {
		t.Errorf("status = %d, want 200", res.StatusCode)
	}
	if !strings.Contains(res.Body, "UP") {
		t.Errorf("body = %q, missing response content", res.Body)
	}
}

func TestCheck_AcceptsAny2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := New(2 * time.Second)
	if res := p.Check(context.Background(), srv.URL); !res.Healthy() {
		t.Errorf("204 should classify as healthy, got %s", res.Class)
	}
}

func TestCheck_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "db down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(2 * time.Second)
	res := p.Check(context.Background(), srv.URL)
	if res.Class != ClassUnhealthy {
		t.Fatalf("class = %s, want unhealthy", res.Class)
	}
	if res.StatusCode != 500 {
		t.Errorf("status = %d, want 500", res.StatusCode)
	}
}

func TestCheck_NotFoundIsUnhealthy(t *testing.T) {
	// A container that started but serves the wrong path must not count as
	// ready: only an explicit 2xx does.
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p := New(2 * time.Second)
	res := p.Check(context.Background(), srv.URL+"/health")
	if res.Class != ClassUnhealthy {
		t.Fatalf("class = %s, want unhealthy", res.Class)
	}
}

func TestCheck_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := New(2 * time.Second)
	res := p.Check(context.Background(), url)
	if res.Class != ClassUnreachable {
		t.Fatalf("class = %s, want unreachable", res.Class)
	}
	if res.Err == nil {
		t.Error("expected transport error to be recorded")
	}
}

func TestCheck_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	p := New(50 * time.Millisecond)
	res := p.Check(context.Background(), srv.URL)
	if res.Class != ClassUnreachable {
		t.Fatalf("class = %s, want unreachable", res.Class)
	}
}

func TestCheck_Idempotent(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(2 * time.Second)
	for range 3 {
		if res := p.Check(context.Background(), srv.URL); !res.Healthy() {
			t.Fatalf("repeated probe against healthy target = %s", res.Class)
		}
	}
	if hits != 3 {
		t.Errorf("hits = %d, want 3", hits)
	}
}
