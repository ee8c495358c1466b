package httpserver

import (
	"context"
	"net/http"
	"testing"
)

func TestNewAppliesDefaults(t *testing.T) {
	srv := New(9090, http.NotFoundHandler(), nil)

	if got := srv.Addr(); got != ":9090" {
		t.Fatalf("expected :9090, got %s", got)
	}
	if srv.inner.ReadHeaderTimeout == 0 || srv.inner.ErrorLog == nil {
		t.Fatal("expected header timeout and error log to be configured")
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown before start: %v", err)
	}
}
