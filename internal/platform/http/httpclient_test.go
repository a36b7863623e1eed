package http

import (
	"net/http"
	"testing"
	"time"
)

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	c := NewHTTPClient(30*time.Second, 4)

	if c.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %v", c.Timeout)
	}
	tr, ok := c.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", c.Transport)
	}
	if tr.MaxConnsPerHost != 4 || tr.MaxIdleConnsPerHost != 4 {
		t.Errorf("expected per-host limits of 4, got %d/%d", tr.MaxConnsPerHost, tr.MaxIdleConnsPerHost)
	}
	if tr.Proxy == nil {
		t.Error("expected proxy from environment")
	}
}

func TestNewHTTPClient_Unlimited(t *testing.T) {
	t.Parallel()

	tr := NewHTTPClient(time.Second, 0).Transport.(*http.Transport)

	if tr.MaxConnsPerHost != 0 {
		t.Errorf("expected unlimited connections, got %d", tr.MaxConnsPerHost)
	}
	if tr.MaxIdleConnsPerHost != 2 {
		t.Errorf("expected default idle connections, got %d", tr.MaxIdleConnsPerHost)
	}
}
