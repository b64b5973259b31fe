package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestIPRateLimitBurst(t *testing.T) {
	iprl := NewIPRateLimit(1, 2)

	if !iprl.Allow("10.0.0.1") || !iprl.Allow("10.0.0.1") {
		t.Fatal("burst should be allowed")
	}
	if iprl.Allow("10.0.0.1") {
		t.Fatal("third request should be limited")
	}
	if !iprl.Allow("10.0.0.2") {
		t.Fatal("other IPs have their own limiter")
	}
}

func TestIPRateLimitDisabled(t *testing.T) {
	iprl := NewIPRateLimit(0, 0)
	for i := 0; i < 100; i++ {
		if !iprl.Allow("10.0.0.1") {
			t.Fatal("disabled limiter rejected a request")
		}
	}
}

func TestIPRateLimitCleanup(t *testing.T) {
	iprl := NewIPRateLimit(10, 5)
	iprl.Allow("10.0.0.1")
	iprl.Allow("10.0.0.2")

	iprl.cleanup(time.Now())
	if iprl.Len() != 2 {
		t.Fatalf("fresh limiters removed, %d left", iprl.Len())
	}

	iprl.cleanup(time.Now().Add(2 * time.Hour))
	if iprl.Len() != 0 {
		t.Fatalf("idle limiters kept, %d left", iprl.Len())
	}
}

func TestMiddlewareRejectsOverLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(NewIPRateLimit(1, 1).Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 2)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.7:5000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes[i] = w.Code
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected 200 then 429, got %v", codes)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	req.Header.Set("X-Forwarded-For", "1.2.3.4")
	if ip := ClientIP(req); ip != "2001:db8::1" {
		t.Fatalf("unexpected ip %q", ip)
	}
}

func TestValidateMessageSize(t *testing.T) {
	rl := NewRateLimit(10)
	if !rl.ValidateMessageSize(10) || rl.ValidateMessageSize(11) {
		t.Fatal("size limit not applied")
	}
	if !NewRateLimit(0).ValidateMessageSize(1 << 30) {
		t.Fatal("zero limit should mean unlimited")
	}
}
