package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// okHandler answers 200 "ok".
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	_, _ = w.Write([]byte("ok"))
})

func callWithKey(t *testing.T, mw func(http.Handler) http.Handler, header, key string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/usage", nil)
	if key != "" {
		req.Header.Set(header, key)
	}
	rr := httptest.NewRecorder()
	mw(okHandler).ServeHTTP(rr, req)
	return rr
}

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		key      string
		sendHdr  string
		sendKey  string
		wantCode int
	}{
		{"mode none passes", "none", "secret", "x-api-key", "", http.StatusOK},
		{"empty key passes", "apikey", "", "x-api-key", "", http.StatusOK},
		{"correct key passes", "apikey", "supersecret", "x-api-key", "supersecret", http.StatusOK},
		{"wrong key rejected", "apikey", "supersecret", "x-api-key", "wrong", http.StatusUnauthorized},
		{"missing header rejected", "apikey", "supersecret", "x-api-key", "", http.StatusUnauthorized},
		{"wrong header rejected", "apikey", "supersecret", "x-other", "supersecret", http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mw := APIKeyMiddleware(tc.mode, "x-api-key", tc.key)
			rr := callWithKey(t, mw, tc.sendHdr, tc.sendKey)
			if rr.Code != tc.wantCode {
				t.Errorf("status: got %d, want %d", rr.Code, tc.wantCode)
			}
		})
	}
}

func TestAPIKeyMiddleware_CustomHeader(t *testing.T) {
	mw := APIKeyMiddleware("apikey", "X-Usage-Key", "k")
	if rr := callWithKey(t, mw, "x-usage-key", "k"); rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200 (headers are case-insensitive)", rr.Code)
	}
}
