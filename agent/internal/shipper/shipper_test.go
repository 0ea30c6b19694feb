package shipper

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/obsidianstack/usagestats/agent/internal/config"
	"github.com/obsidianstack/usagestats/pkg/types"
)

// mockCollector records every report it receives.
type mockCollector struct {
	mu       sync.Mutex
	received []types.Report
	headers  []http.Header
	status   int
}

func (m *mockCollector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer zr.Close()
		body = zr
	}

	var rep types.Report
	if err := json.NewDecoder(body).Decode(&rep); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.received = append(m.received, rep)
	m.headers = append(m.headers, r.Header.Clone())
	status := m.status
	m.mu.Unlock()

	if status != 0 {
		http.Error(w, "mock rejection", status)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func makeReport(seq int64) types.Report {
	return types.Report{
		Metadata: types.Metadata{
			SchemaVersion: types.SchemaVersion,
			SessionID:     "sess-1",
			Version:       "1.0.0",
		},
		CollectTimestampMs: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
		SeqNumber:          seq,
	}
}

func agentCfg() config.AgentConfig {
	return config.AgentConfig{Timeout: 2 * time.Second}
}

func newShipper(t *testing.T, cfg config.AgentConfig) *Shipper {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestShipper_DeliversReport(t *testing.T) {
	col := &mockCollector{}
	srv := httptest.NewServer(col)
	defer srv.Close()

	s := newShipper(t, agentCfg())
	if err := s.Send(context.Background(), srv.URL, makeReport(7)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if len(col.received) != 1 {
		t.Fatalf("collector received %d reports, want 1", len(col.received))
	}
	got := col.received[0]
	if got.SessionID != "sess-1" || got.SeqNumber != 7 {
		t.Errorf("report = %+v", got)
	}
	if ct := col.headers[0].Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestShipper_Gzip(t *testing.T) {
	col := &mockCollector{}
	srv := httptest.NewServer(col)
	defer srv.Close()

	cfg := agentCfg()
	cfg.Compress = true
	s := newShipper(t, cfg)
	if err := s.Send(context.Background(), srv.URL, makeReport(1)); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if len(col.received) != 1 {
		t.Fatalf("collector received %d reports, want 1", len(col.received))
	}
	if enc := col.headers[0].Get("Content-Encoding"); enc != "gzip" {
		t.Errorf("Content-Encoding = %q, want gzip", enc)
	}
}

func TestShipper_NonOKIsStatusError(t *testing.T) {
	col := &mockCollector{status: http.StatusServiceUnavailable}
	srv := httptest.NewServer(col)
	defer srv.Close()

	err := newShipper(t, agentCfg()).Send(context.Background(), srv.URL, makeReport(1))
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Code != http.StatusServiceUnavailable {
		t.Errorf("Code = %d, want 503", se.Code)
	}
	if se.Body != "mock rejection" {
		t.Errorf("Body = %q", se.Body)
	}
}

func TestShipper_UnreachableIsError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if err := newShipper(t, agentCfg()).Send(context.Background(), url, makeReport(1)); err == nil {
		t.Fatal("expected error for closed server, got nil")
	}
}

func TestShipper_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := agentCfg()
	cfg.Timeout = 50 * time.Millisecond
	if err := newShipper(t, cfg).Send(context.Background(), srv.URL, makeReport(1)); err == nil {
		t.Fatal("expected timeout error, got nil")
	}
}

func TestShipper_AuthHeaders(t *testing.T) {
	t.Setenv("USAGE_KEY", "k-123")
	t.Setenv("USAGE_TOKEN", "tok")
	t.Setenv("USAGE_PASS", "pw")

	tests := []struct {
		name   string
		auth   config.AuthConfig
		header string
		want   string
	}{
		{"apikey default header", config.AuthConfig{Mode: "apikey", KeyEnv: "USAGE_KEY"}, "X-Api-Key", "k-123"},
		{"apikey custom header", config.AuthConfig{Mode: "apikey", Header: "X-Usage-Key", KeyEnv: "USAGE_KEY"}, "X-Usage-Key", "k-123"},
		{"bearer", config.AuthConfig{Mode: "bearer", TokenEnv: "USAGE_TOKEN"}, "Authorization", "Bearer tok"},
		{"basic", config.AuthConfig{Mode: "basic", Username: "u", PasswordEnv: "USAGE_PASS"}, "Authorization", "Basic dTpwdw=="},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			col := &mockCollector{}
			srv := httptest.NewServer(col)
			defer srv.Close()

			cfg := agentCfg()
			cfg.Auth = tc.auth
			if err := newShipper(t, cfg).Send(context.Background(), srv.URL, makeReport(1)); err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if got := col.headers[0].Get(tc.header); got != tc.want {
				t.Errorf("%s = %q, want %q", tc.header, got, tc.want)
			}
		})
	}
}

func TestNew_MissingClientCert(t *testing.T) {
	cfg := agentCfg()
	cfg.Auth = config.AuthConfig{Mode: "mtls", CertFile: "/nonexistent.crt", KeyFile: "/nonexistent.key"}
	if _, err := New(cfg); err == nil {
		t.Fatal("expected error for missing client cert, got nil")
	}
}
