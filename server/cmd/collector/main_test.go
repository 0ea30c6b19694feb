package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/obsidianstack/usagestats/pkg/types"
	"github.com/obsidianstack/usagestats/server/internal/config"
	"github.com/obsidianstack/usagestats/server/internal/store"
)

func TestMux_IngestThenList(t *testing.T) {
	t.Setenv("COLLECTOR_KEY", "k")
	cfg := config.ServerConfig{Auth: config.AuthConfig{Mode: "apikey", KeyEnv: "COLLECTOR_KEY"}}
	st := store.New(time.Hour)
	srv := httptest.NewServer(newMux(cfg, st))
	defer srv.Close()

	body, _ := json.Marshal(types.Report{Metadata: types.Metadata{SessionID: "sess-1"}, SeqNumber: 1})

	// Without the key the ingest endpoint refuses.
	resp, err := http.Post(srv.URL+"/api/v1/usage", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated POST: got %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/usage", bytes.NewReader(body))
	req.Header.Set("x-api-key", "k")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated POST: got %d, want 200", resp.StatusCode)
	}

	// The read API is not behind the key.
	resp, err = http.Get(srv.URL + "/api/v1/reports/sess-1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET report: got %d, want 200", resp.StatusCode)
	}
}
