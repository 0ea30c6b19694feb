package receiver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/klauspost/compress/gzip"

	"github.com/obsidianstack/usagestats/pkg/types"
	"github.com/obsidianstack/usagestats/server/internal/store"
)

// maxBodyBytes bounds a decoded report body.
const maxBodyBytes = 1 << 20

// Receiver is the HTTP ingest endpoint for usage reports.
type Receiver struct {
	store *store.Store
}

// New creates a Receiver that writes accepted reports to st.
func New(st *store.Store) *Receiver {
	return &Receiver{store: st}
}

type ingestResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// ServeHTTP handles POST /api/v1/usage. Authentication is enforced by
// middleware before this is called.
func (rc *Receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		reply(w, http.StatusMethodNotAllowed, ingestResponse{Message: "method not allowed"})
		return
	}

	var body io.Reader = r.Body
	switch r.Header.Get("Content-Encoding") {
	case "", "identity":
	case "gzip":
		zr, err := gzip.NewReader(r.Body)
		if err != nil {
			reply(w, http.StatusBadRequest, ingestResponse{Message: "invalid gzip body"})
			return
		}
		defer zr.Close()
		body = zr
	default:
		reply(w, http.StatusUnsupportedMediaType, ingestResponse{Message: "unsupported content encoding"})
		return
	}

	var rep types.Report
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	if err := dec.Decode(&rep); err != nil {
		var syntaxErr *json.SyntaxError
		msg := "invalid report body"
		if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
			msg = "malformed json"
		}
		reply(w, http.StatusBadRequest, ingestResponse{Message: msg})
		return
	}
	if rep.SessionID == "" {
		reply(w, http.StatusBadRequest, ingestResponse{Message: "session_id is required"})
		return
	}

	if !rc.store.Put(rep) {
		slog.Debug("receiver: stale report ignored",
			"session_id", rep.SessionID, "seq", rep.SeqNumber)
		reply(w, http.StatusOK, ingestResponse{OK: true, Message: "stale report ignored"})
		return
	}

	slog.Debug("receiver: report stored",
		"session_id", rep.SessionID,
		"version", rep.Version,
		"seq", rep.SeqNumber,
		"total_success", rep.TotalSuccess,
		"total_failed", rep.TotalFailed,
	)
	reply(w, http.StatusOK, ingestResponse{OK: true})
}

func reply(w http.ResponseWriter, code int, v ingestResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
