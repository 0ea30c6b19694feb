package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/obsidianstack/usagestats/pkg/types"
)

// File names written inside the session directory.
const (
	UsageFile    = "usage_stats.json"
	TextfileFile = "usage_stats.prom"
)

const filePerm = 0o644

// Writer persists WriteRecords.
type Writer struct {
	textfile bool
}

// New returns a Writer. When textfile is true the Prometheus rendering is
// written next to the JSON artifact.
func New(textfile bool) *Writer {
	return &Writer{textfile: textfile}
}

// Write replaces the artifact in dir with rec.
func (w *Writer) Write(ctx context.Context, dir string, rec types.WriteRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: encode record: %w", err)
	}
	path := filepath.Join(dir, UsageFile)
	if err := atomicWriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("persist: write %s: %w", path, err)
	}

	if w.textfile {
		prom := filepath.Join(dir, TextfileFile)
		if err := writeTextfile(prom, rec); err != nil {
			slog.Warn("persist: textfile write failed", "path", prom, "err", err)
		}
	}
	return nil
}

// atomicWriteFile writes data to a temp file in the target directory, syncs
// it, and renames it over path.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	f, err := os.CreateTemp(dir, ".tmp-usage-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()

	ok := false
	defer func() {
		if !ok {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	ok = true
	return nil
}
