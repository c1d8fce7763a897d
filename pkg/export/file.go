package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileWriter writes one file per run into Dir.
type FileWriter struct {
	Dir    string
	Format Format
}

// Write stores d as <Dir>/<runID>.<format>, replacing any earlier file
// atomically.
func (w FileWriter) Write(ctx context.Context, d Document) error {
	if d.RunID == "" {
		return ErrNoRunID
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Marshal(d, w.Format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("export: create dir: %w", err)
	}

	path := filepath.Join(w.Dir, Key("", d.RunID, w.Format))
	tmp, err := os.CreateTemp(w.Dir, ".export-*")
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
