package capability

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileArtifactWriter implements DiscoveryArtifactWriter by writing to a
// temp file in the same directory and renaming over the target, so
// concurrent readers never observe a partially-written artifact.
type FileArtifactWriter struct{}

func (FileArtifactWriter) Write(ctx context.Context, path string, artifacts any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(artifacts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal discovery artifact: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".artifact-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp artifact file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp artifact file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp artifact file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming artifact into place: %w", err)
	}
	return nil
}
