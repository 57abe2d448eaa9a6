package render

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	jsoniter "github.com/json-iterator/go"
)

const (
	lockFileName     = ".certcraft.lock"
	manifestFileName = "render-manifest.json"
)

var manifestJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// runLock guards an output directory so two render runs cannot interleave
// writes into it.
type runLock struct {
	lock   *flock.Flock
	logger *slog.Logger
}

// acquireRunLock takes a lock file inside the output directory. It returns
// an error when another run already holds it.
func acquireRunLock(outputDir string, logger *slog.Logger) (*runLock, error) {
	lockPath := filepath.Join(outputDir, lockFileName)
	fileLock := flock.New(lockPath)

	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("could not acquire file lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("output directory %s is locked by another render run", outputDir)
	}

	logger.Info("Acquired file lock.", "path", lockPath)

	return &runLock{lock: fileLock, logger: logger}, nil
}

// release drops the lock. The lock file itself is left behind.
func (l *runLock) release() {
	if err := l.lock.Unlock(); err != nil {
		l.logger.Error("Failed to release file lock.", "error", err)
	} else {
		l.logger.Info("Released file lock.")
	}
}

// writeFileAtomic writes data next to the target and renames it into place,
// so readers never observe a half-written document.
func writeFileAtomic(path string, data []byte) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), ".render-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempFile.Name(), path); err != nil {
		return fmt.Errorf("failed to atomically move file: %w", err)
	}

	return nil
}

// Manifest is the JSON record of one render run, written next to the
// outputs when the manager is configured to keep one.
type Manifest struct {
	OutputDir   string          `json:"output_dir"`
	OutputType  OutputType      `json:"output_type"`
	GeneratedAt time.Time       `json:"generated_at"`
	Rendered    int             `json:"rendered"`
	Failed      int             `json:"failed"`
	TotalBytes  int64           `json:"total_bytes"`
	ElapsedMS   int64           `json:"elapsed_ms"`
	Entries     []ManifestEntry `json:"entries"`
}

// ManifestEntry records one row's outcome.
type ManifestEntry struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Template   string `json:"template"`
	Path       string `json:"path,omitempty"`
	PageCount  int    `json:"page_count,omitempty"`
	Bytes      int64  `json:"bytes"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// buildManifest converts a render report into its JSON form.
func buildManifest(report *RenderReport) *Manifest {
	m := &Manifest{
		OutputDir:   report.OutputDir,
		OutputType:  report.OutputType,
		GeneratedAt: time.Now().UTC(),
		Rendered:    report.Rendered,
		Failed:      report.Failed,
		TotalBytes:  report.TotalBytes,
		ElapsedMS:   report.Elapsed.Milliseconds(),
		Entries:     make([]ManifestEntry, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		entry := ManifestEntry{
			Index:      res.Index,
			Name:       res.Name,
			Template:   res.Template,
			Path:       res.Path,
			PageCount:  res.PageCount,
			Bytes:      res.Bytes,
			DurationMS: res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		}
		m.Entries = append(m.Entries, entry)
	}
	return m
}

// writeManifest atomically writes the manifest into the output directory.
func writeManifest(outputDir string, m *Manifest) error {
	data, err := manifestJSON.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(outputDir, manifestFileName), data); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads the manifest a previous run left in the directory.
func ReadManifest(outputDir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(outputDir, manifestFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := manifestJSON.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}
