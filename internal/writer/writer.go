// Package writer lays out the clone output directory: the rewritten
// document, the merged bundles, and the local-serving helper scripts.
// Fetched media files are written by the asset fetcher into the same tree.
package writer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// DocumentName is the filename of the final rewritten document.
const DocumentName = "index.html"

// Writer owns the output directory of one clone run.
type Writer struct {
	outputDir string
}

// New creates the output directory if needed.
func New(outputDir string) (*Writer, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Writer{outputDir: outputDir}, nil
}

// Dir returns the output directory path.
func (w *Writer) Dir() string { return w.outputDir }

// WriteDocument writes the final document as index.html.
func (w *Writer) WriteDocument(markup string) error {
	target := filepath.Join(w.outputDir, DocumentName)
	if err := os.WriteFile(target, []byte(markup), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", DocumentName, err)
	}
	log.Debug("wrote document", "path", target, "bytes", len(markup))
	return nil
}

// WriteBundle writes a merged bundle file. An empty bundle produces no file
// at all.
func (w *Writer) WriteBundle(name, content string) error {
	if content == "" {
		return nil
	}
	target := filepath.Join(w.outputDir, name)
	if err := os.WriteFile(target, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write bundle %s: %w", name, err)
	}
	log.Debug("wrote bundle", "path", target, "bytes", len(content))
	return nil
}

// WriteServeScripts emits the two local-serving helpers alongside the clone.
func (w *Writer) WriteServeScripts() error {
	scripts := []struct {
		name    string
		content string
	}{
		{"serve.py", servePy},
		{"serve.sh", serveSh},
	}
	for _, s := range scripts {
		target := filepath.Join(w.outputDir, s.name)
		if err := os.WriteFile(target, []byte(s.content), 0755); err != nil {
			return fmt.Errorf("failed to write %s: %w", s.name, err)
		}
	}
	return nil
}
