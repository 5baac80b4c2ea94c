package importer

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadSeedDir reads every subject tree YAML under dir. Seed files use the
// same shape as import documents and go through the same validation, so a
// broken seed file is reported instead of half-imported.
func LoadSeedDir(dir string) ([]*Document, error) {
	var docs []*Document

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".yaml") && !strings.HasSuffix(path, ".yml") {
			return nil
		}

		doc, err := loadSeedFile(path)
		if err != nil {
			return fmt.Errorf("seed file %s: %w", path, err)
		}
		if doc == nil {
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("seed documents loaded", "dir", dir, "count", len(docs))
	return docs, nil
}

func loadSeedFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		slog.Warn("skipping invalid seed YAML", "path", path, "error", err)
		return nil, nil
	}

	if doc.Subject.Name == "" {
		return nil, nil // Not a subject tree file
	}

	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}
