package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"ragcompare/internal/domain"
)

// DirLoader reads every .txt file under a directory as one Document.
// Files are loaded in sorted filename order so that downstream insertion
// order, and therefore tie-breaking, is deterministic.
type DirLoader struct {
	logger *zap.Logger
}

func NewDirLoader(logger *zap.Logger) *DirLoader {
	return &DirLoader{logger: logger}
}

// Load returns one Document per .txt file in dir, filename as source id.
// A missing directory is reported as domain.ErrDataDirMissing.
func (l *DirLoader) Load(dir string) ([]domain.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDataDirMissing, dir)
		}
		return nil, fmt.Errorf("read data directory: %w", err)
	}

	var docs []domain.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".txt") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		docs = append(docs, domain.Document{
			SourceID: entry.Name(),
			Path:     path,
			Text:     string(data),
		})
	}

	l.logger.Info("corpus loaded",
		zap.String("dir", dir),
		zap.Int("documents", len(docs)))

	return docs, nil
}
