// Package loader reads evaluation inputs from disk: the document corpus,
// the question/answer benchmark, and optional sweep space definitions.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ragtune/ragtune/internal/domain"
	"github.com/ragtune/ragtune/internal/service"
)

var corpusExtensions = map[string]struct{}{
	".txt":      {},
	".md":       {},
	".markdown": {},
}

// LoadDocuments reads every text file under dir into a Document. The
// document ID is the path relative to dir.
func LoadDocuments(dir string) ([]domain.Document, error) {
	var docs []domain.Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := corpusExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		docs = append(docs, domain.Document{
			ID:       filepath.ToSlash(rel),
			Content:  string(content),
			Metadata: map[string]string{"source": path},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus dir: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no corpus files under %s", dir)
	}
	return docs, nil
}

// benchmarkFile is the on-disk YAML shape of a benchmark.
type benchmarkFile struct {
	Name  string                 `yaml:"name"`
	Cases []domain.BenchmarkCase `yaml:"cases"`
}

// LoadBenchmark reads a YAML benchmark file and validates every case.
func LoadBenchmark(path string) ([]domain.BenchmarkCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read benchmark: %w", err)
	}
	var file benchmarkFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse benchmark: %w", err)
	}
	if len(file.Cases) == 0 {
		return nil, fmt.Errorf("benchmark %s has no cases", path)
	}
	for i, bc := range file.Cases {
		if strings.TrimSpace(bc.Question) == "" {
			return nil, fmt.Errorf("benchmark case %d missing question", i)
		}
		if strings.TrimSpace(bc.GroundTruth) == "" {
			return nil, fmt.Errorf("benchmark case %q missing ground_truth", bc.Question)
		}
	}
	return file.Cases, nil
}

// LoadSweepSpace reads a YAML sweep space definition.
func LoadSweepSpace(path string) (service.SweepSpace, error) {
	var space service.SweepSpace
	data, err := os.ReadFile(path)
	if err != nil {
		return space, fmt.Errorf("read sweep space: %w", err)
	}
	if err := yaml.Unmarshal(data, &space); err != nil {
		return space, fmt.Errorf("parse sweep space: %w", err)
	}
	return space, nil
}
