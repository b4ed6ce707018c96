package analysis

import (
	"os"
	"path/filepath"

	"github.com/vigilscan/vigil/internal/config"
	"github.com/vigilscan/vigil/internal/debug"
	"github.com/vigilscan/vigil/internal/errors"
)

// UnitsFromDir walks root and builds one analysis unit per file that
// passes the configured include/exclude patterns. Unreadable files are
// reported but do not abort the walk.
func UnitsFromDir(cfg *config.Config, root string) ([]*Unit, error) {
	var units []*Unit
	var failures []error

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		if d.IsDir() {
			if rel != "." && (isHidden(d.Name()) || !cfg.ShouldDescend(rel)) {
				return filepath.SkipDir
			}
			return nil
		}
		if isHidden(d.Name()) || !cfg.ShouldAnalyze(rel) {
			return nil
		}

		unit, readErr := UnitFromFile(root, path)
		if readErr != nil {
			failures = append(failures, readErr)
			return nil
		}
		units = append(units, unit)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(failures) > 0 {
		debug.LogAnalysis("ingest: %d files unreadable\n", len(failures))
		return units, errors.NewMultiError(failures)
	}
	return units, nil
}

// UnitFromFile builds a single file-level analysis unit.
func UnitFromFile(root, path string) (*Unit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewFileError("read", path, err)
	}

	id := path
	if rel, relErr := filepath.Rel(root, path); relErr == nil {
		id = filepath.ToSlash(rel)
	}
	return &Unit{
		ID:       id,
		Name:     filepath.Base(path),
		FilePath: path,
		Content:  string(content),
	}, nil
}

func isHidden(name string) bool {
	return len(name) > 1 && name[0] == '.'
}
