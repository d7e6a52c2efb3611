// Package importer seeds a prompt store from existing prompt files on disk.
package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dpshade/promptdiff/internal/errors"
	"github.com/dpshade/promptdiff/internal/service"
	"github.com/dpshade/promptdiff/internal/store"
)

// promptExtensions are the file types treated as prompt content.
var promptExtensions = map[string]bool{
	".txt":    true,
	".md":     true,
	".prompt": true,
}

// Result summarizes one import run.
type Result struct {
	Imported []string
	Skipped  []string
}

// FileImporter records existing prompt files as revisions. The file name
// without its extension becomes the prompt name; re-importing an unchanged
// file is a no-op thanks to store deduplication.
type FileImporter struct {
	service *service.Service
}

// NewFileImporter creates an importer over the given service.
func NewFileImporter(svc *service.Service) *FileImporter {
	return &FileImporter{service: svc}
}

// ImportDir walks dir recursively and records every prompt file as a
// revision. Unreadable files are skipped and reported in the result.
func (imp *FileImporter) ImportDir(dir string) (*Result, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errors.ValidationError(fmt.Sprintf("'%s' is not a readable directory", dir))
	}

	result := &Result{}
	walkErr := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Hidden directories hold tool state, not prompts.
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !promptExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		if err := imp.importFile(path); err != nil {
			result.Skipped = append(result.Skipped, fmt.Sprintf("%s: %v", path, err))
			return nil
		}
		result.Imported = append(result.Imported, path)
		return nil
	})
	if walkErr != nil {
		return nil, errors.StorageError(fmt.Sprintf("walk %s", dir), walkErr)
	}

	return result, nil
}

func (imp *FileImporter) importFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	_, _, err = imp.service.AddVersion(name, string(data), store.AddOptions{
		Message: fmt.Sprintf("Imported from %s", filepath.Base(path)),
	})
	return err
}
