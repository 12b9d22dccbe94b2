package crd

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/chartsafe/helm-preview/internal/core/domain"
	"github.com/chartsafe/helm-preview/internal/manifest"
)

// FromChartDir reads CRD documents from a chart's crds/ directory.
// Charts may ship definitions there instead of templating them.
// Unreadable or malformed files are skipped; a chart without the
// directory yields nothing.
func FromChartDir(chartPath string) []*domain.CRDRecord {
	dir := filepath.Join(chartPath, "crds")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	var out []*domain.CRDRecord
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		resources, err := manifest.Parse(data, "")
		if err != nil {
			continue
		}
		for _, r := range resources {
			if r.IsCRD() {
				out = append(out, ParseRecord(r))
			}
		}
	}
	return out
}
