package manager

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"pacm/internal/pkgmodel"
	"pacm/pkg/types"
)

// manifestPath returns the on-disk path for a package's local manifest.
func (m *Manager) manifestPath(id string) string {
	return filepath.Join(m.opts.DataDir, id+".json")
}

// saveManifest writes local's current state to its manifest file,
// creating the data directory if needed.
func (m *Manager) saveManifest(local *pkgmodel.LocalPackage) error {
	if err := os.MkdirAll(m.opts.DataDir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(local.Doc(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.manifestPath(local.ID()), data, 0o644)
}

// loadManifest reads and decodes one manifest file into a LocalPackage.
func loadManifest(path string) (*pkgmodel.LocalPackage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc types.LocalPackageDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return pkgmodel.NewLocalPackage(doc), nil
}

// loadAllManifests scans the data directory for *.json files and decodes
// each into a LocalPackage. Invalid files are skipped, not fatal; the
// caller is expected to log them.
func (m *Manager) loadAllManifests() (map[string]*pkgmodel.LocalPackage, []error) {
	out := make(map[string]*pkgmodel.LocalPackage)
	var errs []error

	entries, err := os.ReadDir(m.opts.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return out, []error{err}
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(m.opts.DataDir, entry.Name())
		local, err := loadManifest(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !local.Valid() {
			errs = append(errs, &invalidManifestError{path: path})
			continue
		}
		out[local.ID()] = local
	}
	return out, errs
}

// deleteManifest removes a package's manifest file. A missing file is
// not an error.
func (m *Manager) deleteManifest(id string) error {
	err := os.Remove(m.manifestPath(id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

type invalidManifestError struct{ path string }

func (e *invalidManifestError) Error() string {
	return "invalid local package manifest: " + e.path
}
