package manager

import (
	"pacm/internal/fsutil"
	"pacm/internal/pkgmodel"
)

// UninstallPackage deletes every file in the package's manifest
// (best-effort, per-file failures are recorded but do not stop the rest),
// deletes its manifest file, marks it Uninstalled, and drops it from the
// local package collection. It fails only if id is unknown.
func (m *Manager) UninstallPackage(id string) error {
	m.mu.Lock()
	local, ok := m.localPackages[id]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound(id)
	}
	delete(m.localPackages, id)
	m.mu.Unlock()

	for _, rel := range local.Manifest() {
		path, err := local.GetInstalledFilePath(rel, false)
		if err != nil {
			local.AddError("uninstall: " + err.Error())
			m.log().Error().Str("id", id).Str("path", rel).Err(err).Msg("manager: uninstall resolve path failed")
			continue
		}
		if err := fsutil.Unlink(path); err != nil {
			local.AddError("uninstall: " + err.Error())
			m.log().Error().Str("id", id).Str("path", path).Err(err).Msg("manager: uninstall delete file failed")
		}
	}
	local.ClearManifest()
	local.SetState(pkgmodel.StateUninstalled)

	if err := m.deleteManifest(id); err != nil {
		local.AddError("uninstall: delete manifest: " + err.Error())
		m.log().Error().Str("id", id).Err(err).Msg("manager: uninstall delete manifest failed")
	}

	m.log().Info().Str("id", id).Msg("manager: package uninstalled")
	m.publish(Event{Name: EventPackageUninstalled, PackageID: id})
	return nil
}
