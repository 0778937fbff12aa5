package manager

import (
	"pacm/internal/installtask"
	"pacm/internal/pkgmodel"
	"pacm/pkg/types"
)

// Status builds a summary suitable for the admin HTTP API's /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()

	resp := types.StatusResponse{
		UptimeSeconds: int64(m.Uptime().Seconds()),
		ActiveTasks:   make([]string, 0, len(m.tasks)),
	}
	for id := range m.tasks {
		resp.ActiveTasks = append(resp.ActiveTasks, id)
	}
	for _, local := range m.localPackages {
		switch local.State() {
		case pkgmodel.StateInstalled:
			resp.InstalledCount++
		case pkgmodel.StateInstalling:
			resp.InstallingCount++
		case pkgmodel.StateFailed:
			resp.FailedCount++
		}
	}
	return resp
}

// PackagePairs returns a pair for every known package id, local and/or
// remote. Callers get a stable snapshot; later manager mutations do not
// affect the returned slice.
func (m *Manager) PackagePairs() []pkgmodel.PackagePair {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allPairs()
}

// UpdatablePackagePairs returns only the pairs for which
// SelectInstallableAsset, with default options, picks an asset: one newer
// than the installed version, or any asset when the install does not
// verify on disk.
func (m *Manager) UpdatablePackagePairs() []pkgmodel.PackagePair {
	m.mu.RLock()
	pairs := m.allPairs()
	m.mu.RUnlock()

	out := make([]pkgmodel.PackagePair, 0, len(pairs))
	for _, pair := range pairs {
		if _, err := pkgmodel.SelectInstallableAsset(pair, pkgmodel.InstallOptions{}); err == nil {
			out = append(out, pair)
		}
	}
	return out
}

// GetInstallTask returns the live task for id, if any.
func (m *Manager) GetInstallTask(id string) (*installtask.Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	return t, ok
}

// Tasks returns every currently active task id.
func (m *Manager) Tasks() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	return ids
}

// InstalledPackageVersion returns the installed version for id, or "" if
// the package is unknown or not installed.
func (m *Manager) InstalledPackageVersion(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	local, ok := m.localPackages[id]
	if !ok || !local.IsInstalled() {
		return ""
	}
	return local.Version()
}
