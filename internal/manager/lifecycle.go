package manager

import (
	"path/filepath"
	"sync"

	"pacm/internal/archive"
	"pacm/internal/fsutil"
	"pacm/internal/installtask"
	"pacm/internal/pkgmodel"
)

// Initialize creates the manager's three working directories and loads
// every manifest from the data directory. It refuses while tasks are
// active; loading local packages while a task is writing a manifest
// would race.
func (m *Manager) Initialize() ([]error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.tasks) > 0 {
		return nil, busyErr("initialize")
	}

	for _, dir := range []string{m.opts.InstallDir, m.opts.DataDir, m.opts.TempDir} {
		if err := fsutil.EnsureDir(dir); err != nil {
			return nil, err
		}
	}

	loaded, loadErrs := m.loadAllManifests()
	for _, err := range loadErrs {
		m.log().Error().Err(err).Msg("manager: skipped invalid local package manifest")
	}
	m.localPackages = loaded
	m.log().Info().Int("loaded", len(loaded)).Msg("manager: initialized")
	return loadErrs, nil
}

// Uninitialize drops both collections. Like Initialize and
// QueryRemotePackages, it refuses while any task is active: Cancel only
// requests cancellation, the task converges asynchronously at its next
// suspension point, and its OnComplete handler saves a manifest for
// whichever package it was installing — clearing the collections out
// from under a still-converging task would let that save silently
// resurrect a package this call just claimed to have forgotten, and a
// later Initialize would reload it. Callers must drain tasks first
// (cancel them and wait for InstallPackages/monitor completion) before
// calling Uninitialize.
func (m *Manager) Uninitialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.tasks) > 0 {
		return busyErr("uninitialize")
	}

	m.localPackages = make(map[string]*pkgmodel.LocalPackage)
	m.remotePackages = make(map[string]*pkgmodel.RemotePackage)
	m.log().Info().Msg("manager: uninitialized")
	return nil
}

// CancelAllTasks cancels every live task and blocks until each has
// actually reached a terminal state (and, via its own OnComplete handler,
// saved its manifest and removed itself from the task list), per spec
// §4.1.2. Callers that need Uninitialize to succeed immediately after
// should call this first.
func (m *Manager) CancelAllTasks() {
	m.mu.Lock()
	tasks := make([]*installtask.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, t)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, t := range tasks {
		wg.Add(1)
		go func(t *installtask.Task) {
			defer wg.Done()
			done := make(chan struct{})
			var once sync.Once
			closeDone := func() { once.Do(func() { close(done) }) }
			t.OnComplete(closeDone)
			if t.IsComplete() {
				closeDone()
			}
			t.Cancel()
			<-done
		}(t)
	}
	wg.Wait()

	m.mu.Lock()
	m.tasks = make(map[string]*installtask.Task)
	m.mu.Unlock()
	m.log().Info().Int("cancelled", len(tasks)).Msg("manager: all tasks cancelled")
}

// HasUnfinalizedPackages reports whether any local package is stuck in
// Installing/Finalizing, left there by a prior FinalizeBusy outcome.
func (m *Manager) HasUnfinalizedPackages() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, local := range m.localPackages {
		if isUnfinalized(local) {
			return true
		}
	}
	return false
}

// FinalizeInstallations retries the finalize step, synchronously and
// without a remote package, for every local package left in
// Installing/Finalizing. whiny rethrows the first per-package error
// instead of only logging it; the return value reports whether every
// retry succeeded.
func (m *Manager) FinalizeInstallations(whiny bool) (bool, error) {
	m.mu.Lock()
	pending := make([]*pkgmodel.LocalPackage, 0)
	for _, local := range m.localPackages {
		if isUnfinalized(local) {
			pending = append(pending, local)
		}
	}
	m.mu.Unlock()

	ok := true
	for _, local := range pending {
		err := m.finalizeOne(local)
		if err != nil {
			ok = false
			if whiny {
				return false, err
			}
			continue
		}
		m.publish(Event{Name: EventTaskComplete, PackageID: local.ID()})
	}
	return ok, nil
}

func (m *Manager) finalizeOne(local *pkgmodel.LocalPackage) error {
	asset := local.PendingAsset()
	staging := filepath.Join(m.opts.TempDir, local.ID())
	installDir := local.InstallDir()
	if installDir == "" {
		installDir = m.opts.InstallDir
	}

	if err := installtask.FinalizeStaged(local, staging, installDir, asset); err != nil {
		if installtask.IsBusy(err) {
			local.AddError("finalize deferred, target file in use: " + err.Error())
			return err
		}
		local.AddError("finalize failed: " + err.Error())
		local.SetState(pkgmodel.StateFailed)
		local.SetInstallState(pkgmodel.InstallStateFailed)
		_ = m.saveManifest(local)
		return err
	}

	local.SetInstallState(pkgmodel.InstallStateInstalled)
	return m.saveManifest(local)
}

func isUnfinalized(local *pkgmodel.LocalPackage) bool {
	return local.State() == pkgmodel.StateInstalling && local.InstallState() == pkgmodel.InstallStateFinalizing
}

// ClearCache removes every file under the temp directory.
func (m *Manager) ClearCache() error {
	m.mu.RLock()
	tempDir := m.opts.TempDir
	m.mu.RUnlock()
	return fsutil.RemoveTree(tempDir)
}

// ClearPackageCache removes the cached archive and staging directory for
// one package id under the temp directory.
func (m *Manager) ClearPackageCache(id string) error {
	m.mu.RLock()
	tempDir := m.opts.TempDir
	m.mu.RUnlock()

	if err := fsutil.RemoveTree(filepath.Join(tempDir, id)); err != nil {
		return err
	}
	if cachePath := m.GetCacheFilePath(id); cachePath != "" {
		return fsutil.Unlink(cachePath)
	}
	return nil
}

// GetCacheFilePath returns the path under the temp directory where id's
// pending asset archive would be downloaded, regardless of whether it
// has actually been downloaded yet.
func (m *Manager) GetCacheFilePath(id string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	local, ok := m.localPackages[id]
	if !ok {
		return ""
	}
	fileName := local.PendingAsset().FileName()
	if fileName == "" {
		return ""
	}
	return filepath.Join(m.opts.TempDir, fileName)
}

// HasCachedFile reports whether id's pending asset archive is already
// present in the temp directory. Install tasks do not consult it; they
// always download the asset.
func (m *Manager) HasCachedFile(id string) bool {
	path := m.GetCacheFilePath(id)
	return path != "" && fsutil.PathExists(path)
}

// IsSupportedFileType reports whether fileName's extension is a format
// internal/archive knows how to extract (.zip, .tar.gz/.tgz).
func (m *Manager) IsSupportedFileType(fileName string) bool {
	return archive.IsSupported(fileName)
}
