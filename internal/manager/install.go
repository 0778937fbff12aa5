package manager

import (
	"context"

	"pacm/internal/archive"
	"pacm/internal/installmonitor"
	"pacm/internal/installtask"
	"pacm/internal/pacmerr"
	"pacm/internal/pkgmodel"
)

// InstallPackage resolves the installable asset for id and returns a
// not-yet-started task for it. Callers that want it running call
// Start(ctx) on the returned task themselves, or go through
// InstallPackages with a nil monitor to have it auto-started. A nil task
// and nil error together mean the package is already up to date.
func (m *Manager) InstallPackage(id string, opts pkgmodel.InstallOptions) (*installtask.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.installLocked(id, opts)
}

func (m *Manager) installLocked(id string, opts pkgmodel.InstallOptions) (*installtask.Task, error) {
	if _, exists := m.tasks[id]; exists {
		return nil, busyErr(id)
	}

	remote := m.remotePackages[id]
	local := m.localPackages[id]
	if local == nil && remote != nil {
		local = pkgmodel.NewLocalPackageFromRemote(remote)
		m.localPackages[id] = local
	}

	pair := pkgmodel.PackagePair{Local: local, Remote: remote}
	asset, err := pkgmodel.SelectInstallableAsset(pair, opts)
	if err != nil {
		if IsUpToDate(err) {
			return nil, nil
		}
		return nil, err
	}
	// Same check IsSupportedFileType exposes to callers, applied up front
	// so an unextractable asset never reaches a task.
	if !archive.IsSupported(asset.FileName()) {
		return nil, pacmerr.New(pacmerr.InvalidPackage, id, "asset file type not supported: "+asset.FileName())
	}

	// local is non-nil here regardless of which branch above produced it:
	// SelectInstallableAsset already rejected a nil remote, and a nil
	// local was just backfilled from it. Mark it Installing before the
	// task exists so an update of an already-Installed package is
	// recognized by isUnfinalized (lifecycle.go) the instant finalize
	// defers on a busy target, not only once the task's own first
	// transition happens to overwrite InstallState. A leftover terminal
	// InstallState from the package's prior install is cleared for the
	// same reason.
	local.SetState(pkgmodel.StateInstalling)
	local.SetInstallState(pkgmodel.InstallStateNone)

	opts = withDefaultsFrom(opts, m.opts)
	task, err := installtask.New(id, local, remote, asset, opts, installtask.Deps{Downloader: m.downloader, Logger: m.logger})
	if err != nil {
		return nil, err
	}

	m.tasks[id] = task
	m.wireTaskLocked(task)
	m.log().Info().Str("id", id).Str("version", asset.Version()).Msg("manager: install task created")
	m.publish(Event{Name: EventTaskCreated, PackageID: id})
	return task, nil
}

// withDefaultsFrom fills InstallOptions' directory/checksum fields from the
// manager's options when the caller left them unset.
func withDefaultsFrom(opts pkgmodel.InstallOptions, mo Options) pkgmodel.InstallOptions {
	if opts.InstallDir == "" {
		opts.InstallDir = mo.InstallDir
	}
	if opts.TempDir == "" {
		opts.TempDir = mo.TempDir
	}
	if opts.ChecksumAlgorithm == "" {
		opts.ChecksumAlgorithm = mo.ChecksumAlgorithm
	}
	if !opts.ClearFailedCache {
		opts.ClearFailedCache = mo.ClearFailedCache
	}
	if !opts.Whiny {
		opts.Whiny = mo.Whiny
	}
	return opts
}

// wireTaskLocked subscribes to a newly created task's lifecycle so the
// manager persists its LocalPackage on every state change and drops it
// from the active task set on completion. Callers must hold mu.
func (m *Manager) wireTaskLocked(t *installtask.Task) {
	id := t.ID()
	t.OnStateChange(func(installtask.StateChange) {
		_ = m.saveManifest(t.Local())
	})
	t.OnComplete(func() {
		_ = m.saveManifest(t.Local())
		m.mu.Lock()
		delete(m.tasks, id)
		m.mu.Unlock()
		m.log().Info().Str("id", id).Str("state", string(t.State())).Msg("manager: install task complete")
		m.publish(Event{Name: EventTaskComplete, PackageID: id})
	})
}

// InstallPackages creates a task per id. If monitor is non-nil, each task
// is added to it (the caller is responsible for starting them, typically
// via monitor.StartAll); otherwise each task is started immediately in
// its own goroutine. whiny controls whether the first per-id failure is
// returned instead of only recorded on the package's error log.
func (m *Manager) InstallPackages(ctx context.Context, ids []string, opts pkgmodel.InstallOptions, monitor *installmonitor.Monitor) error {
	for _, id := range ids {
		task, err := m.InstallPackage(id, opts)
		if err != nil {
			m.log().Error().Str("id", id).Err(err).Msg("manager: install batch item failed")
			if opts.Whiny {
				return err
			}
			continue
		}
		if task == nil {
			continue // already up to date
		}
		if monitor != nil {
			if err := monitor.AddTask(task); err != nil && opts.Whiny {
				return err
			}
			continue
		}
		go func(t *installtask.Task) { _ = t.Start(ctx) }(task)
	}
	return nil
}

// UpdatePackage behaves like InstallPackage but requires id to already
// be a known local package.
func (m *Manager) UpdatePackage(id string, opts pkgmodel.InstallOptions) (*installtask.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.localPackages[id]; !ok {
		return nil, ErrNotFound(id)
	}
	return m.installLocked(id, opts)
}

// UpdateAllPackages runs InstallPackages over every currently known
// local package id.
func (m *Manager) UpdateAllPackages(ctx context.Context, opts pkgmodel.InstallOptions, monitor *installmonitor.Monitor) error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.localPackages))
	for id := range m.localPackages {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	return m.InstallPackages(ctx, ids, opts, monitor)
}
