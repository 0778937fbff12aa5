package pkgmodel

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pacm/pkg/types"
)

// State is the coarse lifecycle of a LocalPackage.
type State string

const (
	StateInstalling State = "Installing"
	StateInstalled  State = "Installed"
	StateFailed     State = "Failed"
	StateUninstalled State = "Uninstalled"
)

// InstallState is the fine-grained install-task step recorded against a
// LocalPackage so it survives process restarts.
type InstallState string

const (
	InstallStateNone       InstallState = "None"
	InstallStateDownloading InstallState = "Downloading"
	InstallStateExtracting InstallState = "Extracting"
	InstallStateFinalizing InstallState = "Finalizing"
	InstallStateInstalled  InstallState = "Installed"
	InstallStateCancelled  InstallState = "Cancelled"
	InstallStateFailed     InstallState = "Failed"
)

// LocalPackage is the mutable record of a package as installed (or
// mid-install) on the local host. It is backed by a JSON document so the
// in-memory and on-disk forms never drift; mutation happens only through
// its setters so invariants (e.g. "version requires Installed state")
// hold at every save point.
type LocalPackage struct {
	mu  sync.RWMutex
	doc types.LocalPackageDoc
}

// NewLocalPackage wraps a decoded manifest document (e.g. loaded from
// <data-dir>/<id>.json on startup).
func NewLocalPackage(doc types.LocalPackageDoc) *LocalPackage {
	return &LocalPackage{doc: doc}
}

// NewLocalPackageFromRemote creates the local counterpart of a remote
// package the first time the manager pairs them: identity carries over,
// assets do not (the local record tracks what's installed, not what's
// available).
func NewLocalPackageFromRemote(remote *RemotePackage) *LocalPackage {
	return &LocalPackage{
		doc: types.LocalPackageDoc{
			PackageDoc: types.PackageDoc{
				ID:          remote.ID(),
				Name:        remote.Name(),
				Type:        remote.Type(),
				Author:      remote.Author(),
				Description: remote.Description(),
			},
		},
	}
}

// Doc returns a copy of the underlying wire document, suitable for
// encoding to <data-dir>/<id>.json.
func (p *LocalPackage) Doc() types.LocalPackageDoc {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc
}

func (p *LocalPackage) ID() string   { p.mu.RLock(); defer p.mu.RUnlock(); return p.doc.ID }
func (p *LocalPackage) Name() string { p.mu.RLock(); defer p.mu.RUnlock(); return p.doc.Name }
func (p *LocalPackage) Type() string { p.mu.RLock(); defer p.mu.RUnlock(); return p.doc.Type }
func (p *LocalPackage) Author() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc.Author
}

// Valid requires id, name and type to be non-empty.
func (p *LocalPackage) Valid() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc.ID != "" && p.doc.Name != "" && p.doc.Type != ""
}

// State returns the coarse lifecycle state, defaulting to Installing.
func (p *LocalPackage) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.doc.State == "" {
		return StateInstalling
	}
	return State(p.doc.State)
}

// SetState sets the coarse lifecycle state.
func (p *LocalPackage) SetState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.State = string(s)
}

// InstallState returns the fine-grained install step, defaulting to None.
func (p *LocalPackage) InstallState() InstallState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.doc.InstallState == "" {
		return InstallStateNone
	}
	return InstallState(p.doc.InstallState)
}

// SetInstallState sets the fine-grained install step.
func (p *LocalPackage) SetInstallState(s InstallState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.InstallState = string(s)
}

// InstallDir returns the absolute install directory, or "" if unset.
func (p *LocalPackage) InstallDir() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc.InstallDir
}

// SetInstallDir sets the absolute install directory.
func (p *LocalPackage) SetInstallDir(dir string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.InstallDir = dir
}

// Version returns the installed version, defaulting to "0.0.0".
func (p *LocalPackage) Version() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.doc.Version == "" {
		return "0.0.0"
	}
	return p.doc.Version
}

// SetVersion records the installed version. The package must already be
// in the Installed state.
func (p *LocalPackage) SetVersion(version string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if State(p.doc.State) != StateInstalled {
		return fmt.Errorf("%s: package must be installed before the version is set", p.doc.ID)
	}
	p.doc.Version = version
	return nil
}

// VersionLock returns the persisted version lock, or "" if unset.
func (p *LocalPackage) VersionLock() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc.VersionLock
}

// SetVersionLock locks the package at the given version. An empty string
// clears the lock.
func (p *LocalPackage) SetVersionLock(version string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.VersionLock = version
}

// SDKVersionLock returns the persisted SDK version lock, or "" if unset.
func (p *LocalPackage) SDKVersionLock() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.doc.SDKVersionLock
}

// SetSDKVersionLock locks the package at the given SDK version. An empty
// string clears the lock.
func (p *LocalPackage) SetSDKVersionLock(version string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.SDKVersionLock = version
}

// Asset returns the currently installed asset. The zero Asset is
// returned (Valid() == false) if none has been set.
func (p *LocalPackage) Asset() Asset {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.doc.Asset == nil {
		return Asset{}
	}
	return NewAsset(*p.doc.Asset)
}

// SetInstalledAsset records the asset that was just finalized. The
// package must already be in the Installed state and the asset must be
// valid; this also sets Version to the asset's version.
func (p *LocalPackage) SetInstalledAsset(asset Asset) error {
	p.mu.Lock()
	if State(p.doc.State) != StateInstalled {
		p.mu.Unlock()
		return fmt.Errorf("%s: package must be installed before the asset is set", p.doc.ID)
	}
	if !asset.Valid() {
		p.mu.Unlock()
		return fmt.Errorf("%s: installed asset is invalid", p.doc.ID)
	}
	doc := asset.Doc()
	p.doc.Asset = &doc
	p.doc.Version = asset.Version()
	p.mu.Unlock()
	return nil
}

// PendingAsset returns the asset an install task most recently resolved
// for this package, whether or not the install has finished. The zero
// Asset is returned if none has been recorded.
func (p *LocalPackage) PendingAsset() Asset {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.doc.PendingAsset == nil {
		return Asset{}
	}
	return NewAsset(*p.doc.PendingAsset)
}

// SetPendingAsset records the asset a newly created install task intends
// to install, so a FinalizeBusy retry after a restart can finalize it
// without re-querying the remote index.
func (p *LocalPackage) SetPendingAsset(asset Asset) {
	p.mu.Lock()
	defer p.mu.Unlock()
	doc := asset.Doc()
	p.doc.PendingAsset = &doc
}

// Manifest returns the ordered list of installed file paths, relative to
// InstallDir.
func (p *LocalPackage) Manifest() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.doc.Manifest))
	copy(out, p.doc.Manifest)
	return out
}

// AddManifestFile appends a path to the install manifest.
func (p *LocalPackage) AddManifestFile(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Manifest = append(p.doc.Manifest, path)
}

// ClearManifest empties the install manifest, e.g. during uninstall.
func (p *LocalPackage) ClearManifest() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Manifest = nil
}

// GetInstalledFilePath joins InstallDir with name. If whiny is true and
// InstallDir is unset, it returns an error instead of a relative path.
func (p *LocalPackage) GetInstalledFilePath(name string, whiny bool) (string, error) {
	dir := p.InstallDir()
	if dir == "" && whiny {
		return "", fmt.Errorf("%s: install directory is not set", p.ID())
	}
	return filepath.Join(dir, name), nil
}

// VerifyInstallManifest checks that every manifest path exists on disk.
// An empty manifest returns allowEmpty.
func (p *LocalPackage) VerifyInstallManifest(allowEmpty bool) bool {
	manifest := p.Manifest()
	for _, rel := range manifest {
		path, err := p.GetInstalledFilePath(rel, false)
		if err != nil {
			return false
		}
		if _, err := os.Stat(path); err != nil {
			return false
		}
	}
	if len(manifest) == 0 {
		return allowEmpty
	}
	return true
}

// IsInstalled reports whether the package's coarse state is Installed.
func (p *LocalPackage) IsInstalled() bool { return p.State() == StateInstalled }

// IsFailed reports whether the package's coarse state is Failed.
func (p *LocalPackage) IsFailed() bool { return p.State() == StateFailed }

// Errors returns the ordered list of recorded error messages.
func (p *LocalPackage) Errors() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.doc.Errors))
	copy(out, p.doc.Errors)
	return out
}

// AddError appends a message to the error log.
func (p *LocalPackage) AddError(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Errors = append(p.doc.Errors, message)
}

// LastError returns the most recently recorded error message, or "".
func (p *LocalPackage) LastError() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.doc.Errors) == 0 {
		return ""
	}
	return p.doc.Errors[len(p.doc.Errors)-1]
}

// ClearErrors drops every recorded error message.
func (p *LocalPackage) ClearErrors() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Errors = nil
}
