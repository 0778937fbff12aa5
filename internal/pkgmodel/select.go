package pkgmodel

import "pacm/internal/pacmerr"

// InstallOptions carries the per-call overrides the manager applies when
// picking an asset to install or update.
type InstallOptions struct {
	Version          string
	SDKVersion       string
	InstallDir       string
	TempDir          string
	ChecksumAlgorithm string
	ClearFailedCache bool
	Whiny            bool
}

// SelectInstallableAsset implements the lock-then-latest asset selection
// rules: an explicit or locked version wins, then an explicit or locked
// SDK version, then the newest asset overall. Each branch refuses to
// return an asset that is already installed and verified on disk.
func SelectInstallableAsset(pair PackagePair, opts InstallOptions) (Asset, error) {
	if pair.Remote == nil || !pair.Remote.Valid() {
		return Asset{}, pacmerr.New(pacmerr.InvalidPackage, pair.ID(), "remote package missing or invalid")
	}

	var local *LocalPackage
	verified := false
	if pair.Local != nil {
		local = pair.Local
		verified = local.IsInstalled() && local.VerifyInstallManifest(false)
	}

	versionLock := ""
	if local != nil {
		versionLock = local.VersionLock()
	}
	if v := effectiveLock(opts.Version, versionLock); v != "" {
		if conflict(opts.Version, versionLock) {
			return Asset{}, pacmerr.New(pacmerr.ConflictingLock, pair.ID(), "version conflicts with lock")
		}
		asset, err := pair.Remote.AssetVersion(v)
		if err != nil {
			return Asset{}, pacmerr.Wrap(pacmerr.InvalidPackage, pair.ID(), "locked version not found", err)
		}
		if verified && !CompareVersion(asset.Version(), local.Version()) {
			return Asset{}, pacmerr.New(pacmerr.UpToDate, pair.ID(), "up-to-date at locked version")
		}
		return asset, nil
	}

	sdkLock := ""
	if local != nil {
		sdkLock = local.SDKVersionLock()
	}
	if s := effectiveLock(opts.SDKVersion, sdkLock); s != "" {
		if conflict(opts.SDKVersion, sdkLock) {
			return Asset{}, pacmerr.New(pacmerr.ConflictingLock, pair.ID(), "sdk version conflicts with lock")
		}
		asset, err := pair.Remote.LatestSDKAsset(s)
		if err != nil {
			return Asset{}, pacmerr.Wrap(pacmerr.InvalidPackage, pair.ID(), "no asset for sdk lock", err)
		}
		if verified && !CompareVersion(asset.Version(), local.Version()) {
			return Asset{}, pacmerr.New(pacmerr.UpToDate, pair.ID(), "up-to-date at sdk version")
		}
		return asset, nil
	}

	asset, err := pair.Remote.LatestAsset()
	if err != nil {
		return Asset{}, pacmerr.Wrap(pacmerr.InvalidPackage, pair.ID(), "no installable asset", err)
	}
	if verified && !CompareVersion(asset.Version(), local.Version()) {
		return Asset{}, pacmerr.New(pacmerr.UpToDate, pair.ID(), "up-to-date")
	}
	return asset, nil
}

func effectiveLock(optValue string, lockValue string) string {
	if optValue != "" {
		return optValue
	}
	return lockValue
}

func conflict(optValue, lockValue string) bool {
	return optValue != "" && lockValue != "" && optValue != lockValue
}
