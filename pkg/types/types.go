// Package types holds the wire-level JSON document shapes shared by the
// remote package index and the on-disk local manifest. Higher-level
// behavior (version selection, validity, manifest verification) lives in
// internal/pkgmodel; this package only describes the JSON shape so the
// wire and on-disk forms stay a single struct.
package types

// Mirror is one downloadable location for an asset.
type Mirror struct {
	// URL is the absolute download URL for this mirror.
	// example: https://cdn.example.com/pkgs/surveillancemode-1.2.3.zip
	URL string `json:"url" example:"https://cdn.example.com/pkgs/surveillancemode-1.2.3.zip"`
}

// Asset is a single downloadable archive for one package version.
type Asset struct {
	// FileName is the archive's file name as stored on the server.
	// example: surveillancemode-1.2.3.zip
	FileName string `json:"file-name" example:"surveillancemode-1.2.3.zip"`
	// Version is the dotted-numeric version this asset provides.
	// example: 1.2.3
	Version string `json:"version,omitempty" example:"1.2.3"`
	// SDKVersion pins the asset to a specific host SDK version.
	// example: 0.9.1
	SDKVersion string `json:"sdk-version,omitempty" example:"0.9.1"`
	// Checksum is the expected hash of the downloaded archive, hex-encoded.
	// Empty means the task skips verification.
	Checksum string `json:"checksum,omitempty"`
	// FileSize is the expected archive size in bytes.
	// example: 1048576
	FileSize int `json:"file-size,omitempty" example:"1048576"`
	// Mirrors lists one or more download locations; install tasks download
	// from the first one only.
	Mirrors []Mirror `json:"mirrors,omitempty"`
}

// PackageDoc is the JSON shape common to both the remote index entry and
// the local manifest record.
type PackageDoc struct {
	// ID is the package's stable, unique identifier.
	// example: surveillancemode
	ID string `json:"id" example:"surveillancemode"`
	// Name is the package's human-readable name.
	// example: Surveillance Mode
	Name string `json:"name" example:"Surveillance Mode"`
	// Type categorizes the package (e.g. "plugin", "theme").
	// example: plugin
	Type string `json:"type" example:"plugin"`
	// Author identifies who publishes the package.
	Author string `json:"author,omitempty"`
	// Description is free-form package summary text.
	Description string `json:"description,omitempty"`
}

// RemotePackageDoc is one entry of the remote index response: a
// PackageDoc plus its available assets.
type RemotePackageDoc struct {
	PackageDoc `json:",inline"`
	// Assets lists every downloadable version of this package.
	Assets []Asset `json:"assets"`
}

// LocalPackageDoc is the on-disk manifest shape for one installed (or
// installing) package: a PackageDoc plus local install bookkeeping.
// Decoding into this struct keeps only the fields declared here; any other
// field in a manifest file is dropped and is not written back on save.
type LocalPackageDoc struct {
	PackageDoc `json:",inline"`

	// State is the coarse lifecycle: Installing, Installed, Failed, Uninstalled.
	State string `json:"state,omitempty" example:"Installed"`
	// InstallState is the fine-grained task step: None, Downloading,
	// Extracting, Finalizing, Installed, Cancelled, Failed.
	InstallState string `json:"install-state,omitempty" example:"Installed"`
	// InstallDir is the absolute directory this package was installed into.
	InstallDir string `json:"install-dir,omitempty"`
	// Asset is the asset record that was actually installed, set only
	// after a successful finalize.
	Asset *Asset `json:"asset,omitempty"`
	// PendingAsset is the asset an in-progress or deferred install task
	// resolved to install, recorded as soon as the task is created so a
	// FinalizeBusy retry after a restart knows what to finalize without
	// needing the remote index again.
	PendingAsset *Asset `json:"pending-asset,omitempty"`
	// Version is the installed version string.
	Version string `json:"version,omitempty" example:"1.2.3"`
	// VersionLock, if set, constrains installs to exactly this version.
	VersionLock string `json:"version-lock,omitempty"`
	// SDKVersionLock, if set, constrains installs to the latest asset for
	// this SDK version.
	SDKVersionLock string `json:"sdk-version-lock,omitempty"`
	// Manifest lists every file path this install placed on disk,
	// relative to InstallDir.
	Manifest []string `json:"manifest,omitempty"`
	// Errors is an ordered log of error messages recorded against this
	// package across its lifetime.
	Errors []string `json:"errors,omitempty"`
}

// StatusResponse summarizes manager state for the admin HTTP API.
type StatusResponse struct {
	// InstalledCount is the number of packages currently in the Installed state.
	InstalledCount int `json:"installed_count" example:"12"`
	// InstallingCount is the number of packages mid-install.
	InstallingCount int `json:"installing_count" example:"1"`
	// FailedCount is the number of packages in the Failed state.
	FailedCount int `json:"failed_count" example:"0"`
	// ActiveTasks lists the package ids with a live install task.
	ActiveTasks []string `json:"active_tasks,omitempty"`
	// UptimeSeconds is how long ago the manager was constructed.
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
}

// ErrorResponse is a consistent JSON error payload for the admin HTTP API.
type ErrorResponse struct {
	// Error is a human-readable error message.
	Error string `json:"error" example:"package not found"`
	// Code is the HTTP status code.
	Code int `json:"code" example:"404"`
}

// InstallRequest is the POST /install request body.
type InstallRequest struct {
	// ID is the package id to install.
	ID string `json:"id" example:"surveillancemode"`
	// Version pins the install to an exact asset version, if set.
	Version string `json:"version,omitempty" example:"1.2.3"`
	// SDKVersion pins the install to the latest asset for this SDK version.
	SDKVersion string `json:"sdk_version,omitempty" example:"0.9.1"`
}
