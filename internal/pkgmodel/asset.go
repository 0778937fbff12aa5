package pkgmodel

import "pacm/pkg/types"

// Asset is a read-only view over one entry in a RemotePackage's asset
// list (or a LocalPackage's installed asset record).
type Asset struct {
	doc types.Asset
}

// NewAsset wraps a wire-level asset document.
func NewAsset(doc types.Asset) Asset { return Asset{doc: doc} }

// Doc returns the underlying wire document, e.g. to embed it into a
// LocalPackage's "asset" field on finalize.
func (a Asset) Doc() types.Asset { return a.doc }

// FileName is the archive's file name, as stored on the server.
func (a Asset) FileName() string { return a.doc.FileName }

// Version defaults to "0.0.0" when absent on the wire document.
func (a Asset) Version() string {
	if a.doc.Version == "" {
		return "0.0.0"
	}
	return a.doc.Version
}

// SDKVersion defaults to "0.0.0" when absent on the wire document.
func (a Asset) SDKVersion() string {
	if a.doc.SDKVersion == "" {
		return "0.0.0"
	}
	return a.doc.SDKVersion
}

// Checksum is empty when the asset carries none, in which case the
// install task skips verification.
func (a Asset) Checksum() string { return a.doc.Checksum }

// FileSize is the expected archive size in bytes, or 0 if unknown.
func (a Asset) FileSize() int { return a.doc.FileSize }

// URL returns the mirror URL at the given index.
func (a Asset) URL(index int) string {
	if index < 0 || index >= len(a.doc.Mirrors) {
		return ""
	}
	return a.doc.Mirrors[index].URL
}

// Valid requires a file name, a version, and at least one mirror.
func (a Asset) Valid() bool {
	return a.doc.FileName != "" && a.doc.Version != "" && len(a.doc.Mirrors) > 0
}

// Equal compares assets by (file-name, version, checksum), matching the
// identity used to detect a no-op reinstall.
func (a Asset) Equal(other Asset) bool {
	return a.FileName() == other.FileName() &&
		a.Version() == other.Version() &&
		a.Checksum() == other.Checksum()
}
