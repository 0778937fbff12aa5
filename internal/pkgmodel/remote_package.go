package pkgmodel

import (
	"fmt"

	"pacm/pkg/types"
)

// RemotePackage describes a package as advertised by the remote index:
// identity plus an ordered list of downloadable assets.
type RemotePackage struct {
	doc types.RemotePackageDoc
}

// NewRemotePackage wraps a decoded remote index entry.
func NewRemotePackage(doc types.RemotePackageDoc) *RemotePackage {
	return &RemotePackage{doc: doc}
}

// Doc returns the underlying wire document.
func (p *RemotePackage) Doc() types.RemotePackageDoc { return p.doc }

func (p *RemotePackage) ID() string          { return p.doc.ID }
func (p *RemotePackage) Name() string        { return p.doc.Name }
func (p *RemotePackage) Type() string        { return p.doc.Type }
func (p *RemotePackage) Author() string      { return p.doc.Author }
func (p *RemotePackage) Description() string { return p.doc.Description }

// Valid requires id, name and type to be non-empty.
func (p *RemotePackage) Valid() bool {
	return p.doc.ID != "" && p.doc.Name != "" && p.doc.Type != ""
}

// Assets returns every asset entry, in index order.
func (p *RemotePackage) Assets() []Asset {
	out := make([]Asset, len(p.doc.Assets))
	for i, a := range p.doc.Assets {
		out[i] = NewAsset(a)
	}
	return out
}

// LatestAsset returns the asset with the greatest version, ties broken
// by first occurrence. Fails if the package has no assets.
func (p *RemotePackage) LatestAsset() (Asset, error) {
	if len(p.doc.Assets) == 0 {
		return Asset{}, fmt.Errorf("package %s has no assets", p.doc.ID)
	}
	best := NewAsset(p.doc.Assets[0])
	for i := 1; i < len(p.doc.Assets); i++ {
		cand := NewAsset(p.doc.Assets[i])
		if CompareVersion(cand.Version(), best.Version()) {
			best = cand
		}
	}
	return best, nil
}

// AssetVersion returns the asset whose version exactly matches version.
// Fails if no such asset exists.
func (p *RemotePackage) AssetVersion(version string) (Asset, error) {
	if len(p.doc.Assets) == 0 {
		return Asset{}, fmt.Errorf("package %s has no assets", p.doc.ID)
	}
	for i := range p.doc.Assets {
		a := NewAsset(p.doc.Assets[i])
		if a.Version() == version {
			return a, nil
		}
	}
	return Asset{}, fmt.Errorf("no asset of package %s with version %s", p.doc.ID, version)
}

// LatestSDKAsset returns the greatest-version asset whose sdk-version
// equals sdkVersion. Fails if no such asset exists.
func (p *RemotePackage) LatestSDKAsset(sdkVersion string) (Asset, error) {
	if len(p.doc.Assets) == 0 {
		return Asset{}, fmt.Errorf("package %s has no assets", p.doc.ID)
	}
	var best Asset
	found := false
	for i := range p.doc.Assets {
		a := NewAsset(p.doc.Assets[i])
		if a.SDKVersion() != sdkVersion {
			continue
		}
		if !found || CompareVersion(a.Version(), best.Version()) {
			best = a
			found = true
		}
	}
	if !found {
		return Asset{}, fmt.Errorf("no asset of package %s with sdk version %s", p.doc.ID, sdkVersion)
	}
	return best, nil
}
