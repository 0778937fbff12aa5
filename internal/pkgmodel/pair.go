package pkgmodel

// PackagePair is a (local?, remote?) view of a single package id across
// the manager's two collections. It borrows from those collections and
// must not outlive them.
type PackagePair struct {
	Local  *LocalPackage
	Remote *RemotePackage
}

// ID returns the local package's id if present, else the remote's, else "".
func (p PackagePair) ID() string {
	switch {
	case p.Local != nil:
		return p.Local.ID()
	case p.Remote != nil:
		return p.Remote.ID()
	default:
		return ""
	}
}

// Name mirrors ID's fallback order for the display name.
func (p PackagePair) Name() string {
	switch {
	case p.Local != nil:
		return p.Local.Name()
	case p.Remote != nil:
		return p.Remote.Name()
	default:
		return ""
	}
}

// Valid requires at least one side present, and every present side valid.
func (p PackagePair) Valid() bool {
	if p.Local == nil && p.Remote == nil {
		return false
	}
	if p.Local != nil && !p.Local.Valid() {
		return false
	}
	if p.Remote != nil && !p.Remote.Valid() {
		return false
	}
	return true
}
