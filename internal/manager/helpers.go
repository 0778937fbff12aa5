package manager

import "pacm/internal/pkgmodel"

// pairFor builds a PackagePair for id from the manager's current
// collections. Callers must hold at least a read lock.
func (m *Manager) pairFor(id string) pkgmodel.PackagePair {
	return pkgmodel.PackagePair{
		Local:  m.localPackages[id],
		Remote: m.remotePackages[id],
	}
}

// allPairs returns a pair for every id present in either collection.
// Callers must hold at least a read lock.
func (m *Manager) allPairs() []pkgmodel.PackagePair {
	seen := make(map[string]struct{}, len(m.localPackages)+len(m.remotePackages))
	pairs := make([]pkgmodel.PackagePair, 0, len(seen))
	for id := range m.localPackages {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		pairs = append(pairs, m.pairFor(id))
	}
	for id := range m.remotePackages {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		pairs = append(pairs, m.pairFor(id))
	}
	return pairs
}
