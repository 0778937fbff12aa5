// Package manager owns the local and remote package collections, decides
// what to install given version/SDK locks, and tracks install tasks. It
// is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: Config, package defaults, and New/NewWithConfig, which apply them.
//   - types.go: Options and small supporting types.
//   - errors.go: error predicate helpers over pacmerr.Kind.
//   - events.go / eventpub_memory.go: the event publisher seam and its
//     in-memory implementation, used by tests.
//   - helpers.go: package lookup and pairing utilities.
//   - persist.go: local manifest JSON load/save under data-dir.
//   - install.go: InstallPackage/InstallPackages/UpdatePackage/UpdateAllPackages.
//   - uninstall.go: UninstallPackage.
//   - lifecycle.go: Initialize/Uninitialize/FinalizeInstallations/cache clearing.
//   - query.go: QueryRemotePackages (remote index fetch).
//   - status_report.go: Status/PackagePairs/task reporting helpers.
//
// External packages should treat this package as the orchestration layer
// and use public methods only. Internal types are subject to change.
package manager
