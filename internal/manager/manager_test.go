package manager

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"pacm/internal/pkgmodel"
	"pacm/pkg/types"
)

func newTestManager(t *testing.T) (*Manager, *MemoryPublisher) {
	t.Helper()
	pub := NewMemoryPublisher()
	mgr := NewWithConfig(Config{
		Options: Options{
			InstallDir: filepath.Join(t.TempDir(), "install"),
			DataDir:    filepath.Join(t.TempDir(), "data"),
			TempDir:    filepath.Join(t.TempDir(), "tmp"),
		},
		Publisher: pub,
	})
	if _, err := mgr.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return mgr, pub
}

func sampleRemote(id string) *pkgmodel.RemotePackage {
	return pkgmodel.NewRemotePackage(types.RemotePackageDoc{
		PackageDoc: types.PackageDoc{ID: id, Name: id, Type: "plugin"},
		Assets: []types.Asset{{
			FileName: id + ".zip",
			Version:  "1.0.0",
			Mirrors:  []types.Mirror{{URL: "http://x/" + id + ".zip"}},
		}},
	})
}

// A task is registered in m.tasks the moment InstallPackage succeeds,
// before Start is ever called, so a second InstallPackage for the same
// id is refused without needing to actually run either task.
func TestInstallPackageRefusesDuplicateTaskForSameID(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.remotePackages["p"] = sampleRemote("p")

	task1, err := mgr.InstallPackage("p", pkgmodel.InstallOptions{})
	if err != nil {
		t.Fatalf("first InstallPackage: %v", err)
	}
	if task1 == nil {
		t.Fatalf("expected a task for a fresh install")
	}

	task2, err := mgr.InstallPackage("p", pkgmodel.InstallOptions{})
	if task2 != nil {
		t.Fatalf("expected no second task for an id already being installed")
	}
	if !IsBusy(err) {
		t.Fatalf("expected a busy error, got %v", err)
	}

	if got := mgr.Tasks(); len(got) != 1 || got[0] != "p" {
		t.Fatalf("expected exactly one tracked task for p, got %v", got)
	}
}

// A different id is unaffected by another id's active task.
func TestInstallPackageAllowsDifferentID(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.remotePackages["p"] = sampleRemote("p")
	mgr.remotePackages["q"] = sampleRemote("q")

	if _, err := mgr.InstallPackage("p", pkgmodel.InstallOptions{}); err != nil {
		t.Fatalf("InstallPackage(p): %v", err)
	}
	if _, err := mgr.InstallPackage("q", pkgmodel.InstallOptions{}); err != nil {
		t.Fatalf("InstallPackage(q): %v", err)
	}
	if got := mgr.Tasks(); len(got) != 2 {
		t.Fatalf("expected two tracked tasks, got %v", got)
	}
}

// Updating an already-Installed package must flip its coarse State back
// to Installing before the task exists, not leave it at Installed, so a
// FinalizeBusy deferral mid-update is recognized by isUnfinalized the
// same way a fresh install's deferral is.
func TestUpdatePackageMarksAlreadyInstalledPackageInstalling(t *testing.T) {
	mgr, _ := newTestManager(t)

	local := pkgmodel.NewLocalPackage(types.LocalPackageDoc{
		PackageDoc: types.PackageDoc{ID: "p", Name: "P", Type: "plugin"},
		State:      string(pkgmodel.StateInstalled),
		Version:    "1.0.0",
	})
	mgr.localPackages["p"] = local
	mgr.remotePackages["p"] = pkgmodel.NewRemotePackage(types.RemotePackageDoc{
		PackageDoc: types.PackageDoc{ID: "p", Name: "P", Type: "plugin"},
		Assets: []types.Asset{{
			FileName: "p.zip",
			Version:  "2.0.0",
			Mirrors:  []types.Mirror{{URL: "http://x/p.zip"}},
		}},
	})

	task, err := mgr.UpdatePackage("p", pkgmodel.InstallOptions{})
	if err != nil {
		t.Fatalf("UpdatePackage: %v", err)
	}
	if task == nil {
		t.Fatalf("expected an update task")
	}

	if local.State() != pkgmodel.StateInstalling {
		t.Fatalf("expected local state Installing once an update task exists, got %s", local.State())
	}
	if local.InstallState() != pkgmodel.InstallStateNone {
		t.Fatalf("expected a cleared install state before the task runs, got %s", local.InstallState())
	}

	// Simulate the task having progressed to a deferred finalize, the way
	// Task.finalize's FinalizeBusy path would leave local: this must now
	// be visible to the restart-recovery scan.
	local.SetInstallState(pkgmodel.InstallStateFinalizing)
	if !mgr.HasUnfinalizedPackages() {
		t.Fatalf("expected a FinalizeBusy deferral during an update to be recognized as unfinalized")
	}
}

// QueryRemotePackages must refuse while any task is active, the same
// busy rule Initialize and Uninitialize enforce, since it replaces the
// remote collection a live task may still be reading through its
// *pkgmodel.RemotePackage reference.
func TestQueryRemotePackagesRefusesWhileTasksActive(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.remotePackages["p"] = sampleRemote("p")

	if _, err := mgr.InstallPackage("p", pkgmodel.InstallOptions{}); err != nil {
		t.Fatalf("InstallPackage: %v", err)
	}

	err := mgr.QueryRemotePackages(context.Background())
	if !IsBusy(err) {
		t.Fatalf("expected a busy error while a task is active, got %v", err)
	}

	// Same rule for Uninitialize, fixed alongside this test per the same
	// review: it used to clear collections out from under a live task.
	if err := mgr.Uninitialize(); !IsBusy(err) {
		t.Fatalf("expected Uninitialize to refuse while a task is active, got %v", err)
	}
}

// FinalizeInstallations must retry a package left in Installing/
// Finalizing by a prior FinalizeBusy outcome and persist the result, the
// restart-recovery path spec §5 describes.
func TestFinalizeInstallationsRetriesAndPersists(t *testing.T) {
	mgr, pub := newTestManager(t)

	local := pkgmodel.NewLocalPackage(types.LocalPackageDoc{
		PackageDoc: types.PackageDoc{ID: "p", Name: "P", Type: "plugin"},
	})
	local.SetState(pkgmodel.StateInstalling)
	local.SetInstallState(pkgmodel.InstallStateFinalizing)
	asset := pkgmodel.NewAsset(types.Asset{
		FileName: "p.zip",
		Version:  "1.0.0",
		Mirrors:  []types.Mirror{{URL: "http://x/p.zip"}},
	})
	local.SetPendingAsset(asset)
	local.AddManifestFile("bin.so")

	staging := filepath.Join(mgr.opts.TempDir, "p")
	if err := os.MkdirAll(staging, 0o755); err != nil {
		t.Fatalf("mkdir staging: %v", err)
	}
	if err := os.WriteFile(filepath.Join(staging, "bin.so"), []byte("payload"), 0o644); err != nil {
		t.Fatalf("write staged file: %v", err)
	}

	mgr.localPackages["p"] = local
	if !mgr.HasUnfinalizedPackages() {
		t.Fatalf("expected HasUnfinalizedPackages to see the stuck package")
	}

	ok, err := mgr.FinalizeInstallations(true)
	if err != nil {
		t.Fatalf("FinalizeInstallations: %v", err)
	}
	if !ok {
		t.Fatalf("expected FinalizeInstallations to report every retry succeeded")
	}

	if local.State() != pkgmodel.StateInstalled {
		t.Fatalf("expected local state Installed, got %s", local.State())
	}
	if local.InstallState() != pkgmodel.InstallStateInstalled {
		t.Fatalf("expected install state Installed, got %s", local.InstallState())
	}
	if mgr.HasUnfinalizedPackages() {
		t.Fatalf("expected no unfinalized packages after a successful retry")
	}

	installed := filepath.Join(local.InstallDir(), "bin.so")
	if data, err := os.ReadFile(installed); err != nil || string(data) != "payload" {
		t.Fatalf("expected staged file moved into install dir, err=%v data=%q", err, data)
	}

	raw, err := os.ReadFile(mgr.manifestPath("p"))
	if err != nil {
		t.Fatalf("expected a persisted manifest: %v", err)
	}
	var doc types.LocalPackageDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode persisted manifest: %v", err)
	}
	if doc.State != string(pkgmodel.StateInstalled) {
		t.Fatalf("persisted manifest state = %q, want %q", doc.State, pkgmodel.StateInstalled)
	}

	found := false
	for _, e := range pub.Events() {
		if e.Name == EventTaskComplete && e.PackageID == "p" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a task_complete event for the retried package")
	}
}

// A package stuck Finalizing that still can't finalize (staged file missing
// entirely, not merely busy) is marked Failed rather than retried forever.
func TestFinalizeInstallationsRecordsHardFailure(t *testing.T) {
	mgr, _ := newTestManager(t)

	local := pkgmodel.NewLocalPackage(types.LocalPackageDoc{
		PackageDoc: types.PackageDoc{ID: "p", Name: "P", Type: "plugin"},
	})
	local.SetState(pkgmodel.StateInstalling)
	local.SetInstallState(pkgmodel.InstallStateFinalizing)
	local.SetPendingAsset(pkgmodel.NewAsset(types.Asset{
		FileName: "p.zip",
		Version:  "1.0.0",
		Mirrors:  []types.Mirror{{URL: "http://x/p.zip"}},
	}))
	// No staged file written under TempDir/p: the move in FinalizeStaged
	// fails with a plain not-found error, not a permission error, so
	// IsBusy is false and the package is marked Failed rather than left
	// pending.
	local.AddManifestFile("bin.so")
	mgr.localPackages["p"] = local

	ok, err := mgr.FinalizeInstallations(true)
	if err == nil {
		t.Fatalf("expected an error from a genuinely failed finalize")
	}
	if ok {
		t.Fatalf("expected FinalizeInstallations to report failure")
	}
	if local.State() != pkgmodel.StateFailed {
		t.Fatalf("expected local state Failed, got %s", local.State())
	}
	if local.LastError() == "" {
		t.Fatalf("expected a recorded error message")
	}
}

// UninstallPackage deletes what it can and still succeeds overall when
// one manifest file can't be removed, recording the failure rather than
// aborting the rest of the cleanup.
func TestUninstallPackageBestEffortDeletion(t *testing.T) {
	mgr, pub := newTestManager(t)

	installDir := filepath.Join(t.TempDir(), "install")
	if err := os.MkdirAll(installDir, 0o755); err != nil {
		t.Fatalf("mkdir install dir: %v", err)
	}

	goodPath := filepath.Join(installDir, "good.txt")
	if err := os.WriteFile(goodPath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write good file: %v", err)
	}
	// "blocker" is a regular file, not a directory, so resolving
	// "blocker/nested.txt" underneath it and unlinking it fails with a
	// real OS error distinct from "file already gone".
	blockerPath := filepath.Join(installDir, "blocker")
	if err := os.WriteFile(blockerPath, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker file: %v", err)
	}

	local := pkgmodel.NewLocalPackage(types.LocalPackageDoc{
		PackageDoc: types.PackageDoc{ID: "p", Name: "P", Type: "plugin"},
		State:      string(pkgmodel.StateInstalled),
		InstallDir: installDir,
		Manifest:   []string{"good.txt", "blocker/nested.txt"},
	})
	mgr.localPackages["p"] = local
	if err := mgr.saveManifest(local); err != nil {
		t.Fatalf("seed manifest: %v", err)
	}

	if err := mgr.UninstallPackage("p"); err != nil {
		t.Fatalf("UninstallPackage: %v", err)
	}

	if _, ok := mgr.localPackages["p"]; ok {
		t.Fatalf("expected package removed from the local collection")
	}
	if _, err := os.Stat(goodPath); !os.IsNotExist(err) {
		t.Fatalf("expected good.txt removed, stat err=%v", err)
	}
	if len(local.Errors()) == 0 {
		t.Fatalf("expected the blocked delete to be recorded as an error")
	}
	if local.State() != pkgmodel.StateUninstalled {
		t.Fatalf("expected state Uninstalled, got %s", local.State())
	}
	if _, err := os.Stat(mgr.manifestPath("p")); !os.IsNotExist(err) {
		t.Fatalf("expected manifest file deleted, stat err=%v", err)
	}

	found := false
	for _, e := range pub.Events() {
		if e.Name == EventPackageUninstalled && e.PackageID == "p" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a package_uninstalled event")
	}
}

// Uninstalling an unknown id fails without touching anything.
func TestUninstallPackageUnknownID(t *testing.T) {
	mgr, _ := newTestManager(t)
	if err := mgr.UninstallPackage("missing"); !IsNotFound(err) {
		t.Fatalf("expected a not-found error, got %v", err)
	}
}
