package pkgmodel

import (
	"os"
	"path/filepath"
	"testing"

	"pacm/pkg/types"
)

func newValidLocal() *LocalPackage {
	return NewLocalPackage(types.LocalPackageDoc{
		PackageDoc: types.PackageDoc{ID: "p", Name: "P", Type: "plugin"},
	})
}

func TestLocalPackageSetVersionRequiresInstalled(t *testing.T) {
	lp := newValidLocal()
	if err := lp.SetVersion("1.0.0"); err == nil {
		t.Fatalf("expected error setting version before Installed")
	}
	lp.SetState(StateInstalled)
	if err := lp.SetVersion("1.0.0"); err != nil {
		t.Fatalf("SetVersion: %v", err)
	}
	if lp.Version() != "1.0.0" {
		t.Fatalf("expected version 1.0.0, got %s", lp.Version())
	}
}

func TestLocalPackageSetInstalledAssetRequiresInstalled(t *testing.T) {
	lp := newValidLocal()
	asset := NewAsset(types.Asset{FileName: "f", Version: "1.0.0", Mirrors: mirror("u")})
	if err := lp.SetInstalledAsset(asset); err == nil {
		t.Fatalf("expected error before Installed")
	}
	lp.SetState(StateInstalled)
	if err := lp.SetInstalledAsset(asset); err != nil {
		t.Fatalf("SetInstalledAsset: %v", err)
	}
	if lp.Version() != "1.0.0" {
		t.Fatalf("expected version to follow asset, got %s", lp.Version())
	}
	if !lp.Asset().Valid() {
		t.Fatalf("expected installed asset to be valid")
	}
}

func TestLocalPackageSetInstalledAssetRejectsInvalid(t *testing.T) {
	lp := newValidLocal()
	lp.SetState(StateInstalled)
	invalid := NewAsset(types.Asset{FileName: "f"})
	if err := lp.SetInstalledAsset(invalid); err == nil {
		t.Fatalf("expected error for invalid asset")
	}
}

func TestLocalPackageVerifyInstallManifest(t *testing.T) {
	dir := t.TempDir()
	lp := newValidLocal()
	lp.SetInstallDir(dir)

	if !lp.VerifyInstallManifest(true) {
		t.Fatalf("empty manifest with allowEmpty=true should verify")
	}
	if lp.VerifyInstallManifest(false) {
		t.Fatalf("empty manifest with allowEmpty=false should not verify")
	}

	if err := os.MkdirAll(filepath.Join(dir, "bin"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bin/plugin.so"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	lp.AddManifestFile("bin/plugin.so")
	if !lp.VerifyInstallManifest(false) {
		t.Fatalf("expected manifest to verify once file exists")
	}

	lp.AddManifestFile("missing/file")
	if lp.VerifyInstallManifest(false) {
		t.Fatalf("expected manifest verification to fail for missing file")
	}
}

func TestLocalPackageErrors(t *testing.T) {
	lp := newValidLocal()
	if lp.LastError() != "" {
		t.Fatalf("expected no last error initially")
	}
	lp.AddError("first")
	lp.AddError("second")
	if lp.LastError() != "second" {
		t.Fatalf("expected last error 'second', got %q", lp.LastError())
	}
	lp.ClearErrors()
	if len(lp.Errors()) != 0 {
		t.Fatalf("expected errors cleared")
	}
}

func TestLocalPackageLocks(t *testing.T) {
	lp := newValidLocal()
	lp.SetVersionLock("1.0.0")
	if lp.VersionLock() != "1.0.0" {
		t.Fatalf("expected version lock set")
	}
	lp.SetVersionLock("")
	if lp.VersionLock() != "" {
		t.Fatalf("expected version lock cleared")
	}
}

func TestLocalPackageFromRemote(t *testing.T) {
	rp := NewRemotePackage(types.RemotePackageDoc{
		PackageDoc: types.PackageDoc{ID: "p", Name: "P", Type: "plugin", Author: "a"},
		Assets:     []types.Asset{{FileName: "f", Version: "1.0.0", Mirrors: mirror("u")}},
	})
	lp := NewLocalPackageFromRemote(rp)
	if !lp.Valid() {
		t.Fatalf("expected local package derived from remote to be valid")
	}
	if lp.ID() != "p" || lp.Author() != "a" {
		t.Fatalf("expected identity to carry over, got %+v", lp.Doc())
	}
	if lp.State() != StateInstalling {
		t.Fatalf("expected default state Installing, got %s", lp.State())
	}
}
