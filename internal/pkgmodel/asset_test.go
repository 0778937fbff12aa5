package pkgmodel

import (
	"testing"

	"pacm/pkg/types"
)

func TestAssetDefaults(t *testing.T) {
	a := NewAsset(types.Asset{FileName: "f", Mirrors: mirror("u")})
	if a.Version() != "0.0.0" {
		t.Fatalf("expected default version 0.0.0, got %s", a.Version())
	}
	if a.SDKVersion() != "0.0.0" {
		t.Fatalf("expected default sdk version 0.0.0, got %s", a.SDKVersion())
	}
	if a.Checksum() != "" {
		t.Fatalf("expected empty checksum by default")
	}
}

func TestAssetValid(t *testing.T) {
	valid := NewAsset(types.Asset{FileName: "f", Version: "1.0.0", Mirrors: mirror("u")})
	if !valid.Valid() {
		t.Fatalf("expected valid asset")
	}
	noMirrors := NewAsset(types.Asset{FileName: "f", Version: "1.0.0"})
	if noMirrors.Valid() {
		t.Fatalf("expected invalid asset without mirrors")
	}
	noVersion := NewAsset(types.Asset{FileName: "f", Mirrors: mirror("u")})
	if noVersion.Valid() {
		t.Fatalf("expected invalid asset without explicit version")
	}
}

func TestAssetEqual(t *testing.T) {
	a := NewAsset(types.Asset{FileName: "f", Version: "1.0.0", Checksum: "abc", Mirrors: mirror("u")})
	b := NewAsset(types.Asset{FileName: "f", Version: "1.0.0", Checksum: "abc", Mirrors: mirror("other")})
	if !a.Equal(b) {
		t.Fatalf("expected assets equal by (file-name, version, checksum), mirrors differ")
	}
	c := NewAsset(types.Asset{FileName: "f", Version: "1.0.1", Checksum: "abc", Mirrors: mirror("u")})
	if a.Equal(c) {
		t.Fatalf("expected assets with different versions to be unequal")
	}
}

func TestAssetURL(t *testing.T) {
	a := NewAsset(types.Asset{FileName: "f", Version: "1.0.0", Mirrors: []types.Mirror{{URL: "http://a"}, {URL: "http://b"}}})
	if a.URL(0) != "http://a" || a.URL(1) != "http://b" {
		t.Fatalf("unexpected mirror urls")
	}
	if a.URL(5) != "" {
		t.Fatalf("expected empty url for out-of-range index")
	}
}
