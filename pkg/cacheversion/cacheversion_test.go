package cacheversion

import "testing"

func TestCurrentVersionsAreSupported(t *testing.T) {
	if !CurrentFileVersion.Supported() {
		t.Fatal("current file version is not marked supported")
	}
	if !CurrentMetadataVersion.Supported() {
		t.Fatal("current metadata version is not marked supported")
	}
}

func TestFileVersionForKnownMetadataVersion(t *testing.T) {
	fv, ok := FileVersionFor(CurrentMetadataVersion)
	if !ok {
		t.Fatal("expected current metadata version to map to a file version")
	}
	if fv != CurrentFileVersion {
		t.Fatalf("FileVersionFor(current) = %v, want %v", fv, CurrentFileVersion)
	}
}

func TestFileVersionForUnknownMetadataVersion(t *testing.T) {
	if _, ok := FileVersionFor(MetadataVersion(999)); ok {
		t.Fatal("expected unknown metadata version to be unmapped")
	}
}

func TestUnsupportedVersionsAreRejected(t *testing.T) {
	if FileVersion(999).Supported() {
		t.Fatal("unknown file version unexpectedly reported as supported")
	}
	if MetadataVersion(999).Supported() {
		t.Fatal("unknown metadata version unexpectedly reported as supported")
	}
}
