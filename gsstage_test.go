package ihsflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSplitGoogleStoragePath(t *testing.T) {
	bucket, object, err := SplitGoogleStoragePath("gs://my-bucket/maps/plink.chr1.GRCh37.map")
	if err != nil {
		t.Fatal(err)
	}
	if bucket != "my-bucket" || object != "maps/plink.chr1.GRCh37.map" {
		t.Errorf("Got bucket %q object %q", bucket, object)
	}

	for _, bad := range []string{"gs://my-bucket", "gs://my-bucket/", "gs:///object"} {
		if _, _, err := SplitGoogleStoragePath(bad); err == nil {
			t.Errorf("%s: expected an error", bad)
		}
	}
}

func TestStageLocalPassthrough(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	local := filepath.Join(dir, "EUR.txt")
	if err := os.WriteFile(local, []byte("HG00096\n"), 0644); err != nil {
		t.Fatal(err)
	}

	staged, err := StageFromGoogleStorage(ctx, local, filepath.Join(dir, "staging"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if staged != local {
		t.Errorf("Expected %s, got %s", local, staged)
	}

	staged, err = StagePrefixFromGoogleStorage(ctx, dir, filepath.Join(dir, "staging"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if staged != dir {
		t.Errorf("Expected %s, got %s", dir, staged)
	}

	if _, err := os.Stat(filepath.Join(dir, "staging")); !os.IsNotExist(err) {
		t.Error("Local inputs should not create a staging directory")
	}
}

func TestGoogleStorageRequiresClient(t *testing.T) {
	ctx := context.Background()

	if _, err := StageFromGoogleStorage(ctx, "gs://bucket/EUR.txt", t.TempDir(), nil); err == nil {
		t.Error("Expected an error without a client")
	}

	if err := UploadToGoogleStorage(ctx, "EUR_allChr_iHS.csv", "gs://bucket/EUR_allChr_iHS.csv", nil); err == nil {
		t.Error("Expected an error without a client")
	}
}
