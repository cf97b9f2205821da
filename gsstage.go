package ihsflow

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"google.golang.org/api/iterator"
)

// IsGoogleStoragePath reports whether path points to a Google Storage object
// or prefix.
func IsGoogleStoragePath(path string) bool {
	return strings.HasPrefix(path, "gs://")
}

// SplitGoogleStoragePath breaks gs://bucket/some/object into its bucket and
// object name.
func SplitGoogleStoragePath(path string) (bucket, object string, err error) {
	pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(pathParts) != 2 || pathParts[0] == "" || pathParts[1] == "" {
		return "", "", fmt.Errorf("Tried to split your google storage path into 2 parts, but got %d: %v", len(pathParts), pathParts)
	}

	return pathParts[0], pathParts[1], nil
}

// MaybeOpenFromGoogleStorage opens path from Google Storage if it is a gs://
// path, and from the local filesystem otherwise.
func MaybeOpenFromGoogleStorage(ctx context.Context, path string, client *storage.Client) (io.ReadCloser, error) {
	if IsGoogleStoragePath(path) {
		if client == nil {
			return nil, pfx.Err(fmt.Errorf("%s: no Google Storage client was initialized", path))
		}

		bucketName, pathName, err := SplitGoogleStoragePath(path)
		if err != nil {
			return nil, pfx.Err(err)
		}

		// Open the bucket with default credentials
		rdr, err := client.Bucket(bucketName).Object(pathName).NewReader(ctx)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
		}

		return rdr, nil
	}

	return os.Open(ExpandHome(path))
}

// StageFromGoogleStorage copies a single gs:// object into localDir and
// returns the local path. Local paths are returned unchanged (after ~
// expansion), so callers can stage every input unconditionally.
func StageFromGoogleStorage(ctx context.Context, path, localDir string, client *storage.Client) (string, error) {
	if !IsGoogleStoragePath(path) {
		return ExpandHome(path), nil
	}

	dest := filepath.Join(localDir, filepath.Base(path))
	if err := copyToLocal(ctx, path, dest, client); err != nil {
		return "", err
	}

	return dest, nil
}

// StagePrefixFromGoogleStorage copies every object below a gs:// "directory"
// into localDir, keeping the object names relative to the prefix, and returns
// localDir. Each prefix needs a localDir of its own, since two prefixes may
// share a base name. Local paths are returned unchanged.
func StagePrefixFromGoogleStorage(ctx context.Context, prefix, localDir string, client *storage.Client) (string, error) {
	if !IsGoogleStoragePath(prefix) {
		return ExpandHome(prefix), nil
	}

	if client == nil {
		return "", pfx.Err(fmt.Errorf("%s: no Google Storage client was initialized", prefix))
	}

	bucketName, pathName, err := SplitGoogleStoragePath(strings.TrimSuffix(prefix, "/") + "/")
	if err != nil {
		return "", pfx.Err(err)
	}

	itr := client.Bucket(bucketName).Objects(ctx, &storage.Query{Prefix: pathName})
	n := 0
	for {
		attrs, err := itr.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return "", pfx.Err(err)
		}

		rel := strings.TrimPrefix(attrs.Name, pathName)
		if rel == "" || strings.HasSuffix(rel, "/") {
			continue
		}

		if err := copyToLocal(ctx, "gs://"+bucketName+"/"+attrs.Name, filepath.Join(localDir, filepath.FromSlash(rel)), client); err != nil {
			return "", err
		}
		n++
	}

	if n == 0 {
		return "", pfx.Err(fmt.Errorf("%s: no objects found", prefix))
	}

	return localDir, nil
}

// UploadToGoogleStorage writes the local file to the gs:// destination.
func UploadToGoogleStorage(ctx context.Context, localPath, dest string, client *storage.Client) error {
	if client == nil {
		return pfx.Err(fmt.Errorf("%s: no Google Storage client was initialized", dest))
	}

	bucketName, pathName, err := SplitGoogleStoragePath(dest)
	if err != nil {
		return pfx.Err(err)
	}

	f, err := os.Open(localPath)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	w := client.Bucket(bucketName).Object(pathName).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return pfx.Err(fmt.Errorf("%s: %s", dest, err))
	}

	// The object is only committed once Close succeeds
	if err := w.Close(); err != nil {
		return pfx.Err(fmt.Errorf("%s: %s", dest, err))
	}

	return nil
}

func copyToLocal(ctx context.Context, path, dest string, client *storage.Client) error {
	rdr, err := MaybeOpenFromGoogleStorage(ctx, path, client)
	if err != nil {
		return err
	}
	defer rdr.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return pfx.Err(err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return pfx.Err(err)
	}

	if _, err := io.Copy(f, rdr); err != nil {
		f.Close()
		os.Remove(dest)
		return pfx.Err(fmt.Errorf("%s: %s", path, err))
	}

	return f.Close()
}
